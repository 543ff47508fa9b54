package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
)

func ensureParentDir(path string) error {
	if path == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
