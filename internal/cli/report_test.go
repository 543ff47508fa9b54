package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/manifest-audit/internal/report"
)

func TestReportCommandAggregatesSummary(t *testing.T) {
	components := implicitActivity + `
        <receiver android:name=".Boot"><intent-filter/></receiver>`
	manifestPath := writeManifest(t, []string{"android.permission.READ_SMS"}, components)

	dir := t.TempDir()
	summaryPath := filepath.Join(dir, "summary.json")
	if code, _, errOut := runCLI(t, "--summary-file", summaryPath, manifestPath); code != report.ExitViolations {
		t.Fatalf("audit failed unexpectedly (%d): %s", code, errOut)
	}

	statsPath := filepath.Join(dir, "stats", "stats.json")
	code, out, errOut := runCLI(t, "report", "--input", summaryPath, "--summary-file", statsPath)
	if code != report.ExitPass {
		t.Fatalf("report failed (%d): %s", code, errOut)
	}

	firstLine := strings.SplitN(out, "\n", 2)[0]
	var evt struct {
		Type   string                 `json:"type"`
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(firstLine), &evt); err != nil {
		t.Fatalf("report event is not JSON: %v (%q)", err, firstLine)
	}
	if evt.Type != "report" || evt.Fields["findings"] != float64(2) || evt.Fields["status"] != "FAIL" {
		t.Fatalf("unexpected report event: %+v", evt)
	}

	data, err := os.ReadFile(statsPath)
	if err != nil {
		t.Fatalf("stats not written: %v", err)
	}
	var stats report.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.ByKind["activity"] != 1 || stats.ByKind["receiver"] != 1 {
		t.Fatalf("unexpected per-kind counts: %v", stats.ByKind)
	}
}

func TestReportCommandRequiresInput(t *testing.T) {
	if code, _, _ := runCLI(t, "report"); code != report.ExitFailure {
		t.Fatalf("expected exit 1 without --input, got %d", code)
	}

	if code, _, _ := runCLI(t, "report", "--input", filepath.Join(t.TempDir(), "missing.json")); code != report.ExitFailure {
		t.Fatalf("expected exit 1 for missing input, got %d", code)
	}
}
