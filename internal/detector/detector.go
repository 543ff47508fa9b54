package detector

import "github.com/example/manifest-audit/internal/manifest"

// Violation is a single rule hit on a component.
type Violation struct {
	Component manifest.Component
	Rule      string
	Code      string
	Message   string
}

// Options tune how rules evaluate components.
type Options struct {
	// Strict makes rules validate attribute values instead of only checking presence.
	Strict bool
}

// Rule is implemented by checks that inspect components reachable from other apps.
type Rule interface {
	Name() string
	Check(c manifest.Component) (Violation, bool)
}
