package detector

import "github.com/example/manifest-audit/internal/manifest"

const (
	ImplicitExportRule = "implicit-export"

	CodeImplicitExport     = "implicit-export"
	CodeInvalidExportValue = "invalid-export-value"

	messageImplicitExport     = "intent-filter declared without explicit android:exported"
	messageInvalidExportValue = "android:exported must be \"true\" or \"false\""
)

// ImplicitExport flags components with an intent-filter and no android:exported attribute.
// Any value counts as a declaration unless strict mode is on, in which case only
// "true" and "false" are accepted.
type ImplicitExport struct {
	strict bool
}

// NewImplicitExport builds the rule.
func NewImplicitExport(opts Options) *ImplicitExport {
	return &ImplicitExport{strict: opts.Strict}
}

// Name implements Rule.
func (r *ImplicitExport) Name() string {
	return ImplicitExportRule
}

// Check implements Rule.
func (r *ImplicitExport) Check(c manifest.Component) (Violation, bool) {
	if !c.HasExported {
		return Violation{Component: c, Rule: r.Name(), Code: CodeImplicitExport, Message: messageImplicitExport}, true
	}

	if r.strict && c.Exported != "true" && c.Exported != "false" {
		return Violation{Component: c, Rule: r.Name(), Code: CodeInvalidExportValue, Message: messageInvalidExportValue}, true
	}

	return Violation{}, false
}
