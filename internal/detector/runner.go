package detector

import (
	"fmt"
	"iter"
	"sort"

	"github.com/example/manifest-audit/internal/manifest"
)

// Registry maps rule names to constructors.
type Registry map[string]Factory

// Factory builds a rule instance.
type Factory func(opts Options) Rule

// DefaultRegistry contains built-in rules.
var DefaultRegistry = Registry{
	ImplicitExportRule: func(opts Options) Rule { return NewImplicitExport(opts) },
}

// DefaultRules lists the rules run when none are selected.
func DefaultRules() []string {
	return []string{ImplicitExportRule}
}

// Names returns the registered rule names in lexical order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildRules instantiates rules from the provided names.
func (r Registry) BuildRules(names []string, opts Options) ([]Rule, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var rules []Rule
	seen := map[string]struct{}{}
	for _, name := range names {
		factory, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule: %s", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		rules = append(rules, factory(opts))
	}
	return rules, nil
}

// Run evaluates rules against every component that accepts external triggers.
// Components without an intent-filter are skipped entirely. Violations keep document order.
func Run(rules []Rule, components iter.Seq[manifest.Component]) []Violation {
	if len(rules) == 0 {
		return nil
	}

	var violations []Violation
	for c := range components {
		if !c.AcceptsExternalTriggers {
			continue
		}
		for _, rule := range rules {
			if v, ok := rule.Check(c); ok {
				violations = append(violations, v)
			}
		}
	}
	return violations
}
