// Package audit runs the manifest audit pipeline: load, collect permissions,
// scan components, detect violations and attach the document risk score.
package audit

import (
	"slices"

	"github.com/example/manifest-audit/internal/detector"
	"github.com/example/manifest-audit/internal/manifest"
	"github.com/example/manifest-audit/internal/risk"
	"go.uber.org/zap"
)

// Status is the overall verdict of a run.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Finding is one violation with the document risk attached.
type Finding struct {
	Kind        string    `json:"kind"`
	Identifier  string    `json:"identifier"`
	IssueCode   string    `json:"issueCode"`
	Issue       string    `json:"issue"`
	RiskScore   int       `json:"riskScore"`
	RiskTier    risk.Tier `json:"riskTier"`
	Permissions []string  `json:"permissions"`
}

// Result is the outcome of auditing one document.
type Result struct {
	Path        string                  `json:"path"`
	Findings    []Finding               `json:"findings"`
	Risk        risk.Assessment         `json:"risk"`
	Permissions []string                `json:"permissions"`
	Skipped     []manifest.SkippedEntry `json:"skipped,omitempty"`
}

// Passed reports whether the document produced no findings.
func (r Result) Passed() bool {
	return len(r.Findings) == 0
}

// Status returns PASS or FAIL.
func (r Result) Status() Status {
	if r.Passed() {
		return StatusPass
	}
	return StatusFail
}

// Engine holds the injected scorer and rules. It keeps no per-run state and
// can audit several documents concurrently.
type Engine struct {
	scorer *risk.Scorer
	rules  []detector.Rule
	logger *zap.SugaredLogger
}

// NewEngine wires an engine. A nil logger discards logs.
func NewEngine(scorer *risk.Scorer, rules []detector.Rule, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{scorer: scorer, rules: rules, logger: logger}
}

// Run loads the manifest at path and audits it. Load failures abort before any finding is produced.
func (e *Engine) Run(path string) (Result, error) {
	doc, err := manifest.Load(path)
	if err != nil {
		return Result{}, err
	}
	e.logger.Debugw("document loaded", "path", path)

	return e.Audit(doc), nil
}

// Audit evaluates an already parsed document.
func (e *Engine) Audit(doc *manifest.Document) Result {
	perms := manifest.CollectPermissions(doc.Root)
	for _, skipped := range perms.Skipped {
		e.logger.Warnw("skipping malformed permission request", "tag", skipped.Tag, "index", skipped.Index, "reason", skipped.Reason)
	}

	sorted := perms.Permissions.Sorted()
	e.logger.Debugw("permissions collected", "count", len(sorted))

	violations := detector.Run(e.rules, manifest.Components(doc.Root))
	e.logger.Debugw("components scanned", "violations", len(violations))

	assessment := e.scorer.Assess(perms.Permissions)
	e.logger.Debugw("risk scored", "score", assessment.Score, "tier", assessment.Tier)

	findings := make([]Finding, 0, len(violations))
	for _, v := range violations {
		findings = append(findings, Finding{
			Kind:        v.Component.Kind.String(),
			Identifier:  v.Component.Identifier,
			IssueCode:   v.Code,
			Issue:       v.Message,
			RiskScore:   assessment.Score,
			RiskTier:    assessment.Tier,
			Permissions: slices.Clone(sorted),
		})
	}

	return Result{
		Path:        doc.Path,
		Findings:    findings,
		Risk:        assessment,
		Permissions: sorted,
		Skipped:     perms.Skipped,
	}
}
