package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/manifest-audit/internal/audit"
	"github.com/example/manifest-audit/internal/manifest"
	"github.com/example/manifest-audit/internal/risk"
)

// Summary is the JSON document written by the json format and --summary-file.
type Summary struct {
	Path        string                  `json:"path"`
	Status      audit.Status            `json:"status"`
	Risk        risk.Assessment         `json:"risk"`
	Permissions []string                `json:"permissions"`
	Findings    []audit.Finding         `json:"findings"`
	Skipped     []manifest.SkippedEntry `json:"skipped,omitempty"`
}

// NewSummary converts a result to its JSON shape.
func NewSummary(res audit.Result) Summary {
	findings := res.Findings
	if findings == nil {
		findings = []audit.Finding{}
	}
	perms := res.Permissions
	if perms == nil {
		perms = []string{}
	}
	return Summary{
		Path:        res.Path,
		Status:      res.Status(),
		Risk:        res.Risk,
		Permissions: perms,
		Findings:    findings,
		Skipped:     res.Skipped,
	}
}

// WriteSummary stores the JSON summary at path, creating parent directories.
func WriteSummary(path string, res audit.Result) error {
	data, err := json.MarshalIndent(NewSummary(res), "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadSummary loads a summary previously written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("decode summary %s: %w", path, err)
	}
	return s, nil
}

// Stats aggregates a summary for the report command.
type Stats struct {
	Path      string         `json:"path"`
	Status    audit.Status   `json:"status"`
	Findings  int            `json:"findings"`
	ByKind    map[string]int `json:"byKind"`
	ByIssue   map[string]int `json:"byIssue"`
	RiskScore int            `json:"riskScore"`
	RiskTier  risk.Tier      `json:"riskTier"`
}

// Aggregate counts findings per component kind and issue code.
func (s Summary) Aggregate() Stats {
	stats := Stats{
		Path:      s.Path,
		Status:    s.Status,
		Findings:  len(s.Findings),
		ByKind:    map[string]int{},
		ByIssue:   map[string]int{},
		RiskScore: s.Risk.Score,
		RiskTier:  s.Risk.Tier,
	}
	for _, f := range s.Findings {
		stats.ByKind[f.Kind]++
		stats.ByIssue[f.IssueCode]++
	}
	return stats
}
