// Package report renders audit results and maps them to process exit codes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/example/manifest-audit/internal/audit"
	"github.com/example/manifest-audit/internal/events"
	"github.com/example/manifest-audit/internal/risk"
)

// Exit codes shared with the CLI.
const (
	ExitPass       = 0
	ExitFailure    = 1
	ExitViolations = 2
)

// Format selects the report encoding.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatNDJSON)}
}

// ParseFormat validates a format name. Empty means text.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatNDJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want one of %s)", value, strings.Join(Formats(), ", "))
	}
}

// ExitStatus returns ExitPass for a clean result and ExitViolations otherwise.
func ExitStatus(res audit.Result) int {
	if res.Passed() {
		return ExitPass
	}
	return ExitViolations
}

// Reporter writes one audit result to an output stream.
type Reporter struct {
	out    io.Writer
	format Format
	styles palette
}

// New builds a reporter. Styled enables terminal colors for the text format.
func New(w io.Writer, format Format, styled bool) *Reporter {
	styles := plainPalette()
	if styled {
		styles = colorPalette(w)
	}
	return &Reporter{out: w, format: format, styles: styles}
}

// Write renders res in the configured format.
func (r *Reporter) Write(res audit.Result) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(res)
	case FormatNDJSON:
		return r.writeNDJSON(res)
	default:
		return r.writeText(res)
	}
}

func (r *Reporter) writeText(res audit.Result) error {
	var b strings.Builder

	if res.Passed() {
		fmt.Fprintf(&b, "%s: no components accept external intents without an explicit android:exported in %s\n",
			r.styles.pass(string(audit.StatusPass)), res.Path)
		_, err := io.WriteString(r.out, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s: %d component(s) accept external intents without an explicit android:exported in %s\n",
		r.styles.fail(string(audit.StatusFail)), len(res.Findings), res.Path)

	for _, f := range res.Findings {
		fmt.Fprintf(&b, "  [%s] %s\n", f.Kind, r.styles.bold(f.Identifier))
		fmt.Fprintf(&b, "      issue:       %s (%s)\n", f.Issue, f.IssueCode)
		fmt.Fprintf(&b, "      risk:        %d %s\n", f.RiskScore, r.styles.tier(f.RiskTier))
		fmt.Fprintf(&b, "      permissions: %s\n", joinPermissions(f.Permissions))
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Reporter) writeJSON(res audit.Result) error {
	data, err := json.MarshalIndent(NewSummary(res), "", "  ")
	if err != nil {
		return err
	}
	_, err = r.out.Write(append(data, '\n'))
	return err
}

func (r *Reporter) writeNDJSON(res audit.Result) error {
	emitter := events.NewEmitter(r.out, events.WithoutTimestamps())

	for _, f := range res.Findings {
		if err := emitter.Emit(events.Event{Type: "finding", Message: f.Issue, Fields: map[string]interface{}{
			"kind":        f.Kind,
			"identifier":  f.Identifier,
			"issueCode":   f.IssueCode,
			"riskScore":   f.RiskScore,
			"riskTier":    f.RiskTier,
			"permissions": f.Permissions,
		}}); err != nil {
			return err
		}
	}

	return emitter.Emit(events.Event{Type: "audit-finished", Message: string(res.Status()), Fields: map[string]interface{}{
		"path":      res.Path,
		"findings":  len(res.Findings),
		"riskScore": res.Risk.Score,
		"riskTier":  res.Risk.Tier,
	}})
}

func joinPermissions(perms []string) string {
	if len(perms) == 0 {
		return "none"
	}
	return strings.Join(perms, ", ")
}

type palette struct {
	pass func(string) string
	fail func(string) string
	bold func(string) string
	tier func(risk.Tier) string
}

func plainPalette() palette {
	identity := func(s string) string { return s }
	return palette{
		pass: identity,
		fail: identity,
		bold: identity,
		tier: func(t risk.Tier) string { return string(t) },
	}
}

func colorPalette(w io.Writer) palette {
	renderer := lipgloss.NewRenderer(w)
	pass := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	fail := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#E74C3C"))
	bold := renderer.NewStyle().Bold(true)
	tiers := map[risk.Tier]lipgloss.Style{
		risk.TierLow:    renderer.NewStyle().Foreground(lipgloss.Color("#2C4A54")),
		risk.TierMedium: renderer.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
		risk.TierHigh:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#E74C3C")),
	}

	return palette{
		pass: func(s string) string { return pass.Render(s) },
		fail: func(s string) string { return fail.Render(s) },
		bold: func(s string) string { return bold.Render(s) },
		tier: func(t risk.Tier) string {
			if style, ok := tiers[t]; ok {
				return style.Render(string(t))
			}
			return string(t)
		},
	}
}
