package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/manifest-audit/internal/report"
)

const manifestHeader = `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example.app">
`

func writeManifest(t *testing.T, permissions []string, components string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(manifestHeader)
	for _, p := range permissions {
		b.WriteString(`    <uses-permission android:name="` + p + `" />` + "\n")
	}
	b.WriteString("    <application>\n" + components + "\n    </application>\n</manifest>\n")

	path := filepath.Join(t.TempDir(), "AndroidManifest.xml")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

const (
	implicitActivity = `        <activity android:name=".MainActivity">
            <intent-filter>
                <action android:name="android.intent.action.VIEW" />
            </intent-filter>
        </activity>`

	weightFlagFive = "android.permission.CUSTOM_FIVE=5"
	weightFlagFour = "android.permission.CUSTOM_FOUR=4"
)

func TestAuditScenarios(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		components  string
		wantCode    int
		wantOut     []string
	}{
		{
			name:       "implicit export without permissions",
			components: implicitActivity,
			wantCode:   report.ExitViolations,
			wantOut:    []string{"FAIL: 1 component(s)", "[activity] .MainActivity", "risk:        0 LOW", "(implicit-export)"},
		},
		{
			name:        "medium permission",
			permissions: []string{"android.permission.CUSTOM_FIVE"},
			components:  implicitActivity,
			wantCode:    report.ExitViolations,
			wantOut:     []string{"risk:        5 MEDIUM"},
		},
		{
			name:       "explicit exported false passes",
			components: `<activity android:name=".MainActivity" android:exported="false"><intent-filter/></activity>`,
			wantCode:   report.ExitPass,
			wantOut:    []string{"PASS"},
		},
		{
			name:       "no intent filter passes",
			components: `<activity android:name=".MainActivity"/>`,
			wantCode:   report.ExitPass,
			wantOut:    []string{"PASS"},
		},
		{
			name:        "combined permissions reach high",
			permissions: []string{"android.permission.CUSTOM_FIVE", "android.permission.CUSTOM_FOUR"},
			components:  implicitActivity,
			wantCode:    report.ExitViolations,
			wantOut:     []string{"risk:        9 HIGH"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.permissions, tc.components)
			code, out, errOut := runCLI(t, "--weight", weightFlagFive, "--weight", weightFlagFour, path)

			if code != tc.wantCode {
				t.Fatalf("expected exit %d, got %d (stdout=%q stderr=%q)", tc.wantCode, code, out, errOut)
			}
			for _, want := range tc.wantOut {
				if !strings.Contains(out, want) {
					t.Fatalf("stdout missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestAuditMissingFileExitsOne(t *testing.T) {
	code, out, errOut := runCLI(t, filepath.Join(t.TempDir(), "AndroidManifest.xml"))

	if code != report.ExitFailure {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if out != "" {
		t.Fatalf("no report expected on stdout, got %q", out)
	}
	if !strings.Contains(errOut, "manifest not found") {
		t.Fatalf("expected not-found message, got %q", errOut)
	}
}

func TestAuditMalformedManifestExitsOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AndroidManifest.xml")
	if err := os.WriteFile(path, []byte("<manifest><application></manifest>"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	code, _, errOut := runCLI(t, path)
	if code != report.ExitFailure {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "parse manifest") {
		t.Fatalf("expected parse error, got %q", errOut)
	}
}

func TestAuditUndeclaredAndroidPrefixExitsOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AndroidManifest.xml")
	body := `<manifest>
    <uses-permission android:name="android.permission.READ_SMS" />
    <application>
        <activity android:name=".Main" android:exported="false"><intent-filter/></activity>
    </application>
</manifest>`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	code, out, errOut := runCLI(t, path)
	if code != report.ExitFailure {
		t.Fatalf("expected exit 1, got %d (stdout %q)", code, out)
	}
	if !strings.Contains(errOut, "unbound namespace prefix") {
		t.Fatalf("expected unbound prefix error, got %q", errOut)
	}
}

func TestAuditUsageErrors(t *testing.T) {
	if code, _, _ := runCLI(t); code != report.ExitFailure {
		t.Fatalf("missing argument should exit 1, got %d", code)
	}

	path := writeManifest(t, nil, implicitActivity)
	if code, _, _ := runCLI(t, path, "extra"); code != report.ExitFailure {
		t.Fatalf("extra argument should exit 1, got %d", code)
	}

	if code, _, _ := runCLI(t, "--bogus", path); code != report.ExitFailure {
		t.Fatalf("unknown flag should exit 1, got %d", code)
	}
}

func TestAuditConfigErrorsExitOne(t *testing.T) {
	path := writeManifest(t, nil, implicitActivity)

	tests := map[string][]string{
		"high below medium": {"--medium-floor", "5", "--high-floor", "4", path},
		"bad weight":        {"--weight", "perm.a=-1", path},
		"unknown rule":      {"--rules", "nope", path},
		"bad format":        {"--format", "sarif", path},
		"missing config":    {"--config", filepath.Join(t.TempDir(), "absent.yml"), path},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, out, errOut := runCLI(t, args...)
			if code != report.ExitFailure {
				t.Fatalf("expected exit 1, got %d", code)
			}
			if out != "" {
				t.Fatalf("no report expected, got %q", out)
			}
			if !strings.Contains(errOut, "invalid configuration") {
				t.Fatalf("expected configuration error, got %q", errOut)
			}
		})
	}
}

func TestAuditUsesConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "risk.config.yml")
	body := "replaceWeights: true\nweights:\n  android.permission.CUSTOM_FIVE: 5\nthresholds:\n  medium: 6\n  high: 10\n"
	if err := os.WriteFile(configPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	path := writeManifest(t, []string{"android.permission.CUSTOM_FIVE", "android.permission.CAMERA"}, implicitActivity)
	code, out, _ := runCLI(t, "--config", configPath, path)

	if code != report.ExitViolations {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(out, "risk:        5 LOW") {
		t.Fatalf("expected config thresholds to apply, got:\n%s", out)
	}
}

func TestAuditOutputIsIdempotent(t *testing.T) {
	components := implicitActivity + `
        <service android:name=".Sync"><intent-filter/></service>
        <receiver><intent-filter/></receiver>`
	path := writeManifest(t, []string{"android.permission.CAMERA", "android.permission.READ_SMS"}, components)

	for _, format := range report.Formats() {
		t.Run(format, func(t *testing.T) {
			_, first, _ := runCLI(t, "--format", format, path)
			_, second, _ := runCLI(t, "--format", format, path)
			if first != second {
				t.Fatalf("output differs between runs:\n%s\n---\n%s", first, second)
			}
		})
	}
}

func TestAuditStrictFlag(t *testing.T) {
	path := writeManifest(t, nil, `<activity android:name=".A" android:exported="maybe"><intent-filter/></activity>`)

	if code, _, _ := runCLI(t, path); code != report.ExitPass {
		t.Fatalf("presence-only check should pass, got %d", code)
	}

	code, out, _ := runCLI(t, "--strict", path)
	if code != report.ExitViolations {
		t.Fatalf("strict mode should fail, got %d", code)
	}
	if !strings.Contains(out, "invalid-export-value") {
		t.Fatalf("expected invalid-export-value finding, got:\n%s", out)
	}
}

func TestAuditWritesSummaryAndJSON(t *testing.T) {
	path := writeManifest(t, []string{"android.permission.READ_SMS"}, implicitActivity)
	summaryPath := filepath.Join(t.TempDir(), "out", "summary.json")

	code, out, _ := runCLI(t, "--format", "json", "--summary-file", summaryPath, path)
	if code != report.ExitViolations {
		t.Fatalf("expected exit 2, got %d", code)
	}

	var fromStdout report.Summary
	if err := json.Unmarshal([]byte(out), &fromStdout); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}

	fromFile, err := report.ReadSummary(summaryPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}

	if fromFile.Status != "FAIL" || len(fromFile.Findings) != 1 || fromFile.Risk.Score != 5 {
		t.Fatalf("unexpected summary: %+v", fromFile)
	}
	if fromStdout.Path != fromFile.Path {
		t.Fatalf("stdout and summary disagree: %q vs %q", fromStdout.Path, fromFile.Path)
	}
}

func TestAuditDebugLogsGoToStderr(t *testing.T) {
	path := writeManifest(t, nil, implicitActivity)
	_, out, errOut := runCLI(t, "--debug", path)

	if strings.Contains(out, "document loaded") {
		t.Fatalf("debug logs leaked into the report: %q", out)
	}
	if !strings.Contains(errOut, "document loaded") {
		t.Fatalf("expected debug logs on stderr, got %q", errOut)
	}
}

func TestVersionFlag(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != report.ExitPass || !strings.Contains(out, "manifest-audit version") {
		t.Fatalf("unexpected version output (%d): %q", code, out)
	}
}

func TestExitCodeMapping(t *testing.T) {
	buf := &bytes.Buffer{}
	if got := exitCode(nil, buf); got != 0 {
		t.Fatalf("nil error should map to 0, got %d", got)
	}
	if got := exitCode(&ExitError{Code: 2}, buf); got != 2 || buf.Len() != 0 {
		t.Fatalf("silent exit error should map to 2 without output, got %d (%q)", got, buf.String())
	}
	if got := exitCode(os.ErrPermission, buf); got != 1 || !strings.Contains(buf.String(), "Error:") {
		t.Fatalf("plain error should map to 1 with a message, got %d (%q)", got, buf.String())
	}
}
