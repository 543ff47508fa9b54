package audit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/manifest-audit/internal/detector"
	"github.com/example/manifest-audit/internal/manifest"
	"github.com/example/manifest-audit/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	permFive = "android.permission.READ_SMS"
	permFour = "android.permission.CAMERA"
)

func newTestEngine(t *testing.T, strict bool) *Engine {
	t.Helper()
	rules, err := detector.DefaultRegistry.BuildRules(detector.DefaultRules(), detector.Options{Strict: strict})
	require.NoError(t, err)

	scorer := risk.NewScorer(map[string]int{permFive: 5, permFour: 4}, risk.Thresholds{Medium: 3, High: 6})
	return NewEngine(scorer, rules, nil)
}

func manifestWith(permissions []string, components string) string {
	var b strings.Builder
	b.WriteString(`<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example">` + "\n")
	for _, p := range permissions {
		b.WriteString(`  <uses-permission android:name="` + p + `"/>` + "\n")
	}
	b.WriteString("  <application>\n" + components + "\n  </application>\n</manifest>\n")
	return b.String()
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AndroidManifest.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const implicitActivity = `<activity android:name=".MainActivity"><intent-filter><action android:name="android.intent.action.VIEW"/></intent-filter></activity>`

func TestScenarios(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		components  string
		findings    int
		score       int
		tier        risk.Tier
	}{
		{
			name:       "implicit export without permissions",
			components: implicitActivity,
			findings:   1,
			score:      0,
			tier:       risk.TierLow,
		},
		{
			name:        "implicit export with medium permission",
			permissions: []string{permFive},
			components:  implicitActivity,
			findings:    1,
			score:       5,
			tier:        risk.TierMedium,
		},
		{
			name:       "explicit exported false",
			components: `<activity android:name=".MainActivity" android:exported="false"><intent-filter/></activity>`,
			findings:   0,
			score:      0,
			tier:       risk.TierLow,
		},
		{
			name:       "no intent filter",
			components: `<activity android:name=".MainActivity"/>`,
			findings:   0,
			score:      0,
			tier:       risk.TierLow,
		},
		{
			name:        "two permissions reach high",
			permissions: []string{permFive, permFour},
			components:  implicitActivity,
			findings:    1,
			score:       9,
			tier:        risk.TierHigh,
		},
		{
			name:       "empty exported value is compliant",
			components: `<service android:name=".S" android:exported=""><intent-filter/></service>`,
			findings:   0,
			score:      0,
			tier:       risk.TierLow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestEngine(t, false)
			res, err := engine.Run(writeFile(t, manifestWith(tc.permissions, tc.components)))
			require.NoError(t, err)

			require.Len(t, res.Findings, tc.findings)
			assert.Equal(t, tc.score, res.Risk.Score)
			assert.Equal(t, tc.tier, res.Risk.Tier)
			assert.Equal(t, tc.findings == 0, res.Passed())

			for _, f := range res.Findings {
				assert.Equal(t, tc.score, f.RiskScore)
				assert.Equal(t, tc.tier, f.RiskTier)
				assert.Equal(t, detector.CodeImplicitExport, f.IssueCode)
			}
		})
	}
}

func TestScoreIsSharedAcrossFindings(t *testing.T) {
	components := implicitActivity + `
    <service android:name=".Sync"><intent-filter/></service>
    <receiver android:name=".Boot"><intent-filter/></receiver>
    <receiver android:name=".Quiet" android:exported="true"><intent-filter/></receiver>`

	engine := newTestEngine(t, false)
	res, err := engine.Run(writeFile(t, manifestWith([]string{permFour, "com.vendor.CUSTOM", permFive}, components)))
	require.NoError(t, err)

	require.Len(t, res.Findings, 3)
	assert.Equal(t, StatusFail, res.Status())

	wantPerms := []string{permFour, permFive, "com.vendor.CUSTOM"}
	kinds := []string{"activity", "service", "receiver"}
	ids := []string{".MainActivity", ".Sync", ".Boot"}
	for i, f := range res.Findings {
		assert.Equal(t, kinds[i], f.Kind)
		assert.Equal(t, ids[i], f.Identifier)
		assert.Equal(t, 9, f.RiskScore)
		assert.Equal(t, risk.TierHigh, f.RiskTier)
		assert.Equal(t, wantPerms, f.Permissions)
	}
}

func TestStrictModeFlagsInvalidValues(t *testing.T) {
	body := manifestWith(nil, `<activity android:name=".A" android:exported="yes"><intent-filter/></activity>`)

	lenient, err := newTestEngine(t, false).Run(writeFile(t, body))
	require.NoError(t, err)
	assert.True(t, lenient.Passed())

	strict, err := newTestEngine(t, true).Run(writeFile(t, body))
	require.NoError(t, err)
	require.Len(t, strict.Findings, 1)
	assert.Equal(t, detector.CodeInvalidExportValue, strict.Findings[0].IssueCode)
}

func TestRunMissingFile(t *testing.T) {
	_, err := newTestEngine(t, false).Run(filepath.Join(t.TempDir(), "nope.xml"))

	var nf *manifest.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestRunMalformedFile(t *testing.T) {
	_, err := newTestEngine(t, false).Run(writeFile(t, "<manifest><application></manifest>"))

	var pe *manifest.ParseError
	require.True(t, errors.As(err, &pe))
}

func TestAuditRecordsSkippedPermissions(t *testing.T) {
	body := strings.Replace(manifestWith([]string{permFive}, implicitActivity), "<application>", "<uses-permission/>\n  <application>", 1)
	doc, err := manifest.Parse("inline", strings.NewReader(body))
	require.NoError(t, err)

	res := newTestEngine(t, false).Audit(doc)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "missing android:name", res.Skipped[0].Reason)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, 5, res.Findings[0].RiskScore)
}
