package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

func sev(kind string, s model.Severity, line int) model.Finding {
	return model.Finding{Kind: kind, Severity: s, Line: model.LineRef(line)}
}

func TestFilterBySeverity(t *testing.T) {
	in := []model.Finding{sev("a", model.SeverityLow, 1), sev("b", model.SeverityHigh, 2), sev("c", model.SeverityMedium, 3)}
	out := FilterBySeverity(in, model.SeverityMedium)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Kind)
	assert.NotNil(t, FilterBySeverity(nil, model.SeverityLow))

	r := model.NewAnalysisResult("C")
	r.Findings = in
	r.SecurityScore = 42
	f := FilterResult(r, model.SeverityHigh)
	assert.Len(t, f.Findings, 1)
	assert.Len(t, r.Findings, 3)
	assert.Equal(t, 42, f.SecurityScore)
}

func TestCalibrateFindings(t *testing.T) {
	findings := []model.Finding{sev("x", model.SeverityHigh, 4), sev("y", model.SeverityLow, 5), sev("x", model.SeverityMedium, 4)}
	vulns := []model.Finding{sev("x", model.SeverityCritical, 4), sev("z", model.SeverityHigh, 7), sev("z", model.SeverityHigh, 7)}
	f, v := calibrateFindings(findings, vulns)
	require.Len(t, f, 2)
	assert.Equal(t, "x", f[0].Kind)
	assert.Equal(t, model.SeverityCritical, f[0].Severity)
	assert.Equal(t, "y", f[1].Kind)
	require.Len(t, v, 1)
	assert.Equal(t, "z", v[0].Kind)
}

func TestInlineSuppression(t *testing.T) {
	unit := solidity.NewSourceUnit("a\n// smartaudit:ignore Low-level call\nx.call(\"\");\ny.call(\"\"); // smartaudit:ignore\n", "")
	assert.True(t, hasInlineSuppression(unit, "Low-level call", 3))
	assert.True(t, hasInlineSuppression(unit, "low-level CALL", 2))
	assert.False(t, hasInlineSuppression(unit, "Unchecked send", 3))
	assert.True(t, hasInlineSuppression(unit, "Unchecked send", 4))
	assert.False(t, hasInlineSuppression(unit, "Low-level call", 1))
	assert.False(t, hasInlineSuppression(unit, "Low-level call", 0))
}

func TestLoadBaselineFormats(t *testing.T) {
	dir := t.TempDir()
	arr := filepath.Join(dir, "arr.json")
	require.NoError(t, os.WriteFile(arr, []byte(`["abc","def"]`), 0o644))
	b, err := LoadBaseline(arr)
	require.NoError(t, err)
	assert.True(t, b.Fingerprints["abc"])
	assert.Len(t, b.Fingerprints, 2)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	_, err = LoadBaseline(bad)
	assert.Error(t, err)

	empty, err := LoadBaseline("")
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	_, err = LoadBaseline(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
