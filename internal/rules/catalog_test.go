package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/smartaudit/internal/model"
)

func TestCatalogTables(t *testing.T) {
	for name, table := range map[string][]Rule{
		"security":        Security(),
		"vulnerabilities": Vulnerabilities(),
		"gas":             Gas(),
		"heuristics":      Heuristics(),
		"structural":      Structural(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, table)
			for _, r := range table {
				assert.NotNil(t, r.Pattern, r.Kind)
				assert.NotEmpty(t, r.Description, r.Kind)
				assert.NotEmpty(t, r.Recommendation, r.Kind)
				assert.NotZero(t, r.Severity.Rank(), r.Kind)
				assert.NotEmpty(t, r.Scope, r.Kind)
			}
		})
	}
	for _, r := range Gas() {
		assert.Equal(t, model.CategoryGas, r.Category)
		assert.Equal(t, model.SeverityLow, r.Severity)
	}
}

func TestStructuralRulesAreRelational(t *testing.T) {
	for _, r := range Structural() {
		assert.Equal(t, ScopeRelational, r.Scope, r.Kind)
		assert.Equal(t, model.CategoryVulnerability, r.Category, r.Kind)
		found, ok := Lookup(r.Kind)
		require.True(t, ok, r.Kind)
		assert.Equal(t, r.Severity, found.Severity)
	}
}

func TestTxOriginIsUnitScopedCritical(t *testing.T) {
	r, ok := Lookup("tx.origin usage")
	require.True(t, ok)
	assert.Equal(t, ScopeUnit, r.Scope)
	assert.Equal(t, model.SeverityCritical, r.Severity)
	assert.Equal(t, model.CategorySecurity, r.Category)
	assert.True(t, r.Match("require(tx.origin == owner);", "require(tx.origin == owner);"))
}

func TestLookupMissing(t *testing.T) {
	_, ok := Lookup("no such rule")
	assert.False(t, ok)
}

func TestSecurityReturnsCopy(t *testing.T) {
	a := Security()
	a[0].Kind = "mutated"
	assert.NotEqual(t, "mutated", Security()[0].Kind)
}

func TestMatchHonorsUnless(t *testing.T) {
	r, ok := Lookup("Unchecked send")
	require.True(t, ok)
	assert.True(t, r.Match("to.send(amount);", "to.send(amount);"))
	assert.False(t, r.Match("require(to.send(amount));", "require(to.send(amount));"))
}

func TestMatchRawLines(t *testing.T) {
	r, ok := Lookup("Long revert string")
	require.True(t, ok)
	raw := `require(ok, "this message is definitely longer than thirty two bytes");`
	code := `require(ok, "");`
	assert.True(t, r.Match(code, raw))

	floating, ok := Lookup("Floating pragma")
	require.True(t, ok)
	assert.False(t, floating.Match("", "// pragma solidity ^0.8.0;"))
}

func TestFindingCarriesRuleText(t *testing.T) {
	r, _ := Lookup("Low-level call")
	f := r.Finding(7, "x.call(data);", "primary")
	assert.Equal(t, "Low-level call", f.Kind)
	assert.Equal(t, 7, f.LineNumber())
	assert.Equal(t, r.Severity, f.Severity)
	assert.Equal(t, "primary", f.Detector)

	assert.Nil(t, r.Finding(0, "", "primary").Line)
}
