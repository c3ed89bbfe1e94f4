package plugins

import (
	"context"
	"strings"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/rules"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

type structuralCheck func(r rules.Rule, unit *solidity.SourceUnit, fns []solidity.Function) []int

// structuralScanner runs the checks that need function bodies or
// contract-level declarations instead of single lines. Each check returns
// the 1-based lines it flags.
type structuralScanner struct {
	rules  []rules.Rule
	checks map[string]structuralCheck
}

func newStructuralScanner() *structuralScanner {
	return &structuralScanner{
		rules: rules.Structural(),
		checks: map[string]structuralCheck{
			"Unprotected upgrade function":       unprotectedUpgrade,
			"Missing storage gap":                missingStorageGap,
			"Unguarded payable fallback":         unguardedFallback,
			"Payable function ignores msg.value": ignoredMsgValue,
			"State change without event":         silentStateChange,
			"Mutable critical address":           mutableCriticalAddress,
		},
	}
}

func (d *structuralScanner) Meta() model.RuleMeta {
	return model.RuleMeta{ID: IDStructural, Title: "Structural pattern scan", Severity: model.SeverityHigh, Category: model.CategoryVulnerability}
}

func (d *structuralScanner) Analyze(ctx context.Context, unit *solidity.SourceUnit) ([]model.Finding, error) {
	fns := unit.Functions()
	var findings []model.Finding
	for _, r := range d.rules {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		check, ok := d.checks[r.Kind]
		if !ok {
			continue
		}
		for _, n := range check(r, unit, fns) {
			findings = append(findings, r.Finding(n, strings.TrimSpace(unit.Line(n)), IDStructural))
		}
	}
	return findings, nil
}

func joined(body []string) string { return strings.Join(body, "\n") }

func unprotectedUpgrade(r rules.Rule, _ *solidity.SourceUnit, fns []solidity.Function) []int {
	var out []int
	for _, fn := range fns {
		if fn.Kind != "function" || !r.Pattern.MatchString(fn.Header) {
			continue
		}
		if r.Unless.MatchString(fn.Header) || r.Unless.MatchString(joined(fn.Body)) {
			continue
		}
		out = append(out, fn.Start)
	}
	return out
}

func missingStorageGap(r rules.Rule, unit *solidity.SourceUnit, _ []solidity.Function) []int {
	code := strings.Join(unit.CodeLines(), "\n")
	if !r.Pattern.MatchString(code) || r.Unless.MatchString(code) {
		return nil
	}
	if n := firstContractLine(unit); n > 0 {
		return []int{n}
	}
	return nil
}

func firstContractLine(unit *solidity.SourceUnit) int {
	for i, l := range unit.CodeLines() {
		if strings.Contains(l, "contract ") {
			return i + 1
		}
	}
	return 0
}

func unguardedFallback(r rules.Rule, _ *solidity.SourceUnit, fns []solidity.Function) []int {
	var out []int
	for _, fn := range fns {
		if (fn.Kind != "fallback" && fn.Kind != "receive") || !fn.Payable() {
			continue
		}
		if !r.Pattern.MatchString(fn.Header) || r.Unless.MatchString(joined(fn.Body)) {
			continue
		}
		out = append(out, fn.Start)
	}
	return out
}

func ignoredMsgValue(r rules.Rule, _ *solidity.SourceUnit, fns []solidity.Function) []int {
	var out []int
	for _, fn := range fns {
		if fn.Kind != "function" || !fn.Payable() || !r.Pattern.MatchString(fn.Header) {
			continue
		}
		if r.Unless.MatchString(joined(fn.Body)) || writes(fn.Body) {
			continue
		}
		out = append(out, fn.Start)
	}
	return out
}

func writes(body []string) bool {
	for _, l := range body {
		if solidity.HasAssignment(l) {
			return true
		}
	}
	return false
}

func mutableState(unit *solidity.SourceUnit) map[string]solidity.StateVariable {
	out := map[string]solidity.StateVariable{}
	for _, v := range unit.StateVariables() {
		if !v.Fixed {
			out[v.Name] = v
		}
	}
	return out
}

func assigns(body []string, names map[string]solidity.StateVariable) bool {
	for _, l := range body {
		for _, t := range solidity.AssignmentTargets(l) {
			if _, ok := names[t]; ok {
				return true
			}
		}
	}
	return false
}

func silentStateChange(r rules.Rule, unit *solidity.SourceUnit, fns []solidity.Function) []int {
	state := mutableState(unit)
	if len(state) == 0 {
		return nil
	}
	var out []int
	for _, fn := range fns {
		if fn.Kind != "function" || !r.Pattern.MatchString(fn.Header) {
			continue
		}
		if r.Unless.MatchString(joined(fn.Body)) || !assigns(fn.Body, state) {
			continue
		}
		out = append(out, fn.Start)
	}
	return out
}

func mutableCriticalAddress(r rules.Rule, unit *solidity.SourceUnit, fns []solidity.Function) []int {
	var ctors []solidity.Function
	for _, fn := range fns {
		if fn.Kind == "constructor" {
			ctors = append(ctors, fn)
		}
	}
	if len(ctors) == 0 {
		return nil
	}
	var out []int
	for _, v := range unit.StateVariables() {
		if v.Fixed || !strings.HasPrefix(v.Type, "address") || !r.Pattern.MatchString(v.Name) {
			continue
		}
		only := map[string]solidity.StateVariable{v.Name: v}
		if reassigned(fns, only) {
			continue
		}
		for _, c := range ctors {
			if assigns(c.Body, only) {
				out = append(out, v.Line)
				break
			}
		}
	}
	return out
}

// reassigned reports whether anything besides a constructor writes names.
func reassigned(fns []solidity.Function, names map[string]solidity.StateVariable) bool {
	for _, fn := range fns {
		if fn.Kind != "constructor" && assigns(fn.Body, names) {
			return true
		}
	}
	return false
}
