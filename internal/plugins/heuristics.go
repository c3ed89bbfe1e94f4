package plugins

import (
	"context"
	"regexp"
	"strings"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/rules"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

var reGuard = regexp.MustCompile(`\b(require|assert)\s*\(`)

// reentrancyHeuristic flags the first state write that follows an external
// call inside the primary window, unless that line is itself a guard.
type reentrancyHeuristic struct {
	rule     rules.Rule
	maxLines int
}

func (d *reentrancyHeuristic) Meta() model.RuleMeta {
	m := d.rule.Meta()
	m.ID = IDReentrancy
	return m
}

func (d *reentrancyHeuristic) Analyze(ctx context.Context, unit *solidity.SourceUnit) ([]model.Finding, error) {
	code, raw := unit.CodeLines(), unit.Lines()
	limit := len(code)
	if limit > d.maxLines {
		limit = d.maxLines
	}
	call := -1
	for i := 0; i < limit; i++ {
		if d.rule.Match(code[i], raw[i]) {
			call = i
			break
		}
	}
	if call < 0 {
		return nil, nil
	}
	for i := call + 1; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !solidity.HasAssignment(code[i]) || reGuard.MatchString(code[i]) {
			continue
		}
		f := d.rule.Finding(i+1, strings.TrimSpace(raw[i]), IDReentrancy)
		return []model.Finding{f}, nil
	}
	return nil, nil
}

// overflowHeuristic flags unguarded arithmetic on compilers without
// built-in overflow checks.
type overflowHeuristic struct {
	rule rules.Rule
}

func (d *overflowHeuristic) Meta() model.RuleMeta {
	m := d.rule.Meta()
	m.ID = IDOverflow
	return m
}

func (d *overflowHeuristic) Analyze(ctx context.Context, unit *solidity.SourceUnit) ([]model.Finding, error) {
	v, ok := unit.Version()
	if !ok || !v.Below(0, 8) {
		return nil, nil
	}
	if strings.Contains(unit.Text(), "SafeMath") {
		return nil, nil
	}
	code, raw := unit.CodeLines(), unit.Lines()
	for i, l := range code {
		if d.rule.Pattern.MatchString(l) {
			continue
		}
		if solidity.HasArithmetic(l) {
			return []model.Finding{d.rule.Finding(i+1, strings.TrimSpace(raw[i]), IDOverflow)}, nil
		}
	}
	return nil, nil
}
