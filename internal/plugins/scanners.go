package plugins

import (
	"context"
	"sort"
	"strings"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/rules"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

// primaryScanner is the fast path: unit-scope rules first, then at most one
// finding per line within the first maxLines lines, first matching rule wins.
type primaryScanner struct {
	rules    []rules.Rule
	maxLines int
}

func (d *primaryScanner) Meta() model.RuleMeta {
	return model.RuleMeta{ID: IDPrimary, Title: "Primary security pattern scan", Severity: model.SeverityCritical, Category: model.CategorySecurity}
}

func (d *primaryScanner) Analyze(ctx context.Context, unit *solidity.SourceUnit) ([]model.Finding, error) {
	code, raw := unit.CodeLines(), unit.Lines()
	claimed := map[int]bool{}
	var findings []model.Finding
	for _, r := range d.rules {
		if r.Scope != rules.ScopeUnit {
			continue
		}
		for i := range code {
			if r.Match(code[i], raw[i]) {
				findings = append(findings, r.Finding(i+1, strings.TrimSpace(raw[i]), IDPrimary))
				claimed[i] = true
				break
			}
		}
	}
	limit := len(code)
	if limit > d.maxLines {
		limit = d.maxLines
	}
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if claimed[i] {
			continue
		}
		for _, r := range d.rules {
			if r.Scope != rules.ScopeLine {
				continue
			}
			if r.Match(code[i], raw[i]) {
				findings = append(findings, r.Finding(i+1, strings.TrimSpace(raw[i]), IDPrimary))
				break
			}
		}
	}
	sort.SliceStable(findings, func(a, b int) bool {
		return findings[a].LineNumber() < findings[b].LineNumber()
	})
	return findings, nil
}

// catalogScanner makes an unrestricted pass: every rule is tested on every
// line and may fire once per line, so several rules can share a line.
type catalogScanner struct {
	id    string
	title string
	rules []rules.Rule
}

func (d *catalogScanner) Meta() model.RuleMeta {
	cat := model.CategoryVulnerability
	if d.id == IDGas {
		cat = model.CategoryGas
	}
	return model.RuleMeta{ID: d.id, Title: d.title, Severity: model.SeverityLow, Category: cat}
}

func (d *catalogScanner) Analyze(ctx context.Context, unit *solidity.SourceUnit) ([]model.Finding, error) {
	code, raw := unit.CodeLines(), unit.Lines()
	var findings []model.Finding
	for i := range code {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		for _, r := range d.rules {
			if r.Match(code[i], raw[i]) {
				findings = append(findings, r.Finding(i+1, strings.TrimSpace(raw[i]), d.id))
			}
		}
	}
	return findings, nil
}
