package engine

import (
	"strings"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/plugins"
)

// FilterBySeverity removes findings below threshold. It is a display
// filter; scoring always sees the unfiltered result.
func FilterBySeverity(findings []model.Finding, threshold model.Severity) []model.Finding {
	out := []model.Finding{}
	for _, f := range findings {
		if model.SeverityGTE(f.Severity, threshold) {
			out = append(out, f)
		}
	}
	return out
}

// FilterResult applies FilterBySeverity to every finding list of a copy of r.
func FilterResult(r *model.AnalysisResult, threshold model.Severity) *model.AnalysisResult {
	out := *r
	out.Findings = FilterBySeverity(r.Findings, threshold)
	out.Vulnerabilities = FilterBySeverity(r.Vulnerabilities, threshold)
	out.GasOptimizations = FilterBySeverity(r.GasOptimizations, threshold)
	return &out
}

// selectDetectors narrows the registry to the plan's detectors and then to
// the configured allowlist when one is set.
func selectDetectors(reg *plugins.Registry, p plan, allow []string) *plugins.Registry {
	want := map[string]bool{}
	for _, id := range p.detectors {
		want[id] = true
	}
	allowed := map[string]bool{}
	for _, id := range allow {
		allowed[strings.TrimSpace(id)] = true
	}
	var ids []string
	for _, d := range reg.Detectors() {
		id := d.Meta().ID
		if !want[id] && !(p.extra && !builtin[id]) {
			continue
		}
		if len(allowed) > 0 && !allowed[id] {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return plugins.NewRegistry()
	}
	return reg.Select(ids...)
}
