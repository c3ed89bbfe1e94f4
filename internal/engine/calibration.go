package engine

import "github.com/xab-mack/smartaudit/internal/model"

type findingKey struct {
	kind string
	line int
}

// calibrateFindings merges findings reported twice for the same kind and
// line. A vulnerability that repeats a security finding is folded into it,
// so one issue is never scored twice. The merged finding keeps the worse
// severity and the first occurrence's position in the list.
func calibrateFindings(findings, vulns []model.Finding) ([]model.Finding, []model.Finding) {
	findings = dedupe(findings, nil)
	index := make(map[findingKey]int, len(findings))
	for i, f := range findings {
		index[findingKey{f.Kind, f.LineNumber()}] = i
	}
	return findings, dedupe(vulns, func(v model.Finding) bool {
		i, ok := index[findingKey{v.Kind, v.LineNumber()}]
		if !ok {
			return false
		}
		if model.SeverityGTE(v.Severity, findings[i].Severity) {
			findings[i].Severity = v.Severity
		}
		return true
	})
}

// dedupe keeps the first finding per key, raising its severity to the worst
// duplicate. absorbed reports findings merged elsewhere.
func dedupe(in []model.Finding, absorbed func(model.Finding) bool) []model.Finding {
	out := make([]model.Finding, 0, len(in))
	seen := map[findingKey]int{}
	for _, f := range in {
		if absorbed != nil && absorbed(f) {
			continue
		}
		k := findingKey{f.Kind, f.LineNumber()}
		if i, ok := seen[k]; ok {
			if model.SeverityGTE(f.Severity, out[i].Severity) {
				out[i].Severity = f.Severity
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, f)
	}
	return out
}
