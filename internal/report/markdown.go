package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/xab-mack/smartaudit/internal/model"
)

// MaxRecommendations caps the ranked recommendation list.
const MaxRecommendations = 10

// Builder renders reports. The tag and id generators are injectable so
// tests can produce byte-stable documents.
type Builder struct {
	tag func() string
	id  func() string
}

func NewBuilder() *Builder {
	return &Builder{
		tag: func() string { return "SA-" + strings.ToUpper(uuid.NewString()[:8]) },
		id:  uuid.NewString,
	}
}

// WithGenerators returns a copy using the given tag and report id generators.
func (b *Builder) WithGenerators(tag, id func() string) *Builder {
	return &Builder{tag: tag, id: id}
}

// Build aggregates r and attaches the rendered report.
func (b *Builder) Build(r *model.AnalysisResult) *model.Report {
	return b.BuildAtLeast(r, "")
}

// BuildAtLeast is Build with findings below least left out of the document.
// Score, risk level and summary still come from every record on r.
func (b *Builder) BuildAtLeast(r *model.AnalysisResult, least model.Severity) *model.Report {
	c := Aggregate(r)
	view := *r
	view.Findings = atLeast(r.Findings, least)
	view.Vulnerabilities = atLeast(r.Vulnerabilities, least)
	view.GasOptimizations = atLeast(r.GasOptimizations, least)

	rep := &model.Report{
		ID:               b.id(),
		ContractName:     r.ContractName,
		SecurityScore:    r.SecurityScore,
		RiskLevel:        r.RiskLevel,
		ExecutiveSummary: r.Summary,
		Entries:          []model.ReportEntry{},
		Recommendations:  Recommendations(&view),
		Conclusion:       Conclusion(r.SecurityScore, r.RiskLevel),
	}
	for _, f := range ranked(append(append([]model.Finding{}, view.Findings...), view.Vulnerabilities...)) {
		rep.Entries = append(rep.Entries, model.ReportEntry{Tag: b.tag(), Finding: f})
	}
	rep.Markdown = render(&view, rep, c)
	r.Report = rep
	return rep
}

func atLeast(fs []model.Finding, least model.Severity) []model.Finding {
	out := make([]model.Finding, 0, len(fs))
	for _, f := range fs {
		if model.SeverityGTE(f.Severity, least) {
			out = append(out, f)
		}
	}
	return out
}

// ranked orders findings by severity, worst first, keeping line order within
// one severity.
func ranked(fs []model.Finding) []model.Finding {
	sort.SliceStable(fs, func(i, j int) bool {
		return fs[i].Severity.Rank() > fs[j].Severity.Rank()
	})
	return fs
}

type rec struct {
	text string
	sev  model.Severity
}

// Recommendations ranks remediation advice by severity, drops duplicates and
// keeps at most MaxRecommendations entries.
func Recommendations(r *model.AnalysisResult) []string {
	var recs []rec
	for _, f := range r.Findings {
		recs = append(recs, rec{f.Recommendation, f.Severity})
	}
	for _, f := range r.Vulnerabilities {
		recs = append(recs, rec{f.Recommendation, f.Severity})
	}
	for _, t := range r.TaintPaths {
		recs = append(recs, rec{fmt.Sprintf("Validate %s before it reaches %s.", t.Source, t.Sink), t.Severity})
	}
	for _, a := range r.Anomalies {
		recs = append(recs, rec{a.Recommendation, a.Severity})
	}
	for _, p := range r.Properties {
		if !p.Verified && !p.Custom {
			recs = append(recs, rec{fmt.Sprintf("Restore the %s property (%s).", p.Name, p.Specification), p.IssueSeverity()})
		}
	}
	for _, f := range r.GasOptimizations {
		recs = append(recs, rec{f.Recommendation, model.SeverityLow})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].sev.Rank() > recs[j].sev.Rank() })

	out := []string{}
	seen := map[string]bool{}
	for _, x := range recs {
		if x.text == "" || seen[x.text] {
			continue
		}
		seen[x.text] = true
		out = append(out, x.text)
		if len(out) == MaxRecommendations {
			break
		}
	}
	return out
}

func Conclusion(score int, risk model.RiskLevel) string {
	switch {
	case score >= 90 && risk == model.SeverityLow:
		return "The contract demonstrates a strong security posture. Only minor issues were identified; address them before deployment as part of routine hardening."
	case score >= 70 && risk != model.SeverityCritical:
		return "The contract is in good shape overall but carries issues that should be fixed before deployment. Apply the recommendations above and re-run the audit."
	case score >= 50:
		return "The contract has moderate security concerns. Several findings need remediation and a focused manual review is advised before any deployment."
	}
	return "The contract has serious security problems and is not ready for deployment. Resolve the critical and high severity findings and commission a full manual audit."
}

func location(f model.Finding) string {
	if f.Line == nil {
		return "n/a"
	}
	return fmt.Sprintf("line %d", *f.Line)
}

func cell(s string) string { return strings.ReplaceAll(s, "|", "\\|") }

func render(r *model.AnalysisResult, rep *model.Report, c Counts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Security Audit Report: %s\n\n", r.ContractName)
	fmt.Fprintf(&b, "**Security score:** %d/100  \n**Risk level:** %s\n\n", rep.SecurityScore, rep.RiskLevel)

	b.WriteString("## Executive Summary\n\n")
	for _, s := range rep.ExecutiveSummary {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\n## Findings Summary\n\n| Severity | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Critical | %d |\n| High | %d |\n| Medium | %d |\n| Low | %d |\n\n", c.Critical, c.High, c.Medium, c.Low)
	if len(rep.Entries) == 0 {
		b.WriteString("No security findings.\n")
	} else {
		b.WriteString("| ID | Severity | Issue | Location |\n|---|---|---|---|\n")
		for _, e := range rep.Entries {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", e.Tag, e.Finding.Severity, cell(e.Finding.Kind), location(e.Finding))
		}
	}

	b.WriteString("\n## Detailed Findings\n")
	for _, e := range rep.Entries {
		f := e.Finding
		fmt.Fprintf(&b, "\n### [%s] %s\n\n", e.Tag, f.Kind)
		fmt.Fprintf(&b, "- **Severity:** %s\n- **Location:** %s\n- **Description:** %s\n- **Impact:** %s\n- **Recommendation:** %s\n",
			f.Severity, location(f), f.Description, f.Impact, f.Recommendation)
		if f.Snippet != "" {
			fmt.Fprintf(&b, "\n```solidity\n%s\n```\n", f.Snippet)
		}
	}
	if len(r.TaintPaths) > 0 {
		b.WriteString("\n### Taint Paths\n\n| Severity | Source | Sink | Path |\n|---|---|---|---|\n")
		for _, t := range r.TaintPaths {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", t.Severity, t.Source, t.Sink, strings.Join(t.Path, " -> "))
		}
	}

	b.WriteString("\n## Gas Optimizations\n\n")
	if len(r.GasOptimizations) == 0 {
		b.WriteString("No gas optimizations identified.\n")
	}
	for _, f := range r.GasOptimizations {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.Kind, location(f), f.Recommendation)
	}

	if len(r.Anomalies) > 0 || r.RiskAssessment != "" {
		fmt.Fprintf(&b, "\n## Anomalies\n\nAnomaly score: %.2f. %s\n\n", r.AnomalyScore, r.RiskAssessment)
		for _, a := range r.Anomalies {
			fmt.Fprintf(&b, "- **%s** (%s, confidence %.2f, %s): %s\n", a.Kind, a.Severity, a.Confidence, a.Location, a.Description)
		}
		for _, n := range r.NovelPatterns {
			fmt.Fprintf(&b, "- _Pattern_ %s (confidence %.2f): %s\n", n.Name, n.Confidence, n.Description)
		}
	}

	if len(r.Properties) > 0 {
		fmt.Fprintf(&b, "\n## Formal Properties\n\nStatus: %s\n\n| ID | Property | Kind | Verified | Confidence |\n|---|---|---|---|---|\n", r.VerificationStatus)
		for _, p := range r.Properties {
			fmt.Fprintf(&b, "| %s | %s | %s | %t | %.2f |\n", p.ID, cell(p.Name), p.Kind, p.Verified, p.Confidence)
		}
		for _, p := range r.Properties {
			if p.Counterexample != nil {
				fmt.Fprintf(&b, "\n- %s counterexample: %s", p.ID, *p.Counterexample)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Recommendations\n\n")
	if len(rep.Recommendations) == 0 {
		b.WriteString("No recommendations.\n")
	}
	for i, s := range rep.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	fmt.Fprintf(&b, "\n## Conclusion\n\n%s\n", rep.Conclusion)
	return b.String()
}
