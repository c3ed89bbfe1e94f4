package report

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/xab-mack/smartaudit/internal/model"
)

const (
	toolName = "smartaudit"
	toolURI  = "https://github.com/xab-mack/smartaudit"
)

// ToSARIF converts the scored findings, gas optimizations and taint paths of
// r into a SARIF 2.1.0 report whose results point into uri.
func ToSARIF(r *model.AnalysisResult, uri string) (*sarif.Report, error) {
	rep, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}
	run := sarif.NewRunWithInformationURI(toolName, toolURI)

	all := append(append(append([]model.Finding{}, r.Findings...), r.Vulnerabilities...), r.GasOptimizations...)
	for _, f := range all {
		rule := run.AddRule(f.Kind).
			WithDescription(f.Description).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level(f.Severity)})
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s. %s", f.Description, f.Recommendation))).
			WithLevel(level(f.Severity)).
			WithLocations([]*sarif.Location{sarifLocation(uri, f.LineNumber())})
		run.AddResult(result)
	}
	for _, t := range r.TaintPaths {
		id := fmt.Sprintf("taint/%s->%s", t.Source, t.Sink)
		rule := run.AddRule(id).WithDescription(fmt.Sprintf("Untrusted %s reaches %s", t.Source, t.Sink))
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s flows to %s via %d steps", t.Source, t.Sink, len(t.Path)))).
			WithLevel(level(t.Severity)).
			WithLocations([]*sarif.Location{sarifLocation(uri, t.SinkLine)})
		run.AddResult(result)
	}
	rep.AddRun(run)
	return rep, nil
}

// WriteSARIF renders ToSARIF output as indented JSON.
func WriteSARIF(w io.Writer, r *model.AnalysisResult, uri string) error {
	rep, err := ToSARIF(r, uri)
	if err != nil {
		return err
	}
	return rep.PrettyWrite(w)
}

func sarifLocation(uri string, line int) *sarif.Location {
	region := sarif.NewRegion()
	if line > 0 {
		region = region.WithStartLine(line)
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
			WithRegion(region),
	)
}

func level(s model.Severity) string {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	}
	return "note"
}
