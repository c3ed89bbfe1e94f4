// Package report folds pass outputs into a score, a risk level and the
// rendered audit documents. It performs no analysis of its own.
package report

import (
	"fmt"

	"github.com/xab-mack/smartaudit/internal/model"
)

// Weights subtracted from 100 per scored issue.
const (
	WeightCritical = 25
	WeightHigh     = 15
	WeightMedium   = 8
	WeightLow      = 3
)

// MediumRiskCount is the number of Medium issues a contract may carry before
// its risk level rises from Low to Medium.
const MediumRiskCount = 2

type Counts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

func (c *Counts) add(s model.Severity) {
	switch s {
	case model.SeverityCritical:
		c.Critical++
	case model.SeverityHigh:
		c.High++
	case model.SeverityMedium:
		c.Medium++
	default:
		c.Low++
	}
}

func (c Counts) Total() int { return c.Critical + c.High + c.Medium + c.Low }

// Count tallies the scored issues. Findings and taint paths are scored;
// anomaly records and formal properties are reported but never scored.
func Count(issues []model.Issue) Counts {
	var c Counts
	for _, is := range issues {
		switch v := is.(type) {
		case model.Finding:
			if v.Category == model.CategoryGas {
				continue
			}
			c.add(v.Severity)
		case model.TaintPath:
			c.add(v.Severity)
		case model.AnomalyRecord, model.FormalProperty:
		}
	}
	return c
}

func Score(c Counts) int {
	s := 100 - (WeightCritical*c.Critical + WeightHigh*c.High + WeightMedium*c.Medium + WeightLow*c.Low)
	if s < 0 {
		return 0
	}
	return s
}

func Risk(c Counts) model.RiskLevel {
	switch {
	case c.Critical > 0:
		return model.SeverityCritical
	case c.High > 0:
		return model.SeverityHigh
	case c.Medium > MediumRiskCount:
		return model.SeverityMedium
	}
	return model.SeverityLow
}

// Aggregate recomputes score, risk level and summary from the records already
// on r. Calling it again on the same result is a no-op.
func Aggregate(r *model.AnalysisResult) Counts {
	c := Count(r.Issues())
	r.SecurityScore = Score(c)
	r.RiskLevel = Risk(c)
	r.Summary = Summary(r, c)
	return c
}

// Summary lists totals, severity counts, score and the optional pass verdicts.
func Summary(r *model.AnalysisResult, c Counts) []string {
	out := []string{
		fmt.Sprintf("Analyzed %s: %d scored issues (%d findings, %d vulnerabilities, %d taint paths)",
			r.ContractName, c.Total(), len(r.Findings), len(r.Vulnerabilities), len(r.TaintPaths)),
		fmt.Sprintf("Critical: %d, High: %d, Medium: %d, Low: %d", c.Critical, c.High, c.Medium, c.Low),
		fmt.Sprintf("Security score %d/100, risk level %s", Score(c), Risk(c)),
	}
	if len(r.GasOptimizations) > 0 {
		out = append(out, fmt.Sprintf("%d gas optimization opportunities", len(r.GasOptimizations)))
	}
	if r.RiskAssessment != "" {
		out = append(out, fmt.Sprintf("Anomaly score %.2f: %s", r.AnomalyScore, r.RiskAssessment))
	}
	if r.VerificationStatus != "" {
		verified := 0
		for _, p := range r.Properties {
			if p.Verified {
				verified++
			}
		}
		out = append(out, fmt.Sprintf("Formal verification %s: %d of %d properties verified", r.VerificationStatus, verified, len(r.Properties)))
	}
	return out
}
