package engine

import (
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/plugins"
)

// Operation names used in logs, metrics and timeout errors.
const (
	OpAnalyze         = "analyze"
	OpVulnerabilities = "detect-vulnerabilities"
	OpGas             = "optimize-gas"
	OpAnomalies       = "detect-anomalies"
	OpVerify          = "verify-properties"
	OpReport          = "generate-report"
)

// plan decides which passes one operation runs.
type plan struct {
	op        string
	detectors []string
	// extra runs detectors registered beyond the builtin set.
	extra     bool
	taint     bool
	anomalies bool
	formal    bool
	report    bool
	// asVulnerabilities files security findings under Vulnerabilities.
	asVulnerabilities bool
}

var builtin = map[string]bool{
	plugins.IDPrimary:       true,
	plugins.IDReentrancy:    true,
	plugins.IDOverflow:      true,
	plugins.IDVulnerability: true,
	plugins.IDStructural:    true,
	plugins.IDGas:           true,
}

// planFor expands a depth preset and the Enable flags. Flags only ever add
// passes to the preset.
func planFor(op string, depth model.Depth, req model.AnalysisRequest) plan {
	p := plan{
		op:        op,
		detectors: []string{plugins.IDPrimary, plugins.IDReentrancy, plugins.IDOverflow},
		extra:     true,
		taint:     true,
	}
	vuln, gas := false, false
	switch depth {
	case model.DepthDeep:
		p.formal = true
		fallthrough
	case model.DepthIntermediate:
		vuln, gas = true, true
		p.anomalies = true
	}
	p.taint = p.taint || req.EnableTaint
	gas = gas || req.EnableGas
	p.anomalies = p.anomalies || req.EnableAnomalies
	p.formal = p.formal || req.EnableFormal
	if vuln {
		p.detectors = append(p.detectors, plugins.IDVulnerability, plugins.IDStructural)
	}
	if gas {
		p.detectors = append(p.detectors, plugins.IDGas)
	}
	return p
}

func vulnerabilityPlan() plan {
	return plan{
		op:                OpVulnerabilities,
		detectors:         []string{plugins.IDReentrancy, plugins.IDOverflow, plugins.IDVulnerability, plugins.IDStructural},
		asVulnerabilities: true,
	}
}

func gasPlan() plan {
	return plan{op: OpGas, detectors: []string{plugins.IDGas}}
}

func anomalyPlan() plan {
	return plan{op: OpAnomalies, anomalies: true}
}

func verifyPlan() plan {
	return plan{op: OpVerify, formal: true}
}

func reportPlan() plan {
	p := planFor(OpReport, model.DepthDeep, model.AnalysisRequest{})
	p.report = true
	return p
}

// bucket returns where a detector's findings belong.
func (p plan) bucket(r *model.AnalysisResult, cat model.Category) *[]model.Finding {
	switch {
	case cat == model.CategoryGas:
		return &r.GasOptimizations
	case cat == model.CategoryVulnerability || p.asVulnerabilities:
		return &r.Vulnerabilities
	}
	return &r.Findings
}
