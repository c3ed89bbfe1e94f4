package model

import "time"

type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

type Depth string

const (
	DepthBasic        Depth = "basic"
	DepthIntermediate Depth = "intermediate"
	DepthDeep         Depth = "deep"
)

// AnalysisRequest is the input contract shared by every collaborator.
type AnalysisRequest struct {
	ContractCode        string        `json:"contractCode" validate:"required"`
	ContractName        string        `json:"contractName,omitempty" validate:"omitempty,max=128"`
	SensitivityLevel    Sensitivity   `json:"sensitivityLevel,omitempty" validate:"omitempty,oneof=low medium high"`
	AnalysisDepth       Depth         `json:"analysisDepth,omitempty" validate:"omitempty,oneof=basic intermediate deep"`
	EnableTaint         bool          `json:"enableTaint,omitempty"`
	EnableGas           bool          `json:"enableGas,omitempty"`
	EnableAnomalies     bool          `json:"enableAnomalies,omitempty"`
	EnableFormal        bool          `json:"enableFormal,omitempty"`
	CustomProperties    []string      `json:"customProperties,omitempty" validate:"omitempty,max=32,dive,required,max=512"`
	VerificationMethods []string      `json:"verificationMethods,omitempty" validate:"omitempty,dive,oneof=model-checking symbolic-execution abstract-interpretation"`
	VerificationTimeout time.Duration `json:"verificationTimeout,omitempty" validate:"omitempty,min=0"`
}

type PassError struct {
	Pass    string `json:"pass"`
	Message string `json:"message"`
}

// Report is the rendered audit document attached to an AnalysisResult.
type Report struct {
	ID               string        `json:"id"`
	ContractName     string        `json:"contractName"`
	SecurityScore    int           `json:"securityScore"`
	RiskLevel        RiskLevel     `json:"riskLevel"`
	ExecutiveSummary []string      `json:"executiveSummary"`
	Entries          []ReportEntry `json:"entries"`
	Recommendations  []string      `json:"recommendations"`
	Conclusion       string        `json:"conclusion"`
	Markdown         string        `json:"markdown"`
}

// ReportEntry links a finding to the short tag used in the markdown document.
type ReportEntry struct {
	Tag     string  `json:"tag"`
	Finding Finding `json:"finding"`
}

type AnalysisResult struct {
	ContractName       string             `json:"contractName"`
	SecurityScore      int                `json:"securityScore"`
	RiskLevel          RiskLevel          `json:"riskLevel"`
	Summary            []string           `json:"summary"`
	Findings           []Finding          `json:"findings"`
	Vulnerabilities    []Finding          `json:"vulnerabilities"`
	GasOptimizations   []Finding          `json:"gasOptimizations"`
	TaintPaths         []TaintPath        `json:"taintPaths"`
	DataFlow           []VariableFlow     `json:"dataFlow"`
	CFG                []CFGNode          `json:"cfg"`
	Anomalies          []AnomalyRecord    `json:"anomalies"`
	AnomalyScore       float64            `json:"anomalyScore"`
	RiskAssessment     string             `json:"riskAssessment,omitempty"`
	NovelPatterns      []NovelPattern     `json:"novelPatterns"`
	Properties         []FormalProperty   `json:"properties"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
	Warnings           []string           `json:"warnings"`
	Partial            bool               `json:"partial"`
	PassErrors         []PassError        `json:"passErrors"`
	Report             *Report            `json:"report,omitempty"`
}

// NewAnalysisResult returns a result whose collections are empty, never nil.
func NewAnalysisResult(name string) *AnalysisResult {
	return &AnalysisResult{
		ContractName:     name,
		SecurityScore:    100,
		RiskLevel:        SeverityLow,
		Summary:          []string{},
		Findings:         []Finding{},
		Vulnerabilities:  []Finding{},
		GasOptimizations: []Finding{},
		TaintPaths:       []TaintPath{},
		DataFlow:         []VariableFlow{},
		CFG:              []CFGNode{},
		Anomalies:        []AnomalyRecord{},
		NovelPatterns:    []NovelPattern{},
		Properties:       []FormalProperty{},
		Warnings:         []string{},
		PassErrors:       []PassError{},
	}
}

// Issues returns every record of the result as the Issue sum type.
func (r *AnalysisResult) Issues() []Issue {
	out := make([]Issue, 0, len(r.Findings)+len(r.Vulnerabilities)+len(r.TaintPaths)+len(r.Anomalies)+len(r.Properties))
	for _, f := range r.Findings {
		out = append(out, f)
	}
	for _, f := range r.Vulnerabilities {
		out = append(out, f)
	}
	for _, t := range r.TaintPaths {
		out = append(out, t)
	}
	for _, a := range r.Anomalies {
		out = append(out, a)
	}
	for _, p := range r.Properties {
		out = append(out, p)
	}
	return out
}
