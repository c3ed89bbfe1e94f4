package model

import "strings"

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists every severity from worst to least.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Rank orders severities Low=1 .. Critical=4; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func SeverityGTE(a, b Severity) bool {
	return a.Rank() >= b.Rank()
}

// RiskLevel shares the severity scale but is derived for a whole contract.
type RiskLevel = Severity

type RuleMeta struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Category Category `json:"category,omitempty"`
	Scope    string   `json:"scope,omitempty"`
}

type Category string

const (
	CategorySecurity      Category = "security"
	CategoryVulnerability Category = "vulnerability"
	CategoryGas           Category = "gas"
)

type Finding struct {
	Kind           string   `json:"kind"`
	Severity       Severity `json:"severity"`
	Line           *int     `json:"line,omitempty"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
	Impact         string   `json:"impact"`
	Category       Category `json:"category"`
	Detector       string   `json:"detector"`
	Snippet        string   `json:"snippet,omitempty"`
	References     []string `json:"references,omitempty"`
}

// LineNumber returns the finding's line or 0 when it has none.
func (f Finding) LineNumber() int {
	if f.Line == nil {
		return 0
	}
	return *f.Line
}

// LineRef returns a pointer suitable for Finding.Line.
func LineRef(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

type CFGNodeKind string

const (
	NodeFunction  CFGNodeKind = "Function"
	NodeCondition CFGNodeKind = "Condition"
	NodeLoop      CFGNodeKind = "Loop"
	NodeCall      CFGNodeKind = "Call"
	NodeReturn    CFGNodeKind = "Return"
)

type CFGNode struct {
	ID           int         `json:"id"`
	Kind         CFGNodeKind `json:"kind"`
	Line         int         `json:"line"`
	Label        string      `json:"label"`
	Successors   []int       `json:"successors"`
	Predecessors []int       `json:"predecessors"`
}

type VariableFlow struct {
	Name            string `json:"name"`
	DefinitionLines []int  `json:"definitionLines"`
	UseLines        []int  `json:"useLines"`
}

type TaintPath struct {
	Source     string   `json:"source"`
	Sink       string   `json:"sink"`
	SourceLine int      `json:"sourceLine"`
	SinkLine   int      `json:"sinkLine"`
	Path       []string `json:"path"`
	Severity   Severity `json:"severity"`
}

type AnomalyRecord struct {
	Kind           string             `json:"kind"`
	Severity       Severity           `json:"severity"`
	Confidence     float64            `json:"confidence"`
	Location       string             `json:"location"`
	Description    string             `json:"description"`
	Recommendation string             `json:"recommendation"`
	Features       map[string]float64 `json:"features"`
}

// NovelPattern is a descriptive flag; it never contributes to a score.
type NovelPattern struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

type PropertyKind string

const (
	PropertyInvariant     PropertyKind = "invariant"
	PropertyPrecondition  PropertyKind = "precondition"
	PropertyPostcondition PropertyKind = "postcondition"
	PropertySafety        PropertyKind = "safety"
	PropertyLiveness      PropertyKind = "liveness"
)

func ParsePropertyKind(s string) (PropertyKind, bool) {
	switch k := PropertyKind(strings.ToLower(strings.TrimSpace(s))); k {
	case PropertyInvariant, PropertyPrecondition, PropertyPostcondition, PropertySafety, PropertyLiveness:
		return k, true
	}
	return "", false
}

type FormalProperty struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Kind           PropertyKind `json:"kind"`
	Specification  string       `json:"specification"`
	Verified       bool         `json:"verified"`
	Counterexample *string      `json:"counterexample,omitempty"`
	Confidence     float64      `json:"confidence"`
	Custom         bool         `json:"custom"`
}

type VerificationStatus string

const (
	StatusVerified VerificationStatus = "VERIFIED"
	StatusFailed   VerificationStatus = "FAILED"
	StatusPartial  VerificationStatus = "PARTIAL"
	StatusTimeout  VerificationStatus = "TIMEOUT"
)
