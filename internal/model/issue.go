package model

// Issue is the closed set of records a pass can hand to the aggregator:
// Finding, TaintPath, AnomalyRecord and FormalProperty. The unexported marker
// keeps other packages from adding variants, so type switches over Issue are
// exhaustive.
type Issue interface {
	IssueSeverity() Severity
	issue()
}

func (f Finding) IssueSeverity() Severity { return f.Severity }
func (Finding) issue()                    {}

func (t TaintPath) IssueSeverity() Severity { return t.Severity }
func (TaintPath) issue()                    {}

func (a AnomalyRecord) IssueSeverity() Severity { return a.Severity }
func (AnomalyRecord) issue()                    {}

// IssueSeverity for a property is High when it was violated and Low otherwise.
func (p FormalProperty) IssueSeverity() Severity {
	if !p.Verified && !p.Custom {
		return SeverityHigh
	}
	return SeverityLow
}
func (FormalProperty) issue() {}
