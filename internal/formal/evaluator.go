package formal

import (
	"fmt"
	"time"

	"github.com/xab-mack/smartaudit/internal/analysis"
	"github.com/xab-mack/smartaudit/internal/model"
)

type Result struct {
	Properties []model.FormalProperty
	Status     model.VerificationStatus
	// Methods lists the methods that actually ran, in order.
	Methods []Method
}

// Evaluator runs verification methods in caller order over one owned
// property list.
type Evaluator struct {
	now func() time.Time
}

func NewEvaluator() *Evaluator { return &Evaluator{now: time.Now} }

// WithClock replaces the clock used for the timeout check.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// ParseMethods converts method names, defaulting to DefaultMethods when empty.
func ParseMethods(names []string) ([]Method, error) {
	if len(names) == 0 {
		return append([]Method(nil), DefaultMethods...), nil
	}
	out := make([]Method, 0, len(names))
	for _, n := range names {
		m := Method(n)
		if _, ok := methods[m]; !ok {
			return nil, fmt.Errorf("unknown verification method %q", n)
		}
		out = append(out, m)
	}
	return out, nil
}

// Verify declares the properties and runs each method in order. The deadline
// is checked before every method and once more after the last one; once it
// has passed no further method runs and the status is TIMEOUT. A zero
// timeout disables the check.
func (e *Evaluator) Verify(ctx *analysis.Context, custom []string, ms []Method, timeout time.Duration) Result {
	props := Properties(ctx.Unit, custom)
	res := Result{Methods: []Method{}}
	start := e.now()
	timedOut := false
	for _, m := range ms {
		if timeout > 0 && e.now().Sub(start) >= timeout {
			timedOut = true
			break
		}
		fn, ok := methods[m]
		if !ok {
			continue
		}
		apply(&props, fn(ctx))
		res.Methods = append(res.Methods, m)
	}
	if !timedOut && timeout > 0 && e.now().Sub(start) >= timeout {
		timedOut = true
	}
	res.Properties = props
	res.Status = Status(props, timedOut)
	return res
}

func Status(props []model.FormalProperty, timedOut bool) model.VerificationStatus {
	if timedOut {
		return model.StatusTimeout
	}
	verified := 0
	for _, p := range props {
		if p.Verified {
			verified++
		}
	}
	switch {
	case verified == len(props):
		return model.StatusVerified
	case verified == 0:
		return model.StatusFailed
	}
	return model.StatusPartial
}
