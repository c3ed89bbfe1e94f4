package engine

import (
	stderrors "errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xab-mack/smartaudit/internal/errors"
	"github.com/xab-mack/smartaudit/internal/formal"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
	"github.com/xab-mack/smartaudit/internal/validation"
)

// settings are the request options after config defaults are applied.
type settings struct {
	sensitivity model.Sensitivity
	depth       model.Depth
	methods     []formal.Method
	timeout     time.Duration
}

func (e *Engine) validate(req model.AnalysisRequest) (settings, error) {
	var s settings
	if req.ContractCode == "" {
		return s, errors.NewInputError("contractCode", "must not be empty")
	}
	if n, limit := utf8.RuneCountInString(req.ContractCode), e.cfg.Engine.MaxCodeLength; n > limit {
		return s, errors.NewInputError("contractCode", fmt.Sprintf("length %d exceeds the maximum of %d characters", n, limit))
	}
	if err := validation.Struct(req); err != nil {
		var fe *validation.FieldError
		if stderrors.As(err, &fe) {
			return s, errors.NewInputError(fe.Field, fe.Reason)
		}
		return s, errors.NewInputError("request", err.Error())
	}

	s.sensitivity = req.SensitivityLevel
	if s.sensitivity == "" {
		s.sensitivity = model.Sensitivity(e.cfg.Engine.SensitivityLevel)
	}
	s.depth = req.AnalysisDepth
	if s.depth == "" {
		s.depth = model.Depth(e.cfg.Engine.AnalysisDepth)
	}
	names := req.VerificationMethods
	if len(names) == 0 {
		names = e.cfg.Engine.VerificationMethods
	}
	ms, err := formal.ParseMethods(names)
	if err != nil {
		return s, errors.NewInputError("verificationMethods", err.Error())
	}
	s.methods = ms
	s.timeout = req.VerificationTimeout
	if s.timeout == 0 {
		s.timeout = e.cfg.Engine.VerificationTimeout()
	}
	return s, nil
}

// warnings flags input that is accepted but unlikely to be Solidity.
func warnings(unit *solidity.SourceUnit) []string {
	out := []string{}
	if !unit.HasPragma() && !unit.HasContract() {
		out = append(out, "input has neither a pragma solidity directive nor a contract declaration")
	}
	return out
}
