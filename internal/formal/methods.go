package formal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xab-mack/smartaudit/internal/analysis"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

type Method string

const (
	ModelChecking          Method = "model-checking"
	SymbolicExecution      Method = "symbolic-execution"
	AbstractInterpretation Method = "abstract-interpretation"
)

var DefaultMethods = []Method{ModelChecking, SymbolicExecution, AbstractInterpretation}

// verdict is what a method concluded about one property.
type verdict struct {
	verified       bool
	confidence     float64
	counterexample string
}

// methodFunc returns verdicts keyed by property id. Ids it does not return
// are left as they were.
type methodFunc func(ctx *analysis.Context) map[string]verdict

var methods = map[Method]methodFunc{
	ModelChecking:          modelCheck,
	SymbolicExecution:      symbolicExecute,
	AbstractInterpretation: abstractInterpret,
}

// apply overwrites the verdict of every non-custom property the method covers.
func apply(props *[]model.FormalProperty, verdicts map[string]verdict) {
	for i := range *props {
		p := &(*props)[i]
		if p.Custom {
			continue
		}
		v, ok := verdicts[p.ID]
		if !ok {
			continue
		}
		p.Verified = v.verified
		p.Confidence = v.confidence
		p.Counterexample = nil
		if !v.verified && v.counterexample != "" {
			ce := v.counterexample
			p.Counterexample = &ce
		}
	}
}

var (
	reGuardModifier = regexp.MustCompile(`\bnonReentrant\b|\bReentrancyGuard\b`)
	reAuth          = regexp.MustCompile(`\bonly\w+\b|require\s*\(\s*(msg\.sender\s*==|\w+\s*==\s*msg\.sender)|\bhasRole\s*\(|_checkOwner\s*\(`)
	rePrivileged    = regexp.MustCompile(`\b(selfdestruct|suicide)\s*\(|\.delegatecall\s*[({]|\b_?owner\s*=[^=]|\bfunction\s+(mint|burn|pause|unpause|upgradeTo\w*|set\w+)\s*\(`)
	reExtCall       = regexp.MustCompile(`\.(call|send|transfer|delegatecall)\s*[({]|\.call\.value\s*\(`)
	reCtor          = regexp.MustCompile(`^\s*constructor\s*\(`)
	reFunction      = regexp.MustCompile(`^\s*(function\b|constructor\s*\(|modifier\s+\w+|fallback\s*\(|receive\s*\()`)
	reGuardLine     = regexp.MustCompile(`\b(require|assert)\s*\(`)
	reUnchecked     = regexp.MustCompile(`\bunchecked\s*\{`)
	reTxOriginAuth  = regexp.MustCompile(`\b(require|if)\s*\(.*\btx\.origin\b`)
	reZeroOwner     = regexp.MustCompile(`\b_?owner\s*=\s*address\s*\(\s*0\s*\)`)
	reOwnerInit     = regexp.MustCompile(`\b_?owner\s*=\s*(msg\.sender|_?\w+)\s*;`)
	reBalanceSub    = regexp.MustCompile(`\b(\w*[bB]alance\w*)\s*\[[^\]]*\]\s*-=|=\s*(\w*[bB]alance\w*)\s*\[[^\]]*\]\s*-`)
	reBalanceCheck  = regexp.MustCompile(`require\s*\(.*[bB]alance\w*\s*\[[^\]]*\]\s*>=`)
	reSupplyWrite   = regexp.MustCompile(`\btotalSupply\s*(\+=|-=|=[^=])|\b_totalSupply\s*(\+=|-=|=[^=])`)
	reBalanceWrite  = regexp.MustCompile(`[bB]alance\w*\s*\[[^\]]*\]\s*(\+=|-=|=[^=])`)
	reWithdrawHead  = regexp.MustCompile(`(?i)\bfunction\s+(withdraw|transfer)\w*\s*\(`)
	reBlocking      = regexp.MustCompile(`\bonlyOwner\b|\bwhenNotPaused\b|require\s*\(\s*false\s*\)|\brevert\s*\(`)
)

// overflowSafe reports whether the compiler or SafeMath rules out silent wraparound.
func overflowSafe(u *solidity.SourceUnit) (bool, string) {
	if strings.Contains(u.Text(), "SafeMath") {
		return true, ""
	}
	v, ok := u.Version()
	if !ok {
		return false, "no pragma solidity directive; compiler overflow checks cannot be assumed"
	}
	if v.Below(0, 8) {
		return false, fmt.Sprintf("arithmetic under solidity %s without SafeMath", v)
	}
	return true, ""
}

// callThenWrite finds the first external call followed by an unguarded state
// write in the same function. Lines are 1-based; 0 means none.
func callThenWrite(code []string) (call, write int) {
	call = 0
	for i, l := range code {
		if reFunction.MatchString(l) {
			call = 0
		}
		if call == 0 {
			if reExtCall.MatchString(l) {
				call = i + 1
			}
			continue
		}
		if solidity.HasAssignment(l) && !reGuardLine.MatchString(l) {
			return call, i + 1
		}
	}
	return 0, 0
}

func firstLine(code []string, re *regexp.Regexp) int {
	for i, l := range code {
		if re.MatchString(l) {
			return i + 1
		}
	}
	return 0
}

func hasAuthGuard(code []string) bool { return firstLine(code, reAuth) > 0 }

// privilegedLine returns the first privileged operation outside a constructor.
func privilegedLine(code []string) int {
	inCtor := false
	for i, l := range code {
		if reFunction.MatchString(l) {
			inCtor = reCtor.MatchString(l)
		}
		if !inCtor && rePrivileged.MatchString(l) {
			return i + 1
		}
	}
	return 0
}

// modelCheck explores the coarse state space: each property is decided by
// whether a protecting construct exists anywhere in the unit.
func modelCheck(ctx *analysis.Context) map[string]verdict {
	code := ctx.Unit.CodeLines()
	out := map[string]verdict{}

	ok, why := overflowSafe(ctx.Unit)
	out[PropOverflow] = verdict{ok, 0.85, why}
	out[PropBalance] = verdict{ok, 0.7, why}
	out[PropSupply] = verdict{ok, 0.6, why}

	if reGuardModifier.MatchString(strings.Join(code, "\n")) || firstLine(code, reExtCall) == 0 {
		out[PropReentrancy] = verdict{true, 0.8, ""}
	} else {
		c := firstLine(code, reExtCall)
		out[PropReentrancy] = verdict{false, 0.6, fmt.Sprintf("external call at line %d without a reentrancy guard", c)}
	}

	if p := privilegedLine(code); p > 0 && !hasAuthGuard(code) {
		out[PropAccess] = verdict{false, 0.75, fmt.Sprintf("privileged operation at line %d with no authorization check in the contract", p)}
	} else {
		out[PropAccess] = verdict{true, 0.75, ""}
	}

	if firstLine(code, reOwnerInit) > 0 {
		out[PropOwner] = verdict{true, 0.7, ""}
	} else {
		out[PropOwner] = verdict{false, 0.5, "owner is never initialized"}
	}

	out[PropWithdraw] = withdrawable(code)
	return out
}

func withdrawable(code []string) verdict {
	for i, l := range code {
		if reWithdrawHead.MatchString(l) && reBlocking.MatchString(l) {
			return verdict{false, 0.6, fmt.Sprintf("withdrawal at line %d can be blocked by a privileged party", i+1)}
		}
	}
	return verdict{true, 0.6, ""}
}

// symbolicExecute walks each function body in order and reports concrete
// offending lines.
func symbolicExecute(ctx *analysis.Context) map[string]verdict {
	code := ctx.Unit.CodeLines()
	out := map[string]verdict{}

	ok, why := overflowSafe(ctx.Unit)
	switch {
	case !ok:
		out[PropOverflow] = verdict{false, 0.9, why}
	default:
		out[PropOverflow] = verdict{true, 0.9, ""}
		if line := uncheckedArithmetic(code); line > 0 && !strings.Contains(ctx.Unit.Text(), "SafeMath") {
			out[PropOverflow] = verdict{false, 0.9, fmt.Sprintf("arithmetic inside unchecked block at line %d", line)}
		}
	}

	if reGuardModifier.MatchString(strings.Join(code, "\n")) {
		out[PropReentrancy] = verdict{true, 0.85, ""}
	} else if c, w := callThenWrite(code); w > 0 {
		out[PropReentrancy] = verdict{false, 0.85, fmt.Sprintf("external call at line %d precedes state write at line %d", c, w)}
	} else {
		out[PropReentrancy] = verdict{true, 0.85, ""}
	}

	if l := firstLine(code, reTxOriginAuth); l > 0 {
		out[PropAccess] = verdict{false, 0.9, fmt.Sprintf("authorization on tx.origin at line %d", l)}
	}
	return out
}

// uncheckedArithmetic returns the first arithmetic line inside an unchecked block.
func uncheckedArithmetic(code []string) int {
	depth, inside := 0, false
	for i, l := range code {
		if !inside && reUnchecked.MatchString(l) {
			inside, depth = true, 0
		}
		if !inside {
			continue
		}
		line := l
		if loc := reUnchecked.FindStringIndex(l); loc != nil {
			line = l[loc[1]:]
			depth = 1
		}
		if solidity.HasArithmetic(line) {
			return i + 1
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			inside = false
		}
	}
	return 0
}

// abstractInterpret tracks value ranges of balances, supply and owner.
func abstractInterpret(ctx *analysis.Context) map[string]verdict {
	code := ctx.Unit.CodeLines()
	out := map[string]verdict{}
	safe, _ := overflowSafe(ctx.Unit)

	out[PropBalance] = verdict{true, 0.8, ""}
	for i, l := range code {
		if !reBalanceSub.MatchString(l) {
			continue
		}
		if guarded(code, i, reBalanceCheck) || safe {
			continue
		}
		out[PropBalance] = verdict{false, 0.8, fmt.Sprintf("balance decremented at line %d without a sufficiency check", i+1)}
		break
	}

	out[PropSupply] = verdict{true, 0.7, ""}
	for i, l := range code {
		if reSupplyWrite.MatchString(l) && !near(code, i, 2, reBalanceWrite) {
			out[PropSupply] = verdict{false, 0.7, fmt.Sprintf("totalSupply changes at line %d with no matching balance update", i+1)}
			break
		}
	}

	if l := firstLine(code, reZeroOwner); l > 0 {
		out[PropOwner] = verdict{false, 0.85, fmt.Sprintf("owner set to address(0) at line %d", l)}
	} else if firstLine(code, reOwnerInit) > 0 {
		out[PropOwner] = verdict{true, 0.85, ""}
	}
	return out
}

// guarded reports whether one of the three lines before i matches re.
func guarded(code []string, i int, re *regexp.Regexp) bool {
	for j := i - 1; j >= 0 && j >= i-3; j-- {
		if re.MatchString(code[j]) {
			return true
		}
	}
	return false
}

func near(code []string, i, span int, re *regexp.Regexp) bool {
	for j := i - span; j <= i+span; j++ {
		if j >= 0 && j < len(code) && j != i && re.MatchString(code[j]) {
			return true
		}
	}
	return re.MatchString(strings.Replace(code[i], "totalSupply", "", 1))
}
