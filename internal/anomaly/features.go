// Package anomaly scores structural metrics of a contract against
// sensitivity-adjusted thresholds. Everything here is a heuristic over
// text and line counts.
package anomaly

import (
	"regexp"

	"github.com/xab-mack/smartaudit/internal/analysis"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

const (
	FeatureFunctionCount       = "functionCount"
	FeatureComplexity          = "cyclomaticComplexity"
	FeatureNestingDepth        = "nestingDepth"
	FeatureExternalCalls       = "externalCalls"
	FeatureStateChanges        = "stateChanges"
	FeatureAccessControlChecks = "accessControlChecks"
	FeatureAccessControlRatio  = "accessControlRatio"
	FeatureArithmeticOps       = "arithmeticOps"
	FeatureLoopCount           = "loopCount"
	FeatureConditionCount      = "conditionCount"
	FeatureVariableCount       = "variableCount"
)

var (
	reDecision      = regexp.MustCompile(`\b(if|for|while|case|catch|require|assert)\b|&&|\|\|`)
	reExternalCall  = regexp.MustCompile(`\.(call|delegatecall|staticcall|send|transfer)\s*[({]|\.call\.value\s*\(`)
	reAccessControl = regexp.MustCompile(`\b(require|assert|onlyOwner)\b|\bmsg\.sender\b`)
)

// Features is the named metric vector of one unit.
type Features map[string]float64

// Extract computes the metric vector. Function, loop and condition counts
// come from the CFG node chain; the rest from the comment-stripped lines.
func Extract(ctx *analysis.Context) Features {
	f := Features{}
	for _, n := range ctx.CFG {
		switch n.Kind {
		case model.NodeFunction:
			f[FeatureFunctionCount]++
		case model.NodeLoop:
			f[FeatureLoopCount]++
		case model.NodeCondition:
			f[FeatureConditionCount]++
		}
	}

	complexity := 1
	depth, maxDepth := 0, 0
	vars := map[string]struct{}{}
	for _, l := range ctx.Unit.CodeLines() {
		complexity += len(reDecision.FindAllStringIndex(l, -1))
		f[FeatureExternalCalls] += float64(len(reExternalCall.FindAllStringIndex(l, -1)))
		f[FeatureStateChanges] += float64(solidity.CountAssignments(l))
		f[FeatureAccessControlChecks] += float64(len(reAccessControl.FindAllStringIndex(l, -1)))
		f[FeatureArithmeticOps] += float64(solidity.CountArithmetic(l))
		for _, name := range solidity.AssignmentTargets(l) {
			vars[name] = struct{}{}
		}
		for i := 0; i < len(l); i++ {
			switch l[i] {
			case '{':
				depth++
				if depth > maxDepth {
					maxDepth = depth
				}
			case '}':
				if depth > 0 {
					depth--
				}
			}
		}
	}
	f[FeatureComplexity] = float64(complexity)
	f[FeatureNestingDepth] = float64(maxDepth)
	f[FeatureVariableCount] = float64(len(vars))
	if fc := f[FeatureFunctionCount]; fc > 0 {
		f[FeatureAccessControlRatio] = f[FeatureAccessControlChecks] / fc
	}
	return f
}

func (f Features) clone() map[string]float64 {
	out := make(map[string]float64, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
