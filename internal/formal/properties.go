// Package formal evaluates a checklist of named contract properties with
// three heuristic "verification methods". Verdicts are pattern checks, not
// proofs, and a later method overwrites an earlier one on the same property.
package formal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

const (
	PropOverflow   = "P-OVERFLOW"
	PropReentrancy = "P-REENTRANCY"
	PropAccess     = "P-ACCESS"
	PropBalance    = "P-BALANCE"
	PropSupply     = "P-SUPPLY"
	PropOwner      = "P-OWNER"
	PropWithdraw   = "P-WITHDRAW"
)

var (
	reBalanceMapping = regexp.MustCompile(`mapping\s*\(\s*address\s*=>\s*uint\d*\s*\)\s*(?:(?:public|private|internal)\s+)?\w*[bB]alance\w*`)
	reOwnerIdent     = regexp.MustCompile(`\b_?owner\b`)
	reWithdrawFn     = regexp.MustCompile(`(?i)\bfunction\s+(withdraw|transfer)\w*\s*\(`)
)

func property(id, name string, kind model.PropertyKind, spec string) model.FormalProperty {
	return model.FormalProperty{ID: id, Name: name, Kind: kind, Specification: spec}
}

// Properties declares the base set, the shape-dependent set and the caller's
// custom properties, in that order. Every property starts unverified.
func Properties(unit *solidity.SourceUnit, custom []string) []model.FormalProperty {
	props := []model.FormalProperty{
		property(PropOverflow, "no-overflow", model.PropertySafety,
			"forall arithmetic op: result stays within the bounds of its type"),
		property(PropReentrancy, "no-reentrancy", model.PropertySafety,
			"no state variable is written after an external call in the same function"),
		property(PropAccess, "access-control-integrity", model.PropertyInvariant,
			"every privileged operation is preceded by an authorization check"),
	}
	code := strings.Join(unit.CodeLines(), "\n")
	if reBalanceMapping.MatchString(code) {
		props = append(props,
			property(PropBalance, "balance-non-negative", model.PropertyInvariant,
				"forall a: balances[a] >= 0 after every transaction"),
			property(PropSupply, "total-supply-conservation", model.PropertyInvariant,
				"sum(balances) == totalSupply"),
		)
	}
	if reOwnerIdent.MatchString(code) {
		props = append(props, property(PropOwner, "owner-non-zero", model.PropertyInvariant,
			"owner != address(0)"))
	}
	if reWithdrawFn.MatchString(code) {
		props = append(props, property(PropWithdraw, "eventually-withdrawable", model.PropertyLiveness,
			"a holder with a positive balance can eventually withdraw it"))
	}
	for i, c := range custom {
		props = append(props, customProperty(i+1, c))
	}
	return props
}

// customProperty parses "kind: text"; without a known kind prefix the whole
// string is the specification of an invariant.
func customProperty(n int, text string) model.FormalProperty {
	kind, spec := model.PropertyInvariant, strings.TrimSpace(text)
	if head, rest, ok := strings.Cut(spec, ":"); ok {
		if k, known := model.ParsePropertyKind(head); known {
			kind, spec = k, strings.TrimSpace(rest)
		}
	}
	name := spec
	if len(name) > 60 {
		name = name[:57] + "..."
	}
	p := property(fmt.Sprintf("C-%03d", n), name, kind, spec)
	p.Custom = true
	return p
}
