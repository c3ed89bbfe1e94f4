package analysis

import (
	"sort"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

// BuildDataFlow indexes every assigned identifier by the lines that assign it
// and the other lines that mention it. It is a textual occurrence index, not
// a reaching-definitions analysis.
func BuildDataFlow(unit *solidity.SourceUnit) []model.VariableFlow {
	code := unit.CodeLines()
	defs := map[string][]int{}
	for i, l := range code {
		for _, name := range solidity.AssignmentTargets(l) {
			lines := defs[name]
			if len(lines) == 0 || lines[len(lines)-1] != i+1 {
				defs[name] = append(lines, i+1)
			}
		}
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	flows := make([]model.VariableFlow, 0, len(names))
	for _, name := range names {
		defined := map[int]bool{}
		for _, n := range defs[name] {
			defined[n] = true
		}
		uses := []int{}
		for i, l := range code {
			if !defined[i+1] && solidity.ContainsWord(l, name) {
				uses = append(uses, i+1)
			}
		}
		flows = append(flows, model.VariableFlow{Name: name, DefinitionLines: defs[name], UseLines: uses})
	}
	return flows
}
