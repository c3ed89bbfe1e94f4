package analysis

import (
	"regexp"
	"strings"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

// structural patterns, tested in order; the first match decides a line's kind
var structural = []struct {
	kind model.CFGNodeKind
	re   *regexp.Regexp
}{
	{model.NodeFunction, regexp.MustCompile(`^\s*(function\b|constructor\s*\(|modifier\s+\w+|fallback\s*\(|receive\s*\()`)},
	{model.NodeCondition, regexp.MustCompile(`\b(if|require|assert)\s*\(`)},
	{model.NodeLoop, regexp.MustCompile(`\b(for|while)\s*\(|\bdo\s*\{`)},
	{model.NodeCall, regexp.MustCompile(`\.(call|delegatecall|staticcall|send|transfer)\s*[({]|\.call\.value\s*\(|\bemit\s+\w+|\b[A-Z]\w*\(\s*[\w.]+\s*\)\.\w+\s*\(`)},
	{model.NodeReturn, regexp.MustCompile(`\b(return|revert)\b`)},
}

// BuildCFG emits one node per structural line and chains node i to node i+1.
// Branches are not modelled: the chain is a cheap index of interesting lines.
func BuildCFG(unit *solidity.SourceUnit) []model.CFGNode {
	nodes := []model.CFGNode{}
	raw := unit.Lines()
	for i, l := range unit.CodeLines() {
		for _, s := range structural {
			if !s.re.MatchString(l) {
				continue
			}
			nodes = append(nodes, model.CFGNode{
				ID:           len(nodes),
				Kind:         s.kind,
				Line:         i + 1,
				Label:        label(raw[i]),
				Successors:   []int{},
				Predecessors: []int{},
			})
			break
		}
	}
	for i := 0; i+1 < len(nodes); i++ {
		nodes[i].Successors = append(nodes[i].Successors, nodes[i+1].ID)
		nodes[i+1].Predecessors = append(nodes[i+1].Predecessors, nodes[i].ID)
	}
	return nodes
}

func label(line string) string {
	l := strings.TrimSpace(line)
	if len(l) > 80 {
		l = l[:77] + "..."
	}
	return l
}

// NodesBetween returns the nodes strictly after line from and before line to.
func NodesBetween(nodes []model.CFGNode, from, to int) []model.CFGNode {
	var out []model.CFGNode
	for _, n := range nodes {
		if n.Line > from && n.Line < to {
			out = append(out, n)
		}
	}
	return out
}
