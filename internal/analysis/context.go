package analysis

import (
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

// Context carries the artifacts shared by the passes that run after the
// scanners. It is built once per analysis and read-only afterwards.
type Context struct {
	Unit *solidity.SourceUnit
	CFG  []model.CFGNode
}

func NewContext(unit *solidity.SourceUnit) *Context {
	return &Context{Unit: unit, CFG: BuildCFG(unit)}
}
