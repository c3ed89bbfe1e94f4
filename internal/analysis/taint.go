package analysis

import (
	"fmt"
	"regexp"

	"github.com/xab-mack/smartaudit/internal/model"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

var taintSources = []pattern{
	{"msg.sender", regexp.MustCompile(`\bmsg\.sender\b`)},
	{"msg.value", regexp.MustCompile(`\bmsg\.value\b`)},
	{"tx.origin", regexp.MustCompile(`\btx\.origin\b`)},
	{"block.timestamp", regexp.MustCompile(`\bblock\.timestamp\b`)},
	{"block.number", regexp.MustCompile(`\bblock\.number\b`)},
	{"block.coinbase", regexp.MustCompile(`\bblock\.coinbase\b`)},
}

var taintSinks = []pattern{
	{".call", regexp.MustCompile(`\.call\s*[({]|\.call\.value\s*\(`)},
	{".delegatecall", regexp.MustCompile(`\.delegatecall\s*[({]`)},
	{".send", regexp.MustCompile(`\.send\s*\(`)},
	{".transfer", regexp.MustCompile(`\.transfer\s*\(`)},
	{"selfdestruct", regexp.MustCompile(`\bselfdestruct\s*\(`)},
	{"suicide", regexp.MustCompile(`\bsuicide\s*\(`)},
}

// SinkSeverity grades a path by its sink alone.
func SinkSeverity(sink string) model.Severity {
	switch sink {
	case ".delegatecall", "selfdestruct":
		return model.SeverityCritical
	case ".call":
		return model.SeverityHigh
	}
	return model.SeverityMedium
}

// TaintPaths emits one path per (source, sink) pair whose first source line
// precedes its first sink line. Reasoning is whole-unit, not per call site.
func TaintPaths(ctx *Context) []model.TaintPath {
	code := ctx.Unit.CodeLines()
	paths := []model.TaintPath{}
	for _, src := range taintSources {
		s := firstMatch(code, src.re)
		if s == 0 {
			continue
		}
		for _, sink := range taintSinks {
			k := firstMatch(code, sink.re)
			if k == 0 || s >= k {
				continue
			}
			path := []string{fmt.Sprintf("%s@%d", src.name, s)}
			for _, n := range NodesBetween(ctx.CFG, s, k) {
				path = append(path, fmt.Sprintf("%s@%d", n.Kind, n.Line))
			}
			path = append(path, fmt.Sprintf("%s@%d", sink.name, k))
			paths = append(paths, model.TaintPath{
				Source:     src.name,
				Sink:       sink.name,
				SourceLine: s,
				SinkLine:   k,
				Path:       path,
				Severity:   SinkSeverity(sink.name),
			})
		}
	}
	return paths
}

func firstMatch(lines []string, re *regexp.Regexp) int {
	for i, l := range lines {
		if re.MatchString(l) {
			return i + 1
		}
	}
	return 0
}
