package engine

import (
	"strings"
	"time"

	"github.com/xab-mack/smartaudit/internal/config"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

// suppressMarker silences a finding kind on its own line or the next one:
//
//	// smartaudit:ignore tx.origin usage
//
// A bare marker silences every kind.
const suppressMarker = "smartaudit:ignore"

// applyIgnores drops findings suppressed inline or by an active config rule.
func applyIgnores(findings []model.Finding, unit *solidity.SourceUnit, rules []config.IgnoreRule, now time.Time) []model.Finding {
	out := []model.Finding{}
	for _, f := range findings {
		if isIgnored(f, rules, now) || hasInlineSuppression(unit, f.Kind, f.LineNumber()) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isIgnored(f model.Finding, rules []config.IgnoreRule, now time.Time) bool {
	for _, ig := range rules {
		if strings.EqualFold(strings.TrimSpace(ig.Kind), f.Kind) && ig.Active(now) {
			return true
		}
	}
	return false
}

func hasInlineSuppression(unit *solidity.SourceUnit, kind string, line int) bool {
	if line <= 0 {
		return false
	}
	for n := line - 1; n <= line; n++ {
		if !unit.ValidLine(n) {
			continue
		}
		text := unit.Line(n)
		i := strings.Index(text, suppressMarker)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(text[i+len(suppressMarker):])
		if rest == "" || strings.HasPrefix(strings.ToLower(rest), strings.ToLower(kind)) {
			return true
		}
	}
	return false
}
