// Package rules holds the static rule catalog. Rules are data: every scanner
// is a generic interpreter over these tables and never special-cases a kind.
package rules

import (
	"fmt"
	"regexp"

	"github.com/xab-mack/smartaudit/internal/model"
)

type Scope string

const (
	// ScopeLine rules are tested against every line of the scan window.
	ScopeLine Scope = "line"
	// ScopeUnit rules are tested against the whole unit and report the first matching line.
	ScopeUnit Scope = "unit"
	// ScopeRelational rules are evaluated by dedicated detectors reasoning across lines.
	ScopeRelational Scope = "relational"
)

type Rule struct {
	Kind           string
	Pattern        *regexp.Regexp
	Unless         *regexp.Regexp // a line also matching Unless is not reported
	Raw            bool           // match the raw line instead of the comment-stripped one
	Severity       model.Severity
	Scope          Scope
	Category       model.Category
	Description    string
	Recommendation string
	Impact         string
	References     []string
}

// Match tests the rule against one line in both its code-only and raw forms.
func (r Rule) Match(code, raw string) bool {
	line := code
	if r.Raw {
		line = raw
	}
	if !r.Pattern.MatchString(line) {
		return false
	}
	return r.Unless == nil || !r.Unless.MatchString(line)
}

func (r Rule) Meta() model.RuleMeta {
	return model.RuleMeta{ID: r.Kind, Title: r.Description, Severity: r.Severity, Category: r.Category, Scope: string(r.Scope)}
}

// Finding builds a finding for this rule at line n.
func (r Rule) Finding(n int, snippet, detector string) model.Finding {
	return model.Finding{
		Kind:           r.Kind,
		Severity:       r.Severity,
		Line:           model.LineRef(n),
		Description:    r.Description,
		Recommendation: r.Recommendation,
		Impact:         r.Impact,
		Category:       r.Category,
		Detector:       detector,
		Snippet:        snippet,
		References:     r.References,
	}
}

var (
	security        = withCategory(model.CategorySecurity, securityRules)
	vulnerabilities = withCategory(model.CategoryVulnerability, vulnerabilityRules)
	gas             = withCategory(model.CategoryGas, gasRules)
	heuristics      = withCategory(model.CategorySecurity, heuristicRules)
	structural      = withCategory(model.CategoryVulnerability, structuralRules)
	byKind          = index(security, heuristics, vulnerabilities, structural, gas)
)

// Security is the ordered table used by the primary fast-path scanner; order
// decides which rule wins a line.
func Security() []Rule { return clone(security) }

func Vulnerabilities() []Rule { return clone(vulnerabilities) }

func Gas() []Rule { return clone(gas) }

func Heuristics() []Rule { return clone(heuristics) }

func Structural() []Rule { return clone(structural) }

func All() []Rule {
	out := clone(security)
	out = append(out, heuristics...)
	out = append(out, vulnerabilities...)
	out = append(out, structural...)
	return append(out, gas...)
}

// Lookup returns the first catalog rule with the given kind, searching the
// security, heuristic, vulnerability, structural and gas tables in that order.
func Lookup(kind string) (Rule, bool) {
	r, ok := byKind[kind]
	return r, ok
}

func clone(in []Rule) []Rule {
	out := make([]Rule, len(in))
	copy(out, in)
	return out
}

func withCategory(c model.Category, in []Rule) []Rule {
	seen := map[string]bool{}
	for i := range in {
		if seen[in[i].Kind] {
			panic(fmt.Sprintf("rules: duplicate kind %q in %s table", in[i].Kind, c))
		}
		seen[in[i].Kind] = true
		in[i].Category = c
		if in[i].Scope == "" {
			in[i].Scope = ScopeLine
		}
	}
	return in
}

func index(tables ...[]Rule) map[string]Rule {
	m := map[string]Rule{}
	for _, t := range tables {
		for _, r := range t {
			if _, ok := m[r.Kind]; !ok {
				m[r.Kind] = r
			}
		}
	}
	return m
}
