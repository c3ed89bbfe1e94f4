package anomaly

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/xab-mack/smartaudit/internal/analysis"
	"github.com/xab-mack/smartaudit/internal/model"
)

// Threshold is one metric bound. LowerBound metrics breach when the value
// falls under the threshold, all others when it rises above it.
type Threshold struct {
	Feature        string
	Base           float64
	LowerBound     bool
	Kind           string
	Severity       model.Severity
	Recommendation string
}

var BaseThresholds = []Threshold{
	{FeatureComplexity, 15, false, "High Cyclomatic Complexity", model.SeverityMedium,
		"Split complex functions into smaller units with a single responsibility."},
	{FeatureExternalCalls, 5, false, "Excessive External Calls", model.SeverityHigh,
		"Reduce external interactions and apply checks-effects-interactions around each call."},
	{FeatureAccessControlRatio, 0.3, true, "Insufficient Access Control", model.SeverityHigh,
		"Guard privileged functions with modifiers such as onlyOwner or role checks."},
	{FeatureStateChanges, 20, false, "Excessive State Changes", model.SeverityMedium,
		"Batch or consolidate state writes and review each for necessity."},
	{FeatureNestingDepth, 4, false, "Deep Nesting", model.SeverityMedium,
		"Flatten nested blocks with early returns and helper functions."},
}

// Multiplier scales thresholds by sensitivity: a lower multiplier reports more.
func Multiplier(s model.Sensitivity) float64 {
	switch s {
	case model.SensitivityLow:
		return 1.5
	case model.SensitivityHigh:
		return 0.7
	}
	return 1.0
}

// Adjusted returns the threshold value for sensitivity s. Every base value,
// lower bounds included, is scaled by the same multiplier.
func (t Threshold) Adjusted(s model.Sensitivity) float64 {
	return t.Base * Multiplier(s)
}

// Confidence grows with the relative excess over the threshold.
func Confidence(value, threshold float64) float64 {
	if threshold == 0 {
		return 0.95
	}
	excess := math.Abs(value-threshold) / threshold
	return round2(math.Min(0.95, 0.5+0.5*excess))
}

type lineCheck struct {
	kind           string
	re             *regexp.Regexp
	severity       model.Severity
	confidence     float64
	description    string
	recommendation string
}

var (
	reDecl = regexp.MustCompile(`\b(?:u?int\d*|address|bool|bytes\d*|string)\s+(?:(?:public|private|internal|memory|storage|calldata|payable|constant|immutable)\s+)*([A-Za-z_]\w*)\s*[;=,)]`)

	placeholders = map[string]bool{"tmp": true, "temp": true, "foo": true, "bar": true, "baz": true, "test": true, "asdf": true, "xxx": true, "dummy": true}

	lineChecks = []lineCheck{
		{"Inline Assembly", regexp.MustCompile(`\bassembly\s*(\(.*\)\s*)?\{`), model.SeverityMedium, 0.8,
			"Inline assembly bypasses compiler safety checks",
			"Limit assembly to audited helpers and document every memory assumption."},
		{"Manual Gas Management", regexp.MustCompile(`\bgasleft\s*\(\s*\)|\bgas\s*:|\.gas\s*\(`), model.SeverityMedium, 0.7,
			"Explicit gas handling depends on opcode pricing that changes across forks",
			"Avoid hardcoded gas stipends and gasleft() based control flow."},
	}
)

func suspiciousName(name string) bool {
	if len(name) == 1 {
		return !strings.Contains("ijkn", name)
	}
	return placeholders[strings.ToLower(name)]
}

type novelPattern struct {
	name        string
	all         []*regexp.Regexp
	none        *regexp.Regexp
	description string
	confidence  float64
}

var novelPatterns = []novelPattern{
	{"Metamorphic deployment", []*regexp.Regexp{regexp.MustCompile(`(?i)create2`), regexp.MustCompile(`(?i)\bsalt\b`), regexp.MustCompile(`(?i)bytecode`)}, nil,
		"CREATE2 with a salt and raw bytecode allows redeploying different code at the same address", 0.7},
	{"Multicall delegation", []*regexp.Regexp{regexp.MustCompile(`(?i)multicall`), regexp.MustCompile(`\.delegatecall\b`)}, nil,
		"Multicall over delegatecall lets one transaction reuse msg.value across calls", 0.75},
	{"MEV-sensitive deadline", []*regexp.Regexp{regexp.MustCompile(`\bblock\.timestamp\b`), regexp.MustCompile(`(?i)\bdeadline\b`)}, nil,
		"Deadlines checked against block.timestamp are open to validator reordering", 0.6},
	{"Flash loan callback", []*regexp.Regexp{regexp.MustCompile(`(?i)flash\s*loan`), regexp.MustCompile(`(?i)onFlashLoan|executeOperation|callback`)}, nil,
		"Flash loan callbacks run attacker-controlled code with borrowed liquidity", 0.7},
	{"Replayable signature", []*regexp.Regexp{regexp.MustCompile(`\becrecover\s*\(`)}, regexp.MustCompile(`(?i)nonce`),
		"Signatures recovered without a nonce can be replayed", 0.65},
}

// Result is the output of one anomaly pass.
type Result struct {
	Features   Features
	Records    []model.AnomalyRecord
	Novel      []model.NovelPattern
	Score      float64
	Assessment string
}

// Detect runs the threshold, line and novel-pattern checks.
func Detect(ctx *analysis.Context, s model.Sensitivity) Result {
	feats := Extract(ctx)
	res := Result{Features: feats, Records: []model.AnomalyRecord{}, Novel: []model.NovelPattern{}}
	loc := "contract " + ctx.Unit.Name()

	for _, t := range BaseThresholds {
		v, limit := feats[t.Feature], t.Adjusted(s)
		breached := v > limit
		if t.LowerBound {
			breached = feats[FeatureFunctionCount] > 0 && v < limit
		}
		if !breached {
			continue
		}
		sev := t.Severity
		if math.Abs(v-limit)/limit >= 1 {
			sev = escalate(sev)
		}
		res.Records = append(res.Records, model.AnomalyRecord{
			Kind:           t.Kind,
			Severity:       sev,
			Confidence:     Confidence(v, limit),
			Location:       loc,
			Description:    fmt.Sprintf("%s is %s against a threshold of %s", t.Feature, format(v), format(limit)),
			Recommendation: t.Recommendation,
			Features:       feats.clone(),
		})
	}

	raw := ctx.Unit.Lines()
	for i, l := range ctx.Unit.CodeLines() {
		for _, c := range lineChecks {
			if c.re.MatchString(l) {
				res.Records = append(res.Records, lineRecord(c.kind, c.severity, c.confidence, i+1, c.description, c.recommendation, raw[i]))
			}
		}
		for _, m := range reDecl.FindAllStringSubmatch(l, -1) {
			if suspiciousName(m[1]) {
				res.Records = append(res.Records, lineRecord("Suspicious Identifier", model.SeverityLow, 0.6, i+1,
					fmt.Sprintf("Identifier %q is too short or a placeholder", m[1]),
					"Use descriptive names for state and local variables.", raw[i]))
			}
		}
	}

	text := ctx.Unit.Text()
	for _, p := range novelPatterns {
		if p.matches(text) {
			res.Novel = append(res.Novel, model.NovelPattern{Name: p.name, Description: p.description, Confidence: p.confidence})
		}
	}

	res.Score = Score(res.Records)
	res.Assessment = Assess(res.Score, res.Records)
	return res
}

func lineRecord(kind string, sev model.Severity, conf float64, line int, desc, rec, raw string) model.AnomalyRecord {
	return model.AnomalyRecord{
		Kind:           kind,
		Severity:       sev,
		Confidence:     conf,
		Location:       fmt.Sprintf("line %d", line),
		Description:    desc,
		Recommendation: rec,
		Features:       map[string]float64{"line": float64(line), "length": float64(len(strings.TrimSpace(raw)))},
	}
}

func (p novelPattern) matches(text string) bool {
	for _, re := range p.all {
		if !re.MatchString(text) {
			return false
		}
	}
	return p.none == nil || !p.none.MatchString(text)
}

func escalate(s model.Severity) model.Severity {
	switch s {
	case model.SeverityLow:
		return model.SeverityMedium
	case model.SeverityMedium:
		return model.SeverityHigh
	}
	return model.SeverityCritical
}

func weight(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return 1.0
	case model.SeverityHigh:
		return 0.8
	case model.SeverityMedium:
		return 0.5
	}
	return 0.2
}

// Score folds records into a 0..100 anomaly score.
func Score(records []model.AnomalyRecord) float64 {
	total := 0.0
	for _, r := range records {
		total += weight(r.Severity) * r.Confidence * 20
	}
	return round2(math.Min(100, total))
}

// Assess maps a score and the record severities to a risk statement.
func Assess(score float64, records []model.AnomalyRecord) string {
	critical, high := 0, 0
	for _, r := range records {
		switch r.Severity {
		case model.SeverityCritical:
			critical++
		case model.SeverityHigh:
			high++
		}
	}
	switch {
	case critical > 0 || score >= 80:
		return "Critical risk: anomalies require immediate manual review"
	case high > 1 || score >= 50:
		return "High risk: several significant anomalies detected"
	case score >= 25:
		return "Medium risk: some anomalies warrant review"
	case score > 0:
		return "Low risk: minor anomalies detected"
	}
	return "Minimal risk: no anomalies detected"
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func format(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
