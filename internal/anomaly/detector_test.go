package anomaly

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/smartaudit/internal/analysis"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

func contextOf(src string) *analysis.Context {
	return analysis.NewContext(solidity.NewSourceUnit(src, ""))
}

const simple = `pragma solidity ^0.8.0;
contract Counter {
    uint256 public count;
    function increment() external {
        require(msg.sender != address(0));
        count += 1;
    }
}
`

func TestExtract(t *testing.T) {
	f := Extract(contextOf(simple))
	assert.Equal(t, 1.0, f[FeatureFunctionCount])
	assert.Equal(t, 1.0, f[FeatureConditionCount])
	assert.Equal(t, 0.0, f[FeatureLoopCount])
	assert.Equal(t, 2.0, f[FeatureComplexity])
	assert.Equal(t, 2.0, f[FeatureNestingDepth])
	assert.Equal(t, 1.0, f[FeatureStateChanges])
	assert.Equal(t, 2.0, f[FeatureAccessControlChecks])
	assert.Equal(t, 2.0, f[FeatureAccessControlRatio])
	assert.Equal(t, 1.0, f[FeatureArithmeticOps])
	assert.Equal(t, 1.0, f[FeatureVariableCount])
}

func TestCleanContractHasNoAnomalies(t *testing.T) {
	res := Detect(contextOf(simple), model.SensitivityMedium)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Novel)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, "Minimal risk: no anomalies detected", res.Assessment)
}

func TestAdjustedThresholds(t *testing.T) {
	complexity, ratio := BaseThresholds[0], BaseThresholds[2]
	assert.InDelta(t, 22.5, complexity.Adjusted(model.SensitivityLow), 1e-9)
	assert.InDelta(t, 15, complexity.Adjusted(model.SensitivityMedium), 1e-9)
	assert.InDelta(t, 10.5, complexity.Adjusted(model.SensitivityHigh), 1e-9)
	assert.InDelta(t, 0.45, ratio.Adjusted(model.SensitivityLow), 1e-9)
	assert.InDelta(t, 0.3, ratio.Adjusted(model.SensitivityMedium), 1e-9)
	assert.InDelta(t, 0.21, ratio.Adjusted(model.SensitivityHigh), 1e-9)
}

const looselyGuarded = `contract Pool {
    uint256 a;
    function f1(uint256 v) external { require(v > 0); a = v; }
    function f2(uint256 v) external { assert(v < 10); a = v; }
    function f3() external { a = 3; }
    function f4() external { a = 4; }
    function f5() external { a = 5; }
}
`

func TestAccessControlRatioScalesWithSensitivity(t *testing.T) {
	feats := Extract(contextOf(looselyGuarded))
	require.InDelta(t, 0.4, feats[FeatureAccessControlRatio], 1e-9)

	kinds := func(s model.Sensitivity) []string {
		var out []string
		for _, r := range Detect(contextOf(looselyGuarded), s).Records {
			out = append(out, r.Kind)
		}
		return out
	}
	assert.Contains(t, kinds(model.SensitivityLow), "Insufficient Access Control")
	assert.NotContains(t, kinds(model.SensitivityMedium), "Insufficient Access Control")
	assert.NotContains(t, kinds(model.SensitivityHigh), "Insufficient Access Control")
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.5, Confidence(4, 4))
	assert.Equal(t, 0.75, Confidence(6, 4))
	assert.Equal(t, 0.95, Confidence(40, 4))
}

func externalHeavy(n int) string {
	var b strings.Builder
	b.WriteString("contract Router {\n    function route(address target) external {\n")
	b.WriteString("        require(msg.sender == owner);\n")
	for i := 0; i < n; i++ {
		b.WriteString("        payable(target).transfer(1);\n")
	}
	b.WriteString("    }\n}\n")
	return b.String()
}

func TestExternalCallThreshold(t *testing.T) {
	res := Detect(contextOf(externalHeavy(7)), model.SensitivityMedium)
	var rec *model.AnomalyRecord
	for i := range res.Records {
		if res.Records[i].Kind == "Excessive External Calls" {
			rec = &res.Records[i]
		}
	}
	require.NotNil(t, rec)
	assert.Equal(t, model.SeverityHigh, rec.Severity)
	assert.Equal(t, 0.7, rec.Confidence)
	assert.Equal(t, 7.0, rec.Features[FeatureExternalCalls])
	assert.Equal(t, "contract Router", rec.Location)

	assert.Empty(t, Detect(contextOf(externalHeavy(7)), model.SensitivityLow).Records)
}

func TestSensitivityReportsMore(t *testing.T) {
	src := externalHeavy(4)
	assert.Empty(t, Detect(contextOf(src), model.SensitivityMedium).Records)
	assert.NotEmpty(t, Detect(contextOf(src), model.SensitivityHigh).Records)
}

func TestLineChecks(t *testing.T) {
	src := `contract Odd {
    uint256 q;
    function f() external {
        assembly { sstore(0, 1) }
        uint256 left = gasleft();
        require(msg.sender == address(0));
    }
}
`
	res := Detect(contextOf(src), model.SensitivityMedium)
	got := map[string]model.AnomalyRecord{}
	for _, r := range res.Records {
		got[r.Kind] = r
	}
	require.Contains(t, got, "Inline Assembly")
	assert.Equal(t, "line 4", got["Inline Assembly"].Location)
	assert.Equal(t, 0.8, got["Inline Assembly"].Confidence)
	require.Contains(t, got, "Manual Gas Management")
	assert.Equal(t, 0.7, got["Manual Gas Management"].Confidence)
	require.Contains(t, got, "Suspicious Identifier")
	assert.Equal(t, "line 2", got["Suspicious Identifier"].Location)
}

func TestNovelPatternsAreNotScored(t *testing.T) {
	src := `contract Sig {
    function claim(bytes32 h, uint8 v, bytes32 r, bytes32 s) external {
        require(ecrecover(h, v, r, s) == msg.sender);
    }
}
`
	res := Detect(contextOf(src), model.SensitivityMedium)
	require.Len(t, res.Novel, 1)
	assert.Equal(t, "Replayable signature", res.Novel[0].Name)
	assert.Equal(t, Score(res.Records), res.Score)

	withNonce := strings.Replace(src, "bytes32 h,", "bytes32 h, uint256 nonce,", 1)
	assert.Empty(t, Detect(contextOf(withNonce), model.SensitivityMedium).Novel)
}

func TestAssess(t *testing.T) {
	high := model.AnomalyRecord{Severity: model.SeverityHigh, Confidence: 0.5}
	crit := model.AnomalyRecord{Severity: model.SeverityCritical, Confidence: 0.5}
	assert.Contains(t, Assess(10, []model.AnomalyRecord{crit}), "Critical")
	assert.Contains(t, Assess(16, []model.AnomalyRecord{high, high}), "High")
	assert.Contains(t, Assess(30, nil), "Medium")
	assert.Contains(t, Assess(8, []model.AnomalyRecord{high}), "Low")
}

func TestScoreBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	sev := gen.OneConstOf(model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow)
	record := gopter.CombineGens(sev, gen.Float64Range(0, 1)).Map(func(v []interface{}) model.AnomalyRecord {
		return model.AnomalyRecord{Severity: v[0].(model.Severity), Confidence: v[1].(float64)}
	})

	properties.Property("anomaly score stays within 0..100", prop.ForAll(
		func(records []model.AnomalyRecord) bool {
			s := Score(records)
			return s >= 0 && s <= 100
		},
		gen.SliceOf(record),
	))
	properties.TestingRun(t)
}
