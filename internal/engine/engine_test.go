package engine

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/smartaudit/internal/config"
	"github.com/xab-mack/smartaudit/internal/errors"
	"github.com/xab-mack/smartaudit/internal/metrics"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

const originWallet = `pragma solidity ^0.8.0;
contract Wallet {
    address owner;
    function pay(address payable to, uint256 amount) external {
        require(tx.origin == owner);
        to.transfer(amount);
    }
}
`

const bank = `pragma solidity ^0.8.0;
contract Bank {
    mapping(address => uint256) balances;
    function withdraw() external {
        uint256 amount = balances[msg.sender];
        (bool ok, ) = msg.sender.call{value: amount}("");
        require(ok);
        balances[msg.sender] = 0;
    }
}
`

const legacyCounter = `pragma solidity ^0.6.12;
contract Counter {
    uint256 public total;
    function add(uint256 v) public {
        total = total + v;
    }
}
`

const counter = `pragma solidity 0.8.19;
contract Counter {
    uint256 private count;
    function get() external view returns (uint256) {
        return count;
    }
}
`

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return New(config.Default(), hclog.NewNullLogger(), metrics.NewRegistry())
}

func request(code string, depth model.Depth) model.AnalysisRequest {
	return model.AnalysisRequest{ContractCode: code, AnalysisDepth: depth}
}

func find(fs []model.Finding, kind string) (model.Finding, bool) {
	for _, f := range fs {
		if f.Kind == kind {
			return f, true
		}
	}
	return model.Finding{}, false
}

func TestAnalyzeTxOrigin(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), request(originWallet, model.DepthBasic))
	require.NoError(t, err)
	assert.Equal(t, "Wallet", res.ContractName)

	f, ok := find(res.Findings, "tx.origin usage")
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, f.Severity)
	assert.Equal(t, 5, f.LineNumber())
	assert.Equal(t, model.SeverityCritical, res.RiskLevel)
	assert.LessOrEqual(t, res.SecurityScore, 75)
	assert.False(t, res.Partial)
	assert.Empty(t, res.Warnings)
}

func TestAnalyzeReentrancy(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), request(bank, model.DepthBasic))
	require.NoError(t, err)

	f, ok := find(res.Findings, "Reentrancy")
	require.True(t, ok)
	assert.Equal(t, 8, f.LineNumber())
	assert.Equal(t, model.SeverityCritical, f.Severity)

	require.NotEmpty(t, res.TaintPaths)
	assert.Equal(t, "msg.sender", res.TaintPaths[0].Source)
	assert.Equal(t, ".call", res.TaintPaths[0].Sink)
	assert.NotEmpty(t, res.DataFlow)
	assert.NotEmpty(t, res.CFG)
}

func TestAnalyzeOverflow(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), request(legacyCounter, model.DepthBasic))
	require.NoError(t, err)
	f, ok := find(res.Findings, "Integer Overflow/Underflow")
	require.True(t, ok)
	assert.Equal(t, 5, f.LineNumber())
	assert.Equal(t, model.SeverityHigh, f.Severity)
}

func TestAnalyzeCleanContract(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), request(counter, ""))
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
	assert.Empty(t, res.Vulnerabilities)
	assert.Empty(t, res.TaintPaths)
	assert.Equal(t, 100, res.SecurityScore)
	assert.Equal(t, model.SeverityLow, res.RiskLevel)
	// intermediate is the configured default, so anomalies ran
	assert.NotEmpty(t, res.RiskAssessment)
	assert.Empty(t, res.VerificationStatus)
}

func TestDepthPresets(t *testing.T) {
	e := newEngine(t)
	basic, err := e.Analyze(context.Background(), request(bank, model.DepthBasic))
	require.NoError(t, err)
	assert.Empty(t, basic.Vulnerabilities)
	assert.Empty(t, basic.GasOptimizations)
	assert.Empty(t, basic.RiskAssessment)
	assert.Empty(t, basic.Properties)

	deep, err := e.Analyze(context.Background(), request(bank, model.DepthDeep))
	require.NoError(t, err)
	assert.NotEmpty(t, deep.Vulnerabilities)
	assert.NotEmpty(t, deep.RiskAssessment)
	assert.NotEmpty(t, deep.Properties)
	assert.NotEmpty(t, deep.VerificationStatus)

	req := request(bank, model.DepthBasic)
	req.EnableFormal = true
	flagged, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, flagged.Properties)
	assert.Empty(t, flagged.Vulnerabilities)
}

func TestSizeBoundary(t *testing.T) {
	e := newEngine(t)
	header := "contract Big {}\n// "
	fill := 50000 - utf8.RuneCountInString(header)
	code := header + strings.Repeat("é", fill)
	require.Equal(t, 50000, utf8.RuneCountInString(code))

	res, err := e.Analyze(context.Background(), request(code, model.DepthBasic))
	require.NoError(t, err)
	assert.Equal(t, "Big", res.ContractName)

	_, err = e.Analyze(context.Background(), request(code+"é", model.DepthBasic))
	require.Error(t, err)
	assert.Equal(t, errors.KindInput, errors.KindOf(err))

	_, err = e.Analyze(context.Background(), request("", model.DepthBasic))
	assert.Equal(t, errors.KindInput, errors.KindOf(err))
}

func TestWhitespaceInputWarns(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), request("  \n\t", model.DepthBasic))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 100, res.SecurityScore)
}

func TestInvalidRequestFields(t *testing.T) {
	e := newEngine(t)
	req := request(counter, "extreme")
	_, err := e.Analyze(context.Background(), req)
	require.Error(t, err)
	var ie *errors.InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "analysisDepth", ie.Field)

	req = request(counter, model.DepthDeep)
	req.VerificationMethods = []string{"smt"}
	_, err = e.VerifyProperties(context.Background(), req)
	assert.Equal(t, errors.KindInput, errors.KindOf(err))
}

func TestNonSolidityInputWarns(t *testing.T) {
	res, err := newEngine(t).Analyze(context.Background(), request("hello world", model.DepthBasic))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "pragma solidity")
	assert.Equal(t, solidity.DefaultName, res.ContractName)
	assert.Equal(t, 100, res.SecurityScore)
}

func TestOperations(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	vulns, err := e.DetectVulnerabilities(ctx, request(bank, ""))
	require.NoError(t, err)
	assert.Empty(t, vulns.Findings)
	_, ok := find(vulns.Vulnerabilities, "Reentrancy")
	assert.True(t, ok)
	_, ok = find(vulns.Vulnerabilities, "Reentrancy-prone value transfer")
	assert.True(t, ok)
	silent, ok := find(vulns.Vulnerabilities, "State change without event")
	require.True(t, ok)
	assert.Equal(t, 4, silent.LineNumber())
	assert.Empty(t, vulns.TaintPaths)

	gas, err := e.OptimizeGas(ctx, request(bank, ""))
	require.NoError(t, err)
	assert.Empty(t, gas.Findings)
	assert.Empty(t, gas.Vulnerabilities)
	assert.Equal(t, 100, gas.SecurityScore)

	anomalies, err := e.DetectAnomalies(ctx, request(bank, ""))
	require.NoError(t, err)
	assert.NotEmpty(t, anomalies.RiskAssessment)
	assert.Empty(t, anomalies.Findings)

	verified, err := e.VerifyProperties(ctx, request(bank, ""))
	require.NoError(t, err)
	assert.NotEmpty(t, verified.Properties)
	assert.NotEmpty(t, verified.VerificationStatus)
	assert.Empty(t, verified.Findings)

	rep, err := e.GenerateReport(ctx, request(bank, model.DepthBasic))
	require.NoError(t, err)
	require.NotNil(t, rep.Report)
	assert.Contains(t, rep.Report.Markdown, "# Security Audit Report: Bank")
	assert.NotEmpty(t, rep.Properties)
	assert.Equal(t, rep.SecurityScore, rep.Report.SecurityScore)
}

func TestCalibrationMergesDuplicates(t *testing.T) {
	src := `pragma solidity ^0.8.0;
contract Proxy {
    address impl;
    function run(bytes calldata data) external {
        require(tx.origin == impl);
        (bool ok, ) = impl.delegatecall(data);
        require(ok);
    }
}
`
	res, err := newEngine(t).Analyze(context.Background(), request(src, model.DepthIntermediate))
	require.NoError(t, err)

	_, dup := find(res.Vulnerabilities, "tx.origin usage")
	assert.False(t, dup)
	_, dup = find(res.Vulnerabilities, "Delegatecall to untrusted target")
	assert.False(t, dup)

	origin, ok := find(res.Findings, "tx.origin usage")
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, origin.Severity)
	dc, ok := find(res.Findings, "Delegatecall to untrusted target")
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, dc.Severity)
}

func TestInlineAndConfigIgnores(t *testing.T) {
	src := strings.Replace(originWallet,
		"        require(tx.origin == owner);",
		"        // smartaudit:ignore tx.origin usage\n        require(tx.origin == owner);", 1)
	e := newEngine(t)
	res, err := e.Analyze(context.Background(), request(src, model.DepthIntermediate))
	require.NoError(t, err)
	_, ok := find(res.Findings, "tx.origin usage")
	assert.False(t, ok)
	_, ok = find(res.Vulnerabilities, "tx.origin usage")
	assert.False(t, ok)

	cfg := config.Default()
	cfg.Ignore = []config.IgnoreRule{{Kind: "TX.ORIGIN USAGE", Expires: "2024-01-31"}}
	clock := func(day string) func() time.Time {
		return func() time.Time {
			ts, _ := time.Parse("2006-01-02", day)
			return ts
		}
	}
	withRule := New(cfg, hclog.NewNullLogger(), nil)

	res, err = withRule.WithClock(clock("2024-01-31")).Analyze(context.Background(), request(originWallet, model.DepthBasic))
	require.NoError(t, err)
	_, ok = find(res.Findings, "tx.origin usage")
	assert.False(t, ok)

	res, err = withRule.WithClock(clock("2024-02-01")).Analyze(context.Background(), request(originWallet, model.DepthBasic))
	require.NoError(t, err)
	_, ok = find(res.Findings, "tx.origin usage")
	assert.True(t, ok)
}

func TestDetectorAllowlist(t *testing.T) {
	cfg := config.Default()
	cfg.Detectors = []string{"reentrancy"}
	res, err := New(cfg, nil, nil).Analyze(context.Background(), request(originWallet+"\n"+bank, model.DepthIntermediate))
	require.NoError(t, err)
	for _, f := range res.Findings {
		assert.Equal(t, "Reentrancy", f.Kind)
	}
	assert.Empty(t, res.Vulnerabilities)
	assert.Empty(t, res.GasOptimizations)
}

func TestBaselineSuppressesKnownFindings(t *testing.T) {
	e := newEngine(t)
	first, err := e.Analyze(context.Background(), request(originWallet, model.DepthIntermediate))
	require.NoError(t, err)
	require.NotEmpty(t, first.Findings)

	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, WriteBaseline(path, first, time.Unix(0, 0)))
	b, err := LoadBaseline(path)
	require.NoError(t, err)
	assert.False(t, b.Empty())

	again, err := e.WithBaseline(b).Analyze(context.Background(), request(originWallet, model.DepthIntermediate))
	require.NoError(t, err)
	assert.Empty(t, again.Findings)
	assert.Empty(t, again.Vulnerabilities)
	assert.Empty(t, again.GasOptimizations)
	assert.Greater(t, again.SecurityScore, first.SecurityScore)
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.NewRegistry()
	e := New(config.Default(), hclog.NewNullLogger(), m)
	_, err := e.Analyze(context.Background(), request(originWallet, model.DepthBasic))
	require.NoError(t, err)
	_, err = e.Analyze(context.Background(), request("", model.DepthBasic))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OpAnalyze, statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OpAnalyze, statusInvalid)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.FindingsTotal.WithLabelValues("Critical")), 1.0)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	fragments := []string{
		"    address owner;",
		"    mapping(address => uint256) balances;",
		"    function pay(address payable to) external { to.transfer(1); }",
		"    function auth() external { require(tx.origin == owner); }",
		"    function drain() external { (bool ok, ) = msg.sender.call{value: 1}(\"\"); balances[msg.sender] = 0; }",
		"    function roll() external view returns (uint256) { return uint256(blockhash(block.number)); }",
		"    function loop(uint256[] memory xs) public { for (uint256 i = 0; i < xs.length; i++) { balances[owner] += xs[i]; } }",
		"    function kill() public { selfdestruct(payable(owner)); }",
		"    // comment with tx.origin",
	}
	e := newEngine(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)
	properties.Property("same input gives the same result", prop.ForAll(
		func(picks []int, legacy bool) bool {
			pragma := "pragma solidity ^0.8.0;"
			if legacy {
				pragma = "pragma solidity ^0.6.0;"
			}
			lines := []string{pragma, "contract Gen {"}
			for _, p := range picks {
				lines = append(lines, fragments[p])
			}
			lines = append(lines, "}")
			req := request(strings.Join(lines, "\n"), model.DepthDeep)
			a, errA := e.Analyze(context.Background(), req)
			b, errB := e.Analyze(context.Background(), req)
			return errA == nil && errB == nil && reflect.DeepEqual(a, b)
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
		gen.Bool(),
	))
	properties.TestingRun(t)
}
