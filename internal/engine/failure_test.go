package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/smartaudit/internal/config"
	"github.com/xab-mack/smartaudit/internal/errors"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

type stubDetector struct {
	id  string
	run func() ([]model.Finding, error)
}

func (d stubDetector) Meta() model.RuleMeta {
	return model.RuleMeta{ID: d.id, Title: d.id, Severity: model.SeverityLow, Category: model.CategorySecurity}
}

func (d stubDetector) Analyze(context.Context, *solidity.SourceUnit) ([]model.Finding, error) {
	return d.run()
}

func TestAnalyzeTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.TimeBudgetMs = 20
	e := New(cfg, hclog.NewNullLogger(), nil)
	e.Register(stubDetector{id: "slow", run: func() ([]model.Finding, error) {
		time.Sleep(300 * time.Millisecond)
		return nil, nil
	}})

	start := time.Now()
	res, err := e.Analyze(context.Background(), request(originWallet, model.DepthBasic))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	var te *errors.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpAnalyze, te.Operation)
	assert.Equal(t, 20*time.Millisecond, te.Budget)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestAnalyzeContextDeadline(t *testing.T) {
	e := newEngine(t)
	e.Register(stubDetector{id: "slow", run: func() ([]model.Finding, error) {
		time.Sleep(300 * time.Millisecond)
		return nil, nil
	}})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.Analyze(ctx, request(originWallet, model.DepthBasic))
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
}

func TestPassPanicYieldsPartialResult(t *testing.T) {
	e := newEngine(t)
	e.Register(stubDetector{id: "boom", run: func() ([]model.Finding, error) {
		panic("index out of range")
	}})

	res, err := e.Analyze(context.Background(), request(originWallet, model.DepthBasic))
	require.Error(t, err)
	assert.Equal(t, errors.KindInternal, errors.KindOf(err))
	var ie *errors.InternalError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "boom", ie.Pass)

	require.NotNil(t, res)
	assert.True(t, res.Partial)
	require.Len(t, res.PassErrors, 1)
	assert.Equal(t, "boom", res.PassErrors[0].Pass)
	assert.Contains(t, res.PassErrors[0].Message, "index out of range")

	_, ok := find(res.Findings, "tx.origin usage")
	assert.True(t, ok)
	assert.Equal(t, model.SeverityCritical, res.RiskLevel)
	assert.NotEmpty(t, res.TaintPaths)
}

func TestDetectorErrorIsReported(t *testing.T) {
	e := newEngine(t)
	e.Register(stubDetector{id: "flaky", run: func() ([]model.Finding, error) {
		return nil, assert.AnError
	}})
	res, err := e.Analyze(context.Background(), request(counter, model.DepthBasic))
	require.ErrorIs(t, err, assert.AnError)
	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Equal(t, 100, res.SecurityScore)
}

func TestExtraDetectorsOnlyRunInFullOperations(t *testing.T) {
	e := newEngine(t)
	e.Register(stubDetector{id: "custom", run: func() ([]model.Finding, error) {
		return []model.Finding{{Kind: "Custom rule", Severity: model.SeverityHigh, Line: model.LineRef(2), Category: model.CategorySecurity}}, nil
	}})

	res, err := e.Analyze(context.Background(), request(counter, model.DepthBasic))
	require.NoError(t, err)
	_, ok := find(res.Findings, "Custom rule")
	assert.True(t, ok)
	assert.Equal(t, 85, res.SecurityScore)

	gas, err := e.OptimizeGas(context.Background(), request(counter, model.DepthBasic))
	require.NoError(t, err)
	assert.Empty(t, gas.Findings)
}
