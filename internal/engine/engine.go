// Package engine runs the analysis passes over one contract and folds their
// output into a scored result.
package engine

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/xab-mack/smartaudit/internal/analysis"
	"github.com/xab-mack/smartaudit/internal/anomaly"
	"github.com/xab-mack/smartaudit/internal/config"
	"github.com/xab-mack/smartaudit/internal/errors"
	"github.com/xab-mack/smartaudit/internal/formal"
	"github.com/xab-mack/smartaudit/internal/metrics"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/plugins"
	"github.com/xab-mack/smartaudit/internal/report"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

// Pass names reported in PassError and InternalError. Detector failures use
// the detector id.
const (
	PassCFG       = "cfg"
	PassTaint     = "taint"
	PassAnomalies = "anomalies"
	PassFormal    = "formal"
	PassScanners  = "scanners"
)

const (
	statusSuccess = "success"
	statusPartial = "partial"
	statusInvalid = "invalid"
	statusTimeout = "timeout"
	statusFailed  = "failed"
)

// Engine is safe for concurrent use once configured. Detectors must be
// registered before the first analysis.
type Engine struct {
	cfg      config.Config
	log      hclog.Logger
	metrics  *metrics.Registry
	registry *plugins.Registry
	verifier *formal.Evaluator
	reports  *report.Builder
	baseline Baseline
	now      func() time.Time
}

// New builds an engine with the builtin detectors. Zero engine settings fall
// back to config.Default; a nil logger or metrics registry is replaced by a
// silent one.
func New(cfg config.Config, logger hclog.Logger, m *metrics.Registry) *Engine {
	def := config.Default().Engine
	if cfg.Engine.SensitivityLevel == "" {
		cfg.Engine.SensitivityLevel = def.SensitivityLevel
	}
	if cfg.Engine.AnalysisDepth == "" {
		cfg.Engine.AnalysisDepth = def.AnalysisDepth
	}
	if cfg.Engine.TimeBudgetMs <= 0 {
		cfg.Engine.TimeBudgetMs = def.TimeBudgetMs
	}
	if cfg.Engine.PrimaryScanLines <= 0 {
		cfg.Engine.PrimaryScanLines = def.PrimaryScanLines
	}
	if cfg.Engine.MaxCodeLength <= 0 {
		cfg.Engine.MaxCodeLength = def.MaxCodeLength
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	reg := plugins.NewRegistry()
	reg.RegisterBuiltin(plugins.Options{PrimaryLines: cfg.Engine.PrimaryScanLines})
	return &Engine{
		cfg:      cfg,
		log:      logger,
		metrics:  m,
		registry: reg,
		verifier: formal.NewEvaluator(),
		reports:  report.NewBuilder(),
		baseline: Baseline{Fingerprints: map[string]bool{}},
		now:      time.Now,
	}
}

// Register adds a detector that runs alongside the builtin ones in Analyze
// and GenerateReport.
func (e *Engine) Register(d plugins.Detector) { e.registry.Register(d) }

func (e *Engine) WithBaseline(b Baseline) *Engine {
	c := *e
	c.baseline = b
	return &c
}

func (e *Engine) WithReportBuilder(b *report.Builder) *Engine {
	c := *e
	c.reports = b
	return &c
}

// WithClock sets the clock used for ignore-rule expiry.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	c := *e
	c.now = now
	return &c
}

// Analyze runs the passes selected by the request depth and Enable flags.
func (e *Engine) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	return e.execute(ctx, OpAnalyze, req, func(s settings) plan { return planFor(OpAnalyze, s.depth, req) })
}

// DetectVulnerabilities runs the vulnerability scanner and the heuristics.
// Everything they report is filed under Vulnerabilities.
func (e *Engine) DetectVulnerabilities(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	return e.execute(ctx, OpVulnerabilities, req, func(settings) plan { return vulnerabilityPlan() })
}

func (e *Engine) OptimizeGas(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	return e.execute(ctx, OpGas, req, func(settings) plan { return gasPlan() })
}

func (e *Engine) DetectAnomalies(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	return e.execute(ctx, OpAnomalies, req, func(settings) plan { return anomalyPlan() })
}

func (e *Engine) VerifyProperties(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	return e.execute(ctx, OpVerify, req, func(settings) plan { return verifyPlan() })
}

// GenerateReport runs every pass and attaches the rendered report.
func (e *Engine) GenerateReport(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	return e.execute(ctx, OpReport, req, func(settings) plan { return reportPlan() })
}

type outcome struct {
	res *model.AnalysisResult
	err error
}

// execute validates the request and races the pipeline against the time
// budget and ctx. A pipeline that loses the race is abandoned, not joined.
func (e *Engine) execute(ctx context.Context, op string, req model.AnalysisRequest, mk func(settings) plan) (*model.AnalysisResult, error) {
	start := time.Now()
	s, err := e.validate(req)
	if err != nil {
		e.log.Warn("rejected analysis request", "operation", op, "error", err)
		e.metrics.RecordAnalysis(op, statusInvalid, time.Since(start))
		return nil, err
	}
	p := mk(s)
	unit := solidity.NewSourceUnit(req.ContractCode, req.ContractName)
	log := e.log.With("operation", op, "contract", unit.Name())
	log.Info("analysis started", "depth", s.depth, "sensitivity", s.sensitivity, "lines", unit.Len())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.FromPanic("engine", r)}
			}
		}()
		res, err := e.pipeline(runCtx, unit, req, s, p, log)
		done <- outcome{res: res, err: err}
	}()

	budget := e.cfg.Engine.TimeBudget()
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case o := <-done:
		elapsed := time.Since(start)
		if o.res == nil {
			e.metrics.RecordAnalysis(op, statusFailed, elapsed)
			log.Error("analysis failed", "error", o.err, "elapsed", elapsed)
			return nil, o.err
		}
		status := statusSuccess
		if o.res.Partial {
			status = statusPartial
		}
		e.metrics.RecordAnalysis(op, status, elapsed)
		e.record(o.res)
		log.Info("analysis finished", "depth", s.depth, "score", o.res.SecurityScore, "risk", o.res.RiskLevel, "elapsed", elapsed)
		return o.res, o.err
	case <-timer.C:
		e.metrics.RecordAnalysis(op, statusTimeout, time.Since(start))
		log.Error("analysis exceeded its time budget", "budget", budget)
		return nil, errors.NewTimeoutError(op, budget)
	case <-ctx.Done():
		e.metrics.RecordAnalysis(op, statusTimeout, time.Since(start))
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Error("analysis deadline exceeded")
			return nil, errors.NewTimeoutError(op, budget)
		}
		log.Warn("analysis canceled")
		return nil, ctx.Err()
	}
}

// pipeline builds the shared context, runs the selected passes concurrently
// and aggregates whatever completed.
func (e *Engine) pipeline(ctx context.Context, unit *solidity.SourceUnit, req model.AnalysisRequest, s settings, p plan, log hclog.Logger) (*model.AnalysisResult, error) {
	res := model.NewAnalysisResult(unit.Name())
	res.Warnings = warnings(unit)
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	fail := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	actx := &analysis.Context{Unit: unit, CFG: []model.CFGNode{}}
	_ = guard(PassCFG, fail, func() error {
		actx = analysis.NewContext(unit)
		return nil
	})()
	res.CFG = actx.CFG

	var g errgroup.Group
	if sel := selectDetectors(e.registry, p, e.cfg.Detectors); len(sel.Detectors()) > 0 {
		g.Go(guard(PassScanners, fail, func() error {
			detectors := sel.Detectors()
			for i, r := range sel.Run(ctx, unit) {
				if r.Err != nil {
					fail(errors.NewInternalError(r.Detector, r.Err))
					continue
				}
				b := p.bucket(res, detectors[i].Meta().Category)
				*b = append(*b, r.Findings...)
			}
			return nil
		}))
	}
	if p.taint {
		g.Go(guard(PassTaint, fail, func() error {
			res.DataFlow = analysis.BuildDataFlow(unit)
			res.TaintPaths = analysis.TaintPaths(actx)
			return nil
		}))
	}
	if p.anomalies {
		g.Go(guard(PassAnomalies, fail, func() error {
			ar := anomaly.Detect(actx, s.sensitivity)
			res.Anomalies = ar.Records
			res.NovelPatterns = ar.Novel
			res.AnomalyScore = ar.Score
			res.RiskAssessment = ar.Assessment
			return nil
		}))
	}
	if p.formal {
		g.Go(guard(PassFormal, fail, func() error {
			fr := e.verifier.Verify(actx, req.CustomProperties, s.methods, s.timeout)
			res.Properties = fr.Properties
			res.VerificationStatus = fr.Status
			if fr.Status == model.StatusTimeout {
				log.Warn("formal verification timed out", "timeout", s.timeout, "methods", len(fr.Methods))
			}
			return nil
		}))
	}
	_ = g.Wait()

	now := e.now()
	res.Findings = e.baseline.filter(applyIgnores(res.Findings, unit, e.cfg.Ignore, now))
	res.Vulnerabilities = e.baseline.filter(applyIgnores(res.Vulnerabilities, unit, e.cfg.Ignore, now))
	res.GasOptimizations = e.baseline.filter(applyIgnores(dedupe(res.GasOptimizations, nil), unit, e.cfg.Ignore, now))
	res.Findings, res.Vulnerabilities = calibrateFindings(res.Findings, res.Vulnerabilities)

	var first error
	if len(failures) > 0 {
		sort.SliceStable(failures, func(i, j int) bool { return failures[i].Error() < failures[j].Error() })
		res.Partial = true
		for _, err := range failures {
			pass := "unknown"
			var ie *errors.InternalError
			if stderrors.As(err, &ie) {
				pass = ie.Pass
			}
			res.PassErrors = append(res.PassErrors, model.PassError{Pass: pass, Message: err.Error()})
			e.metrics.RecordPassFailure(pass)
			log.Error("analysis pass failed", "pass", pass, "error", err)
		}
		first = failures[0]
	}

	report.Aggregate(res)
	if p.report {
		e.reports.Build(res)
	}
	return res, first
}

// guard turns a pass into an errgroup task that never fails the group.
// Errors and panics are reported through fail so sibling passes finish.
func guard(pass string, fail func(error), fn func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				fail(errors.FromPanic(pass, r))
			}
		}()
		if err := fn(); err != nil {
			fail(errors.NewInternalError(pass, err))
		}
		return nil
	}
}

func (e *Engine) record(res *model.AnalysisResult) {
	c := report.Count(res.Issues())
	e.metrics.RecordFindings(string(model.SeverityCritical), c.Critical)
	e.metrics.RecordFindings(string(model.SeverityHigh), c.High)
	e.metrics.RecordFindings(string(model.SeverityMedium), c.Medium)
	e.metrics.RecordFindings(string(model.SeverityLow), c.Low)
	e.metrics.RecordScore(res.SecurityScore)
}
