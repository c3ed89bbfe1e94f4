package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/xab-mack/smartaudit/internal/cache"
	"github.com/xab-mack/smartaudit/internal/config"
	"github.com/xab-mack/smartaudit/internal/engine"
	"github.com/xab-mack/smartaudit/internal/logger"
	"github.com/xab-mack/smartaudit/internal/metrics"
	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/report"
	"github.com/xab-mack/smartaudit/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
}

type analyzeOptions struct {
	name          string
	format        string
	depth         string
	sensitivity   string
	budgetMs      int
	properties    []string
	methods       []string
	verifyMs      int
	gas           bool
	taint         bool
	anomalies     bool
	formal        bool
	failOn        string
	minSeverity   string
	outputFile    string
	useTUI        bool
	useCache      bool
	baseline      string
	writeBaseline string
	logLevel      string
}

// session bundles what one command needs to run the engine.
type session struct {
	cfg    config.Config
	log    hclog.Logger
	engine *engine.Engine
	// salt folds result-affecting settings outside the request into cache keys.
	salt string
}

func newSession(path string, opts *analyzeOptions) (*session, error) {
	cfg, cfgPath, err := config.Load(filepath.Dir(path))
	if err != nil {
		return nil, newExitError(ExitInput, fmt.Errorf("failed to load config: %w", err))
	}
	if opts.budgetMs > 0 {
		cfg.Engine.TimeBudgetMs = opts.budgetMs
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	log := logger.NewLogger(&cfg, "smartaudit")
	if cfgPath != "" {
		log.Debug("loaded config", "path", cfgPath)
	}
	eng := engine.New(cfg, log, metrics.DefaultRegistry())
	if opts.baseline != "" {
		b, err := engine.LoadBaseline(opts.baseline)
		if err != nil {
			return nil, newExitError(ExitInput, err)
		}
		eng = eng.WithBaseline(b)
	}
	salt := fmt.Sprintf("%s|%v|%v|%d", opts.baseline, cfg.Ignore, cfg.Detectors, cfg.Engine.PrimaryScanLines)
	return &session{cfg: cfg, log: log, engine: eng, salt: salt}, nil
}

func buildRequest(path string, opts *analyzeOptions) (model.AnalysisRequest, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return model.AnalysisRequest{}, newExitError(ExitInput, fmt.Errorf("failed to read contract: %w", err))
	}
	return model.AnalysisRequest{
		ContractCode:        string(code),
		ContractName:        opts.name,
		SensitivityLevel:    model.Sensitivity(strings.ToLower(opts.sensitivity)),
		AnalysisDepth:       model.Depth(strings.ToLower(opts.depth)),
		EnableTaint:         opts.taint,
		EnableGas:           opts.gas,
		EnableAnomalies:     opts.anomalies,
		EnableFormal:        opts.formal,
		CustomProperties:    opts.properties,
		VerificationMethods: opts.methods,
		VerificationTimeout: time.Duration(opts.verifyMs) * time.Millisecond,
	}, nil
}

type operation func(*engine.Engine, context.Context, model.AnalysisRequest) (*model.AnalysisResult, error)

// run executes op, consulting the result cache when enabled. A partial
// result is returned together with its error.
func (s *session) run(ctx context.Context, name string, op operation, req model.AnalysisRequest, useCache bool) (*model.AnalysisResult, error) {
	useCache = useCache || s.cfg.Cache.Enabled
	var dir, key string
	if useCache {
		var err error
		if dir, err = cache.Dir(); err != nil {
			s.log.Warn("cache unavailable", "error", err)
			useCache = false
		} else if key, err = cache.Key(name+"|"+s.salt, req); err != nil {
			s.log.Warn("cache key failed", "error", err)
			useCache = false
		}
	}
	if useCache {
		if res, ok := cache.Load(dir, key); ok {
			s.log.Debug("cache hit", "key", key)
			return res, nil
		}
	}
	res, err := op(s.engine, ctx, req)
	if useCache && err == nil {
		if serr := cache.Store(dir, key, res); serr != nil {
			s.log.Warn("failed to store cached result", "error", serr)
		}
	}
	return res, err
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.sol>",
		Short: "Analyze a Solidity contract and print a scored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			s, err := newSession(path, opts)
			if err != nil {
				return err
			}
			req, err := buildRequest(path, opts)
			if err != nil {
				return err
			}
			res, runErr := s.run(cmd.Context(), engine.OpAnalyze, (*engine.Engine).Analyze, req, opts.useCache)
			if res == nil {
				return classify(runErr)
			}
			if runErr != nil {
				s.log.Error("analysis incomplete", "error", runErr)
			}

			if opts.writeBaseline != "" {
				if err := engine.WriteBaseline(opts.writeBaseline, res, time.Now()); err != nil {
					return err
				}
			}

			threshold := opts.minSeverity
			if threshold == "" {
				threshold = s.cfg.SeverityThreshold
			}
			least := model.ParseSeverity(threshold)
			if opts.format == "markdown" {
				report.NewBuilder().BuildAtLeast(res, least)
			}
			shown := engine.FilterResult(res, least)

			if opts.useTUI {
				if err := tui.Run(shown, strings.Split(req.ContractCode, "\n")); err != nil {
					return err
				}
			} else if err := writeOutput(cmd.OutOrStdout(), opts, shown, path); err != nil {
				return err
			}

			if runErr != nil {
				return classify(runErr)
			}
			return failOn(res, opts.failOn)
		},
	}
	addAnalyzeFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table|json|markdown|sarif")
	cmd.Flags().BoolVar(&opts.useTUI, "tui", false, "Browse findings in an interactive terminal UI")
	cmd.Flags().StringVar(&opts.minSeverity, "min-severity", "", "Hide findings below this severity (low|medium|high|critical)")
	cmd.Flags().StringVar(&opts.writeBaseline, "write-baseline", "", "Write a baseline file with finding fingerprints")
	return cmd
}

func newReportCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "report <file.sol>",
		Short: "Run every pass and print the markdown audit report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			s, err := newSession(path, opts)
			if err != nil {
				return err
			}
			req, err := buildRequest(path, opts)
			if err != nil {
				return err
			}
			res, runErr := s.run(cmd.Context(), engine.OpReport, (*engine.Engine).GenerateReport, req, opts.useCache)
			if res == nil {
				return classify(runErr)
			}
			opts.format = "markdown"
			if err := writeOutput(cmd.OutOrStdout(), opts, res, path); err != nil {
				return err
			}
			if runErr != nil {
				return classify(runErr)
			}
			return failOn(res, opts.failOn)
		},
	}
	addAnalyzeFlags(cmd, opts)
	return cmd
}

func addAnalyzeFlags(cmd *cobra.Command, opts *analyzeOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "Contract name (defaults to the first contract declaration)")
	f.StringVar(&opts.depth, "depth", "", "Analysis depth: basic|intermediate|deep (default from config)")
	f.StringVar(&opts.sensitivity, "sensitivity", "", "Anomaly sensitivity: low|medium|high (default from config)")
	f.IntVar(&opts.budgetMs, "budget-ms", 0, "Wall-clock budget in milliseconds (default from config)")
	f.StringArrayVar(&opts.properties, "property", nil, "Custom property to check, optionally prefixed with kind: (repeatable)")
	f.StringArrayVar(&opts.methods, "method", nil, "Verification method in run order (repeatable)")
	f.IntVar(&opts.verifyMs, "verify-timeout-ms", 0, "Formal verification timeout in milliseconds (default from config)")
	f.BoolVar(&opts.taint, "taint", false, "Force the taint pass")
	f.BoolVar(&opts.gas, "gas", false, "Force the gas pass")
	f.BoolVar(&opts.anomalies, "anomalies", false, "Force the anomaly pass")
	f.BoolVar(&opts.formal, "formal", false, "Force the formal verification pass")
	f.StringVar(&opts.failOn, "fail-on", "", "Exit 1 if a scored issue of this severity or higher is found (low|medium|high|critical)")
	f.StringVarP(&opts.outputFile, "out", "o", "", "Write output to file instead of stdout")
	f.BoolVar(&opts.useCache, "cache", false, "Reuse results cached under ~/.smartaudit/cache")
	f.StringVar(&opts.baseline, "baseline", "", "Suppress findings recorded in this baseline file")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error")
}

func writeOutput(stdout io.Writer, opts *analyzeOptions, res *model.AnalysisResult, path string) error {
	w := stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "sarif":
		return report.WriteSARIF(w, res, filepath.ToSlash(path))
	case "markdown":
		rep := res.Report
		if rep == nil {
			rep = report.NewBuilder().Build(res)
		}
		_, err := io.WriteString(w, rep.Markdown)
		return err
	case "table", "":
		return writeTable(w, res)
	}
	return newExitError(ExitInput, fmt.Errorf("unknown format %q", opts.format))
}

func writeTable(w io.Writer, res *model.AnalysisResult) error {
	fmt.Fprintf(w, "%s: score %d/100, risk %s\n", res.ContractName, res.SecurityScore, res.RiskLevel)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSEVERITY\tLINE\tKIND\tDETECTOR")
	for _, list := range [][]model.Finding{res.Findings, res.Vulnerabilities, res.GasOptimizations} {
		for _, f := range list {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Severity, f.LineNumber(), f.Kind, f.Detector)
		}
	}
	for _, t := range res.TaintPaths {
		fmt.Fprintf(tw, "%s\t%d\t%s -> %s\ttaint\n", t.Severity, t.SinkLine, t.Source, t.Sink)
	}
	for _, a := range res.Anomalies {
		fmt.Fprintf(tw, "%s\t%s\t%s\tanomaly\n", a.Severity, a.Location, a.Kind)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.VerificationStatus != "" {
		fmt.Fprintf(w, "\nformal verification: %s\n", res.VerificationStatus)
	}
	if res.Partial {
		for _, pe := range res.PassErrors {
			fmt.Fprintf(w, "pass %s failed: %s\n", pe.Pass, pe.Message)
		}
	}
	return nil
}

// failOn gates on scored issues only; gas findings never fail a build.
func failOn(res *model.AnalysisResult, level string) error {
	if level == "" {
		return nil
	}
	threshold := model.ParseSeverity(level)
	for _, is := range res.Issues() {
		switch v := is.(type) {
		case model.Finding, model.TaintPath:
			if model.SeverityGTE(v.IssueSeverity(), threshold) {
				return newExitError(ExitFailOn, fmt.Errorf("fail-on threshold met: %s issue found", v.IssueSeverity()))
			}
		}
	}
	return nil
}
