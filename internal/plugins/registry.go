package plugins

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/rules"
	"github.com/xab-mack/smartaudit/internal/solidity"
)

const (
	IDPrimary       = "primary"
	IDReentrancy    = "reentrancy"
	IDOverflow      = "overflow"
	IDVulnerability = "vulnerability"
	IDStructural    = "structural"
	IDGas           = "gas"
)

// DefaultPrimaryLines bounds the fast-path scan.
const DefaultPrimaryLines = 100

// Detector scans one source unit. Detectors are stateless after
// construction and safe to share across concurrent analyses.
type Detector interface {
	Meta() model.RuleMeta
	Analyze(ctx context.Context, unit *solidity.SourceUnit) ([]model.Finding, error)
}

// Result is one detector's output; Err is set when the detector failed or panicked.
type Result struct {
	Detector string
	Findings []model.Finding
	Err      error
}

type Options struct {
	PrimaryLines int
}

type Registry struct{ detectors []Detector }

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(d Detector) { r.detectors = append(r.detectors, d) }

func (r *Registry) RegisterBuiltin(opts Options) {
	lines := opts.PrimaryLines
	if lines <= 0 {
		lines = DefaultPrimaryLines
	}
	r.Register(&primaryScanner{rules: rules.Security(), maxLines: lines})
	r.Register(&reentrancyHeuristic{rule: mustRule("Reentrancy"), maxLines: lines})
	r.Register(&overflowHeuristic{rule: mustRule("Integer Overflow/Underflow")})
	r.Register(&catalogScanner{id: IDVulnerability, title: "Vulnerability pattern scan", rules: rules.Vulnerabilities()})
	r.Register(newStructuralScanner())
	r.Register(&catalogScanner{id: IDGas, title: "Gas optimization scan", rules: rules.Gas()})
}

func mustRule(kind string) rules.Rule {
	r, ok := rules.Lookup(kind)
	if !ok {
		panic("plugins: missing catalog rule " + kind)
	}
	return r
}

func (r *Registry) Detectors() []Detector { return r.detectors }

// Select returns a registry holding only the detectors whose ids are listed,
// in registration order. An empty list keeps everything.
func (r *Registry) Select(ids ...string) *Registry {
	if len(ids) == 0 {
		return &Registry{detectors: r.detectors}
	}
	allowed := map[string]struct{}{}
	for _, id := range ids {
		allowed[strings.TrimSpace(id)] = struct{}{}
	}
	out := &Registry{}
	for _, d := range r.detectors {
		if _, ok := allowed[d.Meta().ID]; ok {
			out.detectors = append(out.detectors, d)
		}
	}
	return out
}

// Run fans the detectors out over a NumCPU-bounded pool. Results come back
// in registration order regardless of completion order.
func (r *Registry) Run(ctx context.Context, unit *solidity.SourceUnit) []Result {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		cpu = 2
	}
	out := make([]Result, len(r.detectors))
	var wg sync.WaitGroup
	sem := make(chan struct{}, cpu)
	for i, d := range r.detectors {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, d Detector) {
			defer wg.Done()
			defer func() { <-sem }()
			id := d.Meta().ID
			defer func() {
				if p := recover(); p != nil {
					out[i] = Result{Detector: id, Findings: []model.Finding{}, Err: fmt.Errorf("detector %s panicked: %v", id, p)}
				}
			}()
			fs, err := d.Analyze(ctx, unit)
			if fs == nil {
				fs = []model.Finding{}
			}
			out[i] = Result{Detector: id, Findings: fs, Err: err}
		}(i, d)
	}
	wg.Wait()
	return out
}
