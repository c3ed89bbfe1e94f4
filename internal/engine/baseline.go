package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/util"
)

// Baseline holds fingerprints of accepted findings. Findings whose
// fingerprint is in the baseline are dropped before scoring.
type Baseline struct {
	GeneratedAt  time.Time       `json:"generatedAt"`
	Fingerprints map[string]bool `json:"-"`
}

type baselineFile struct {
	GeneratedAt  time.Time `json:"generatedAt"`
	Fingerprints []string  `json:"fingerprints"`
}

func Fingerprint(f model.Finding) string {
	return util.Fingerprint(f.Kind, f.LineNumber(), f.Snippet)
}

// LoadBaseline reads a baseline file. Both the object form written by
// WriteBaseline and a bare JSON array of fingerprints are accepted. An empty
// path yields an empty baseline.
func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Fingerprints: map[string]bool{}}
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("failed to read baseline: %w", err)
	}
	var fps []string
	if err := json.Unmarshal(data, &fps); err != nil {
		var f baselineFile
		if err := json.Unmarshal(data, &f); err != nil {
			return b, fmt.Errorf("failed to parse baseline %s: %w", path, err)
		}
		b.GeneratedAt = f.GeneratedAt
		fps = f.Fingerprints
	}
	for _, fp := range fps {
		b.Fingerprints[fp] = true
	}
	return b, nil
}

func (b Baseline) Empty() bool { return len(b.Fingerprints) == 0 }

func (b Baseline) filter(findings []model.Finding) []model.Finding {
	if b.Empty() {
		return findings
	}
	out := []model.Finding{}
	for _, f := range findings {
		if b.Fingerprints[Fingerprint(f)] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// WriteBaseline records every finding of r, gas optimizations included.
func WriteBaseline(path string, r *model.AnalysisResult, now time.Time) error {
	set := map[string]bool{}
	for _, list := range [][]model.Finding{r.Findings, r.Vulnerabilities, r.GasOptimizations} {
		for _, f := range list {
			set[Fingerprint(f)] = true
		}
	}
	out := baselineFile{GeneratedAt: now.UTC(), Fingerprints: make([]string, 0, len(set))}
	for fp := range set {
		out.Fingerprints = append(out.Fingerprints, fp)
	}
	sort.Strings(out.Fingerprints)
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}
