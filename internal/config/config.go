package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xab-mack/smartaudit/internal/validation"
)

// FileName is searched for from the working directory upwards.
const FileName = ".smartaudit.yaml"

type IgnoreRule struct {
	Kind    string `yaml:"kind" validate:"required"`
	Reason  string `yaml:"reason,omitempty"`
	Expires string `yaml:"expires,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Active reports whether the rule still applies at now.
func (r IgnoreRule) Active(now time.Time) bool {
	if r.Expires == "" {
		return true
	}
	t, err := time.Parse("2006-01-02", r.Expires)
	if err != nil {
		return true
	}
	return now.Before(t.AddDate(0, 0, 1))
}

type Engine struct {
	SensitivityLevel      string   `yaml:"sensitivityLevel" validate:"oneof=low medium high"`
	AnalysisDepth         string   `yaml:"analysisDepth" validate:"oneof=basic intermediate deep"`
	TimeBudgetMs          int      `yaml:"timeBudgetMs" validate:"gt=0"`
	PrimaryScanLines      int      `yaml:"primaryScanLines" validate:"gt=0"`
	MaxCodeLength         int      `yaml:"maxCodeLength" validate:"gt=0"`
	VerificationTimeoutMs int      `yaml:"verificationTimeoutMs" validate:"gte=0"`
	VerificationMethods   []string `yaml:"verificationMethods,omitempty" validate:"omitempty,dive,oneof=model-checking symbolic-execution abstract-interpretation"`
}

func (e Engine) TimeBudget() time.Duration {
	return time.Duration(e.TimeBudgetMs) * time.Millisecond
}

func (e Engine) VerificationTimeout() time.Duration {
	return time.Duration(e.VerificationTimeoutMs) * time.Millisecond
}

type Logger struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error TRACE DEBUG INFO WARN ERROR"`
}

type Cache struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Engine            Engine       `yaml:"engine"`
	SeverityThreshold string       `yaml:"severityThreshold" validate:"omitempty,oneof=low medium high critical Low Medium High Critical"`
	Ignore            []IgnoreRule `yaml:"ignore,omitempty" validate:"dive"`
	Detectors         []string     `yaml:"detectors,omitempty"`
	Logger            Logger       `yaml:"logger"`
	Cache             Cache        `yaml:"cache"`
}

func Default() Config {
	return Config{
		Engine: Engine{
			SensitivityLevel:      "medium",
			AnalysisDepth:         "intermediate",
			TimeBudgetMs:          30000,
			PrimaryScanLines:      100,
			MaxCodeLength:         50000,
			VerificationTimeoutMs: 10000,
		},
		SeverityThreshold: "low",
		Logger:            Logger{Level: "info"},
	}
}

func (c Config) Validate() error {
	if err := validation.Struct(&c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load searches startDir and its parents for FileName. Values in the file
// override Default(); without a file the defaults are returned with an
// empty path.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, fmt.Errorf("parse %s: %w", candidate, err)
			}
			return cfg, candidate, cfg.Validate()
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// Write stores cfg as YAML at path.
func Write(path string, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
