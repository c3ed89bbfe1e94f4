package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/xab-mack/smartaudit/internal/config"
)

// EnvLevel is consulted when the config does not set a level.
const EnvLevel = "SMARTAUDIT_LOG_LEVEL"

// NewLogger writes to stderr so structured output on stdout stays clean.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	return newLogger(cfg, name, os.Stderr)
}

func newLogger(cfg *config.Config, name string, out io.Writer) hclog.Logger {
	var level hclog.Level
	if cfg != nil && cfg.Logger.Level != "" {
		level = getLogLevel(cfg.Logger.Level)
	} else {
		level = getLogLevel(os.Getenv(EnvLevel))
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      out,
		Level:       level,
	})
}

func getLogLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
