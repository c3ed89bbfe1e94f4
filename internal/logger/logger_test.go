package logger

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/xab-mack/smartaudit/internal/config"
)

func TestLevelFromConfig(t *testing.T) {
	t.Setenv(EnvLevel, "error")
	cfg := config.Default()
	cfg.Logger.Level = "debug"

	var buf bytes.Buffer
	l := newLogger(&cfg, "engine", &buf)
	assert.True(t, l.IsDebug())
	l.Debug("analysis started", "contract", "Vault")
	assert.Contains(t, buf.String(), "engine: analysis started")
	assert.Contains(t, buf.String(), "contract=Vault")
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	l := newLogger(nil, "engine", &bytes.Buffer{})
	assert.Equal(t, hclog.Warn, l.GetLevel())
}

func TestDefaultLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")
	assert.Equal(t, hclog.Info, newLogger(nil, "engine", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, hclog.Info, getLogLevel("verbose"))
}
