package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/smartaudit/internal/model"
)

func TestKey(t *testing.T) {
	req := model.AnalysisRequest{ContractCode: "contract A {}"}
	a, err := Key("analyze", req)
	require.NoError(t, err)
	b, _ := Key("analyze", req)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, _ := Key("generate-report", req)
	assert.NotEqual(t, a, c)
	req.AnalysisDepth = model.DepthDeep
	d, _ := Key("analyze", req)
	assert.NotEqual(t, a, d)
}

func TestStoreAndLoad(t *testing.T) {
	dir := t.TempDir()
	res := model.NewAnalysisResult("Vault")
	res.SecurityScore = 60
	res.Findings = append(res.Findings, model.Finding{Kind: "tx.origin usage", Severity: model.SeverityCritical, Line: model.LineRef(4)})

	require.NoError(t, Store(dir, "k1", res))
	got, ok := Load(dir, "k1")
	require.True(t, ok)
	assert.Equal(t, 60, got.SecurityScore)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, 4, got.Findings[0].LineNumber())

	_, ok = Load(dir, "missing")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))
	_, ok = Load(dir, "bad")
	assert.False(t, ok)

	res.Partial = true
	require.NoError(t, Store(dir, "k2", res))
	_, ok = Load(dir, "k2")
	assert.False(t, ok)
}
