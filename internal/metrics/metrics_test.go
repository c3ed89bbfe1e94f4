package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r.AnalysesTotal)
	assert.NotNil(t, r.AnalysisDuration)
	assert.NotNil(t, r.FindingsTotal)
	assert.NotNil(t, r.PassFailures)
	assert.NotNil(t, r.SecurityScore)
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecordAnalysis(t *testing.T) {
	r := NewRegistry()
	r.RecordAnalysis("analyze", "success", 10*time.Millisecond)
	r.RecordAnalysis("analyze", "success", 20*time.Millisecond)
	r.RecordAnalysis("analyze", "timeout", 30*time.Second)

	c, err := r.AnalysesTotal.GetMetricWithLabelValues("analyze", "success")
	require.NoError(t, err)
	assert.Equal(t, 2.0, counterValue(t, c))

	c, err = r.AnalysesTotal.GetMetricWithLabelValues("analyze", "timeout")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, c))
}

func TestRecordFindingsAndFailures(t *testing.T) {
	r := NewRegistry()
	r.RecordFindings("Critical", 2)
	r.RecordFindings("Low", 0)
	r.RecordPassFailure("anomaly")
	r.RecordScore(75)

	c, err := r.FindingsTotal.GetMetricWithLabelValues("Critical")
	require.NoError(t, err)
	assert.Equal(t, 2.0, counterValue(t, c))

	c, err = r.PassFailures.GetMetricWithLabelValues("anomaly")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, c))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["smartaudit_security_score"])
	assert.True(t, names["smartaudit_findings_total"])
}
