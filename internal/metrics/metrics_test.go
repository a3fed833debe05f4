package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBatch("zip", "ok", time.Second)
	m.ObserveBatch("zip", "ok", time.Second)
	m.ObserveBatch("pdf", "conversion", time.Second)
	m.DocumentsTotal.Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("zip", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("pdf", "conversion")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocumentsTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var nilMetrics *Metrics
	nilMetrics.ObserveBatch("zip", "ok", time.Second)
}
