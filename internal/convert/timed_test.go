package convert

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimed(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_conversion_seconds"})
	stub := &Stub{}
	c := &Timed{Next: stub, Observer: h}

	for _, name := range []string{"oficio_A1.docx", "oficio_B2.docx"} {
		pdf, err := c.Convert(context.Background(), name, nil)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-stub "+name, string(pdf))
	}
	assert.Equal(t, 1, testutil.CollectAndCount(h))
	assert.Equal(t, []string{"oficio_A1.docx", "oficio_B2.docx"}, stub.Calls())

	var m dto.Metric
	require.NoError(t, h.Write(&m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}

func TestTimed_NilObserver(t *testing.T) {
	_, err := (&Timed{Next: &Stub{}}).Convert(context.Background(), "x", nil)
	assert.NoError(t, err)
}
