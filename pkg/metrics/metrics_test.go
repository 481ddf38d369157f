package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorTierCounter(t *testing.T) {
	before := testutil.ToFloat64(EstimatorTier.WithLabelValues("tier2"))
	EstimatorTier.WithLabelValues("tier2").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(EstimatorTier.WithLabelValues("tier2")))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("test")
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, "test", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), 2*time.Millisecond)

	d := timer.ObserveDuration(RuleDuration.WithLabelValues("timer-test"))
	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
}

func TestWriteTextfile(t *testing.T) {
	RewriteBytes.Set(1234)
	path := filepath.Join(t.TempDir(), "pqlint.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pqlint_rewrite_output_bytes 1234")
}
