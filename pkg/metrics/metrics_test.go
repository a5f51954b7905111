package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersWithoutStorage(t *testing.T) {
	before := Counter("test_uninitialized")
	assert.Equal(t, before+1, Incr("test_uninitialized"))

	points, err := Query("test_uninitialized", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestGaugeIsQueryable(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir()))
	t.Cleanup(func() { _ = Close() })

	SetGauge("test_gauge", 42)
	Incr("test_counter")

	points, err := Query("test_gauge", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, float64(42), points[len(points)-1].Value)

	_, err = Query("test_unknown_metric", time.Now().Add(-time.Minute))
	require.NoError(t, err)
}

func TestCounterSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitMetrics(dir))
	Incr("test_restart_total")
	Incr("test_restart_total")
	require.NoError(t, Close())

	mu.Lock()
	delete(counters, "test_restart_total")
	mu.Unlock()

	require.NoError(t, InitMetrics(dir))
	t.Cleanup(func() { _ = Close() })
	assert.EqualValues(t, 2, Counter("test_restart_total"))
	assert.EqualValues(t, 3, Incr("test_restart_total"))
}
