package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEvaluation(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.ObserveEvaluation("cod", 3*time.Millisecond, 1200, 0.4, nil)
	c.ObserveEvaluation("cod", time.Millisecond, 0, 0, errors.New("bad"))
	c.ObserveSensitivity("cod", 12)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("cod", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("cod", "error")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(c.spawningBiomass.WithLabelValues("cod")))
	assert.Equal(t, 0.4, testutil.ToFloat64(c.depletion.WithLabelValues("cod")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.sensitivity.WithLabelValues("cod")))

	n, err := testutil.GatherAndCount(c.Gatherer(), "stockproj_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveEvaluation("cod", time.Second, 1, 1, nil)
	c.ObserveSensitivity("cod", 1)
	assert.NotNil(t, c.Gatherer())
}
