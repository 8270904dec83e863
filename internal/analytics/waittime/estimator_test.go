package waittime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
)

func TestEstimator_Estimate(t *testing.T) {
	estimator := NewEstimator(DefaultParams())

	t.Run("Documented Scenario", func(t *testing.T) {
		// lambda=10/hr, mu=12/hr, position=7:
		// rho=0.833, W=1/(12-10)=0.5hr=30min, ceil(7/5)=2 -> 60min, MEDIUM
		estimate, err := estimator.Estimate(QueueSnapshot{
			AppointmentID:     "appt-1",
			ArrivalRate:       10,
			ServiceRate:       12,
			QueuePosition:     7,
			HistoricalSamples: 100,
		})
		require.NoError(t, err)

		assert.Equal(t, 60, estimate.EstimatedWaitMinutes)
		assert.Equal(t, ConfidenceMedium, estimate.Confidence)
		assert.False(t, estimate.Unstable)
		assert.InDelta(t, 0.8333, estimate.Utilization, 0.001)
	})

	t.Run("Stable Queue Properties", func(t *testing.T) {
		cases := []struct {
			lambda, mu float64
		}{
			{1, 2},
			{5, 20},
			{9.9, 10},
			{0.1, 100},
		}
		for _, tc := range cases {
			estimate, err := estimator.Estimate(QueueSnapshot{
				AppointmentID:     "appt-2",
				ArrivalRate:       tc.lambda,
				ServiceRate:       tc.mu,
				QueuePosition:     1,
				HistoricalSamples: 100,
			})
			require.NoError(t, err)
			assert.False(t, estimate.Unstable)
			assert.Greater(t, estimate.Utilization, 0.0)
			assert.Less(t, estimate.Utilization, 1.0)
			assert.GreaterOrEqual(t, estimate.EstimatedWaitMinutes, 0)
		}
	})

	t.Run("Unstable Queue Is Degraded Not Error", func(t *testing.T) {
		for _, tc := range []struct{ lambda, mu float64 }{
			{12, 12}, // rho exactly 1
			{15, 12},
			{100, 1},
		} {
			estimate, err := estimator.Estimate(QueueSnapshot{
				AppointmentID:     "appt-3",
				ArrivalRate:       tc.lambda,
				ServiceRate:       tc.mu,
				QueuePosition:     3,
				HistoricalSamples: 100,
			})
			require.NoError(t, err)
			assert.True(t, estimate.Unstable)
			assert.Equal(t, ConfidenceLow, estimate.Confidence)
			assert.GreaterOrEqual(t, estimate.Utilization, 1.0)
			assert.GreaterOrEqual(t, estimate.EstimatedWaitMinutes, 0)
		}
	})

	t.Run("Confidence Grading", func(t *testing.T) {
		// rho = 0.5 with a large sample -> HIGH
		estimate, err := estimator.Estimate(QueueSnapshot{
			ArrivalRate: 5, ServiceRate: 10, QueuePosition: 1, HistoricalSamples: 30,
		})
		require.NoError(t, err)
		assert.Equal(t, ConfidenceHigh, estimate.Confidence)

		// Same queue with an insufficient sample -> LOW
		estimate, err = estimator.Estimate(QueueSnapshot{
			ArrivalRate: 5, ServiceRate: 10, QueuePosition: 1, HistoricalSamples: 29,
		})
		require.NoError(t, err)
		assert.Equal(t, ConfidenceLow, estimate.Confidence)

		// rho exactly at the threshold -> MEDIUM
		estimate, err = estimator.Estimate(QueueSnapshot{
			ArrivalRate: 7, ServiceRate: 10, QueuePosition: 1, HistoricalSamples: 30,
		})
		require.NoError(t, err)
		assert.Equal(t, ConfidenceMedium, estimate.Confidence)
	})

	t.Run("Position Batching", func(t *testing.T) {
		// Positions 1..5 share one batch, 6..10 the next.
		base, err := estimator.Estimate(QueueSnapshot{
			ArrivalRate: 10, ServiceRate: 12, QueuePosition: 1, HistoricalSamples: 100,
		})
		require.NoError(t, err)

		same, err := estimator.Estimate(QueueSnapshot{
			ArrivalRate: 10, ServiceRate: 12, QueuePosition: 5, HistoricalSamples: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, base.EstimatedWaitMinutes, same.EstimatedWaitMinutes)

		next, err := estimator.Estimate(QueueSnapshot{
			ArrivalRate: 10, ServiceRate: 12, QueuePosition: 6, HistoricalSamples: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, 2*base.EstimatedWaitMinutes, next.EstimatedWaitMinutes)
	})

	t.Run("Invalid Inputs Rejected", func(t *testing.T) {
		cases := map[string]QueueSnapshot{
			"zero arrival rate":      {ArrivalRate: 0, ServiceRate: 10, QueuePosition: 1},
			"negative arrival rate":  {ArrivalRate: -1, ServiceRate: 10, QueuePosition: 1},
			"zero service rate":      {ArrivalRate: 10, ServiceRate: 0, QueuePosition: 1},
			"negative service rate":  {ArrivalRate: 10, ServiceRate: -5, QueuePosition: 1},
			"zero queue position":    {ArrivalRate: 10, ServiceRate: 12, QueuePosition: 0},
			"negative queue position": {ArrivalRate: 10, ServiceRate: 12, QueuePosition: -3},
		}
		for name, snap := range cases {
			_, err := estimator.Estimate(snap)
			require.Error(t, err, name)
			assert.True(t, analytics.IsValidation(err), name)
		}
	})
}

func TestParseConfidence(t *testing.T) {
	for _, valid := range []string{"LOW", "MEDIUM", "HIGH"} {
		c, err := ParseConfidence(valid)
		require.NoError(t, err)
		assert.Equal(t, Confidence(valid), c)
	}

	_, err := ParseConfidence("medium")
	assert.Error(t, err)
	_, err = ParseConfidence("")
	assert.Error(t, err)
}
