package spc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
)

func day(offset int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func series(metricType string, rates ...float64) []Sample {
	samples := make([]Sample, len(rates))
	for i, rate := range rates {
		samples[i] = Sample{MetricType: metricType, Date: day(i), Rate: rate}
	}
	return samples
}

// flat builds n identical samples followed by the given tail rates
func flat(metricType string, rate float64, n int, tail ...float64) []Sample {
	rates := make([]float64, 0, n+len(tail))
	for i := 0; i < n; i++ {
		rates = append(rates, rate)
	}
	rates = append(rates, tail...)
	return series(metricType, rates...)
}

func TestMonitor_AnalyzeMetric(t *testing.T) {
	monitor := NewMonitor(DefaultParams())

	t.Run("Perfect Compliance Has No Violations", func(t *testing.T) {
		analysis, err := monitor.AnalyzeMetric("hand_hygiene", flat("hand_hygiene", 1.0, 7))
		require.NoError(t, err)

		require.NotNil(t, analysis.Limits)
		assert.Equal(t, 1.0, analysis.Limits.CenterLine)
		assert.Empty(t, analysis.Violations)
		assert.False(t, analysis.OutOfControl)
		assert.False(t, analysis.InsufficientData)
	})

	t.Run("Limits Clamped To Rate Range", func(t *testing.T) {
		analysis, err := monitor.AnalyzeMetric("m", series("m", 0.95, 0.85, 0.99, 0.90, 0.97))
		require.NoError(t, err)

		require.NotNil(t, analysis.Limits)
		assert.LessOrEqual(t, analysis.Limits.UpperControlLimit, 1.0)
		assert.GreaterOrEqual(t, analysis.Limits.LowerControlLimit, 0.0)
		assert.Greater(t, analysis.Limits.UpperControlLimit, analysis.Limits.CenterLine)
		assert.Less(t, analysis.Limits.LowerControlLimit, analysis.Limits.CenterLine)
	})

	t.Run("Collapse Below Limit Is One Violation", func(t *testing.T) {
		// Long stable run at 0.9 keeps the lower limit above zero even
		// with the collapsed sample included in the window.
		samples := flat("med_reconciliation", 0.9, 50, 0.0)

		analysis, err := monitor.AnalyzeMetric("med_reconciliation", samples)
		require.NoError(t, err)

		require.NotNil(t, analysis.Limits)
		assert.Greater(t, analysis.Limits.LowerControlLimit, 0.0)

		require.Len(t, analysis.Violations, 1)
		violation := analysis.Violations[0]
		assert.Equal(t, 0.0, violation.ComplianceRate)
		assert.Equal(t, "med_reconciliation", violation.MetricType)
		assert.Equal(t, day(50), violation.ViolationDate)
		assert.NotEmpty(t, violation.ViolationID)
		assert.NotEmpty(t, violation.Description)
		assert.False(t, analysis.OutOfControl)
	})

	t.Run("Out Of Control Threshold", func(t *testing.T) {
		// Two collapses in the window meet the default threshold of 2.
		samples := flat("consent", 0.9, 30, 0.0, 0.0)

		analysis, err := monitor.AnalyzeMetric("consent", samples)
		require.NoError(t, err)

		require.NotNil(t, analysis.Limits)
		assert.Greater(t, analysis.Limits.LowerControlLimit, 0.0)
		assert.Len(t, analysis.Violations, 2)
		assert.True(t, analysis.OutOfControl)
	})

	t.Run("Insufficient Data", func(t *testing.T) {
		analysis, err := monitor.AnalyzeMetric("sparse", series("sparse", 0.5))
		require.NoError(t, err)

		assert.True(t, analysis.InsufficientData)
		require.NotNil(t, analysis.Limits)
		assert.Equal(t, 0.5, analysis.Limits.CenterLine)
		assert.Zero(t, analysis.Limits.UpperControlLimit)
		assert.Empty(t, analysis.Violations)

		analysis, err = monitor.AnalyzeMetric("empty", nil)
		require.NoError(t, err)
		assert.True(t, analysis.InsufficientData)
		assert.Nil(t, analysis.Limits)
	})

	t.Run("Rate Out Of Range Rejected", func(t *testing.T) {
		_, err := monitor.AnalyzeMetric("bad", series("bad", 0.5, 1.2))
		require.Error(t, err)
		assert.True(t, analytics.IsValidation(err))

		_, err = monitor.AnalyzeMetric("bad", series("bad", -0.1, 0.5))
		require.Error(t, err)
		assert.True(t, analytics.IsValidation(err))
	})
}

func TestSeverityForDeviation(t *testing.T) {
	sigma := 0.05

	cases := []struct {
		name      string
		deviation float64
		expected  Severity
	}{
		{"half sigma below limit", 0.5 * sigma, SeverityLow},
		{"one sigma below limit", 1.0 * sigma, SeverityMedium},
		{"between one and two", 1.5 * sigma, SeverityMedium},
		{"two sigma below limit", 2.0 * sigma, SeverityHigh},
		{"three sigma below limit", 3.0 * sigma, SeverityHigh},
		{"beyond three sigma", 3.5 * sigma, SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SeverityForDeviation(tc.deviation, sigma))
		})
	}

	t.Run("Exact Three Sigma Stays High Across Sigmas", func(t *testing.T) {
		// Dividing deviation by sigma can overshoot 3.0 for inexact
		// binary fractions; the boundary must hold regardless of sigma.
		for _, s := range []float64{0.05, 0.1, 0.3, 0.07} {
			assert.Equal(t, SeverityHigh, SeverityForDeviation(3.0*s, s), "sigma=%g", s)
			assert.Equal(t, SeverityHigh, SeverityForDeviation(2.0*s, s), "sigma=%g", s)
			assert.Equal(t, SeverityMedium, SeverityForDeviation(1.0*s, s), "sigma=%g", s)
		}
	})

	t.Run("Severity Escalates With Distance", func(t *testing.T) {
		order := map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}
		prev := -1
		for _, deviation := range []float64{0.5, 1.5, 2.5, 3.5} {
			rank := order[SeverityForDeviation(deviation*sigma, sigma)]
			assert.Greater(t, rank, prev)
			prev = rank
		}
	})
}

func TestMonitor_BuildDashboard(t *testing.T) {
	monitor := NewMonitor(DefaultParams())

	t.Run("Aggregates Across Metrics", func(t *testing.T) {
		input := map[string][]Sample{
			"hand_hygiene": flat("hand_hygiene", 1.0, 5),
			"consent":      flat("consent", 0.9, 50, 0.0),
		}

		dashboard, analyses, err := monitor.BuildDashboard(input, 51)
		require.NoError(t, err)

		assert.Equal(t, 51, dashboard.DaysAnalyzed)
		require.Len(t, dashboard.Metrics, 2)
		require.Len(t, analyses, 2)

		// Metrics sorted by name for deterministic output.
		assert.Equal(t, "consent", dashboard.Metrics[0].MetricType)
		assert.Equal(t, "hand_hygiene", dashboard.Metrics[1].MetricType)

		consent := dashboard.Metrics[0]
		assert.Equal(t, 0.0, consent.CurrentRate)
		assert.Equal(t, 0.0, consent.MinRate)
		assert.Equal(t, 1, consent.Violations)

		hygiene := dashboard.Metrics[1]
		assert.Equal(t, 1.0, hygiene.CurrentRate)
		assert.Equal(t, 0, hygiene.Violations)
		assert.False(t, hygiene.OutOfControl)

		assert.Equal(t, 1, dashboard.TotalViolations)
		assert.Equal(t, 1, dashboard.ViolationsDays)
		require.Len(t, dashboard.RecentViolations, 1)
		assert.Greater(t, dashboard.AverageComplianceRate, 0.0)
	})

	t.Run("Analyses And Roll Up Share Violation IDs", func(t *testing.T) {
		input := map[string][]Sample{
			"consent": flat("consent", 0.9, 30, 0.0, 0.0),
		}

		dashboard, analyses, err := monitor.BuildDashboard(input, 32)
		require.NoError(t, err)

		consent := analyses["consent"]
		require.NotNil(t, consent)
		require.Len(t, consent.Violations, 2)
		require.Len(t, dashboard.RecentViolations, 2)

		fromAnalysis := map[string]bool{}
		for _, v := range consent.Violations {
			fromAnalysis[v.ViolationID] = true
		}
		for _, v := range dashboard.RecentViolations {
			assert.True(t, fromAnalysis[v.ViolationID])
		}
	})

	t.Run("Recent Violations Capped And Newest First", func(t *testing.T) {
		capped := NewMonitor(Params{RecentViolations: 2})

		// Three separate days collapse to zero.
		input := map[string][]Sample{
			"consent": flat("consent", 0.9, 50, 0.0, 0.0, 0.0),
		}

		dashboard, _, err := capped.BuildDashboard(input, 53)
		require.NoError(t, err)

		assert.Equal(t, 3, dashboard.TotalViolations)
		assert.Equal(t, 3, dashboard.ViolationsDays)
		require.Len(t, dashboard.RecentViolations, 2)
		assert.True(t, dashboard.RecentViolations[0].ViolationDate.After(
			dashboard.RecentViolations[1].ViolationDate))
	})

	t.Run("Empty Input", func(t *testing.T) {
		dashboard, analyses, err := monitor.BuildDashboard(nil, 0)
		require.NoError(t, err)
		assert.Empty(t, analyses)

		assert.Zero(t, dashboard.TotalViolations)
		assert.Zero(t, dashboard.AverageComplianceRate)
		assert.Empty(t, dashboard.Metrics)
		assert.Empty(t, dashboard.RecentViolations)
	})
}

func TestParseSeverity(t *testing.T) {
	for _, valid := range []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"} {
		s, err := ParseSeverity(valid)
		require.NoError(t, err)
		assert.Equal(t, Severity(valid), s)
	}

	_, err := ParseSeverity("FATAL")
	assert.Error(t, err)
}
