// Package spc monitors daily compliance rates with Shewhart-style
// control charts: control limits around the trailing mean, violation
// detection below the lower limit, and a dashboard aggregation.
package spc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
)

// Severity grades how far a violation falls below the lower control limit
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity parses a severity from its string form
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity: %q", s)
}

// Sample is one observed daily compliance rate for a metric
type Sample struct {
	MetricType string    `json:"metric_type"`
	Date       time.Time `json:"date"`
	Rate       float64   `json:"rate"`
}

// ControlLimits are the computed chart boundaries for one metric
type ControlLimits struct {
	MetricType        string  `json:"metric_type"`
	CenterLine        float64 `json:"center_line"`
	UpperControlLimit float64 `json:"upper_control_limit"`
	LowerControlLimit float64 `json:"lower_control_limit"`
	Sigma             float64 `json:"sigma"`
	DaysAnalyzed      int     `json:"days_analyzed"`
}

// Violation is a sample that fell below the lower control limit.
// Violations are immutable once created.
type Violation struct {
	ViolationID       string    `json:"violation_id"`
	MetricType        string    `json:"metric_type"`
	ViolationDate     time.Time `json:"violation_date"`
	ComplianceRate    float64   `json:"compliance_rate"`
	UpperControlLimit float64   `json:"upper_control_limit"`
	LowerControlLimit float64   `json:"lower_control_limit"`
	Severity          Severity  `json:"severity"`
	Description       string    `json:"description"`
}

// MetricAnalysis is the per-metric result of a control chart pass
type MetricAnalysis struct {
	MetricType       string         `json:"metric_type"`
	Limits           *ControlLimits `json:"limits,omitempty"`
	Violations       []Violation    `json:"violations"`
	InsufficientData bool           `json:"insufficient_data"`
	OutOfControl     bool           `json:"out_of_control"`
}

// MetricSummary is the dashboard roll-up for one metric
type MetricSummary struct {
	MetricType   string  `json:"metric_type"`
	CurrentRate  float64 `json:"current_rate"`
	AverageRate  float64 `json:"average_rate"`
	MinRate      float64 `json:"min_rate"`
	Violations   int     `json:"violations"`
	OutOfControl bool    `json:"out_of_control"`
}

// Dashboard aggregates all monitored metrics over the analysis window.
// It is rebuilt fresh on each query and never persisted.
type Dashboard struct {
	DaysAnalyzed          int             `json:"days_analyzed"`
	AverageComplianceRate float64         `json:"average_compliance_rate"`
	TotalViolations       int             `json:"total_violations"`
	ViolationsDays        int             `json:"violations_days"`
	Metrics               []MetricSummary `json:"metrics"`
	RecentViolations      []Violation     `json:"recent_violations"`
}

// Params are the monitor's tunable thresholds. The three-sigma multiplier
// and the out-of-control count are documented defaults, not immutable
// constants.
type Params struct {
	SigmaMultiplier        float64
	OutOfControlViolations int
	RecentViolations       int
}

// DefaultParams returns the documented default thresholds
func DefaultParams() Params {
	return Params{
		SigmaMultiplier:        3,
		OutOfControlViolations: 2,
		RecentViolations:       10,
	}
}

// Monitor computes control limits and violations. It is stateless and
// safe for concurrent use.
type Monitor struct {
	params Params
}

// NewMonitor creates a monitor; zero-valued params fall back to defaults
func NewMonitor(params Params) *Monitor {
	defaults := DefaultParams()
	if params.SigmaMultiplier <= 0 {
		params.SigmaMultiplier = defaults.SigmaMultiplier
	}
	if params.OutOfControlViolations <= 0 {
		params.OutOfControlViolations = defaults.OutOfControlViolations
	}
	if params.RecentViolations <= 0 {
		params.RecentViolations = defaults.RecentViolations
	}
	return &Monitor{params: params}
}

// AnalyzeMetric runs one control chart pass over a metric's trailing
// window. Fewer than two samples is an insufficient-data result, not an
// error: the center line reflects the single sample if present and no
// limits or violations are produced.
func (m *Monitor) AnalyzeMetric(metricType string, samples []Sample) (MetricAnalysis, error) {
	for _, s := range samples {
		if s.Rate < 0 || s.Rate > 1 {
			return MetricAnalysis{}, analytics.NewValidationError("rate", "must be in [0,1] for metric %s on %s, got %g",
				metricType, s.Date.Format("2006-01-02"), s.Rate)
		}
	}

	analysis := MetricAnalysis{
		MetricType: metricType,
		Violations: []Violation{},
	}

	if len(samples) < 2 {
		analysis.InsufficientData = true
		if len(samples) == 1 {
			analysis.Limits = &ControlLimits{
				MetricType:   metricType,
				CenterLine:   samples[0].Rate,
				DaysAnalyzed: 1,
			}
		}
		return analysis, nil
	}

	mean := meanRate(samples)
	sigma := sigmaRate(samples, mean)

	limits := &ControlLimits{
		MetricType:        metricType,
		CenterLine:        mean,
		UpperControlLimit: math.Min(1.0, mean+m.params.SigmaMultiplier*sigma),
		LowerControlLimit: math.Max(0.0, mean-m.params.SigmaMultiplier*sigma),
		Sigma:             sigma,
		DaysAnalyzed:      len(samples),
	}
	analysis.Limits = limits

	for _, s := range samples {
		// Only the downward direction is actionable: the rate is
		// bounded above by 1.0, so exceeding the upper limit is not a
		// violation.
		if s.Rate >= limits.LowerControlLimit {
			continue
		}
		severity := SeverityForDeviation(limits.LowerControlLimit-s.Rate, sigma)
		analysis.Violations = append(analysis.Violations, Violation{
			ViolationID:       uuid.New().String(),
			MetricType:        metricType,
			ViolationDate:     s.Date,
			ComplianceRate:    s.Rate,
			UpperControlLimit: limits.UpperControlLimit,
			LowerControlLimit: limits.LowerControlLimit,
			Severity:          severity,
			Description: fmt.Sprintf("%s compliance rate %.4f fell below control limit %.4f",
				metricType, s.Rate, limits.LowerControlLimit),
		})
	}

	analysis.OutOfControl = len(analysis.Violations) >= m.params.OutOfControlViolations

	return analysis, nil
}

// BuildDashboard aggregates control chart results for every metric series
// and returns the per-metric analyses it computed, so a violation carries
// the same ID in the analysis and in the dashboard roll-up. Samples
// within a series are expected in chronological order; the last sample is
// reported as the metric's current rate.
func (m *Monitor) BuildDashboard(series map[string][]Sample, daysAnalyzed int) (Dashboard, map[string]*MetricAnalysis, error) {
	dashboard := Dashboard{
		DaysAnalyzed:     daysAnalyzed,
		Metrics:          []MetricSummary{},
		RecentViolations: []Violation{},
	}

	metricTypes := make([]string, 0, len(series))
	for metricType := range series {
		metricTypes = append(metricTypes, metricType)
	}
	sort.Strings(metricTypes)

	var rateSum float64
	var rateCount int
	violationDays := map[string]struct{}{}
	allViolations := []Violation{}
	analyses := make(map[string]*MetricAnalysis, len(series))

	for _, metricType := range metricTypes {
		samples := series[metricType]

		analysis, err := m.AnalyzeMetric(metricType, samples)
		if err != nil {
			return Dashboard{}, nil, fmt.Errorf("analyzing metric %s: %w", metricType, err)
		}
		analyses[metricType] = &analysis

		summary := MetricSummary{
			MetricType:   metricType,
			Violations:   len(analysis.Violations),
			OutOfControl: analysis.OutOfControl,
		}
		if len(samples) > 0 {
			summary.CurrentRate = samples[len(samples)-1].Rate
			summary.AverageRate = meanRate(samples)
			summary.MinRate = minRate(samples)
		}
		dashboard.Metrics = append(dashboard.Metrics, summary)

		for _, s := range samples {
			rateSum += s.Rate
			rateCount++
		}
		for _, v := range analysis.Violations {
			allViolations = append(allViolations, v)
			violationDays[v.ViolationDate.Format("2006-01-02")] = struct{}{}
		}
	}

	if rateCount > 0 {
		dashboard.AverageComplianceRate = rateSum / float64(rateCount)
	}
	dashboard.TotalViolations = len(allViolations)
	dashboard.ViolationsDays = len(violationDays)

	sort.SliceStable(allViolations, func(i, j int) bool {
		return allViolations[i].ViolationDate.After(allViolations[j].ViolationDate)
	})
	if len(allViolations) > m.params.RecentViolations {
		allViolations = allViolations[:m.params.RecentViolations]
	}
	dashboard.RecentViolations = allViolations

	return dashboard, analyses, nil
}

// SeverityForDeviation grades a violation by its distance below the lower
// control limit in sigma units: LOW under one sigma, MEDIUM from one to
// two, HIGH from two to three inclusive, CRITICAL strictly beyond three.
// The deviation is compared against sigma multiples rather than divided
// by sigma, so a deviation of exactly three sigma grades HIGH instead of
// tipping over the boundary through rounding.
func SeverityForDeviation(deviation, sigma float64) Severity {
	if sigma <= 0 {
		return SeverityLow
	}
	switch {
	case deviation > 3*sigma:
		return SeverityCritical
	case deviation >= 2*sigma:
		return SeverityHigh
	case deviation >= sigma:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func meanRate(samples []Sample) float64 {
	var sum float64
	for _, s := range samples {
		sum += s.Rate
	}
	return sum / float64(len(samples))
}

// sigmaRate is the population standard deviation of the series
func sigmaRate(samples []Sample, mean float64) float64 {
	var sum float64
	for _, s := range samples {
		d := s.Rate - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func minRate(samples []Sample) float64 {
	min := samples[0].Rate
	for _, s := range samples[1:] {
		if s.Rate < min {
			min = s.Rate
		}
	}
	return min
}
