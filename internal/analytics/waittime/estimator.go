// Package waittime estimates patient queue wait times using an M/M/1
// queueing model over the current arrival and service rates.
package waittime

import (
	"fmt"
	"math"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
)

// Confidence grades how reliable an estimate is
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// ParseConfidence parses a confidence level from its string form
func ParseConfidence(s string) (Confidence, error) {
	switch Confidence(s) {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return Confidence(s), nil
	}
	return "", fmt.Errorf("unknown confidence level: %q", s)
}

// QueueSnapshot is the caller-supplied view of the queue at estimation time.
// Rates are in patients per hour; QueuePosition is 1-based.
type QueueSnapshot struct {
	AppointmentID     string  `json:"appointment_id"`
	ArrivalRate       float64 `json:"arrival_rate"`
	ServiceRate       float64 `json:"service_rate"`
	QueuePosition     int     `json:"queue_position"`
	HistoricalSamples int     `json:"historical_samples"`
}

// Estimate is the computed wait-time estimate for one appointment.
// It is derived and immutable; callers recompute it on demand.
type Estimate struct {
	AppointmentID        string     `json:"appointment_id"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	Confidence           Confidence `json:"confidence"`
	Unstable             bool       `json:"is_unstable"`
	Utilization          float64    `json:"utilization"`
	ArrivalRate          float64    `json:"arrival_rate"`
	ServiceRate          float64    `json:"service_rate"`
}

// Params are the estimator's tunable thresholds. They are configuration
// inputs, not hidden constants.
type Params struct {
	// HighConfidenceUtilization is the utilization below which estimates
	// are graded HIGH when the historical sample is sufficient.
	HighConfidenceUtilization float64
	// MinHistoricalSamples is the smallest historical sample that still
	// supports a better-than-LOW confidence grade.
	MinHistoricalSamples int
	// PositionBatchSize groups queue positions to avoid false precision
	// for patients far back in the queue.
	PositionBatchSize int
}

// DefaultParams returns the documented default thresholds
func DefaultParams() Params {
	return Params{
		HighConfidenceUtilization: 0.7,
		MinHistoricalSamples:      30,
		PositionBatchSize:         5,
	}
}

// Estimator computes wait-time estimates. It is stateless and safe for
// concurrent use.
type Estimator struct {
	params Params
}

// NewEstimator creates an estimator; zero-valued params fall back to defaults
func NewEstimator(params Params) *Estimator {
	defaults := DefaultParams()
	if params.HighConfidenceUtilization <= 0 {
		params.HighConfidenceUtilization = defaults.HighConfidenceUtilization
	}
	if params.MinHistoricalSamples <= 0 {
		params.MinHistoricalSamples = defaults.MinHistoricalSamples
	}
	if params.PositionBatchSize <= 0 {
		params.PositionBatchSize = defaults.PositionBatchSize
	}
	return &Estimator{params: params}
}

// Estimate produces a wait-time estimate for the snapshot. An unstable
// queue (utilization >= 1) yields a degraded LOW-confidence result, not
// an error; only out-of-range inputs are rejected.
func (e *Estimator) Estimate(snap QueueSnapshot) (Estimate, error) {
	if snap.ArrivalRate <= 0 {
		return Estimate{}, analytics.NewValidationError("arrival_rate", "must be positive, got %g", snap.ArrivalRate)
	}
	if snap.ServiceRate <= 0 {
		return Estimate{}, analytics.NewValidationError("service_rate", "must be positive, got %g", snap.ServiceRate)
	}
	if snap.QueuePosition < 1 {
		return Estimate{}, analytics.NewValidationError("queue_position", "must be at least 1, got %d", snap.QueuePosition)
	}

	utilization := snap.ArrivalRate / snap.ServiceRate
	unstable := utilization >= 1

	var waitHours float64
	if unstable {
		// The M/M/1 wait 1/(mu-lambda) is undefined at or beyond
		// saturation. Fall back to the service-rate bound: the time to
		// serve everyone ahead of this patient.
		waitHours = float64(snap.QueuePosition) / snap.ServiceRate
	} else {
		base := 1 / (snap.ServiceRate - snap.ArrivalRate)
		batches := math.Ceil(float64(snap.QueuePosition) / float64(e.params.PositionBatchSize))
		waitHours = base * batches
	}

	return Estimate{
		AppointmentID:        snap.AppointmentID,
		EstimatedWaitMinutes: analytics.RoundMinutes(waitHours),
		Confidence:           e.confidence(utilization, unstable, snap.HistoricalSamples),
		Unstable:             unstable,
		Utilization:          utilization,
		ArrivalRate:          snap.ArrivalRate,
		ServiceRate:          snap.ServiceRate,
	}, nil
}

func (e *Estimator) confidence(utilization float64, unstable bool, samples int) Confidence {
	if unstable || samples < e.params.MinHistoricalSamples {
		return ConfidenceLow
	}
	if utilization < e.params.HighConfidenceUtilization {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}
