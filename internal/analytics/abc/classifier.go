// Package abc ranks inventory items by annual consumption value and
// classifies them into Pareto tiers (A/B/C) with per-tier stocking
// guidance.
package abc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
)

// ErrNoAnalyzableValue is returned when the catalog carries no positive
// annual value, which leaves the Pareto classification undefined.
var ErrNoAnalyzableValue = errors.New("inventory has no analyzable value")

// Classification is an ABC value tier
type Classification string

const (
	ClassA Classification = "A"
	ClassB Classification = "B"
	ClassC Classification = "C"
)

// ParseClassification parses a classification from its string form
func ParseClassification(s string) (Classification, error) {
	switch Classification(s) {
	case ClassA, ClassB, ClassC:
		return Classification(s), nil
	}
	return "", fmt.Errorf("unknown classification: %q", s)
}

// InventoryItem is the caller-supplied inventory catalog entry
type InventoryItem struct {
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	AnnualDemand int64           `json:"annual_demand"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// Ranking is one item's position in the Pareto analysis. Rankings are
// recomputed as a whole per analysis run and never partially updated.
type Ranking struct {
	ItemID                     string          `json:"item_id"`
	ItemName                   string          `json:"item_name"`
	AnnualValue                decimal.Decimal `json:"annual_value"`
	Rank                       int             `json:"rank"`
	CumulativeValue            decimal.Decimal `json:"cumulative_value"`
	CumulativePercentage       float64         `json:"cumulative_percentage"`
	Classification             Classification  `json:"classification"`
	PreviousClassification     *Classification `json:"previous_classification,omitempty"`
	ClassificationChanged      bool            `json:"classification_changed"`
	RecommendedControlStrategy string          `json:"recommended_control_strategy"`
	RecommendedReviewFrequency string          `json:"recommended_review_frequency"`
	RecommendedServiceLevel    float64         `json:"recommended_service_level"`
}

// Params are the classifier's boundaries and per-class guidance values.
// Service levels are single representative values chosen from the
// documented ranges (A: 0.95-0.99, C: 0.75-0.80).
type Params struct {
	ClassABoundary float64
	ClassBBoundary float64
	ServiceLevelA  float64
	ServiceLevelB  float64
	ServiceLevelC  float64
}

// DefaultParams returns the documented default boundaries and guidance
func DefaultParams() Params {
	return Params{
		ClassABoundary: 70,
		ClassBBoundary: 90,
		ServiceLevelA:  0.98,
		ServiceLevelB:  0.90,
		ServiceLevelC:  0.80,
	}
}

// Classifier performs ABC analysis. It is stateless and safe for
// concurrent use.
type Classifier struct {
	params    Params
	aBoundary decimal.Decimal
	bBoundary decimal.Decimal
}

// NewClassifier creates a classifier; zero-valued params fall back to defaults
func NewClassifier(params Params) *Classifier {
	defaults := DefaultParams()
	if params.ClassABoundary <= 0 {
		params.ClassABoundary = defaults.ClassABoundary
	}
	if params.ClassBBoundary <= 0 {
		params.ClassBBoundary = defaults.ClassBBoundary
	}
	if params.ServiceLevelA <= 0 {
		params.ServiceLevelA = defaults.ServiceLevelA
	}
	if params.ServiceLevelB <= 0 {
		params.ServiceLevelB = defaults.ServiceLevelB
	}
	if params.ServiceLevelC <= 0 {
		params.ServiceLevelC = defaults.ServiceLevelC
	}
	return &Classifier{
		params:    params,
		aBoundary: decimal.NewFromFloat(params.ClassABoundary),
		bBoundary: decimal.NewFromFloat(params.ClassBBoundary),
	}
}

// Classify ranks the items by annual value and assigns Pareto classes.
// previous maps item IDs to the classification of the prior analysis run
// and may be nil; it only affects the ClassificationChanged flag.
func (c *Classifier) Classify(items []InventoryItem, previous map[string]Classification) ([]Ranking, error) {
	for _, item := range items {
		if item.AnnualDemand < 0 {
			return nil, analytics.NewValidationError("annual_demand", "must not be negative for item %s, got %d", item.ItemID, item.AnnualDemand)
		}
		if item.UnitPrice.IsNegative() {
			return nil, analytics.NewValidationError("unit_price", "must not be negative for item %s, got %s", item.ItemID, item.UnitPrice)
		}
	}

	rankings := make([]Ranking, len(items))
	total := decimal.Zero
	for i, item := range items {
		value := decimal.NewFromInt(item.AnnualDemand).Mul(item.UnitPrice)
		rankings[i] = Ranking{
			ItemID:      item.ItemID,
			ItemName:    item.ItemName,
			AnnualValue: value,
		}
		total = total.Add(value)
	}

	if total.IsZero() {
		return nil, ErrNoAnalyzableValue
	}

	// Stable sort keeps the caller's relative order for equal values,
	// which makes ranks deterministic across runs.
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].AnnualValue.GreaterThan(rankings[j].AnnualValue)
	})

	cumulative := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for i := range rankings {
		cumulative = cumulative.Add(rankings[i].AnnualValue)
		percentage := cumulative.Div(total).Mul(hundred)

		rankings[i].Rank = i + 1
		rankings[i].CumulativeValue = cumulative
		rankings[i].CumulativePercentage = percentage.InexactFloat64()
		rankings[i].Classification = c.classify(percentage)
		c.attachGuidance(&rankings[i])

		if prev, ok := previous[rankings[i].ItemID]; ok {
			prevCopy := prev
			rankings[i].PreviousClassification = &prevCopy
			rankings[i].ClassificationChanged = prev != rankings[i].Classification
		}
	}

	return rankings, nil
}

// classify maps a cumulative percentage to a tier. Boundary values belong
// to the lower class: exactly 70 is A, exactly 90 is B.
func (c *Classifier) classify(percentage decimal.Decimal) Classification {
	switch {
	case percentage.LessThanOrEqual(c.aBoundary):
		return ClassA
	case percentage.LessThanOrEqual(c.bBoundary):
		return ClassB
	default:
		return ClassC
	}
}

func (c *Classifier) attachGuidance(r *Ranking) {
	switch r.Classification {
	case ClassA:
		r.RecommendedControlStrategy = "tight"
		r.RecommendedReviewFrequency = "weekly"
		r.RecommendedServiceLevel = c.params.ServiceLevelA
	case ClassB:
		r.RecommendedControlStrategy = "moderate"
		r.RecommendedReviewFrequency = "monthly"
		r.RecommendedServiceLevel = c.params.ServiceLevelB
	default:
		r.RecommendedControlStrategy = "loose"
		r.RecommendedReviewFrequency = "quarterly"
		r.RecommendedServiceLevel = c.params.ServiceLevelC
	}
}
