package abc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
)

func item(id string, demand int64, price string) InventoryItem {
	return InventoryItem{
		ItemID:       id,
		ItemName:     "item " + id,
		AnnualDemand: demand,
		UnitPrice:    decimal.RequireFromString(price),
	}
}

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier(DefaultParams())

	t.Run("Pareto Ordering And Classes", func(t *testing.T) {
		// Annual values: 6000, 2500, 1000, 400, 100 (total 10000).
		items := []InventoryItem{
			item("low", 100, "1.00"),      // 100 -> 100%
			item("top", 600, "10.00"),     // 6000 -> 60%
			item("mid", 250, "10.00"),     // 2500 -> 85%
			item("small", 100, "10.00"),   // 1000 -> 95%
			item("smaller", 400, "1.00"),  // 400 -> 99%
		}

		rankings, err := classifier.Classify(items, nil)
		require.NoError(t, err)
		require.Len(t, rankings, 5)

		assert.Equal(t, "top", rankings[0].ItemID)
		assert.Equal(t, ClassA, rankings[0].Classification)
		assert.Equal(t, "mid", rankings[1].ItemID)
		assert.Equal(t, ClassB, rankings[1].Classification)
		assert.Equal(t, ClassC, rankings[2].Classification)
		assert.Equal(t, ClassC, rankings[3].Classification)
		assert.Equal(t, ClassC, rankings[4].Classification)

		// Rank is a permutation of 1..N.
		seen := map[int]bool{}
		for _, r := range rankings {
			seen[r.Rank] = true
		}
		for i := 1; i <= 5; i++ {
			assert.True(t, seen[i], "rank %d missing", i)
		}

		// Cumulative percentage is non-decreasing and ends at 100.
		prev := 0.0
		for _, r := range rankings {
			assert.GreaterOrEqual(t, r.CumulativePercentage, prev)
			prev = r.CumulativePercentage
		}
		assert.InDelta(t, 100.0, rankings[4].CumulativePercentage, 1e-9)
	})

	t.Run("Boundary Value Belongs To Lower Class", func(t *testing.T) {
		// First item lands exactly on 70%: classified A, not B.
		items := []InventoryItem{
			item("a", 70, "1.00"),
			item("b", 30, "1.00"),
		}

		rankings, err := classifier.Classify(items, nil)
		require.NoError(t, err)

		assert.InDelta(t, 70.0, rankings[0].CumulativePercentage, 1e-9)
		assert.Equal(t, ClassA, rankings[0].Classification)
		assert.Equal(t, ClassC, rankings[1].Classification)
	})

	t.Run("Ties Keep Input Order", func(t *testing.T) {
		items := []InventoryItem{
			item("first", 10, "1.00"),
			item("second", 10, "1.00"),
			item("third", 10, "1.00"),
		}

		rankings, err := classifier.Classify(items, nil)
		require.NoError(t, err)

		assert.Equal(t, "first", rankings[0].ItemID)
		assert.Equal(t, "second", rankings[1].ItemID)
		assert.Equal(t, "third", rankings[2].ItemID)
	})

	t.Run("Idempotent Rankings", func(t *testing.T) {
		items := []InventoryItem{
			item("x", 300, "2.50"),
			item("y", 120, "7.00"),
			item("z", 45, "1.10"),
		}

		first, err := classifier.Classify(items, nil)
		require.NoError(t, err)
		second, err := classifier.Classify(items, nil)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("Change Tracking", func(t *testing.T) {
		items := []InventoryItem{
			item("a", 90, "1.00"),
			item("b", 10, "1.00"),
		}
		// "a" lands on 90% -> B, "b" on 100% -> C.
		previous := map[string]Classification{
			"a": ClassA,
			"b": ClassC,
		}

		rankings, err := classifier.Classify(items, previous)
		require.NoError(t, err)

		assert.Equal(t, ClassB, rankings[0].Classification)
		require.NotNil(t, rankings[0].PreviousClassification)
		assert.Equal(t, ClassA, *rankings[0].PreviousClassification)
		assert.True(t, rankings[0].ClassificationChanged)

		require.NotNil(t, rankings[1].PreviousClassification)
		assert.False(t, rankings[1].ClassificationChanged)
	})

	t.Run("No Previous Classification", func(t *testing.T) {
		rankings, err := classifier.Classify([]InventoryItem{item("a", 1, "1.00")}, nil)
		require.NoError(t, err)
		assert.Nil(t, rankings[0].PreviousClassification)
		assert.False(t, rankings[0].ClassificationChanged)
	})

	t.Run("Guidance Attached Per Class", func(t *testing.T) {
		items := []InventoryItem{
			item("a", 70, "1.00"),
			item("b", 20, "1.00"),
			item("c", 10, "1.00"),
		}

		rankings, err := classifier.Classify(items, nil)
		require.NoError(t, err)

		assert.Equal(t, "tight", rankings[0].RecommendedControlStrategy)
		assert.Equal(t, 0.98, rankings[0].RecommendedServiceLevel)
		assert.Equal(t, "moderate", rankings[1].RecommendedControlStrategy)
		assert.Equal(t, 0.90, rankings[1].RecommendedServiceLevel)
		assert.Equal(t, "loose", rankings[2].RecommendedControlStrategy)
		assert.Equal(t, 0.80, rankings[2].RecommendedServiceLevel)
	})

	t.Run("Zero Total Value Not Analyzable", func(t *testing.T) {
		_, err := classifier.Classify(nil, nil)
		assert.ErrorIs(t, err, ErrNoAnalyzableValue)

		_, err = classifier.Classify([]InventoryItem{
			item("a", 0, "5.00"),
			item("b", 10, "0.00"),
		}, nil)
		assert.ErrorIs(t, err, ErrNoAnalyzableValue)
	})

	t.Run("Negative Inputs Rejected", func(t *testing.T) {
		_, err := classifier.Classify([]InventoryItem{item("a", -1, "1.00")}, nil)
		require.Error(t, err)
		assert.True(t, analytics.IsValidation(err))

		_, err = classifier.Classify([]InventoryItem{item("a", 1, "-0.01")}, nil)
		require.Error(t, err)
		assert.True(t, analytics.IsValidation(err))
	})
}

func TestParseClassification(t *testing.T) {
	for _, valid := range []string{"A", "B", "C"} {
		c, err := ParseClassification(valid)
		require.NoError(t, err)
		assert.Equal(t, Classification(valid), c)
	}

	_, err := ParseClassification("D")
	assert.Error(t, err)
	_, err = ParseClassification("a")
	assert.Error(t, err)
}
