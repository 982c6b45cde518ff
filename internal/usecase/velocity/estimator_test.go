package velocity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planforge/sprint-planner/internal/entities"
)

func TestEstimate_FlatSeries(t *testing.T) {
	est := New()

	forecast := est.Estimate([]float64{5, 5, 5, 5, 5, 5})

	assert.Equal(t, entities.TrendStable, forecast.Trend)
	assert.InDelta(t, 5, forecast.PredictedVelocity, 0.01)
	assert.InDelta(t, 5, forecast.AverageVelocity, 0.01)
	assert.Greater(t, forecast.Confidence, 0.8)
}

func TestEstimate_Trend(t *testing.T) {
	est := New()

	t.Run("increasing", func(t *testing.T) {
		forecast := est.Estimate([]float64{4, 4, 4, 8, 8, 8})
		assert.Equal(t, entities.TrendIncreasing, forecast.Trend)
	})

	t.Run("decreasing", func(t *testing.T) {
		forecast := est.Estimate([]float64{8, 8, 8, 4, 4, 4})
		assert.Equal(t, entities.TrendDecreasing, forecast.Trend)
	})

	t.Run("within threshold is stable", func(t *testing.T) {
		forecast := est.Estimate([]float64{10, 10, 10, 10.5, 10.5, 10.5})
		assert.Equal(t, entities.TrendStable, forecast.Trend)
	})
}

func TestEstimate_SparseHistory(t *testing.T) {
	est := New()

	t.Run("empty", func(t *testing.T) {
		forecast := est.Estimate(nil)
		assert.Equal(t, entities.TrendStable, forecast.Trend)
		assert.InDelta(t, 0.3, forecast.Confidence, 0.001)
		assert.Zero(t, forecast.PredictedVelocity)
	})

	t.Run("two points", func(t *testing.T) {
		forecast := est.Estimate([]float64{6, 10})
		assert.Equal(t, entities.TrendStable, forecast.Trend)
		assert.InDelta(t, 0.3, forecast.Confidence, 0.001)
		assert.InDelta(t, 8, forecast.PredictedVelocity, 0.01)
		assert.InDelta(t, 10, forecast.CurrentVelocity, 0.01)
	})
}

func TestEstimate_PredictionClamped(t *testing.T) {
	est := New()

	// Steep regression slope must not escape the band around the recent mean.
	forecast := est.Estimate([]float64{1, 2, 4, 8, 16, 32})

	recentMean := (8.0 + 16.0 + 32.0) / 3
	assert.LessOrEqual(t, forecast.PredictedVelocity, 1.5*recentMean)
	assert.GreaterOrEqual(t, forecast.PredictedVelocity, 0.5*recentMean)
}

func TestEstimate_ConfidenceBounds(t *testing.T) {
	est := New()

	t.Run("volatile series stays above floor", func(t *testing.T) {
		forecast := est.Estimate([]float64{1, 30, 2, 28, 1, 31})
		assert.GreaterOrEqual(t, forecast.Confidence, 0.1)
		assert.LessOrEqual(t, forecast.Confidence, 1.0)
	})

	t.Run("long consistent series caps at one", func(t *testing.T) {
		series := make([]float64, 20)
		for i := range series {
			series[i] = 12
		}
		forecast := est.Estimate(series)
		assert.InDelta(t, 1.0, forecast.Confidence, 0.001)
	})
}
