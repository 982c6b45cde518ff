package velocity

import (
	"math"

	"github.com/planforge/sprint-planner/internal/entities"
)

// Estimator derives a velocity forecast from a chronological series of
// per-sprint actual velocities.
type Estimator interface {
	Estimate(history []float64) entities.VelocityForecast
}

const (
	trendWindow      = 3
	trendDelta       = 0.10
	sparseConfidence = 0.3
	minConfidence    = 0.1
	volumePerPoint   = 0.02
	maxVolumeBonus   = 0.2
)

type estimator struct{}

func New() Estimator {
	return &estimator{}
}

func (e *estimator) Estimate(history []float64) entities.VelocityForecast {
	if len(history) == 0 {
		return entities.VelocityForecast{Trend: entities.TrendStable, Confidence: sparseConfidence}
	}

	current := history[len(history)-1]
	average := mean(history)

	// Sparse history is an expected steady state, not an error.
	if len(history) < trendWindow {
		return entities.VelocityForecast{
			CurrentVelocity:   current,
			AverageVelocity:   average,
			Trend:             entities.TrendStable,
			PredictedVelocity: average,
			Confidence:        sparseConfidence,
		}
	}

	recentMean := mean(history[len(history)-trendWindow:])

	return entities.VelocityForecast{
		CurrentVelocity:   current,
		AverageVelocity:   average,
		Trend:             trend(history, recentMean),
		PredictedVelocity: clamp(regressNext(history), 0.5*recentMean, 1.5*recentMean),
		Confidence:        confidence(history, average),
	}
}

func trend(history []float64, recentMean float64) entities.VelocityTrend {
	prior := history[maxInt(0, len(history)-2*trendWindow) : len(history)-trendWindow]
	if len(prior) == 0 {
		return entities.TrendStable
	}
	priorMean := mean(prior)
	if priorMean <= 0 {
		return entities.TrendStable
	}
	delta := (recentMean - priorMean) / priorMean
	switch {
	case delta > trendDelta:
		return entities.TrendIncreasing
	case delta < -trendDelta:
		return entities.TrendDecreasing
	default:
		return entities.TrendStable
	}
}

// regressNext fits an ordinary least-squares line over index→velocity and
// extrapolates one step past the end of the series.
func regressNext(history []float64) float64 {
	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range history {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return mean(history)
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n
	return intercept + slope*n
}

func confidence(history []float64, average float64) float64 {
	var cv float64
	if average > 0 {
		cv = stddev(history, average) / average
	}
	base := clamp(1-cv, minConfidence, 1)
	bonus := math.Min(maxVolumeBonus, volumePerPoint*float64(len(history)))
	return math.Min(1, base+bonus)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, average float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - average
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
