// Package corr implements the correlation engine: Pearson correlation
// between a KPI's and a candidate metric's historical series, and
// trend derivation from the shape of that series.
package corr

import "github.com/miradorstack/mirador-rca/internal/models"

// DeriveTrend compares the mean of the first half of hist against the
// mean of the second half: strictly less is a rise, strictly greater
// is a fall, equal is the default (no clear direction).
func DeriveTrend(hist []float64) models.Trend {
	if len(hist) < 2 {
		return models.TrendDefault
	}
	mid := len(hist) / 2
	firstMean := mean(hist[:mid])
	secondMean := mean(hist[mid:])
	switch {
	case firstMean < secondMean:
		return models.TrendRise
	case firstMean > secondMean:
		return models.TrendFall
	default:
		return models.TrendDefault
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
