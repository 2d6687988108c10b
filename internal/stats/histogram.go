package stats

import (
	"gonum.org/v1/gonum/floats"

	"github.com/redzone-analytics/playcall/internal/models"
)

// Histogram bins draws into equal-width buckets spanning their range.
// The last bucket is closed on the right so the maximum draw is counted.
func Histogram(draws []float64, bins int) []models.HistogramBin {
	if len(draws) == 0 || bins < 1 {
		return nil
	}
	lo, hi := floats.Min(draws), floats.Max(draws)
	if hi == lo {
		return []models.HistogramBin{{Lower: lo, Upper: hi, Count: len(draws)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]models.HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range draws {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// Percent scales probabilities in [0, 1] to percentages.
func Percent(probs []float64) []float64 {
	out := make([]float64, len(probs))
	copy(out, probs)
	floats.Scale(100, out)
	return out
}
