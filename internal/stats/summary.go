// Package stats summarises posterior draws for display.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/redzone-analytics/playcall/internal/models"
)

// DefaultMass is the probability mass covered by the credible interval.
const DefaultMass = 0.95

// madScale makes the MAD a consistent estimator of the standard deviation for normal data.
const madScale = 1.4826

var ErrNoDraws = errors.New("stats: no draws to summarise")

// Summary describes a draw sequence on its own scale.
type Summary struct {
	Median float64
	MAD    float64
	Lower  float64
	Upper  float64
}

// Summarize computes the median, scaled median absolute deviation and the
// highest-density interval holding mass of the draws. The input is not modified.
func Summarize(draws []float64, mass float64) (Summary, error) {
	if len(draws) == 0 {
		return Summary{}, ErrNoDraws
	}
	if floats.HasNaN(draws) {
		return Summary{}, errors.New("stats: draws contain NaN")
	}
	sorted := append([]float64(nil), draws...)
	sort.Float64s(sorted)

	median := Median(sorted)
	lower, upper := hdiSorted(sorted, mass)
	return Summary{
		Median: median,
		MAD:    mad(sorted, median),
		Lower:  lower,
		Upper:  upper,
	}, nil
}

// Median of sorted values, averaging the middle pair for even lengths.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mad(sorted []float64, median float64) float64 {
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return madScale * Median(dev)
}

// HDI returns the narrowest interval containing mass of the draws.
func HDI(draws []float64, mass float64) (lower, upper float64, err error) {
	if len(draws) == 0 {
		return 0, 0, ErrNoDraws
	}
	sorted := append([]float64(nil), draws...)
	sort.Float64s(sorted)
	lower, upper = hdiSorted(sorted, mass)
	return lower, upper, nil
}

func hdiSorted(sorted []float64, mass float64) (float64, float64) {
	n := len(sorted)
	if mass <= 0 || mass >= 1 {
		return sorted[0], sorted[n-1]
	}
	window := int(math.Ceil(mass * float64(n)))
	if window >= n {
		return sorted[0], sorted[n-1]
	}
	if window < 1 {
		window = 1
	}
	best := 0
	bestWidth := math.Inf(1)
	for i := 0; i+window-1 < n; i++ {
		width := sorted[i+window-1] - sorted[i]
		if width < bestWidth {
			bestWidth = width
			best = i
		}
	}
	return sorted[best], sorted[best+window-1]
}

// PassRun summarises pass-probability draws (0..1) on the percent scale and derives the
// complementary run statistics: run = 100 - pass with the interval endpoints swapped.
func PassRun(passProb []float64, mass float64) (pass, run models.Stat, err error) {
	s, err := Summarize(Percent(passProb), mass)
	if err != nil {
		return models.Stat{}, models.Stat{}, err
	}
	pass = models.Stat{Median: s.Median, MAD: s.MAD, Lower: s.Lower, Upper: s.Upper}
	return pass, Complement(pass), nil
}

// Complement turns a percent-scale pass statistic into the matching run statistic.
func Complement(pass models.Stat) models.Stat {
	return models.Stat{
		Median: 100 - pass.Median,
		MAD:    pass.MAD,
		Lower:  100 - pass.Upper,
		Upper:  100 - pass.Lower,
	}
}
