package bayes

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gonum.org/v1/gonum/stat"
)

var (
	fitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playcall_fit_duration_seconds",
		Help:    "Wall time of a posterior fit",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"model"})

	samplerAcceptance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playcall_sampler_acceptance_ratio",
		Help: "Post-warmup Metropolis acceptance rate of the last fit",
	}, []string{"model"})

	parameterRHat = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playcall_parameter_rhat",
		Help: "Split R-hat of each parameter in the last fit",
	}, []string{"model", "parameter"})
)

// SplitRHat computes the split potential scale reduction factor of Gelman et al. Each
// chain is cut in half and the halves are treated as separate chains. Values near 1 mean
// the chains agree. Returns NaN when there are fewer than two draws per half-chain.
func SplitRHat(chains [][]float64) float64 {
	var halves [][]float64
	for _, ch := range chains {
		n := len(ch) / 2
		if n < 2 {
			return math.NaN()
		}
		halves = append(halves, ch[:n], ch[len(ch)-n:])
	}

	n := len(halves[0])
	for _, h := range halves {
		if len(h) < n {
			n = len(h)
		}
	}

	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for i, h := range halves {
		means[i], vars[i] = stat.MeanVariance(h[:n], nil)
	}

	w := stat.Mean(vars, nil)
	b := float64(n) * stat.Variance(means, nil)
	if w == 0 {
		if b == 0 {
			return 1
		}
		return math.Inf(1)
	}
	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	return math.Sqrt(varPlus / w)
}

// setRHat records r unless it is undefined; NaN does not survive JSON encoding.
func (d *Diagnostics) setRHat(name string, r float64) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return
	}
	d.RHat[name] = r
}
