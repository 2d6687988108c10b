// Package bayes fits the goal-to-go play-call model: a logistic regression of the pass
// indicator on distance to goal, down, their interaction and team rushing efficiency, with
// a partially pooled intercept per team. Posterior draws come from an adaptive
// Metropolis-within-Gibbs sampler with a fixed iteration count.
package bayes

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/redzone-analytics/playcall/internal/models"
)

var (
	ErrUnknownTeam     = errors.New("bayes: team not present in the fitted model")
	ErrInvalidScenario = errors.New("bayes: scenario out of range")
	ErrNoRows          = errors.New("bayes: no usable rows to fit")
)

// Coefficient names in design-matrix order. The pooled model stops before rush_epa.
var coefNames = []string{
	"(Intercept)",
	"distance",
	"down2",
	"down3",
	"distance:down2",
	"distance:down3",
	"rush_epa",
}

const pooledCoefs = 6

// Spec configures a fit. Iterations include Warmup; only post-warmup draws are kept.
type Spec struct {
	Pooled     bool    `json:"pooled"`
	Iterations int     `json:"iterations"`
	Warmup     int     `json:"warmup"`
	Chains     int     `json:"chains"`
	Seed       uint64  `json:"seed"`
	PriorScale float64 `json:"prior_scale"`
	SigmaRate  float64 `json:"sigma_rate"`
}

// DefaultSpec mirrors a typical rstanarm-style run: 4 chains of 2000 iterations.
func DefaultSpec() Spec {
	return Spec{
		Iterations: 2000,
		Warmup:     1000,
		Chains:     4,
		Seed:       20231,
		PriorScale: 2.5,
		SigmaRate:  1,
	}
}

func (s Spec) validate() error {
	if s.Chains < 1 {
		return fmt.Errorf("bayes: need at least one chain, got %d", s.Chains)
	}
	if s.Warmup < 0 || s.Warmup >= s.Iterations {
		return fmt.Errorf("bayes: warmup %d must be in [0, iterations=%d)", s.Warmup, s.Iterations)
	}
	if s.PriorScale <= 0 || s.SigmaRate <= 0 {
		return fmt.Errorf("bayes: prior scale and sigma rate must be positive")
	}
	return nil
}

// Scaling holds the centring constants applied to covariates at fit time.
type Scaling struct {
	DistMean float64 `json:"dist_mean"`
	DistSD   float64 `json:"dist_sd"`
	EffMean  float64 `json:"eff_mean"`
	EffSD    float64 `json:"eff_sd"`
}

// Diagnostics are informative only; a fit is never rejected on them.
type Diagnostics struct {
	RHat        map[string]float64 `json:"rhat"`
	Acceptance  float64            `json:"acceptance"`
	ChainDraws  int                `json:"chain_draws"`
	Chains      int                `json:"chains"`
	DroppedRows int                `json:"dropped_rows"`
}

// Fit is an immutable set of posterior draws. Build one with Sampler.Fit and share the
// pointer freely; nothing mutates it after construction.
type Fit struct {
	ID          string               `json:"id"`
	Season      int                  `json:"season"`
	WeekCutoff  int                  `json:"week_cutoff"`
	Fingerprint string               `json:"fingerprint"`
	Spec        Spec                 `json:"spec"`
	CreatedAt   time.Time            `json:"created_at"`
	Names       []string             `json:"names"`
	Beta        [][]float64          `json:"beta"`
	Sigma       []float64            `json:"sigma,omitempty"`
	Intercepts  map[string][]float64 `json:"intercepts,omitempty"`
	Efficiency  map[string]float64   `json:"efficiency"`
	Scaling     Scaling              `json:"scaling"`
	Rows        int                  `json:"rows"`
	Diag        Diagnostics          `json:"diagnostics"`
}

// Meta is the data identity the fit was trained on.
func (f *Fit) Meta() Meta {
	return Meta{Season: f.Season, WeekCutoff: f.WeekCutoff, Fingerprint: f.Fingerprint}
}

// NumDraws is the number of retained posterior draws across all chains.
func (f *Fit) NumDraws() int {
	return len(f.Beta)
}

// Teams lists the teams with a fitted intercept, sorted.
func (f *Fit) Teams() []string {
	teams := make([]string, 0, len(f.Efficiency))
	for t := range f.Efficiency {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

// HasTeam reports whether predictions can be made for team.
func (f *Fit) HasTeam(team string) bool {
	_, ok := f.Efficiency[team]
	return ok
}

// Predict returns one posterior pass probability per draw for the scenario, using the
// team's rushing efficiency from the training data.
func (f *Fit) Predict(sc models.Scenario) ([]float64, error) {
	eff, ok := f.Efficiency[sc.Team]
	if !ok && !f.Spec.Pooled {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, sc.Team)
	}
	return f.PredictWith(sc.Team, sc.Down, sc.Distance, eff)
}

// PredictWith evaluates the posterior for an arbitrary team, down, distance and
// efficiency combination. The pooled model ignores team and efficiency.
func (f *Fit) PredictWith(team string, down, distance int, efficiency float64) ([]float64, error) {
	if down < 1 || down > 3 {
		return nil, fmt.Errorf("%w: down %d", ErrInvalidScenario, down)
	}
	if distance < 1 || distance > 99 {
		return nil, fmt.Errorf("%w: distance %d", ErrInvalidScenario, distance)
	}

	var u []float64
	if !f.Spec.Pooled {
		var ok bool
		if u, ok = f.Intercepts[team]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
		}
	}

	x := f.Scaling.row(float64(distance), down, efficiency, len(f.Names))
	out := make([]float64, len(f.Beta))
	for s, beta := range f.Beta {
		eta := floats.Dot(beta, x)
		if u != nil {
			eta += u[s]
		}
		out[s] = invLogit(eta)
	}
	return out, nil
}

// Column returns the draws of a named coefficient, or nil if the fit has no such term.
func (f *Fit) Column(name string) []float64 {
	for k, n := range f.Names {
		if n != name {
			continue
		}
		col := make([]float64, len(f.Beta))
		for s := range f.Beta {
			col[s] = f.Beta[s][k]
		}
		return col
	}
	return nil
}

// row builds one standardised design row with k columns.
func (sc Scaling) row(distance float64, down int, efficiency float64, k int) []float64 {
	z := (distance - sc.DistMean) / sc.DistSD
	var d2, d3 float64
	switch down {
	case 2:
		d2 = 1
	case 3:
		d3 = 1
	}
	x := []float64{1, z, d2, d3, z * d2, z * d3}
	if k > pooledCoefs {
		x = append(x, (efficiency-sc.EffMean)/sc.EffSD)
	}
	return x
}

// design is the training data in sampler-friendly form.
type design struct {
	x      [][]float64
	y      []float64
	team   []int
	teams  []string
	byTeam [][]int
	k      int
	scale  Scaling
	eff    map[string]float64
	// nonzero[k] lists rows whose k-th column is non-zero.
	nonzero [][]int
	dropped int
}

func newDesign(rows []models.ModelRow, pooled bool) (*design, error) {
	usable := make([]models.ModelRow, 0, len(rows))
	eff := make(map[string]float64)
	for _, r := range rows {
		if r.Down < 1 || r.Down > 3 {
			continue
		}
		if r.RushEPA == nil {
			if !pooled {
				continue
			}
		} else {
			eff[r.Team] = *r.RushEPA
		}
		usable = append(usable, r)
	}
	if len(usable) == 0 {
		return nil, ErrNoRows
	}

	k := len(coefNames)
	if pooled {
		k = pooledCoefs
	}

	dist := make([]float64, len(usable))
	for i, r := range usable {
		dist[i] = float64(r.Distance)
	}
	effs := make([]float64, 0, len(eff))
	for _, v := range eff {
		effs = append(effs, v)
	}

	sc := Scaling{DistSD: 1, EffSD: 1}
	sc.DistMean, sc.DistSD = meanSD(dist)
	if len(effs) > 0 {
		sc.EffMean, sc.EffSD = meanSD(effs)
	}

	d := &design{
		x:       make([][]float64, len(usable)),
		y:       make([]float64, len(usable)),
		team:    make([]int, len(usable)),
		k:       k,
		scale:   sc,
		eff:     eff,
		nonzero: make([][]int, k),
		dropped: len(rows) - len(usable),
	}

	index := make(map[string]int)
	for i, r := range usable {
		var e float64
		if r.RushEPA != nil {
			e = *r.RushEPA
		}
		d.x[i] = sc.row(float64(r.Distance), r.Down, e, k)
		d.y[i] = float64(r.Pass)
		for c, v := range d.x[i] {
			if v != 0 {
				d.nonzero[c] = append(d.nonzero[c], i)
			}
		}
		if pooled {
			continue
		}
		j, ok := index[r.Team]
		if !ok {
			j = len(d.teams)
			index[r.Team] = j
			d.teams = append(d.teams, r.Team)
			d.byTeam = append(d.byTeam, nil)
		}
		d.team[i] = j
		d.byTeam[j] = append(d.byTeam[j], i)
	}
	return d, nil
}

// meanSD returns the mean and standard deviation, with an SD of 1 for degenerate input.
func meanSD(x []float64) (float64, float64) {
	if len(x) < 2 {
		if len(x) == 1 {
			return x[0], 1
		}
		return 0, 1
	}
	mean, sd := stat.MeanStdDev(x, nil)
	if sd == 0 || math.IsNaN(sd) {
		sd = 1
	}
	return mean, sd
}

func invLogit(eta float64) float64 {
	if eta >= 0 {
		return 1 / (1 + math.Exp(-eta))
	}
	e := math.Exp(eta)
	return e / (1 + e)
}

// softplus is log(1 + exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// bernoulliLogit is the log-likelihood of y in {0,1} under logit-scale eta.
func bernoulliLogit(y, eta float64) float64 {
	return y*eta - softplus(eta)
}
