package bayes

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/redzone-analytics/playcall/internal/models"
)

const (
	targetAcceptance = 0.44
	adaptBatch       = 50
	rhatWarn         = 1.05
)

// Meta identifies the data a fit was trained on. Fingerprint is a digest of the
// modelling table (see features.Fingerprint).
type Meta struct {
	Season      int
	WeekCutoff  int
	Fingerprint string
}

// Sampler runs the posterior simulation for a Spec.
type Sampler struct {
	spec   Spec
	logger *zap.SugaredLogger
}

// NewSampler creates a sampler. A nil logger discards output.
func NewSampler(spec Spec, logger *zap.Logger) (*Sampler, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{spec: spec, logger: logger.Sugar()}, nil
}

// Sample is a convenience wrapper around NewSampler and Fit.
func Sample(ctx context.Context, rows []models.ModelRow, spec Spec, meta Meta, logger *zap.Logger) (*Fit, error) {
	s, err := NewSampler(spec, logger)
	if err != nil {
		return nil, err
	}
	return s.Fit(ctx, rows, meta)
}

// Fit draws from the posterior. Chains run concurrently and the first chain error (or
// context cancellation) aborts the rest.
func (s *Sampler) Fit(ctx context.Context, rows []models.ModelRow, meta Meta) (*Fit, error) {
	start := time.Now()
	d, err := newDesign(rows, s.spec.Pooled)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Fitting model",
		"pooled", s.spec.Pooled,
		"rows", len(d.y),
		"dropped", d.dropped,
		"teams", len(d.teams),
		"chains", s.spec.Chains,
		"iterations", s.spec.Iterations,
	)

	results := make([]*chainResult, s.spec.Chains)
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < s.spec.Chains; c++ {
		g.Go(func() error {
			ch := newChain(d, s.spec, uint64(c))
			res, err := ch.run(gctx)
			if err != nil {
				return fmt.Errorf("chain %d: %w", c, err)
			}
			results[c] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fit := s.assemble(d, results, meta)
	kind := modelKind(s.spec.Pooled)
	fitDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	samplerAcceptance.WithLabelValues(kind).Set(fit.Diag.Acceptance)
	for name, r := range fit.Diag.RHat {
		parameterRHat.WithLabelValues(kind, name).Set(r)
		if r > rhatWarn {
			s.logger.Warnw("Chains may not have mixed", "parameter", name, "rhat", r)
		}
	}

	s.logger.Infow("Model fitted",
		"fit_id", fit.ID,
		"pooled", s.spec.Pooled,
		"draws", fit.NumDraws(),
		"acceptance", fit.Diag.Acceptance,
		"duration", time.Since(start),
	)
	return fit, nil
}

func (s *Sampler) assemble(d *design, results []*chainResult, meta Meta) *Fit {
	perChain := s.spec.Iterations - s.spec.Warmup
	total := perChain * len(results)

	fit := &Fit{
		ID:          uuid.New().String(),
		Season:      meta.Season,
		WeekCutoff:  meta.WeekCutoff,
		Fingerprint: meta.Fingerprint,
		Spec:        s.spec,
		CreatedAt:   time.Now().UTC(),
		Names:       append([]string(nil), coefNames[:d.k]...),
		Beta:        make([][]float64, 0, total),
		Efficiency:  d.eff,
		Scaling:     d.scale,
		Rows:        len(d.y),
	}
	if !s.spec.Pooled {
		fit.Sigma = make([]float64, 0, total)
		fit.Intercepts = make(map[string][]float64, len(d.teams))
		for _, t := range d.teams {
			fit.Intercepts[t] = make([]float64, 0, total)
		}
	}

	var accepted, proposed int
	for _, r := range results {
		fit.Beta = append(fit.Beta, r.beta...)
		if !s.spec.Pooled {
			fit.Sigma = append(fit.Sigma, r.sigma...)
			for j, t := range d.teams {
				fit.Intercepts[t] = append(fit.Intercepts[t], r.u[j]...)
			}
		}
		accepted += r.accepted
		proposed += r.proposed
	}

	fit.Diag = Diagnostics{
		RHat:        make(map[string]float64, d.k+1),
		ChainDraws:  perChain,
		Chains:      len(results),
		DroppedRows: d.dropped,
	}
	if proposed > 0 {
		fit.Diag.Acceptance = float64(accepted) / float64(proposed)
	}
	for k, name := range fit.Names {
		chains := make([][]float64, len(results))
		for c, r := range results {
			chains[c] = make([]float64, len(r.beta))
			for i, b := range r.beta {
				chains[c][i] = b[k]
			}
		}
		fit.Diag.setRHat(name, SplitRHat(chains))
	}
	if !s.spec.Pooled {
		chains := make([][]float64, len(results))
		for c, r := range results {
			chains[c] = r.sigma
		}
		fit.Diag.setRHat("sigma", SplitRHat(chains))
	}
	return fit
}

func modelKind(pooled bool) string {
	if pooled {
		return "pooled"
	}
	return "hierarchical"
}

type chainResult struct {
	beta     [][]float64
	u        [][]float64 // team × draw
	sigma    []float64
	accepted int
	proposed int
}

// chain holds one Markov chain's state. eta caches the linear predictor per row so a
// single-parameter update only touches the rows it affects.
type chain struct {
	d    *design
	spec Spec
	rng  *rand.Rand

	beta     []float64
	u        []float64
	logSigma float64
	eta      []float64

	betaPrior  distuv.Normal
	sigmaPrior distuv.Exponential

	// Proposal scales and acceptance counters for beta, u and log sigma, in that order.
	scale    []float64
	accepts  []int
	accepted int
	proposed int
}

func newChain(d *design, spec Spec, id uint64) *chain {
	nTeams := len(d.teams)
	nParams := d.k + nTeams + 1
	c := &chain{
		d:          d,
		spec:       spec,
		rng:        rand.New(rand.NewPCG(spec.Seed, id)),
		beta:       make([]float64, d.k),
		u:          make([]float64, nTeams),
		eta:        make([]float64, len(d.y)),
		betaPrior:  distuv.Normal{Mu: 0, Sigma: spec.PriorScale},
		sigmaPrior: distuv.Exponential{Rate: spec.SigmaRate},
		scale:      make([]float64, nParams),
		accepts:    make([]int, nParams),
	}

	// Over-dispersed starting point so R-hat has something to detect.
	for k := range c.beta {
		c.beta[k] = 0.5 * c.rng.NormFloat64()
		c.scale[k] = 0.1
	}
	for j := range c.u {
		c.u[j] = 0.1 * c.rng.NormFloat64()
		c.scale[d.k+j] = 0.3
	}
	c.logSigma = math.Log(0.5) + 0.2*c.rng.NormFloat64()
	c.scale[nParams-1] = 0.3

	for i, x := range d.x {
		var eta float64
		for k, v := range x {
			eta += c.beta[k] * v
		}
		if nTeams > 0 {
			eta += c.u[d.team[i]]
		}
		c.eta[i] = eta
	}
	return c
}

func (c *chain) run(ctx context.Context) (*chainResult, error) {
	keep := c.spec.Iterations - c.spec.Warmup
	nTeams := len(c.u)
	res := &chainResult{
		beta: make([][]float64, 0, keep),
	}
	if nTeams > 0 {
		res.u = make([][]float64, nTeams)
		for j := range res.u {
			res.u[j] = make([]float64, 0, keep)
		}
		res.sigma = make([]float64, 0, keep)
	}

	for it := 0; it < c.spec.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for k := range c.beta {
			c.updateBeta(k)
		}
		if nTeams > 0 {
			for j := range c.u {
				c.updateIntercept(j)
			}
			c.updateLogSigma()
		}

		if it < c.spec.Warmup {
			if (it+1)%adaptBatch == 0 {
				c.adapt((it + 1) / adaptBatch)
			}
			continue
		}

		res.beta = append(res.beta, append([]float64(nil), c.beta...))
		if nTeams > 0 {
			for j, v := range c.u {
				res.u[j] = append(res.u[j], v)
			}
			res.sigma = append(res.sigma, math.Exp(c.logSigma))
		}
	}

	res.accepted = c.accepted
	res.proposed = c.proposed
	return res, nil
}

func (c *chain) updateBeta(k int) {
	delta := c.scale[k] * c.rng.NormFloat64()
	logRatio := c.betaPrior.LogProb(c.beta[k]+delta) - c.betaPrior.LogProb(c.beta[k])
	for _, i := range c.d.nonzero[k] {
		step := delta * c.d.x[i][k]
		logRatio += bernoulliLogit(c.d.y[i], c.eta[i]+step) - bernoulliLogit(c.d.y[i], c.eta[i])
	}
	if !c.accept(k, logRatio) {
		return
	}
	c.beta[k] += delta
	for _, i := range c.d.nonzero[k] {
		c.eta[i] += delta * c.d.x[i][k]
	}
}

func (c *chain) updateIntercept(j int) {
	p := c.d.k + j
	sigma := math.Exp(c.logSigma)
	delta := c.scale[p] * c.rng.NormFloat64()
	prior := distuv.Normal{Mu: 0, Sigma: sigma}
	logRatio := prior.LogProb(c.u[j]+delta) - prior.LogProb(c.u[j])
	for _, i := range c.d.byTeam[j] {
		logRatio += bernoulliLogit(c.d.y[i], c.eta[i]+delta) - bernoulliLogit(c.d.y[i], c.eta[i])
	}
	if !c.accept(p, logRatio) {
		return
	}
	c.u[j] += delta
	for _, i := range c.d.byTeam[j] {
		c.eta[i] += delta
	}
}

// updateLogSigma works on log σ; the +log σ term is the Jacobian of that transform.
func (c *chain) updateLogSigma() {
	p := len(c.scale) - 1
	proposal := c.logSigma + c.scale[p]*c.rng.NormFloat64()
	logRatio := c.logSigmaDensity(proposal) - c.logSigmaDensity(c.logSigma)
	if c.accept(p, logRatio) {
		c.logSigma = proposal
	}
}

func (c *chain) logSigmaDensity(logSigma float64) float64 {
	sigma := math.Exp(logSigma)
	prior := distuv.Normal{Mu: 0, Sigma: sigma}
	lp := c.sigmaPrior.LogProb(sigma) + logSigma
	for _, v := range c.u {
		lp += prior.LogProb(v)
	}
	return lp
}

func (c *chain) accept(p int, logRatio float64) bool {
	c.proposed++
	if math.IsNaN(logRatio) {
		return false
	}
	if logRatio >= 0 || math.Log(c.rng.Float64()) < logRatio {
		c.accepted++
		c.accepts[p]++
		return true
	}
	return false
}

// adapt nudges each proposal scale toward the target acceptance rate. The step shrinks
// with the batch number so the scales settle before warmup ends.
func (c *chain) adapt(batch int) {
	step := math.Min(0.1, 1/math.Sqrt(float64(batch)))
	for p := range c.scale {
		rate := float64(c.accepts[p]) / adaptBatch
		if rate > targetAcceptance {
			c.scale[p] *= math.Exp(step)
		} else {
			c.scale[p] *= math.Exp(-step)
		}
		c.accepts[p] = 0
	}
	c.accepted = 0
	c.proposed = 0
}
