package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/bayes"
)

func sampleFit() *bayes.Fit {
	spec := bayes.DefaultSpec()
	return &bayes.Fit{
		ID:          "7f1d1c9a-6b1e-4a53-9d8e-0c1f2e3d4b5a",
		Season:      2023,
		WeekCutoff:  18,
		Spec:        spec,
		Fingerprint: "9c4f0a7d12e3b856",
		CreatedAt:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		Names:       []string{"(Intercept)", "distance"},
		Beta:        [][]float64{{0.1, 0.2}, {0.15, 0.25}},
		Sigma:       []float64{0.4, 0.5},
		Intercepts:  map[string][]float64{"KC": {0.01, -0.02}},
		Efficiency:  map[string]float64{"KC": 12.5},
		Scaling:     bayes.Scaling{DistMean: 5, DistSD: 3, EffMean: 0, EffSD: 10},
		Rows:        2,
		Diag:        bayes.Diagnostics{RHat: map[string]float64{"distance": 1.01}, Chains: 1, ChainDraws: 2},
	}
}

func TestFitStoreRoundTrip(t *testing.T) {
	db := NewMockPgPool()
	s := NewFitStore(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	fit := sampleFit()
	require.NoError(t, s.Save(ctx, fit))

	got, err := s.Latest(ctx, fit.Meta(), fit.Spec)
	require.NoError(t, err)
	assert.Equal(t, fit, got)
}

func TestFitStoreMissingConfiguration(t *testing.T) {
	s := NewFitStore(NewMockPgPool(), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleFit()))

	other := bayes.DefaultSpec()
	other.Seed = 99
	meta := sampleFit().Meta()
	_, err := s.Latest(ctx, meta, other)
	assert.ErrorIs(t, err, ErrFitNotFound)

	pooled := bayes.DefaultSpec()
	pooled.Pooled = true
	_, err = s.Latest(ctx, meta, pooled)
	assert.ErrorIs(t, err, ErrFitNotFound)

	refreshed := meta
	refreshed.Fingerprint = "0000000000000001"
	_, err = s.Latest(ctx, refreshed, sampleFit().Spec)
	assert.ErrorIs(t, err, ErrFitNotFound, "a fit trained on other plays must not be reused")
}

func TestFitKey(t *testing.T) {
	spec := bayes.DefaultSpec()
	meta := bayes.Meta{Season: 2023, WeekCutoff: 18, Fingerprint: "ab12"}
	assert.Equal(t, "2023/w18/ab12/hierarchical/i2000/w1000/c4/s20231", FitKey(meta, spec))
	spec.Pooled = true
	meta.WeekCutoff = 16
	assert.Equal(t, "2023/w16/ab12/pooled/i2000/w1000/c4/s20231", FitKey(meta, spec))
	assert.Equal(t, "2023/w16/nodata/pooled/i2000/w1000/c4/s20231", FitKey(bayes.Meta{Season: 2023, WeekCutoff: 16}, spec))
}
