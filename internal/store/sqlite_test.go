package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/models"
)

func samplePlays() []models.PlayRecord {
	return []models.PlayRecord{
		{
			Season: 2023, GameID: "2023_01_DET_KC", PlayID: 55, PosTeam: "KC", DefTeam: "DET", Week: 1,
			Down: models.IntPtr(1), YardsToGoal: models.IntPtr(4), GoalToGo: true,
			PlayType: models.StringPtr("run"), EPA: models.FloatPtr(0.42),
		},
		{
			Season: 2023, GameID: "2023_01_DET_KC", PlayID: 77, PosTeam: "DET", DefTeam: "KC", Week: 1,
		},
		{
			Season: 2022, GameID: "2022_05_BUF_PIT", PlayID: 12, PosTeam: "BUF", DefTeam: "PIT", Week: 5,
			Down: models.IntPtr(3), YardsToGoal: models.IntPtr(9), GoalToGo: true,
			PlayType: models.StringPtr("pass"), EPA: models.FloatPtr(-1.25),
		},
	}
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WritePlays(ctx, samplePlays()))

	got, err := s.LoadSeason(ctx, 2023)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, samplePlays()[0], got[0])

	// Missing values come back as nil, not zero.
	assert.Nil(t, got[1].Down)
	assert.Nil(t, got[1].PlayType)
	assert.Nil(t, got[1].EPA)
	assert.False(t, got[1].GoalToGo)
}

func TestSQLiteWriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	require.NoError(t, s.WritePlays(ctx, samplePlays()))
	require.NoError(t, s.WritePlays(ctx, samplePlays()))

	got, err := s.LoadSeason(ctx, 2023)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteSeasonMarker(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	ok, err := s.HasSeason(ctx, 2023)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WritePlays(ctx, samplePlays()))
	ok, err = s.HasSeason(ctx, 2023)
	require.NoError(t, err)
	assert.False(t, ok, "plays without a marker are a partial load")

	require.NoError(t, s.MarkSeason(ctx, 2023, 2))
	ok, err = s.HasSeason(ctx, 2023)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteSeason(ctx, 2023))
	ok, err = s.HasSeason(ctx, 2023)
	require.NoError(t, err)
	assert.False(t, ok)
	got, err := s.LoadSeason(ctx, 2023)
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := s.LoadSeason(ctx, 2022)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
