package pbp

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redzone-analytics/playcall/internal/models"
)

const sampleCSV = `play_id,game_id,home_team,season,posteam,defteam,week,down,yardline_100,goal_to_go,play_type,epa,desc
1,2023_01_DET_KC,KC,2023,NA,NA,1,NA,NA,0,NA,NA,"GAME START"
55,2023_01_DET_KC,KC,2023,KC,DET,1,1,4,1,run,0.4213,"I.Pacheco left tackle, ""short"""
56.0,2023_01_DET_KC,KC,2023,KC,DET,1,2.0,2,1,pass,-1.5,"P.Mahomes pass incomplete"
57,2023_01_DET_KC,KC,2023,KC,DET,1,3,2,1,pass,,"P.Mahomes pass to T.Kelce"
58,2023_01_DET_KC,KC,NA,KC,DET,1,4,2,1,field_goal,0.9,"no season"
`

func TestParseCSV(t *testing.T) {
	plays, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, plays, 4, "row without a season is skipped")

	start := plays[0]
	assert.Equal(t, 1, start.PlayID)
	assert.Equal(t, "", start.PosTeam)
	assert.Nil(t, start.Down)
	assert.Nil(t, start.PlayType)
	assert.Nil(t, start.EPA)
	assert.False(t, start.GoalToGo)

	run := plays[1]
	assert.Equal(t, models.PlayRecord{
		Season: 2023, GameID: "2023_01_DET_KC", PlayID: 55, PosTeam: "KC", DefTeam: "DET", Week: 1,
		Down: models.IntPtr(1), YardsToGoal: models.IntPtr(4), GoalToGo: true,
		PlayType: models.StringPtr("run"), EPA: models.FloatPtr(0.4213),
	}, run)

	// Float-formatted integers are accepted.
	assert.Equal(t, 56, plays[2].PlayID)
	assert.Equal(t, 2, *plays[2].Down)

	// Empty cells are missing values.
	assert.Nil(t, plays[3].EPA)
	assert.True(t, plays[3].IsPlayType(models.PlayTypePass))
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		msg     string
	}{
		{"empty input", "", ErrEmptySeason, ""},
		{"header only", strings.Join(Columns, ",") + "\n", ErrEmptySeason, ""},
		{"missing column", "season,game_id,play_id\n2023,g,1\n", nil, `missing column "posteam"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseCSV() error = %v, want %v", err, tt.wantErr)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}
