package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redzone-analytics/playcall/internal/models"
)

func play(team string, week, down, ytg int, g2g bool, playType string, epa float64) models.PlayRecord {
	return models.PlayRecord{
		PosTeam:     team,
		Week:        week,
		Down:        models.IntPtr(down),
		YardsToGoal: models.IntPtr(ytg),
		GoalToGo:    g2g,
		PlayType:    models.StringPtr(playType),
		EPA:         models.FloatPtr(epa),
	}
}

func samplePlays() []models.PlayRecord {
	missingDown := play("KC", 3, 1, 4, true, "pass", 0.2)
	missingDown.Down = nil
	missingType := play("KC", 3, 1, 4, true, "run", 0.2)
	missingType.PlayType = nil
	missingDistance := play("BUF", 4, 2, 3, true, "run", -0.1)
	missingDistance.YardsToGoal = nil
	missingEPA := play("BUF", 5, 1, 2, true, "run", 0)
	missingEPA.EPA = nil

	return []models.PlayRecord{
		play("KC", 1, 1, 5, true, "pass", 0.5),
		play("KC", 1, 2, 3, true, "run", -0.3),
		play("KC", 2, 3, 1, true, "run", 1.1),
		play("KC", 2, 4, 1, true, "run", 2.0),       // fourth down
		play("KC", 2, 1, 9, false, "pass", 0.1),     // not goal-to-go
		play("BUF", 3, 1, 7, true, "field_goal", 0), // not pass/run
		play("BUF", 16, 2, 6, true, "run", 0.4),
		play("BUF", 17, 1, 8, true, "run", -0.9),
		play("NYJ", 17, 2, 2, true, "pass", 0.3),
		play("NYJ", 10, 1, 12, false, "run", -0.6),
		missingDown,
		missingType,
		missingDistance,
		missingEPA,
	}
}

func TestGoalToGo(t *testing.T) {
	got := GoalToGo(samplePlays())
	// the play without an EPA value is still a valid call
	require.Len(t, got, 7)

	for _, p := range got {
		assert.True(t, p.GoalToGo)
		assert.NotNil(t, p.Down)
		assert.Less(t, *p.Down, 4)
		assert.True(t, p.IsPlayType(models.PlayTypePass) || p.IsPlayType(models.PlayTypeRun))
	}
}

func TestGoalToGoIdempotent(t *testing.T) {
	once := GoalToGo(samplePlays())
	twice := GoalToGo(once)
	assert.Equal(t, once, twice)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, 1, Label(play("KC", 1, 1, 1, true, "pass", 0)))
	assert.Equal(t, 0, Label(play("KC", 1, 1, 1, true, "run", 0)))
}

func TestRushingEfficiency(t *testing.T) {
	agg := RushingEfficiency(samplePlays(), 18)

	kc := agg["KC"]
	assert.InDelta(t, -0.3+1.1+2.0, kc.RushEPA, 1e-9)
	assert.Equal(t, 3, kc.RushPlays)

	buf := agg["BUF"]
	// the missing-distance run still counts, the missing-EPA run does not
	assert.InDelta(t, -0.1+0.4-0.9, buf.RushEPA, 1e-9)
	assert.Equal(t, 3, buf.RushPlays)

	_, ok := agg["NYJ"]
	assert.True(t, ok)
}

func TestRushingEfficiencyMonotoneExtension(t *testing.T) {
	plays := samplePlays()
	through16 := RushingEfficiency(plays, 16)
	through17 := RushingEfficiency(plays, 17)

	week17 := make(map[string]float64)
	for _, p := range plays {
		if p.Week == 17 && p.EPA != nil && p.IsPlayType(models.PlayTypeRun) {
			week17[p.PosTeam] += *p.EPA
		}
	}

	for team, te := range through17 {
		assert.InDelta(t, through16[team].RushEPA+week17[team], te.RushEPA, 1e-9, team)
	}
}

func TestRankAndTopBottom(t *testing.T) {
	agg := map[string]models.TeamEfficiency{
		"A": {Team: "A", RushEPA: 10},
		"B": {Team: "B", RushEPA: -4},
		"C": {Team: "C", RushEPA: 3},
		"D": {Team: "D", RushEPA: 3},
		"E": {Team: "E", RushEPA: -20},
	}
	ranked := Rank(agg)
	require.Len(t, ranked, 5)
	assert.Equal(t, []string{"A", "C", "D", "B", "E"}, teamsOf(ranked))
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 5, ranked[4].Rank)

	tb := TopBottom(ranked, 3)
	assert.Equal(t, []string{"A", "C", "D"}, teamsOf(tb.Top))
	assert.Equal(t, []string{"E", "B", "D"}, teamsOf(tb.Bottom))

	small := TopBottom(ranked[:2], 3)
	assert.Len(t, small.Top, 2)
	assert.Len(t, small.Bottom, 2)
}

func TestBuildTableLeftJoin(t *testing.T) {
	plays := samplePlays()
	agg := RushingEfficiency(plays, 18)
	delete(agg, "NYJ")

	rows := BuildTable(plays, agg)
	require.Len(t, rows, 7)
	for _, r := range rows {
		if r.Team == "NYJ" {
			assert.Nil(t, r.RushEPA)
			assert.Equal(t, 1, r.Pass)
			continue
		}
		require.NotNil(t, r.RushEPA, r.Team)
		assert.Equal(t, agg[r.Team].RushEPA, *r.RushEPA)
	}
}

func TestGoalToGoEmpty(t *testing.T) {
	assert.Empty(t, GoalToGo(nil))
	assert.Empty(t, GoalToGo([]models.PlayRecord{play("KC", 1, 4, 1, true, "run", 0)}))
}

func TestRushingEfficiencySkipsUnattributedRuns(t *testing.T) {
	plays := []models.PlayRecord{
		play("", 1, 1, 3, true, "run", 5),
		play("KC", 1, 1, 3, false, "run", 0.25),
		play("KC", 2, 2, 8, false, "pass", 3),
	}
	agg := RushingEfficiency(plays, 18)
	require.Len(t, agg, 1)
	assert.InDelta(t, 0.25, agg["KC"].RushEPA, 1e-12)
	assert.Equal(t, 1, agg["KC"].RushPlays)
	assert.Equal(t, 18, agg["KC"].WeekCutoff)

	assert.Empty(t, RushingEfficiency(plays[2:], 18))
}

func TestFingerprint(t *testing.T) {
	plays := samplePlays()
	rows := BuildTable(plays, RushingEfficiency(plays, 18))
	fp := Fingerprint(rows)
	assert.NotEmpty(t, fp)

	reversed := make([]models.ModelRow, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}
	assert.Equal(t, fp, Fingerprint(reversed))

	changed := append([]models.ModelRow(nil), rows...)
	changed[0].Distance++
	assert.NotEqual(t, fp, Fingerprint(changed))
	assert.NotEqual(t, fp, Fingerprint(rows[1:]))
	assert.NotEqual(t, fp, Fingerprint(BuildTable(plays, RushingEfficiency(plays, 16))))
}

func teamsOf(ts []models.TeamEfficiency) []string {
	out := make([]string, len(ts))
	for i, te := range ts {
		out[i] = te.Team
	}
	return out
}
