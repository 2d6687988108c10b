// Package features turns raw play-by-play records into the goal-to-go modeling table.
package features

import (
	"encoding/binary"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/redzone-analytics/playcall/internal/models"
)

// Column names of the play frame built by playFrame.
const (
	colRow      = "row"
	colPosTeam  = "posteam"
	colWeek     = "week"
	colDown     = "down"
	colYardline = "yardline_100"
	colGoalToGo = "goal_to_go"
	colPlayType = "play_type"
	colEPA      = "epa"
)

// playFrame lays plays out as a gota frame. Missing numeric values become NaN and a
// missing play type becomes the empty string. The row column indexes back into plays.
func playFrame(plays []models.PlayRecord) dataframe.DataFrame {
	n := len(plays)
	rows := make([]int, n)
	teams := make([]string, n)
	weeks := make([]int, n)
	downs := make([]float64, n)
	yardlines := make([]float64, n)
	g2g := make([]bool, n)
	playTypes := make([]string, n)
	epas := make([]float64, n)
	for i, p := range plays {
		rows[i] = i
		teams[i] = p.PosTeam
		weeks[i] = p.Week
		downs[i] = intOrNaN(p.Down)
		yardlines[i] = intOrNaN(p.YardsToGoal)
		g2g[i] = p.GoalToGo
		if p.PlayType != nil {
			playTypes[i] = *p.PlayType
		}
		epas[i] = math.NaN()
		if p.EPA != nil {
			epas[i] = *p.EPA
		}
	}
	return dataframe.New(
		series.New(rows, series.Int, colRow),
		series.New(teams, series.String, colPosTeam),
		series.New(weeks, series.Int, colWeek),
		series.New(downs, series.Float, colDown),
		series.New(yardlines, series.Float, colYardline),
		series.New(g2g, series.Bool, colGoalToGo),
		series.New(playTypes, series.String, colPlayType),
		series.New(epas, series.Float, colEPA),
	)
}

func intOrNaN(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}

func notNA(el series.Element) bool { return !el.IsNA() }

// GoalToGo keeps plays with a known distance and play type, the goal-to-go flag set,
// a down below fourth, and a pass or run call. Everything else is dropped silently.
func GoalToGo(plays []models.PlayRecord) []models.PlayRecord {
	if len(plays) == 0 {
		return []models.PlayRecord{}
	}
	// NaN downs fail both bounds.
	kept := playFrame(plays).FilterAggregation(dataframe.And,
		dataframe.F{Colname: colGoalToGo, Comparator: series.Eq, Comparando: true},
		dataframe.F{Colname: colPlayType, Comparator: series.In, Comparando: []string{models.PlayTypePass, models.PlayTypeRun}},
		dataframe.F{Colname: colDown, Comparator: series.GreaterEq, Comparando: 1},
		dataframe.F{Colname: colDown, Comparator: series.Less, Comparando: 4},
		dataframe.F{Colname: colYardline, Comparator: series.CompFunc, Comparando: notNA},
	)
	idx, err := kept.Col(colRow).Int()
	if kept.Err != nil || err != nil {
		return []models.PlayRecord{}
	}
	out := make([]models.PlayRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, plays[i])
	}
	return out
}

// Label returns 1 for a pass call and 0 for a run call.
func Label(p models.PlayRecord) int {
	if p.IsPlayType(models.PlayTypePass) {
		return 1
	}
	return 0
}

// RushingEfficiency sums EPA over each team's run plays in weeks up to and including cutoff.
// Plays without an EPA value are skipped.
func RushingEfficiency(plays []models.PlayRecord, cutoff int) map[string]models.TeamEfficiency {
	agg := make(map[string]models.TeamEfficiency)
	if len(plays) == 0 {
		return agg
	}
	runs := playFrame(plays).FilterAggregation(dataframe.And,
		dataframe.F{Colname: colPlayType, Comparator: series.Eq, Comparando: models.PlayTypeRun},
		dataframe.F{Colname: colWeek, Comparator: series.LessEq, Comparando: cutoff},
		dataframe.F{Colname: colEPA, Comparator: series.CompFunc, Comparando: notNA},
		dataframe.F{Colname: colPosTeam, Comparator: series.Neq, Comparando: ""},
	)
	// Aggregation indexes its first group, so an empty frame never reaches it.
	if runs.Err != nil || runs.Nrow() == 0 {
		return agg
	}
	groups := runs.Select([]string{colPosTeam, colEPA}).GroupBy(colPosTeam)
	if groups == nil || groups.Err != nil {
		return agg
	}
	sums := groups.Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_SUM, dataframe.Aggregation_COUNT},
		[]string{colEPA, colEPA},
	)
	if sums.Err != nil {
		return agg
	}
	teams := sums.Col(colPosTeam).Records()
	epa := sums.Col(colEPA + "_" + dataframe.Aggregation_SUM.String()).Float()
	count := sums.Col(colEPA + "_" + dataframe.Aggregation_COUNT.String()).Float()
	for i, team := range teams {
		agg[team] = models.TeamEfficiency{
			Team:       team,
			WeekCutoff: cutoff,
			RushEPA:    epa[i],
			RushPlays:  int(count[i]),
		}
	}
	return agg
}

// Rank orders teams from most to least efficient and assigns 1-based ranks.
// Ties are broken by team abbreviation so the order is stable.
func Rank(agg map[string]models.TeamEfficiency) []models.TeamEfficiency {
	teams := make([]models.TeamEfficiency, 0, len(agg))
	for _, te := range agg {
		teams = append(teams, te)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].RushEPA != teams[j].RushEPA {
			return teams[i].RushEPA > teams[j].RushEPA
		}
		return teams[i].Team < teams[j].Team
	})
	for i := range teams {
		teams[i].Rank = i + 1
	}
	return teams
}

// TopBottom returns the n best and n worst rushing teams from a ranked list.
// Bottom is ordered worst first.
func TopBottom(ranked []models.TeamEfficiency, n int) models.TeamRanking {
	if n > len(ranked) {
		n = len(ranked)
	}
	bottom := make([]models.TeamEfficiency, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		bottom = append(bottom, ranked[i])
	}
	return models.TeamRanking{
		Teams:  ranked,
		Top:    ranked[:n],
		Bottom: bottom,
	}
}

// BuildTable filters plays to goal-to-go calls and left-joins each team's rushing
// efficiency. Teams missing from agg keep a nil RushEPA.
func BuildTable(plays []models.PlayRecord, agg map[string]models.TeamEfficiency) []models.ModelRow {
	filtered := GoalToGo(plays)
	rows := make([]models.ModelRow, 0, len(filtered))
	for _, p := range filtered {
		row := models.ModelRow{
			Team:     p.PosTeam,
			Week:     p.Week,
			Down:     *p.Down,
			Distance: *p.YardsToGoal,
			Pass:     Label(p),
		}
		if te, ok := agg[p.PosTeam]; ok {
			v := te.RushEPA
			row.RushEPA = &v
		}
		rows = append(rows, row)
	}
	return rows
}

// Fingerprint digests a modelling table. Row order does not matter, so the same plays
// read back from a different store produce the same value.
func Fingerprint(rows []models.ModelRow) string {
	var sum uint64
	buf := make([]byte, 0, 64)
	for _, r := range rows {
		buf = buf[:0]
		buf = append(buf, r.Team...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Week))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Down))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Distance))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(r.Pass))
		if r.RushEPA != nil {
			buf = append(buf, 1)
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(*r.RushEPA))
		}
		sum += xxhash.Sum64(buf)
	}
	sum += xxhash.Sum64String(strconv.Itoa(len(rows)))
	return strconv.FormatUint(sum, 16)
}
