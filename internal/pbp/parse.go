package pbp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/redzone-analytics/playcall/internal/models"
)

// ErrEmptySeason means the source held no plays for the requested season.
var ErrEmptySeason = errors.New("pbp: no plays for season")

// Columns is the subset of the provider's schema the model needs, in output order.
var Columns = []string{
	"season", "game_id", "play_id", "posteam", "defteam", "week",
	"down", "yardline_100", "goal_to_go", "play_type", "epa",
}

var columnTypes = map[string]series.Type{
	"season":       series.Float,
	"game_id":      series.String,
	"play_id":      series.Float,
	"posteam":      series.String,
	"defteam":      series.String,
	"week":         series.Float,
	"down":         series.Float,
	"yardline_100": series.Float,
	"goal_to_go":   series.Float,
	"play_type":    series.String,
	"epa":          series.Float,
}

// Provider spellings of a missing value.
var naValues = []string{"NA", "NaN", "<nil>", ""}

// ParseCSV reads a play-by-play CSV. Only the model's columns are kept, so full provider
// files with hundreds of columns parse in bounded memory. Rows without a season, game,
// play id or week are skipped; every other missing value becomes nil.
func ParseCSV(r io.Reader) ([]models.PlayRecord, error) {
	records, err := project(r)
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, ErrEmptySeason
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(columnTypes),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load play-by-play frame: %w", df.Err)
	}
	return fromFrame(df), nil
}

// project streams the CSV and keeps only Columns.
func project(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptySeason
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	pick := make([]int, len(Columns))
	for i, name := range Columns {
		j, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("play-by-play source is missing column %q", name)
		}
		pick[i] = j
	}

	records := [][]string{append([]string(nil), Columns...)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records), err)
		}
		row := make([]string, len(pick))
		for i, j := range pick {
			row[i] = rec[j]
		}
		records = append(records, row)
	}
	return records, nil
}

func fromFrame(df dataframe.DataFrame) []models.PlayRecord {
	season := df.Col("season")
	gameID := df.Col("game_id")
	playID := df.Col("play_id")
	posteam := df.Col("posteam")
	defteam := df.Col("defteam")
	week := df.Col("week")
	down := df.Col("down")
	yards := df.Col("yardline_100")
	goal := df.Col("goal_to_go")
	playType := df.Col("play_type")
	epa := df.Col("epa")

	plays := make([]models.PlayRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if season.Elem(i).IsNA() || gameID.Elem(i).IsNA() || playID.Elem(i).IsNA() || week.Elem(i).IsNA() {
			continue
		}
		plays = append(plays, models.PlayRecord{
			Season:      int(season.Elem(i).Float()),
			GameID:      gameID.Elem(i).String(),
			PlayID:      int(playID.Elem(i).Float()),
			PosTeam:     optString(posteam.Elem(i)),
			DefTeam:     optString(defteam.Elem(i)),
			Week:        int(week.Elem(i).Float()),
			Down:        optInt(down.Elem(i)),
			YardsToGoal: optInt(yards.Elem(i)),
			GoalToGo:    !goal.Elem(i).IsNA() && goal.Elem(i).Float() == 1,
			PlayType:    optStringPtr(playType.Elem(i)),
			EPA:         optFloat(epa.Elem(i)),
		})
	}
	return plays
}

func optString(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	return e.String()
}

func optStringPtr(e series.Element) *string {
	if e.IsNA() {
		return nil
	}
	return models.StringPtr(e.String())
}

func optInt(e series.Element) *int {
	if e.IsNA() {
		return nil
	}
	return models.IntPtr(int(math.Round(e.Float())))
}

func optFloat(e series.Element) *float64 {
	if e.IsNA() {
		return nil
	}
	return models.FloatPtr(e.Float())
}
