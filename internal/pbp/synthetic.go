package pbp

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/redzone-analytics/playcall/internal/models"
)

// Teams is the league's 32 franchise abbreviations as the provider spells them.
var Teams = []string{
	"ARI", "ATL", "BAL", "BUF", "CAR", "CHI", "CIN", "CLE",
	"DAL", "DEN", "DET", "GB", "HOU", "IND", "JAX", "KC",
	"LA", "LAC", "LV", "MIA", "MIN", "NE", "NO", "NYG",
	"NYJ", "PHI", "PIT", "SEA", "SF", "TB", "TEN", "WAS",
}

// SyntheticOptions shapes a generated season.
type SyntheticOptions struct {
	Season       int
	Weeks        int
	PlaysPerTeam int
	Seed         uint64
	Teams        []string
}

func (o *SyntheticOptions) defaults() {
	if o.Season == 0 {
		o.Season = 2023
	}
	if o.Weeks <= 0 {
		o.Weeks = 18
	}
	if o.PlaysPerTeam <= 0 {
		o.PlaysPerTeam = 65
	}
	if len(o.Teams) == 0 {
		o.Teams = Teams
	}
}

// Synthesize generates a plausible season of play-by-play rows. Each team gets a latent
// rushing quality that drives both its run EPA and, inversely, how often it passes near
// the goal line, so the generated data carries the signal the model looks for. The
// output is deterministic for a given seed.
func Synthesize(opts SyntheticOptions) []models.PlayRecord {
	opts.defaults()
	rng := rand.New(rand.NewPCG(opts.Seed, uint64(opts.Season)))
	unit := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	quality := make(map[string]float64, len(opts.Teams))
	tendency := make(map[string]float64, len(opts.Teams))
	for _, t := range opts.Teams {
		q := unit.Rand()
		quality[t] = q
		tendency[t] = -0.6*q + 0.3*unit.Rand()
	}

	var plays []models.PlayRecord
	teams := append([]string(nil), opts.Teams...)
	for week := 1; week <= opts.Weeks; week++ {
		rng.Shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })
		for g := 0; g+1 < len(teams); g += 2 {
			away, home := teams[g], teams[g+1]
			gameID := fmt.Sprintf("%d_%02d_%s_%s", opts.Season, week, away, home)
			playID := 1
			for _, side := range [][2]string{{away, home}, {home, away}} {
				off, def := side[0], side[1]
				for n := 0; n < opts.PlaysPerTeam; n++ {
					p := synthPlay(rng, unit, quality[off], tendency[off])
					p.Season = opts.Season
					p.GameID = gameID
					p.PlayID = playID
					p.PosTeam = off
					p.DefTeam = def
					p.Week = week
					plays = append(plays, p)
					playID++
				}
			}
		}
	}
	return plays
}

func synthPlay(rng *rand.Rand, unit distuv.Normal, quality, tendency float64) models.PlayRecord {
	var p models.PlayRecord

	// A small share of rows are administrative and carry no down or play type.
	if rng.Float64() < 0.04 {
		p.PlayType = models.StringPtr("no_play")
		return p
	}

	down := 1 + rng.IntN(4)
	yards := 1 + rng.IntN(99)
	// Bias field position toward the red zone so goal-to-go plays are not too rare.
	if rng.Float64() < 0.25 {
		yards = 1 + rng.IntN(12)
	}
	p.Down = models.IntPtr(down)
	p.YardsToGoal = models.IntPtr(yards)
	p.GoalToGo = yards <= 10 && rng.Float64() < 0.7

	if down == 4 && rng.Float64() < 0.7 {
		kind := "punt"
		if yards < 35 {
			kind = "field_goal"
		}
		p.PlayType = models.StringPtr(kind)
		return p
	}

	eta := -0.1 + 0.12*float64(min(yards, 15)-4) + tendency
	switch down {
	case 2:
		eta += 0.25
	case 3:
		eta += 0.8
	}
	if !p.GoalToGo {
		eta += 0.3
	}

	if rng.Float64() < 1/(1+math.Exp(-eta)) {
		p.PlayType = models.StringPtr(models.PlayTypePass)
		p.EPA = models.FloatPtr(0.05 + 1.3*unit.Rand())
	} else {
		p.PlayType = models.StringPtr(models.PlayTypeRun)
		p.EPA = models.FloatPtr(-0.08 + 0.12*quality + 0.9*unit.Rand())
	}

	if rng.Float64() < 0.02 {
		p.EPA = nil
	}
	return p
}

// WriteCSV writes plays in the provider's column layout, using NA for missing values.
func WriteCSV(w io.Writer, plays []models.PlayRecord) error {
	records := make([][]string, 0, len(plays)+1)
	records = append(records, append([]string(nil), Columns...))
	for _, p := range plays {
		goal := "0"
		if p.GoalToGo {
			goal = "1"
		}
		records = append(records, []string{
			strconv.Itoa(p.Season),
			p.GameID,
			strconv.Itoa(p.PlayID),
			naString(p.PosTeam),
			naString(p.DefTeam),
			strconv.Itoa(p.Week),
			naInt(p.Down),
			naInt(p.YardsToGoal),
			goal,
			naStringPtr(p.PlayType),
			naFloat(p.EPA),
		})
	}
	if len(records) == 1 {
		_, err := io.WriteString(w, joinHeader()+"\n")
		return err
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return fmt.Errorf("build play-by-play frame: %w", df.Err)
	}
	return df.WriteCSV(w)
}

func joinHeader() string {
	out := Columns[0]
	for _, c := range Columns[1:] {
		out += "," + c
	}
	return out
}

func naString(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}

func naStringPtr(s *string) string {
	if s == nil {
		return "NA"
	}
	return *s
}

func naInt(v *int) string {
	if v == nil {
		return "NA"
	}
	return strconv.Itoa(*v)
}

func naFloat(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
