package models

// Play types kept by the goal-to-go filter.
const (
	PlayTypePass = "pass"
	PlayTypeRun  = "run"
)

// PlayRecord is one offensive play from a season of play-by-play data.
// Pointer fields are nil when the provider reported the value as missing.
type PlayRecord struct {
	Season      int      `json:"season"`
	GameID      string   `json:"game_id"`
	PlayID      int      `json:"play_id"`
	PosTeam     string   `json:"posteam"`
	DefTeam     string   `json:"defteam"`
	Week        int      `json:"week"`
	Down        *int     `json:"down"`
	YardsToGoal *int     `json:"yardline_100"`
	GoalToGo    bool     `json:"goal_to_go"`
	PlayType    *string  `json:"play_type"`
	EPA         *float64 `json:"epa"`
}

// IsPlayType reports whether the play type is present and equal to t.
func (p *PlayRecord) IsPlayType(t string) bool {
	return p.PlayType != nil && *p.PlayType == t
}

// ModelRow is one goal-to-go play prepared for the play-call model.
type ModelRow struct {
	Team     string `json:"team"`
	Week     int    `json:"week"`
	Down     int    `json:"down"`
	Distance int    `json:"distance"`
	// Pass is 1 for a pass call and 0 for a run call.
	Pass int `json:"pass"`
	// RushEPA is the team's cumulative rushing EPA, nil when the team has no aggregate.
	RushEPA *float64 `json:"rush_epa"`
}

// IntPtr, StringPtr and FloatPtr build optional play fields.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
