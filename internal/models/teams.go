package models

// TeamEfficiency is a team's cumulative rushing efficiency up to a week cutoff.
type TeamEfficiency struct {
	Team       string  `json:"team"`
	RushEPA    float64 `json:"rush_epa"`
	RushPlays  int     `json:"rush_plays"`
	WeekCutoff int     `json:"week_cutoff"`
	Rank       int     `json:"rank"`
}

// TeamRanking groups the most and least efficient rushing teams for illustration.
type TeamRanking struct {
	Teams  []TeamEfficiency `json:"teams"`
	Top    []TeamEfficiency `json:"top"`
	Bottom []TeamEfficiency `json:"bottom"`
}
