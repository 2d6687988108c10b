package models

import "time"

// Scenario is one goal-to-go situation a coordinator wants a forecast for.
type Scenario struct {
	Team     string `json:"team" validate:"required,min=2,max=4"`
	Down     int    `json:"down" validate:"required,min=1,max=3"`
	Distance int    `json:"distance" validate:"required,min=1,max=15"`
}

// Stat summarises a set of posterior draws on the percent scale.
type Stat struct {
	Median float64 `json:"median"`
	MAD    float64 `json:"mad"`
	Lower  float64 `json:"hdi_lower"`
	Upper  float64 `json:"hdi_upper"`
}

// HistogramBin is one bar of a posterior histogram, percent scale.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// PredictionSummary is the posterior predictive forecast for a scenario.
type PredictionSummary struct {
	Scenario    Scenario       `json:"scenario"`
	FitID       string         `json:"fit_id"`
	Draws       int            `json:"draws"`
	Mass        float64        `json:"hdi_mass"`
	Pass        Stat           `json:"pass"`
	Run         Stat           `json:"run"`
	LeaguePass  *Stat          `json:"league_pass,omitempty"`
	Histogram   []HistogramBin `json:"histogram"`
	RushEPA     float64        `json:"rush_epa"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ScenarioRow is one line of a team report table.
type ScenarioRow struct {
	Down     int  `json:"down"`
	Distance int  `json:"distance"`
	Pass     Stat `json:"pass"`
	Run      Stat `json:"run"`
}

// TeamReport is the content of the static per-team report.
type TeamReport struct {
	Team        TeamEfficiency     `json:"team"`
	Season      int                `json:"season"`
	FitID       string             `json:"fit_id"`
	Rows        []ScenarioRow      `json:"rows"`
	Featured    *PredictionSummary `json:"featured"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Coefficient is a posterior summary of one model parameter.
type Coefficient struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Lower  float64 `json:"hdi_lower"`
	Upper  float64 `json:"hdi_upper"`
	RHat   float64 `json:"rhat"`
}

// ModelSummary describes the fitted model behind the predictions.
type ModelSummary struct {
	FitID        string        `json:"fit_id"`
	Season       int           `json:"season"`
	WeekCutoff   int           `json:"week_cutoff"`
	Pooled       bool          `json:"pooled"`
	Rows         int           `json:"rows"`
	Teams        int           `json:"teams"`
	Draws        int           `json:"draws"`
	Coefficients []Coefficient `json:"coefficients"`
	Acceptance   float64       `json:"mean_acceptance"`
	CreatedAt    time.Time     `json:"created_at"`
}
