package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/redzone-analytics/playcall/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"pct":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"sign": func(v float64) string { return fmt.Sprintf("%+.1f", v) },
	"seq": func(lo, hi int) []int {
		out := make([]int, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			out = append(out, i)
		}
		return out
	},
}).ParseFS(templateFS, "templates/*.html"))

// DashboardData feeds the interactive page.
type DashboardData struct {
	Season      int
	Ranking     *models.TeamRanking
	Selected    models.Scenario
	MaxDistance int
	Summary     *models.PredictionSummary
	// Histogram is pre-rendered SVG markup.
	Histogram template.HTML
	Error     string
}

// ReportData feeds the static per-team report.
type ReportData struct {
	Report    *models.TeamReport
	Histogram template.HTML
}

// DownTable is one down's block of report rows.
type DownTable struct {
	Down int
	Rows []models.ScenarioRow
}

// Tables groups the report rows by down, in order.
func (d ReportData) Tables() []DownTable {
	var out []DownTable
	for _, row := range d.Report.Rows {
		if len(out) == 0 || out[len(out)-1].Down != row.Down {
			out = append(out, DownTable{Down: row.Down})
		}
		out[len(out)-1].Rows = append(out[len(out)-1].Rows, row)
	}
	return out
}

func Dashboard(data DashboardData) templ.Component {
	return render("dashboard.html", data)
}

func Report(data ReportData) templ.Component {
	return render("report.html", data)
}

// RenderHistogram is the featured or requested histogram as safe markup.
func RenderHistogram(title string, s *models.PredictionSummary) template.HTML {
	if s == nil {
		return ""
	}
	return template.HTML(HistogramSVG(title, s.Histogram, s.Pass, s.LeaguePass))
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}
