package views

import (
	"fmt"
	"strings"

	"github.com/redzone-analytics/playcall/internal/models"
)

// Chart geometry, in SVG user units.
const (
	chartWidth   = 600
	chartHeight  = 320
	chartPadding = 44
)

// Palette shared by the histogram and the pages.
const (
	colorBars     = "#4a90e2"
	colorInterval = "#f5a623"
	colorMedian   = "#e74c3c"
	colorLeague   = "#9b9b9b"
	colorInk      = "#ffffff"
	colorCanvas   = "#1a1a1a"
)

// HistogramSVG draws a pass-probability histogram on a 0-100 axis, with the HDI shaded,
// the median marked and, when given, the league-average median dashed.
func HistogramSVG(title string, bins []models.HistogramBin, pass models.Stat, league *models.Stat) string {
	plotW := chartWidth - 2*chartPadding
	plotH := chartHeight - 2*chartPadding
	baseY := chartHeight - chartPadding
	xOf := func(pct float64) float64 {
		pct = min(max(pct, 0), 100)
		return float64(chartPadding) + pct/100*float64(plotW)
	}

	maxCount := 0
	for _, b := range bins {
		maxCount = max(maxCount, b.Count)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" role="img">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&sb, `<rect width="100%%" height="100%%" fill="%s" />`, colorCanvas)
	fmt.Fprintf(&sb, `<text x="%d" y="26" fill="%s" font-family="Arial" font-size="16" text-anchor="middle">%s</text>`,
		chartWidth/2, colorInk, escape(title))

	// Interval band sits behind the bars.
	fmt.Fprintf(&sb, `<rect x="%.1f" y="%d" width="%.1f" height="%d" fill="%s" fill-opacity="0.18" />`,
		xOf(pass.Lower), chartPadding, xOf(pass.Upper)-xOf(pass.Lower), plotH, colorInterval)

	for _, b := range bins {
		if maxCount == 0 {
			break
		}
		h := float64(b.Count) / float64(maxCount) * float64(plotH)
		x0, x1 := xOf(b.Lower), xOf(b.Upper)
		w := max(x1-x0-1, 1)
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="1" />`,
			x0, float64(baseY)-h, w, h, colorBars)
	}

	fmt.Fprintf(&sb, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="2" />`,
		xOf(pass.Median), chartPadding, xOf(pass.Median), baseY, colorMedian)
	fmt.Fprintf(&sb, `<text x="%.1f" y="%d" fill="%s" font-family="Arial" font-size="11" text-anchor="middle">median %.1f%%</text>`,
		xOf(pass.Median), chartPadding-6, colorMedian, pass.Median)

	if league != nil {
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="2" stroke-dasharray="6 4" />`,
			xOf(league.Median), chartPadding, xOf(league.Median), baseY, colorLeague)
	}

	// X axis with a tick every 10 points.
	fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2" />`,
		chartPadding, baseY, chartWidth-chartPadding, baseY, colorInk)
	for pct := 0; pct <= 100; pct += 10 {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" fill="%s" font-family="Arial" font-size="10" text-anchor="middle">%d</text>`,
			xOf(float64(pct)), baseY+16, colorInk, pct)
	}
	fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="%s" font-family="Arial" font-size="11" text-anchor="middle">pass probability (%%)</text>`,
		chartWidth/2, chartHeight-8, colorInk)

	sb.WriteString(`</svg>`)
	return sb.String()
}

var svgEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return svgEscaper.Replace(s)
}
