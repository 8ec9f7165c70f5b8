package export

import (
	"bytes"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/barbell/internal/domain/model"
)

const (
	chartWidth      = 900
	chartHeight     = 450
	chartBarWidth   = 48
	chartBarSpacing = 24
	chartMargin     = 120
)

var (
	barColor = drawing.ColorFromHex("1f6feb") //nolint:gochecknoglobals // palette
	bgColor  = drawing.ColorWhite             //nolint:gochecknoglobals // palette
)

// TeamChart renders team totals as a PNG bar chart in standings order.
// With no teams it renders a single empty placeholder bar.
func TeamChart(teams []model.TeamScore) ([]byte, error) {
	bars := make([]chart.Value, 0, max(len(teams), 1))
	maxTotal := 1.0
	for _, t := range teams {
		v := float64(t.TotalPoints)
		maxTotal = max(maxTotal, v)
		bars = append(bars, chart.Value{
			Label: t.Team,
			Value: v,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "No team points yet"})
	}

	graph := chart.BarChart{
		Title:      "Team Points",
		Width:      max(chartWidth, len(bars)*(chartBarWidth+chartBarSpacing)+chartMargin),
		Height:     chartHeight,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpacing,
		Background: chart.Style{FillColor: bgColor, Padding: chart.Box{Top: 40}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxTotal},
		},
		Bars: bars,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
