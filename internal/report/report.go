// Package report renders a persisted session's lap and sector times as
// charts, the way the teacher project's monitor package renders debug
// charts: gonum/plot for a static PNG, go-echarts for an interactive
// HTML page, both driven off the same underlying samples.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rapid-timing/rapid/internal/session"
	"github.com/rapid-timing/rapid/internal/stats"
)

// LapPoint is a single plotted sample: lap number against its time, in
// seconds.
type LapPoint struct {
	Lap     int
	Seconds float64
}

// LapPoints extracts one point per lap from a session, in lap order.
func LapPoints(s session.Session) []LapPoint {
	points := make([]LapPoint, len(s.Laps))
	for i, lap := range s.Laps {
		points[i] = LapPoint{Lap: i + 1, Seconds: time.Duration(lap.Laptime()).Seconds()}
	}
	return points
}

// RenderPNG writes a static line chart of lap times to path, using
// gonum/plot.
func RenderPNG(s session.Session, path string) error {
	points := LapPoints(s)
	if len(points) == 0 {
		return fmt.Errorf("report: session %s has no completed laps", s.Track.Name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s — %s %s", s.Track.Name, s.Date, s.Time)
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Time (s)"

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: float64(pt.Lap), Y: pt.Seconds}
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("report: build line plot: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("report: build scatter plot: %w", err)
	}
	p.Add(scatter)
	p.Legend.Add("lap time", line)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save chart: %w", err)
	}
	return nil
}

// RenderHTML writes an interactive lap-time chart to w, using go-echarts.
func RenderHTML(s session.Session, w io.Writer) error {
	points := LapPoints(s)
	if len(points) == 0 {
		return fmt.Errorf("report: session %s has no completed laps", s.Track.Name)
	}

	x := make([]string, len(points))
	y := make([]opts.LineData, len(points))
	for i, pt := range points {
		x[i] = fmt.Sprintf("Lap %d", pt.Lap)
		y[i] = opts.LineData{Value: pt.Seconds}
	}

	subtitle := fmt.Sprintf("%s %s", s.Date, s.Time)
	if summary, ok := stats.SummarizeSession(s); ok {
		subtitle = fmt.Sprintf("%s — best %s, mean %s", subtitle, summary.BestLap, summary.MeanLap)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Track.Name, Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{Title: s.Track.Name, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Time (s)"}),
	)
	line.SetXAxis(x).AddSeries("lap time", y, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("report: render chart: %w", err)
	}
	return nil
}
