// Package chart renders pipeline diagnostics as self-contained HTML
// pages: the perpendicular density profile with detected peaks, and a
// field map of points colored by ridge.
package chart

import (
	"fmt"
	"io"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ridgePalette colors repeat for high ridge counts; ridge.ColorKey keeps
// the mapping stable across recomputations.
var ridgePalette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc",
}

// RenderProfile writes the density histogram as an HTML bar chart, with
// each detected peak marked on its bin.
func RenderProfile(w io.Writer, profile ridge.Profile, peaks []ridge.Peak, title string) error {
	labels := make([]string, len(profile.Bins))
	bars := make([]opts.BarData, len(profile.Bins))
	for i, b := range profile.Bins {
		labels[i] = fmt.Sprintf("%.2f", b.Center)
		bars[i] = opts.BarData{Value: b.Count}
	}

	marks := make([]opts.MarkPointNameCoordItem, len(peaks))
	for i, pk := range peaks {
		marks[i] = opts.MarkPointNameCoordItem{
			Name:       fmt.Sprintf("ridge %d", i),
			Coordinate: []interface{}{fmt.Sprintf("%.2f", pk.Center), pk.Height},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("bin width %.3g, %d bins, %d peaks", profile.BinWidth, len(profile.Bins), len(peaks)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "perpendicular offset (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "points"}),
	)
	bar.SetXAxis(labels).AddSeries("density", bars,
		charts.WithMarkPointNameCoordItemOpts(marks...),
	)
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render density chart: %w", err)
	}
	return nil
}

// RenderFieldMap writes a scatter plot of the point cloud, one series per
// ridge plus one for unassigned points, with ridge center-lines drawn
// through them.
func RenderFieldMap(w io.Writer, points *field.PointSet, assignments []ridge.Assignment, lines []ridge.Line, title string) error {
	if points == nil || points.Len() == 0 {
		return field.ErrNoPoints
	}
	if len(assignments) != points.Len() {
		return fmt.Errorf("field map: %d assignments for %d points", len(assignments), points.Len())
	}

	byRidge := map[int][]opts.ScatterData{}
	var strays []opts.ScatterData
	for i, rec := range points.Records {
		d := opts.ScatterData{Value: []interface{}{rec.Pos.X, rec.Pos.Y}}
		if a := assignments[i]; a.RidgeID >= 0 && a.IsInlier {
			byRidge[a.RidgeID] = append(byRidge[a.RidgeID], d)
		} else {
			strays = append(strays, d)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d points, %d ridges", points.Len(), len(lines)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", Scale: opts.Bool(true)}),
	)
	for r := 0; r <= maxRidge(assignments); r++ {
		if data, ok := byRidge[r]; ok {
			color := ridgePalette[ridge.ColorKey(r, len(ridgePalette))]
			scatter.AddSeries(fmt.Sprintf("ridge %d", r), data,
				charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
		}
	}
	if len(strays) > 0 {
		scatter.AddSeries("unassigned", strays,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6, Symbol: "triangle"}))
	}
	for _, ln := range lines {
		scatter.AddSeries(fmt.Sprintf("line %d", ln.RidgeIndex), []opts.ScatterData{
			{Value: []interface{}{ln.Start.X, ln.Start.Y}},
			{Value: []interface{}{ln.End.X, ln.End.Y}},
		}, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	}
	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render field map: %w", err)
	}
	return nil
}

func maxRidge(assignments []ridge.Assignment) int {
	maxID := -1
	for _, a := range assignments {
		if a.RidgeID > maxID {
			maxID = a.RidgeID
		}
	}
	return maxID
}
