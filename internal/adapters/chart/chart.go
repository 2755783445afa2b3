// Package chart renders a child's measurements over the WHO percentile curves as an HTML page.
package chart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/okian/growthchart/internal/adapters/ingest"
	"github.com/okian/growthchart/internal/domain/growth"
)

// Curves returns the merged reference rows for a sex and metric.
type Curves interface {
	Curve(ctx context.Context, sex growth.Sex, metric growth.Metric) ([]growth.Row, error)
}

// palette runs cold to hot across growth.PercentileLevels.
var palette = [len(growth.PercentileLevels)]string{
	"#3b7fb8", "#4c9ed9", "#7fb8d9", "#a7c8d9", "#2b2b2b", "#d9a7a0", "#d97f6a", "#d9533b", "#b82b1e",
}

const (
	subjectColour = "#e00000"
	curveWidth    = 1
)

var titles = map[growth.Metric]string{
	growth.Weight:            "Weight growth percentiles",
	growth.BMI:               "BMI growth percentiles",
	growth.Height:            "Height growth percentiles",
	growth.HeadCircumference: "Head circumference growth percentiles",
}

// plotOrder is the page order of the charts.
var plotOrder = []growth.Metric{growth.Weight, growth.BMI, growth.Height, growth.HeadCircumference}

// Render writes one chart per metric to w. Metrics without reference curves are left out.
func Render(ctx context.Context, w io.Writer, curves Curves, run ingest.Run) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s growth percentiles", run.Child.Name)

	var added int
	for _, metric := range plotOrder {
		rows, err := curves.Curve(ctx, run.Child.Sex, metric)
		if errors.Is(err, growth.ErrLookup) {
			continue
		}
		if err != nil {
			return fmt.Errorf("curve %s: %w", metric, err)
		}
		page.AddCharts(Line(metric, rows, run.Records))
		added++
	}
	if added == 0 {
		return fmt.Errorf("%w: no reference curves for %s", growth.ErrLookup, run.Child.Sex)
	}
	return page.Render(w)
}

// Line builds one metric's chart: a line per published percentile and the subject's readings as points.
func Line(metric growth.Metric, rows []growth.Row, records []ingest.Record) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: titles[metric]}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30px"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Age (months)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: metric.Unit(), Scale: opts.Bool(true)}),
	)

	for k, level := range growth.PercentileLevels {
		data := make([]opts.LineData, 0, len(rows))
		for _, r := range rows {
			if math.IsNaN(r.Curves[k]) {
				continue
			}
			data = append(data, opts.LineData{Value: []any{r.Month, r.Curves[k]}})
		}
		if len(data) == 0 {
			continue
		}
		line.AddSeries("P"+strconv.Itoa(level), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[k]}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: curveWidth}),
		)
	}

	points := make([]opts.LineData, 0, len(records))
	for _, r := range records {
		v := r.Value(metric)
		if math.IsNaN(v) || v == 0 {
			continue
		}
		points = append(points, opts.LineData{
			Value:  []any{r.Months, v},
			Name:   fmt.Sprintf("%s (%.1f%%)", r.Date.Format("2006-01-02"), r.Percentiles[metric]),
			Symbol: "circle",
		})
	}
	line.AddSeries("Subject", points,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: subjectColour}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: 0, Opacity: opts.Float(0)}),
	)
	return line
}
