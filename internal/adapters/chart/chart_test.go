package chart_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/growthchart/internal/adapters/chart"
	"github.com/okian/growthchart/internal/adapters/ingest"
	"github.com/okian/growthchart/internal/domain/growth"
	. "github.com/smartystreets/goconvey/convey"
)

type curves map[growth.Metric][]growth.Row

func (c curves) Curve(_ context.Context, _ growth.Sex, metric growth.Metric) ([]growth.Row, error) {
	rows, ok := c[metric]
	if !ok {
		return nil, growth.ErrLookup
	}
	return rows, nil
}

func rows() []growth.Row {
	var out []growth.Row
	for m := 0; m <= 3; m++ {
		r := growth.Row{Month: float64(m), LMS: growth.LMS{L: 0.3, M: 3 + float64(m), S: 0.14}}
		for k := range r.Curves {
			r.Curves[k] = 2 + float64(m) + float64(k)*0.2
		}
		out = append(out, r)
	}
	return out
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	run := ingest.Run{
		Child: growth.Child{Name: "ada", Sex: growth.Female, DOB: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Records: []ingest.Record{{
			Measurement: ingest.Measurement{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), WeightKg: 4.1, HeightCm: math.NaN(), HeadCm: math.NaN()},
			Months:      1.03,
			BMI:         math.NaN(),
			Percentiles: map[growth.Metric]float64{growth.Weight: 48.2},
		}},
	}

	Convey("Given reference curves for weight only", t, func() {
		var buf bytes.Buffer
		err := chart.Render(ctx, &buf, curves{growth.Weight: rows()}, run)

		Convey("Then a page with the weight chart is rendered", func() {
			So(err, ShouldBeNil)
			html := buf.String()
			So(html, ShouldContainSubstring, "Weight growth percentiles")
			So(html, ShouldContainSubstring, "P50")
			So(html, ShouldContainSubstring, "Subject")
			So(html, ShouldContainSubstring, "2024-02-01 (48.2%)")
			So(html, ShouldNotContainSubstring, "Head circumference growth percentiles")
		})
	})

	Convey("Given no reference curves", t, func() {
		var buf bytes.Buffer
		err := chart.Render(ctx, &buf, curves{}, run)
		So(errors.Is(err, growth.ErrLookup), ShouldBeTrue)
	})

	Convey("Given a table without published percentiles", t, func() {
		bare := rows()
		for i := range bare {
			for k := range bare[i].Curves {
				bare[i].Curves[k] = math.NaN()
			}
		}
		line := chart.Line(growth.Weight, bare, run.Records)
		So(line.MultiSeries, ShouldHaveLength, 1)
	})
}
