// Package report formats processed measurements as a console table.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/okian/growthchart/internal/adapters/ingest"
	"github.com/okian/growthchart/internal/domain/growth"
)

var header = table.Row{"Date", "Month", "Weight (Kg)", "Height (cm)", "Head Circumference (cm)", "BMI"}

// Table renders a run as a box-drawn table, one row per measurement date.
func Table(run ingest.Run) string {
	tbl := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	tbl.SetStyle(style)
	tbl.SetTitle(fmt.Sprintf("%s (%s)", run.Child.Name, run.Child.Sex))
	tbl.AppendHeader(header)

	for _, r := range run.Records {
		tbl.AppendRow(table.Row{
			r.Date.Format(time.DateOnly),
			fmt.Sprintf("%.2f", r.Months),
			cell(r.WeightKg, r.Percentiles[growth.Weight]),
			cell(r.HeightCm, r.Percentiles[growth.Height]),
			cell(r.HeadCm, r.Percentiles[growth.HeadCircumference]),
			cell(r.BMI, r.Percentiles[growth.BMI]),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d measurements", len(run.Records))})
	return tbl.Render()
}

// Write prints the table followed by a newline.
func Write(w io.Writer, run ingest.Run) error {
	_, err := fmt.Fprintln(w, Table(run))
	return err
}

func cell(v, pct float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f (%.1f%%)", v, pct)
}
