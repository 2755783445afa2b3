package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/okian/growthchart/internal/domain/growth"
)

// Columns written by WriteCSV.
var outputHeader = []string{
	"date", "months", "weight_kg", "height_cm", "hc_cm", "bmi",
	"weight_percentile", "height_percentile", "hc_percentile", "bmi_percentile",
}

// OutputName is the file name of a run's CSV for prefix.
func OutputName(prefix string, format Format) string {
	return fmt.Sprintf("%s_%s.csv", prefix, suffix(format))
}

func suffix(format Format) string {
	if format == FormatHuckleberry {
		return "huckleberry"
	}
	return "standardized"
}

// WriteCSV writes records with the output header. Missing readings are left empty.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outputHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(time.DateOnly),
			num(r.Months),
			num(r.WeightKg),
			num(r.HeightCm),
			num(r.HeadCm),
			num(r.BMI),
			num(r.Percentiles[growth.Weight]),
			num(r.Percentiles[growth.Height]),
			num(r.Percentiles[growth.HeadCircumference]),
			num(r.Percentiles[growth.BMI]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
