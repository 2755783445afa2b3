package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/growthchart/internal/adapters/chart"
	"github.com/okian/growthchart/internal/adapters/ingest"
	"github.com/okian/growthchart/internal/adapters/report"
	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/pkg/logger"
)

type growthFlags struct {
	csv         string
	dob         string
	gender      string
	name        string
	savepath    string
	prefix      string
	huckleberry bool
	verbose     bool
}

func newGrowthCmd(e *env) *cobra.Command {
	var f growthFlags

	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Chart a child's measurements against the WHO percentiles",
		Long: "Reads a measurement export, writes it back with ages, BMI and percentiles as\n" +
			"<prefix>_standardized.csv (or <prefix>_huckleberry.csv), prints a summary table and\n" +
			"writes the percentile charts to <prefix>.html.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.verbose {
				_ = logger.SetLevelString("debug")
			}
			return runGrowth(cmd.Context(), e, f, cmd.OutOrStdout())
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.csv, "csv", "i", "", "the input measurement csv file")
	fl.StringVarP(&f.dob, "dob", "d", "", "the date of birth of the child (YYYY-MM-DD)")
	fl.StringVarP(&f.gender, "gender", "g", "", `gender of the child ("M" or "F")`)
	fl.StringVarP(&f.name, "name", "n", "child", "name of the child")
	fl.StringVarP(&f.savepath, "savepath", "s", ".", "directory for the output files")
	fl.StringVarP(&f.prefix, "prefix", "p", "", "prefix of the output files (default: the child's name)")
	fl.BoolVar(&f.huckleberry, "huckleberry", false, "the input is a Huckleberry export")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
	for _, name := range []string{"csv", "dob", "gender"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runGrowth(ctx context.Context, e *env, f growthFlags, out io.Writer) error {
	dob, err := time.Parse(time.DateOnly, f.dob)
	if err != nil {
		return fmt.Errorf("--dob: %w", err)
	}
	child, err := growth.NewChild(f.name, f.gender, dob, time.Now())
	if err != nil {
		return fmt.Errorf("--gender/--dob: %w", err)
	}
	format := ingest.FormatStandard
	if f.huckleberry {
		format = ingest.FormatHuckleberry
	}
	prefix := f.prefix
	if prefix == "" {
		prefix = child.Name
	}

	ms, err := readMeasurements(f.csv, format)
	if err != nil {
		return err
	}

	svc, err := e.service(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	run, err := ingest.NewProcessor(svc, ingest.WithLogger(e.log.Named("ingest"))).Process(ctx, child, format, ms)
	if err != nil {
		return err
	}
	e.log.Debug(ctx, "measurements processed", logger.String("run_id", run.ID), logger.Int("records", len(run.Records)))

	if err := os.MkdirAll(f.savepath, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", f.savepath, err)
	}
	csvPath := filepath.Join(f.savepath, ingest.OutputName(prefix, format))
	if err := writeFile(csvPath, func(w io.Writer) error { return ingest.WriteCSV(w, run.Records) }); err != nil {
		return err
	}

	if err := report.Write(out, run); err != nil {
		return err
	}

	htmlPath := filepath.Join(f.savepath, prefix+".html")
	if err := writeFile(htmlPath, func(w io.Writer) error { return chart.Render(ctx, w, svc, run) }); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\nWrote %s\n", csvPath, htmlPath)
	return nil
}

func readMeasurements(path string, format ingest.Format) ([]ingest.Measurement, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("--csv: %w", err)
	}
	defer func() { _ = in.Close() }()
	return ingest.Read(in, format)
}

// writeFile creates path and hands it to write, removing it again if anything fails.
func writeFile(path string, write func(io.Writer) error) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return write(out)
}
