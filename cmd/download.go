package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/growthchart/internal/adapters/download"
)

func newDownloadCmd(e *env) *cobra.Command {
	var output, manifest string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the WHO reference tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = e.cfg.DataDir
			}
			if manifest == "" {
				manifest = e.cfg.ManifestPath
			}

			datasets := download.DefaultManifest()
			if manifest != "" {
				var err error
				if datasets, err = download.LoadManifest(manifest); err != nil {
					return err
				}
			}

			d := download.New(output,
				download.WithConcurrency(e.cfg.DownloadConcurrency),
				download.WithTimeout(time.Duration(e.cfg.DownloadTimeoutSec)*time.Second),
				download.WithLogger(e.log.Named("download")),
			)
			results, err := d.DownloadAll(cmd.Context(), datasets)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return download.Err(results)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to save the tables in (default: the data directory)")
	cmd.Flags().StringVarP(&manifest, "manifest", "t", "", "YAML or JSON manifest of the tables to fetch (default: built in)")
	return cmd
}

func printResults(w io.Writer, results []download.Result) {
	ok := color.New(color.FgGreen).SprintFunc()
	skip := color.New(color.FgYellow).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	for _, r := range results {
		name := r.Dataset.Filename()
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", fail("failed "), name, r.Err)
		case r.Skipped:
			fmt.Fprintf(w, "%s %s\n", skip("exists "), name)
		default:
			fmt.Fprintf(w, "%s %s (%s)\n", ok("fetched"), name, humanize.Bytes(uint64(r.Bytes)))
		}
	}
}
