package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

// tableCSV is a reference table with constant LMS for every month in [from, to].
func tableCSV(from, to int, l, m, s float64) string {
	var b strings.Builder
	b.WriteString("Month,L,M,S,P1,P5,P10,P25,P50,P75,P90,P95,P99\n")
	for month := from; month <= to; month++ {
		fmt.Fprintf(&b, "%d,%g,%g,%g", month, l, m, s)
		for _, f := range []float64{0.8, 0.85, 0.9, 0.95, 1, 1.05, 1.1, 1.15, 1.2} {
			fmt.Fprintf(&b, ",%g", m*f)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func girlsTables(dir string) {
	for name, body := range map[string]string{
		"wfa.girls.0_5.csv":  tableCSV(0, 60, 0.2, 9, 0.11),
		"lhfa.girls.0_2.csv": tableCSV(0, 24, 1, 75, 0.035),
		"hcfa.girls.0_5.csv": tableCSV(0, 60, 1, 45, 0.03),
		"bmi.girls.0_2.csv":  tableCSV(0, 24, -0.6, 16, 0.09),
	} {
		convey.So(os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600), convey.ShouldBeNil)
	}
}

func execute(args ...string) (string, error) {
	var out, logs bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTablesCommand(t *testing.T) {
	convey.Convey("Given a data directory with reference tables", t, func() {
		dir := t.TempDir()
		girlsTables(dir)

		convey.Convey("When listing tables", func() {
			out, err := execute("tables", "--data-dir", dir)

			convey.Convey("Then every partition is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "lhfa.girls.0_2.csv")
				convey.So(out, convey.ShouldContainSubstring, "head-circumference")
				convey.So(out, convey.ShouldContainSubstring, "0-24")
				convey.So(out, convey.ShouldContainSubstring, "PARTITIONS")
			})
		})

		convey.Convey("When the data directory is empty", func() {
			_, err := execute("tables", "--data-dir", t.TempDir())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestGrowthCommand(t *testing.T) {
	convey.Convey("Given reference tables and a measurement export", t, func() {
		dataDir, outDir := t.TempDir(), t.TempDir()
		girlsTables(dataDir)
		input := filepath.Join(t.TempDir(), "ada.csv")
		convey.So(os.WriteFile(input, []byte("date,weight_kg,height_cm,hc_cm\n2024-03-01,9,75,45\n2024-06-01,9.5,,\n"), 0o600), convey.ShouldBeNil)

		convey.Convey("When charting the child's growth", func() {
			out, err := execute("growth", "--data-dir", dataDir,
				"--csv", input, "--dob", "2023-09-01", "--gender", "F",
				"--name", "ada", "--savepath", outDir)

			convey.Convey("Then the standardized csv is written", func() {
				convey.So(err, convey.ShouldBeNil)
				data, err := os.ReadFile(filepath.Join(outDir, "ada_standardized.csv"))
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				convey.So(lines, convey.ShouldHaveLength, 3)
				convey.So(lines[0], convey.ShouldStartWith, "date,months,weight_kg")
				convey.So(lines[1], convey.ShouldContainSubstring, ",9,75,45,")
			})

			convey.Convey("And the report and chart are produced", func() {
				convey.So(out, convey.ShouldContainSubstring, "Head Circumference (cm)")
				convey.So(out, convey.ShouldContainSubstring, "9.00 (50.0%)")
				html, err := os.ReadFile(filepath.Join(outDir, "ada.html"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(html), convey.ShouldContainSubstring, "echarts")
			})
		})

		convey.Convey("When a prefix and the huckleberry format are chosen", func() {
			hb := filepath.Join(t.TempDir(), "hb.csv")
			convey.So(os.WriteFile(hb, []byte(
				"Type,Start,End,Duration,Start Condition,Start Location,End Condition,Notes\n"+
					"Growth,2024-03-01 10:00,,,9kg,75cm,45cm,\n"+
					"Feed,2024-03-01 11:00,,,,,,\n"), 0o600), convey.ShouldBeNil)

			_, err := execute("growth", "--data-dir", dataDir,
				"--csv", hb, "--dob", "2023-09-01", "--gender", "F",
				"--prefix", "out", "--huckleberry", "--savepath", outDir)

			convey.So(err, convey.ShouldBeNil)
			_, err = os.Stat(filepath.Join(outDir, "out_huckleberry.csv"))
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When required flags are missing", func() {
			_, err := execute("growth", "--data-dir", dataDir, "--csv", input)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the date of birth is malformed", func() {
			_, err := execute("growth", "--data-dir", dataDir, "--csv", input, "--dob", "01/09/2023", "--gender", "F")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "--dob")
		})
	})
}

func TestDownloadCommand(t *testing.T) {
	convey.Convey("Given a server publishing a reference table", t, func() {
		body := tableCSV(0, 60, 0.35, 3.3, 0.14)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tab_wfa_boys.csv" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		dir := t.TempDir()
		manifest := filepath.Join(t.TempDir(), "manifest.yaml")
		convey.So(os.WriteFile(manifest, []byte(fmt.Sprintf(`
- url: %[1]s/tab_wfa_boys.csv
  metric: wfa
  gender: boys
  age_range: "0_5"
- url: %[1]s/missing.csv
  metric: bmi
  gender: boys
  age_range: "0_5"
`, srv.URL)), 0o600), convey.ShouldBeNil)

		convey.Convey("When downloading from the manifest", func() {
			out, err := execute("download", "--output", dir, "--manifest", manifest)

			convey.Convey("Then the good table is saved and the failure reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(out, convey.ShouldContainSubstring, "wfa.boys.0_5.csv")
				convey.So(out, convey.ShouldContainSubstring, "failed")
				data, err := os.ReadFile(filepath.Join(dir, "wfa.boys.0_5.csv"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual, body)
			})

			convey.Convey("And the downloaded table can be listed", func() {
				out, err := execute("tables", "--data-dir", dir)
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "wfa.boys.0_5.csv")
			})
		})
	})
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then every subcommand is registered", func() {
			names := make([]string, 0, len(root.Commands()))
			for _, c := range root.Commands() {
				names = append(names, c.Name())
			}
			for _, want := range []string{"serve", "growth", "download", "tables"} {
				convey.So(names, convey.ShouldContain, want)
			}
		})

		convey.Convey("When the environment holds invalid configuration", func() {
			_ = os.Setenv("GROWTH_MAX_BATCH_SIZE", "0")
			defer func() { _ = os.Unsetenv("GROWTH_MAX_BATCH_SIZE") }()

			_, err := execute("tables")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
