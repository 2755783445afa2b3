package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/okian/growthchart/internal/adapters/download"
	"github.com/okian/growthchart/internal/adapters/loader"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManifest(t *testing.T) {
	Convey("Given the built-in WHO manifest", t, func() {
		ds := download.DefaultManifest()

		Convey("Then it lists every published workbook for both sexes", func() {
			So(ds, ShouldHaveLength, 12)
			So(ds[0].URL, ShouldEndWith, "tab_bmi_girls_p_0_2.xlsx")
			So(ds[1].URL, ShouldEndWith, "tab_bmi_boys_p_0_2.xlsx")
			So(ds[1].Gender, ShouldEqual, "boys")
			So(ds[1].Description, ShouldEqual, "WHO Growth Tables percentile for body mass index for age 0_2 years")
		})

		Convey("Then every file name is one the loader recognises", func() {
			for _, d := range ds {
				So(d.Validate(), ShouldBeNil)
				_, err := loader.ParseFilename(d.Filename())
				So(err, ShouldBeNil)
			}
		})

		Convey("When it is encoded and decoded", func() {
			data, err := download.MarshalManifest(ds)
			So(err, ShouldBeNil)
			back, err := download.ParseManifest(data)
			So(err, ShouldBeNil)
			So(back, ShouldResemble, ds)
		})
	})

	Convey("Given a JSON manifest", t, func() {
		data := []byte(`[{"url": "https://example.org/tab_wfa_boys_p_0_5.xlsx", "metric": "wfa", "gender": "boys", "age_range": "0_5", "description": "weight"}]`)
		ds, err := download.ParseManifest(data)

		Convey("Then it decodes as YAML", func() {
			So(err, ShouldBeNil)
			So(ds, ShouldHaveLength, 1)
			So(ds[0].Filename(), ShouldEqual, "wfa.boys.0_5.xlsx")
		})

		Convey("When an entry has no age range", func() {
			_, err := download.ParseManifest([]byte(`[{"url": "https://example.org/a.xlsx", "metric": "wfa", "gender": "boys"}]`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDownloader(t *testing.T) {
	ctx := context.Background()

	Convey("Given a server publishing workbooks", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.URL.Path == "/missing.xlsx" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("workbook:" + r.URL.Path))
		}))
		defer srv.Close()

		dir := filepath.Join(t.TempDir(), "data")
		d := download.New(dir, download.WithHTTPClient(srv.Client()), download.WithConcurrency(2))
		ds := []download.Dataset{
			{URL: srv.URL + "/tab_wfa_boys_p_0_5.xlsx", Metric: "wfa", Gender: "boys", AgeRange: "0_5"},
			{URL: srv.URL + "/tab_wfa_girls_p_0_5.xlsx", Metric: "wfa", Gender: "girls", AgeRange: "0_5"},
			{URL: srv.URL + "/missing.xlsx", Metric: "bmi", Gender: "boys", AgeRange: "0_2"},
		}

		Convey("When every dataset is downloaded", func() {
			results, err := d.DownloadAll(ctx, ds)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 3)

			Convey("Then successes are written under their canonical names", func() {
				So(results[0].OK(), ShouldBeTrue)
				So(results[0].Path, ShouldEqual, filepath.Join(dir, "wfa.boys.0_5.xlsx"))
				data, err := os.ReadFile(results[0].Path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "workbook:/tab_wfa_boys_p_0_5.xlsx")
				So(results[0].Bytes, ShouldEqual, int64(len(data)))
			})

			Convey("Then an HTTP error fails only its dataset and leaves no file", func() {
				So(results[2].OK(), ShouldBeFalse)
				So(download.Failed(results), ShouldHaveLength, 1)
				So(download.Err(results).Error(), ShouldContainSubstring, "bmi.boys.0_2.xlsx")
				_, err := os.Stat(filepath.Join(dir, "bmi.boys.0_2.xlsx"))
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("Then a second run skips files already on disk", func() {
				before := hits.Load()
				again, err := d.DownloadAll(ctx, ds[:2])
				So(err, ShouldBeNil)
				So(again[0].Skipped, ShouldBeTrue)
				So(again[1].Skipped, ShouldBeTrue)
				So(hits.Load(), ShouldEqual, before)
				So(download.Err(again), ShouldBeNil)
			})
		})
	})
}
