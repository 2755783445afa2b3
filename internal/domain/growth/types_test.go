package growth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/growthchart/internal/domain/growth"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseSex(t *testing.T) {
	Convey("Given sex spellings", t, func() {
		Convey("When parsing known aliases", func() {
			for in, want := range map[string]growth.Sex{
				"M": growth.Male, "boy": growth.Male, "Boys": growth.Male, "male": growth.Male,
				"F": growth.Female, "girl": growth.Female, " girls ": growth.Female, "FEMALE": growth.Female,
			} {
				got, err := growth.ParseSex(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When parsing an unsupported value", func() {
			_, err := growth.ParseSex("x")

			Convey("Then a lookup error is returned", func() {
				So(errors.Is(err, growth.ErrLookup), ShouldBeTrue)
			})
		})

		Convey("Then populations follow WHO file names", func() {
			So(growth.Male.Population(), ShouldEqual, "boys")
			So(growth.Female.Population(), ShouldEqual, "girls")
			So(growth.Sex("x").Valid(), ShouldBeFalse)
		})
	})
}

func TestParseMetric(t *testing.T) {
	Convey("Given metric spellings", t, func() {
		Convey("When parsing WHO codes", func() {
			for code, want := range map[string]growth.Metric{
				"wfa": growth.Weight, "lhfa": growth.Height, "hcfa": growth.HeadCircumference, "bmi": growth.BMI,
				"hc": growth.HeadCircumference, "length": growth.Height,
			} {
				got, err := growth.ParseMetric(code)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then codes round-trip", func() {
			for _, m := range growth.Metrics() {
				got, err := growth.ParseMetric(m.Code())
				So(err, ShouldBeNil)
				So(got, ShouldEqual, m)
				So(m.Valid(), ShouldBeTrue)
			}
		})

		Convey("When parsing an unknown metric", func() {
			_, err := growth.ParseMetric("armspan")
			So(errors.Is(err, growth.ErrLookup), ShouldBeTrue)
		})

		Convey("Then units match the canonical measurement units", func() {
			So(growth.Weight.Unit(), ShouldEqual, "kg")
			So(growth.Height.Unit(), ShouldEqual, "cm")
		})
	})
}

func TestAgeRange(t *testing.T) {
	Convey("Given WHO age range strings", t, func() {
		Convey("When parsing 2_5", func() {
			r, err := growth.ParseAgeRange("2_5")

			Convey("Then bounds are inclusive whole years", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, growth.AgeRange{MinYears: 2, MaxYears: 5})
				So(r.Contains(2), ShouldBeTrue)
				So(r.Contains(5), ShouldBeTrue)
				So(r.Contains(6), ShouldBeFalse)
				So(r.String(), ShouldEqual, "2_5")
			})
		})

		Convey("When parsing malformed ranges", func() {
			for _, in := range []string{"2-5", "a_5", "2_b", "5_2", "-1_2"} {
				_, err := growth.ParseAgeRange(in)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestChild(t *testing.T) {
	Convey("Given a child born on 2024-01-15", t, func() {
		now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		dob := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		child, err := growth.NewChild("ada", "F", dob, now)
		So(err, ShouldBeNil)
		So(child.Sex, ShouldEqual, growth.Female)

		Convey("Then ages are computed from the date of birth", func() {
			So(child.AgeYears(now), ShouldEqual, 1)
			So(child.AgeMonths(now), ShouldEqual, 14)
			So(child.MeasurementMonths(dob.AddDate(0, 0, 45)), ShouldEqual, 1.5)
			So(child.MeasurementMonths(dob.AddDate(0, 0, 100)), ShouldEqual, 3.33)
		})

		Convey("When the date of birth is not in the past", func() {
			_, err := growth.NewChild("ada", "F", now, now)
			So(errors.Is(err, growth.ErrInvalidChild), ShouldBeTrue)
		})

		Convey("When the sex is unknown", func() {
			_, err := growth.NewChild("ada", "x", dob, now)
			So(errors.Is(err, growth.ErrLookup), ShouldBeTrue)
		})
	})
}
