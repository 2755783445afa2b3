// Package download fetches the WHO reference workbooks named by a manifest into a data directory.
package download

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/growthchart/internal/domain/growth"
)

// ErrInvalidDataset reports a manifest entry that cannot be downloaded or named.
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is one manifest entry. The JSON manifests written by earlier tooling are valid YAML
// and decode through the same tags.
type Dataset struct {
	URL         string `yaml:"url" json:"url"`
	Metric      string `yaml:"metric" json:"metric"`
	Gender      string `yaml:"gender" json:"gender"`
	AgeRange    string `yaml:"age_range" json:"age_range"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

var extPattern = regexp.MustCompile(`\.(\w+)$`)

// Validate checks the entry names a URL and a well-formed age range.
func (d Dataset) Validate() error {
	if strings.TrimSpace(d.URL) == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidDataset)
	}
	if d.Metric == "" || d.Gender == "" {
		return fmt.Errorf("%w: %s: metric and gender are required", ErrInvalidDataset, d.URL)
	}
	if _, err := growth.ParseAgeRange(d.AgeRange); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDataset, d.URL, err)
	}
	if !extPattern.MatchString(d.URL) {
		return fmt.Errorf("%w: %s: no file extension", ErrInvalidDataset, d.URL)
	}
	return nil
}

// Filename is the on-disk name, "<metric>.<gender>.<age_range>.<ext>".
func (d Dataset) Filename() string {
	ext := "bin"
	if m := extPattern.FindStringSubmatch(d.URL); m != nil {
		ext = m[1]
	}
	return fmt.Sprintf("%s.%s.%s.%s", d.Metric, d.Gender, d.AgeRange, ext)
}

// ParseManifest decodes a YAML (or JSON) list of datasets.
func ParseManifest(data []byte) ([]Dataset, error) {
	var ds []Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
	}
	return ds, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(file string) ([]Dataset, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// MarshalManifest encodes datasets as YAML.
func MarshalManifest(ds []Dataset) ([]byte, error) {
	return yaml.Marshal(ds)
}

const whoBase = "https://cdn.who.int/media/docs/default-source/child-growth/child-growth-standards/indicators/"

// whoTables lists the published percentile workbooks for girls; boys' URLs differ only in the population.
var whoTables = []struct {
	metric growth.Metric
	urls   []string
}{
	{growth.BMI, []string{
		whoBase + "body-mass-index-for-age/tab_bmi_girls_p_0_2.xlsx",
		whoBase + "body-mass-index-for-age/tab_bmi_girls_p_2_5.xlsx",
	}},
	{growth.HeadCircumference, []string{
		whoBase + "head-circumference-for-age/tab_hcfa_girls_p_0_5.xlsx",
	}},
	{growth.Weight, []string{
		whoBase + "weight-for-age/tab_wfa_girls_p_0_5.xlsx",
	}},
	{growth.Height, []string{
		whoBase + "length-height-for-age/tab_lhfa_girls_p_0_2.xlsx",
		whoBase + "length-height-for-age/tab_lhfa_girls_p_2_5.xlsx",
	}},
}

var agePattern = regexp.MustCompile(`p_(\d+_\d+)`)

var descriptions = map[growth.Metric]string{
	growth.BMI:               "WHO Growth Tables percentile for body mass index for age %s years",
	growth.HeadCircumference: "WHO Growth Tables for head circumference for age %s years",
	growth.Weight:            "WHO Growth Tables for weight for age %s years",
	growth.Height:            "WHO Growth Tables for length/height for age %s years",
}

// DefaultManifest returns the WHO 0-5 year percentile workbooks for both sexes.
func DefaultManifest() []Dataset {
	var ds []Dataset
	for _, t := range whoTables {
		for _, girls := range t.urls {
			for _, sex := range growth.Sexes() {
				url := strings.Replace(girls, "girls", sex.Population(), 1)
				ages := agePattern.FindStringSubmatch(path.Base(url))[1]
				ds = append(ds, Dataset{
					URL:         url,
					Metric:      t.metric.Code(),
					Gender:      sex.Population(),
					AgeRange:    ages,
					Description: fmt.Sprintf(descriptions[t.metric], ages),
				})
			}
		}
	}
	return ds
}
