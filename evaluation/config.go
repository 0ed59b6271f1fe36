// Package evaluation - Orchestration of parse, rasterize and score over
// ground truth and submission runs.
package evaluation

import (
	"os"
	"runtime"

	"github.com/nvr-ai/go-reefscore/annotations"
	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/raster"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of an evaluation.
type Config struct {
	// Dialect of both inputs: "box" or "polygon", or the task number 1 or 2.
	Dialect annotations.Dialect `json:"dialect" yaml:"dialect"`
	// Shape is the canonical image resolution every grid is rasterized at.
	Shape raster.Shape `json:"shape" yaml:"shape"`
	// Workers is the number of images scored concurrently. Zero means one per
	// CPU.
	Workers int `json:"workers" yaml:"workers"`
	// UnknownSubstrates is the policy for substrates outside the catalog.
	UnknownSubstrates annotations.Policy `json:"unknownSubstrates" yaml:"unknownSubstrates"`
	// Filler names the polygon fill backend: scanline, opencv or draw2d.
	Filler string `json:"filler" yaml:"filler"`
	// BoundsCheck rejects polygons reaching outside Shape instead of clipping.
	BoundsCheck bool `json:"boundsCheck" yaml:"boundsCheck"`
	// Substrates overrides the catalog. Order sets overlap priority.
	Substrates []string `json:"substrates,omitempty" yaml:"substrates,omitempty"`
	// PerImage keeps every image's counts in the accumulator.
	PerImage bool `json:"perImage" yaml:"perImage"`
}

// DefaultConfig returns the settings of the coral polygon task.
//
// Returns:
//   - Config: Polygon dialect, 3024x4032 images, one worker per CPU, lenient
//     unknown substrates, scan-line filling, coral catalog.
func DefaultConfig() Config {
	return Config{
		Dialect:           annotations.DialectPolygon,
		Shape:             raster.DefaultShape,
		Workers:           runtime.NumCPU(),
		UnknownSubstrates: annotations.PolicyLenient,
		Filler:            raster.FillerScanline,
	}
}

// LoadConfig reads a YAML config file. Keys it does not set keep their
// DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}

	return cfg.Normalize()
}

// Normalize validates the config and resolves aliases such as task numbers
// for dialects.
func (c Config) Normalize() (Config, error) {
	dialect, err := annotations.ParseDialect(string(c.Dialect))
	if err != nil {
		return c, err
	}
	c.Dialect = dialect

	policy, err := annotations.ParsePolicy(string(c.UnknownSubstrates))
	if err != nil {
		return c, err
	}
	c.UnknownSubstrates = policy

	if err := c.Shape.Validate(); err != nil {
		return c, err
	}

	if c.Workers < 0 {
		return c, errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}

	if _, err := raster.ParseFiller(c.Filler); err != nil {
		return c, err
	}

	if _, err := c.Catalog(); err != nil {
		return c, err
	}

	return c, nil
}

// Catalog builds the configured catalog, the coral catalog by default.
func (c Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Substrates) == 0 {
		return catalog.Coral(), nil
	}
	return catalog.New(c.Substrates...)
}
