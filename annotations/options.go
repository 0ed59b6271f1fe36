// Package annotations - Decoding of ground-truth and submission files into
// per-image, per-substrate polygons.
package annotations

import (
	"strconv"
	"strings"

	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/pkg/errors"
)

// Dialect selects how geometry is encoded in annotation files.
type Dialect string

// Dialect constants
const (
	// DialectBox encodes axis-aligned boxes as width, height, x, y.
	DialectBox Dialect = "box"
	// DialectPolygon encodes arbitrary polygons as alternating x, y values.
	DialectPolygon Dialect = "polygon"
)

// ParseDialect accepts a dialect name or the benchmark task number that uses
// it ("1" for boxes, "2" for polygons).
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "box", "boxes", "1":
		return DialectBox, nil
	case "polygon", "polygons", "2":
		return DialectPolygon, nil
	}
	return "", errors.Errorf("unknown annotation dialect %q", s)
}

// DialectForTask maps a benchmark task number to its dialect.
func DialectForTask(task int) (Dialect, error) {
	return ParseDialect(strconv.Itoa(task))
}

// Validate returns an error for anything but DialectBox and DialectPolygon.
func (d Dialect) Validate() error {
	switch d {
	case DialectBox, DialectPolygon:
		return nil
	}
	return errors.Errorf("unknown annotation dialect %q", string(d))
}

// Policy decides what happens to substrates missing from the catalog.
type Policy string

// Policy constants
const (
	// PolicyLenient keeps unknown substrates in the Set. They are never
	// rasterized and are reported through Set.UnknownSubstrates.
	PolicyLenient Policy = "lenient"
	// PolicyStrict fails with UnknownSubstrateError.
	PolicyStrict Policy = "strict"
)

// ParsePolicy parses a policy name. The empty string means lenient.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", errors.Errorf("unknown substrate policy %q", s)
}

// Options configures parsing of one annotation source.
type Options struct {
	// Dialect of the geometry fields.
	Dialect Dialect
	// Filter restricts parsing to a set of image ids. Nil keeps every image.
	Filter Filter
	// Policy for substrates outside Catalog. Empty means lenient.
	Policy Policy
	// Catalog is consulted by the strict policy.
	Catalog *catalog.Catalog
}

func (o Options) validate() error {
	if err := o.Dialect.Validate(); err != nil {
		return err
	}
	if _, err := ParsePolicy(string(o.Policy)); err != nil {
		return err
	}
	if o.Policy == PolicyStrict && o.Catalog == nil {
		return errors.New("strict substrate policy needs a catalog")
	}
	return nil
}

func (o Options) checkSubstrate(source string, line int, substrate string) error {
	if o.Policy != PolicyStrict || o.Catalog.Contains(substrate) {
		return nil
	}
	return &UnknownSubstrateError{Source: source, Line: line, Substrate: substrate}
}
