package annotations

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-reefscore/geometry"
	"github.com/pkg/errors"
)

// Ground-truth rows: image id, annotation id, substrate, a fourth unused
// field, then geometry.
const (
	gtImageField     = 0
	gtSubstrateField = 2
	gtGeometryField  = 4
	boxFields        = 4
)

// ParseGroundTruth decodes a ground-truth file with one annotated instance per
// row.
//
// Arguments:
//   - r: The ground-truth rows.
//   - source: Name used in errors, usually the file path.
//   - opts: Dialect, image filter and substrate policy.
//
// Returns:
//   - Set: The polygons per image and substrate.
//   - error: *ParseError for malformed rows, *UnknownSubstrateError under the
//     strict policy.
func ParseGroundTruth(r io.Reader, source string, opts Options) (Set, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	set := make(Set)
	err := scanLines(r, func(line int, text string) error {
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return nil
		}
		if !opts.Filter.Allows(fields[gtImageField]) {
			return nil
		}
		if len(fields) <= gtGeometryField {
			return &ParseError{Source: source, Line: line, Reason: "missing geometry fields"}
		}

		substrate := fields[gtSubstrateField]
		if err := opts.checkSubstrate(source, line, substrate); err != nil {
			return err
		}

		values, err := parseInts(fields[gtGeometryField:])
		if err != nil {
			return &ParseError{Source: source, Line: line, Reason: "non-integer geometry", Err: err}
		}

		var polygon geometry.Polygon
		switch opts.Dialect {
		case DialectBox:
			if len(values) != boxFields {
				return &ParseError{
					Source: source,
					Line:   line,
					Reason: "box needs width, height, x, y; got " + strconv.Itoa(len(values)) + " values",
				}
			}
			polygon = geometry.Box{Width: values[0], Height: values[1], X: values[2], Y: values[3]}.Polygon()
		case DialectPolygon:
			if polygon, err = pairUp(values); err != nil {
				return &ParseError{Source: source, Line: line, Reason: "bad polygon", Err: err}
			}
		}

		set.Add(fields[gtImageField], substrate, polygon)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

// ParseSubmission decodes a submission file with one row per image:
//
//	<image>;<substrate> <conf>:<geom>,<conf>:<geom>;<substrate> ...
//
// Box geometry is "<w>x<h>+<x>+<y>", polygon geometry is "x1+y1+x2+y2+...".
// Confidences must be numeric but are otherwise ignored.
//
// Arguments:
//   - r: The submission rows.
//   - source: Name used in errors, usually the file path.
//   - opts: Dialect, image filter and substrate policy.
//
// Returns:
//   - Set: The polygons per image and substrate.
//   - error: *ParseError for malformed rows, *UnknownSubstrateError under the
//     strict policy.
func ParseSubmission(r io.Reader, source string, opts Options) (Set, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	set := make(Set)
	err := scanLines(r, func(line int, text string) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}

		groups := strings.Split(text, ";")
		imageID := strings.TrimSpace(groups[0])
		if imageID == "" {
			return &ParseError{Source: source, Line: line, Reason: "missing image id"}
		}
		if !opts.Filter.Allows(imageID) {
			return nil
		}
		set.Touch(imageID)

		for _, group := range groups[1:] {
			if strings.TrimSpace(group) == "" {
				continue
			}

			fields := strings.Fields(group)
			if len(fields) != 2 {
				return &ParseError{
					Source: source,
					Line:   line,
					Reason: "prediction group must be \"<substrate> <polygons>\", got " + strconv.Quote(group),
				}
			}

			substrate := fields[0]
			if err := opts.checkSubstrate(source, line, substrate); err != nil {
				return err
			}

			for _, entry := range strings.Split(fields[1], ",") {
				polygon, err := parseSubmissionEntry(entry, opts.Dialect)
				if err != nil {
					return &ParseError{Source: source, Line: line, Reason: "bad entry " + strconv.Quote(entry), Err: err}
				}
				set.Add(imageID, substrate, polygon)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

// LoadGroundTruth opens and parses a ground-truth file.
func LoadGroundTruth(path string, opts Options) (Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ground truth")
	}
	defer file.Close()

	return ParseGroundTruth(file, path, opts)
}

// LoadSubmission opens and parses a submission file.
func LoadSubmission(path string, opts Options) (Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open submission")
	}
	defer file.Close()

	return ParseSubmission(file, path, opts)
}

func parseSubmissionEntry(entry string, dialect Dialect) (geometry.Polygon, error) {
	confidence, geom, ok := strings.Cut(entry, ":")
	if !ok {
		return nil, errors.New("expected <confidence>:<geometry>")
	}
	// Confidence is validated but not used for scoring.
	if _, err := strconv.ParseFloat(confidence, 64); err != nil {
		return nil, errors.Wrap(err, "confidence")
	}

	switch dialect {
	case DialectBox:
		return parseBox(geom)
	case DialectPolygon:
		values, err := parseInts(strings.Split(geom, "+"))
		if err != nil {
			return nil, err
		}
		return pairUp(values)
	}
	return nil, errors.Errorf("unknown annotation dialect %q", string(dialect))
}

// parseBox decodes "<w>x<h>+<x>+<y>".
func parseBox(geom string) (geometry.Polygon, error) {
	parts := strings.Split(geom, "+")
	if len(parts) != 3 {
		return nil, errors.Errorf("box must be <w>x<h>+<x>+<y>, got %q", geom)
	}
	w, h, ok := strings.Cut(parts[0], "x")
	if !ok {
		return nil, errors.Errorf("box size must be <w>x<h>, got %q", parts[0])
	}
	values, err := parseInts([]string{w, h, parts[1], parts[2]})
	if err != nil {
		return nil, err
	}
	return geometry.Box{Width: values[0], Height: values[1], X: values[2], Y: values[3]}.Polygon(), nil
}

func parseInts(fields []string) ([]int, error) {
	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// pairUp consumes alternating x, y values into vertices.
func pairUp(values []int) (geometry.Polygon, error) {
	if len(values) == 0 {
		return nil, errors.New("polygon has no vertices")
	}
	if len(values)%2 != 0 {
		return nil, errors.Errorf("polygon needs an even number of coordinates, got %d", len(values))
	}
	polygon := make(geometry.Polygon, len(values)/2)
	for i := range polygon {
		polygon[i].X = values[2*i]
		polygon[i].Y = values[2*i+1]
	}
	return polygon, nil
}

// scanLines calls fn for every line of r with its 1-based number. Lines have
// no length limit; submission rows hold every prediction of an image.
func scanLines(r io.Reader, fn func(line int, text string) error) error {
	br := bufio.NewReader(r)
	for line := 1; ; line++ {
		text, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "read")
		}
		if text != "" || err == nil {
			if ferr := fn(line, strings.TrimRight(text, "\r\n")); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}
