package annotations

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Filter is a set of image ids. A nil Filter allows every image; a non-nil
// empty Filter allows none.
type Filter map[string]struct{}

// NewFilter builds a filter from image ids.
func NewFilter(ids ...string) Filter {
	f := make(Filter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

// Allows reports whether the image passes the filter.
func (f Filter) Allows(imageID string) bool {
	if f == nil {
		return true
	}
	_, ok := f[imageID]
	return ok
}

// IDs returns the filtered image ids in lexical order.
func (f Filter) IDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReadFilter reads a subset listing: the first whitespace-separated field of
// every non-blank line is an image id. Subset files are usually ground-truth
// extracts, so the remaining fields are ignored.
func ReadFilter(r io.Reader, source string) (Filter, error) {
	f := make(Filter)
	err := scanLines(r, func(line int, text string) error {
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return nil
		}
		f[fields[0]] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read subset %s", source)
	}
	return f, nil
}

// LoadFilter reads a subset listing from a file.
func LoadFilter(path string) (Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open subset file")
	}
	defer file.Close()

	return ReadFilter(file, path)
}
