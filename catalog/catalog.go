// Package catalog - Ordered substrate class enumerations.
package catalog

import (
	"strings"

	"github.com/pkg/errors"
)

// Background is the label index reserved for unannotated pixels.
const Background = 0

// BackgroundName is the display name used for the background label.
const BackgroundName = "__background__"

// MaxSubstrates is the largest number of substrates a catalog can hold.
// Label grids store one byte per pixel and index 0 is background.
const MaxSubstrates = 255

// Substrate represents one labelled class of reef surface cover.
type Substrate struct {
	// The 1-based label index written into label grids.
	Index int
	// The substrate name as it appears in annotation files.
	Name string
}

// Catalog is an immutable, ordered list of substrates.
//
// The order is significant: label indices follow it, and when polygons of
// different substrates overlap during rasterization the substrate that comes
// later in the catalog wins. Ground truth and submissions must be rasterized
// with the same catalog.
type Catalog struct {
	substrates []Substrate
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// New builds a catalog from substrate names in priority order.
//
// Arguments:
//   - names: Substrate names; the first gets index 1.
//
// Returns:
//   - *Catalog: The catalog.
//   - error: If a name is empty, duplicated, contains whitespace, or there are
//     more than MaxSubstrates names.
func New(names ...string) (*Catalog, error) {
	if len(names) == 0 {
		return nil, errors.New("catalog needs at least one substrate")
	}
	if len(names) > MaxSubstrates {
		return nil, errors.Errorf("catalog holds at most %d substrates, got %d", MaxSubstrates, len(names))
	}

	c := &Catalog{
		substrates: make([]Substrate, 0, len(names)),
		nameToIdx:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		if name == "" || strings.ContainsAny(name, " \t\r\n;,:") {
			return nil, errors.Errorf("invalid substrate name %q at position %d", name, i)
		}
		if name == BackgroundName {
			return nil, errors.Errorf("substrate name %q is reserved", name)
		}
		if _, ok := c.nameToIdx[name]; ok {
			return nil, errors.Errorf("duplicate substrate name %q", name)
		}
		c.substrates = append(c.substrates, Substrate{Index: i + 1, Name: name})
		c.nameToIdx[name] = i + 1
	}

	return c, nil
}

// MustNew is like New but panics on error. Intended for package-level
// definitions and tests.
func MustNew(names ...string) *Catalog {
	c, err := New(names...)
	if err != nil {
		panic(err)
	}
	return c
}

// CoralSubstrateNames lists the ImageCLEF coral substrates in canonical
// priority order.
var CoralSubstrateNames = []string{
	"c_algae_macro_or_leaves",
	"c_fire_coral_millepora",
	"c_hard_coral_boulder",
	"c_hard_coral_branching",
	"c_hard_coral_encrusting",
	"c_hard_coral_foliose",
	"c_hard_coral_mushroom",
	"c_hard_coral_submassive",
	"c_hard_coral_table",
	"c_soft_coral",
	"c_soft_coral_gorgonian",
	"c_sponge",
	"c_sponge_barrel",
}

// Coral returns a fresh catalog of the ImageCLEF coral substrates.
func Coral() *Catalog {
	return MustNew(CoralSubstrateNames...)
}

// Len returns the number of substrates, excluding background.
func (c *Catalog) Len() int {
	return len(c.substrates)
}

// Substrates returns a copy of the substrates in catalog order.
func (c *Catalog) Substrates() []Substrate {
	out := make([]Substrate, len(c.substrates))
	copy(out, c.substrates)
	return out
}

// Names returns the substrate names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.substrates))
	for i, s := range c.substrates {
		out[i] = s.Name
	}
	return out
}

// Index returns the label index for a substrate name.
func (c *Catalog) Index(name string) (int, bool) {
	idx, ok := c.nameToIdx[name]
	return idx, ok
}

// Contains reports whether the catalog lists the substrate.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.nameToIdx[name]
	return ok
}

// Name returns the substrate name for a label index. Index 0 yields
// BackgroundName.
func (c *Catalog) Name(idx int) (string, bool) {
	if idx == Background {
		return BackgroundName, true
	}
	if idx < 1 || idx > len(c.substrates) {
		return "", false
	}
	return c.substrates[idx-1].Name, true
}

// Equal reports whether two catalogs list the same substrates in the same
// order.
func (c *Catalog) Equal(other *Catalog) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil || len(c.substrates) != len(other.substrates) {
		return false
	}
	for i := range c.substrates {
		if c.substrates[i] != other.substrates[i] {
			return false
		}
	}
	return true
}
