package annotations

import (
	"sort"

	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/geometry"
)

// Set maps image id to substrate name to the polygons annotated for it.
// Ground truth and each submission get their own Set; they are never merged.
type Set map[string]map[string][]geometry.Polygon

// Touch records an image without adding geometry to it.
func (s Set) Touch(imageID string) map[string][]geometry.Polygon {
	bySubstrate, ok := s[imageID]
	if !ok {
		bySubstrate = make(map[string][]geometry.Polygon)
		s[imageID] = bySubstrate
	}
	return bySubstrate
}

// Add appends a polygon for a substrate on an image.
func (s Set) Add(imageID, substrate string, polygon geometry.Polygon) {
	bySubstrate := s.Touch(imageID)
	bySubstrate[substrate] = append(bySubstrate[substrate], polygon)
}

// Polygons returns the polygons of one substrate on one image.
func (s Set) Polygons(imageID, substrate string) []geometry.Polygon {
	return s[imageID][substrate]
}

// ImageIDs returns the image ids in lexical order.
func (s Set) ImageIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Instances returns the total number of polygons in the set.
func (s Set) Instances() int {
	n := 0
	for _, bySubstrate := range s {
		for _, polygons := range bySubstrate {
			n += len(polygons)
		}
	}
	return n
}

// UnknownSubstrates counts the polygons of every substrate that the catalog
// does not list. Those polygons contribute nothing to the scores.
func (s Set) UnknownSubstrates(c *catalog.Catalog) map[string]int {
	unknown := make(map[string]int)
	for _, bySubstrate := range s {
		for substrate, polygons := range bySubstrate {
			if !c.Contains(substrate) {
				unknown[substrate] += len(polygons)
			}
		}
	}
	return unknown
}

// Restrict returns the images of s that f allows. The polygon slices are
// shared with s.
func (s Set) Restrict(f Filter) Set {
	out := make(Set)
	for id, bySubstrate := range s {
		if f.Allows(id) {
			out[id] = bySubstrate
		}
	}
	return out
}
