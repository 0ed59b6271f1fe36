// Package metrics - Dataset-wide intersection/union accumulation and IoU.
package metrics

import (
	"sort"

	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/raster"
	"github.com/pkg/errors"
)

// Counts holds pixel intersection and union for one substrate.
type Counts struct {
	Intersection int64 `json:"intersection"`
	Union        int64 `json:"union"`
}

// IoU returns Intersection/Union, or 0 for an empty union.
func (c Counts) IoU() float64 {
	if c.Union == 0 {
		return 0
	}
	return float64(c.Intersection) / float64(c.Union)
}

// ImageCounts holds one image's counts, one entry per catalog substrate in
// catalog order.
type ImageCounts struct {
	ImageID string   `json:"image_id"`
	Counts  []Counts `json:"counts"`
}

// Compare counts, for every catalog substrate, the pixels labelled with it in
// both grids (intersection) and in either grid (union). A nil pred is an
// all-background prediction.
//
// Arguments:
//   - imageID: Id used in errors and in the returned counts.
//   - gt: Ground-truth grid.
//   - pred: Predicted grid, or nil.
//   - c: Catalog the grids were rasterized with.
//
// Returns:
//   - ImageCounts: Counts in catalog order.
//   - error: *raster.ShapeMismatchError if the grids differ in shape.
func Compare(imageID string, gt, pred *raster.Grid, c *catalog.Catalog) (ImageCounts, error) {
	if pred != nil && pred.Shape() != gt.Shape() {
		return ImageCounts{}, &raster.ShapeMismatchError{Image: imageID, Expected: gt.Shape(), Got: pred.Shape()}
	}

	var gtHist, predHist, both [256]int64
	if pred == nil {
		gtHist = gt.Histogram()
	} else {
		for i, g := range gt.Pix {
			p := pred.Pix[i]
			gtHist[g]++
			predHist[p]++
			if g == p {
				both[g]++
			}
		}
	}

	out := ImageCounts{ImageID: imageID, Counts: make([]Counts, c.Len())}
	for i := range out.Counts {
		label := i + 1
		out.Counts[i] = Counts{
			Intersection: both[label],
			Union:        gtHist[label] + predHist[label] - both[label],
		}
	}
	return out, nil
}

// Accumulator sums per-substrate counts over a dataset. Every catalog
// substrate starts present with zero counts. An image only contributes to a
// substrate when that substrate occurs in its ground truth or prediction.
//
// Sums are 64-bit and order-independent, so partial accumulators built by
// separate workers merge to the same totals regardless of scheduling.
type Accumulator struct {
	catalog  *catalog.Catalog
	counts   []Counts
	images   int
	perImage []ImageCounts
	record   bool
}

// AccumulatorOption configures an Accumulator.
type AccumulatorOption func(*Accumulator)

// WithPerImage keeps every image's counts for later inspection.
func WithPerImage() AccumulatorOption {
	return func(a *Accumulator) {
		a.record = true
	}
}

// NewAccumulator creates a zeroed accumulator for a catalog.
func NewAccumulator(c *catalog.Catalog, opts ...AccumulatorOption) *Accumulator {
	a := &Accumulator{
		catalog: c,
		counts:  make([]Counts, c.Len()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add folds one image's counts into the totals.
func (a *Accumulator) Add(ic ImageCounts) error {
	if len(ic.Counts) != len(a.counts) {
		return errors.Errorf("image %s has counts for %d substrates, catalog has %d",
			ic.ImageID, len(ic.Counts), len(a.counts))
	}

	a.images++
	for i, c := range ic.Counts {
		if c.Union > 0 {
			a.counts[i].Intersection += c.Intersection
			a.counts[i].Union += c.Union
		}
	}
	if a.record {
		a.perImage = append(a.perImage, ic)
	}
	return nil
}

// Merge adds another accumulator's totals into a. Both must use equal
// catalogs.
func (a *Accumulator) Merge(other *Accumulator) error {
	if !a.catalog.Equal(other.catalog) {
		return errors.New("cannot merge accumulators built with different catalogs")
	}

	a.images += other.images
	for i, c := range other.counts {
		a.counts[i].Intersection += c.Intersection
		a.counts[i].Union += c.Union
	}
	if a.record {
		a.perImage = append(a.perImage, other.perImage...)
	}
	return nil
}

// Catalog returns the accumulator's catalog.
func (a *Accumulator) Catalog() *catalog.Catalog {
	return a.catalog
}

// Images returns the number of images added, including merged ones.
func (a *Accumulator) Images() int {
	return a.images
}

// Counts returns the totals for a substrate.
func (a *Accumulator) Counts(substrate string) (Counts, bool) {
	idx, ok := a.catalog.Index(substrate)
	if !ok {
		return Counts{}, false
	}
	return a.counts[idx-1], true
}

// Totals sums the counts of all substrates.
func (a *Accumulator) Totals() Counts {
	var total Counts
	for _, c := range a.counts {
		total.Intersection += c.Intersection
		total.Union += c.Union
	}
	return total
}

// PerImage returns the recorded image counts sorted by image id. It is empty
// unless the accumulator was created WithPerImage.
func (a *Accumulator) PerImage() []ImageCounts {
	out := make([]ImageCounts, len(a.perImage))
	copy(out, a.perImage)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ImageID < out[j].ImageID
	})
	return out
}

// Accumulate compares every ground-truth grid with its prediction and sums
// the counts. Images missing from pred are scored as all background; images
// missing from gt are never scored.
func Accumulate(gt, pred map[string]*raster.Grid, c *catalog.Catalog, opts ...AccumulatorOption) (*Accumulator, error) {
	ids := make([]string, 0, len(gt))
	for id := range gt {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	acc := NewAccumulator(c, opts...)
	for _, id := range ids {
		ic, err := Compare(id, gt[id], pred[id], c)
		if err != nil {
			return nil, err
		}
		if err := acc.Add(ic); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
