package raster

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-reefscore/annotations"
	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/geometry"
	"github.com/pkg/errors"
)

// ShapeMismatchError reports geometry or grids that disagree with the
// canonical image shape.
type ShapeMismatchError struct {
	// Image is the id of the offending image.
	Image string
	// Expected is the canonical shape.
	Expected Shape
	// Got is the shape found: another grid's shape, or the extent needed by a
	// polygon.
	Got Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("image %s: shape %v does not match canonical shape %v", e.Image, e.Got, e.Expected)
}

// Rasterizer turns the polygons of an image into a label grid. Substrates are
// painted in catalog order, so where polygons of different substrates
// overlap the later catalog entry wins. Polygon area, confidence and file
// order play no part.
type Rasterizer struct {
	catalog     *catalog.Catalog
	substrates  []catalog.Substrate
	shape       Shape
	filler      Filler
	boundsCheck bool
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithFiller sets the polygon fill backend. The default is ScanlineFiller.
func WithFiller(f Filler) Option {
	return func(r *Rasterizer) {
		r.filler = f
	}
}

// WithBoundsCheck makes the rasterizer fail with ShapeMismatchError when a
// vertex lies outside the canonical shape instead of clipping it.
func WithBoundsCheck(enabled bool) Option {
	return func(r *Rasterizer) {
		r.boundsCheck = enabled
	}
}

// New creates a rasterizer for a catalog and canonical shape.
func New(c *catalog.Catalog, shape Shape, opts ...Option) (*Rasterizer, error) {
	if c == nil {
		return nil, errors.New("rasterizer needs a catalog")
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	r := &Rasterizer{
		catalog:    c,
		substrates: c.Substrates(),
		shape:      shape,
		filler:     ScanlineFiller{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.filler == nil {
		return nil, errors.New("rasterizer needs a filler")
	}

	return r, nil
}

// Shape returns the canonical shape of produced grids.
func (r *Rasterizer) Shape() Shape {
	return r.shape
}

// Catalog returns the catalog that fixes label indices and overlap priority.
func (r *Rasterizer) Catalog() *catalog.Catalog {
	return r.catalog
}

// RasterizeImage paints one image's polygons into a new grid. Substrates
// outside the catalog are ignored.
func (r *Rasterizer) RasterizeImage(imageID string, bySubstrate map[string][]geometry.Polygon) (*Grid, error) {
	grid := NewGrid(r.shape)
	if err := r.RasterizeInto(grid, imageID, bySubstrate); err != nil {
		return nil, err
	}
	return grid, nil
}

// RasterizeInto resets dst and paints one image's polygons into it, so
// callers scoring many images can reuse a grid.
func (r *Rasterizer) RasterizeInto(dst *Grid, imageID string, bySubstrate map[string][]geometry.Polygon) error {
	if dst.Shape() != r.shape {
		return &ShapeMismatchError{Image: imageID, Expected: r.shape, Got: dst.Shape()}
	}
	dst.Reset()
	for _, s := range r.substrates {
		for _, polygon := range bySubstrate[s.Name] {
			if r.boundsCheck {
				if err := r.checkBounds(imageID, polygon); err != nil {
					return err
				}
			}
			r.filler.Fill(dst, polygon, uint8(s.Index))
		}
	}
	return nil
}

// Rasterize paints every image of a set.
func (r *Rasterizer) Rasterize(set annotations.Set) (map[string]*Grid, error) {
	grids := make(map[string]*Grid, len(set))
	for imageID, bySubstrate := range set {
		grid, err := r.RasterizeImage(imageID, bySubstrate)
		if err != nil {
			return nil, err
		}
		grids[imageID] = grid
	}
	return grids, nil
}

// Rasterize paints every image of a set with the default scan-line filler.
//
// Arguments:
//   - set: Parsed annotations.
//   - shape: Canonical image shape.
//   - c: Catalog fixing label indices and overlap priority.
//
// Returns:
//   - map[string]*Grid: One grid per image id in set.
//   - error: If the shape or catalog is invalid.
func Rasterize(set annotations.Set, shape Shape, c *catalog.Catalog) (map[string]*Grid, error) {
	r, err := New(c, shape)
	if err != nil {
		return nil, err
	}
	return r.Rasterize(set)
}

func (r *Rasterizer) checkBounds(imageID string, p geometry.Polygon) error {
	if len(p) == 0 {
		return nil
	}
	// Vertices may sit on the far edge: a box ending at Width covers the last
	// column.
	b := p.Bounds()
	extent := image.Rect(0, 0, r.shape.Width+1, r.shape.Height+1)
	if b.In(extent) {
		return nil
	}
	return &ShapeMismatchError{
		Image:    imageID,
		Expected: r.shape,
		Got:      Shape{Width: max(b.Max.X-1, r.shape.Width), Height: max(b.Max.Y-1, r.shape.Height)},
	}
}
