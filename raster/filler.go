package raster

import (
	"image"
	"math"
	"slices"
	"strings"

	"github.com/nvr-ai/go-reefscore/geometry"
	"github.com/pkg/errors"
)

// Filler fills the interior of a polygon on a grid with one label, using the
// nonzero winding rule. Pixels outside the grid are clipped.
type Filler interface {
	Fill(g *Grid, p geometry.Polygon, label uint8)
}

// Filler names accepted by ParseFiller.
const (
	FillerScanline = "scanline"
	FillerOpenCV   = "opencv"
	FillerDraw2D   = "draw2d"
)

// ParseFiller returns the fill backend for a name. The empty string selects
// the scan-line filler.
func ParseFiller(name string) (Filler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FillerScanline:
		return ScanlineFiller{}, nil
	case FillerOpenCV:
		return OpenCVFiller{}, nil
	case FillerDraw2D:
		return Draw2DFiller{}, nil
	}
	return nil, errors.Errorf("unknown polygon filler %q", name)
}

// ScanlineFiller is an exact, dependency-free filler. A pixel is inside when
// its centre (x+0.5, y+0.5) lies inside the polygon under the nonzero winding
// rule, so a w*h box covers exactly w*h pixels.
type ScanlineFiller struct{}

type crossing struct {
	x   float64
	dir int
}

// Fill implements Filler.
func (ScanlineFiller) Fill(g *Grid, p geometry.Polygon, label uint8) {
	if len(p) < 3 {
		return
	}

	rows, ok := clip(p.Bounds(), g)
	if !ok {
		return
	}

	crossings := make([]crossing, 0, len(p))
	for y := rows.Min.Y; y < rows.Max.Y; y++ {
		sy := float64(y) + 0.5

		crossings = crossings[:0]
		for i := range p {
			lo, hi := p[i], p[(i+1)%len(p)]
			if lo.Y == hi.Y {
				continue
			}
			dir := 1
			if lo.Y > hi.Y {
				lo, hi = hi, lo
				dir = -1
			}
			if sy < float64(lo.Y) || sy >= float64(hi.Y) {
				continue
			}
			x := float64(lo.X) + (sy-float64(lo.Y))*float64(hi.X-lo.X)/float64(hi.Y-lo.Y)
			crossings = append(crossings, crossing{x: x, dir: dir})
		}

		slices.SortFunc(crossings, func(a, b crossing) int {
			switch {
			case a.x < b.x:
				return -1
			case a.x > b.x:
				return 1
			}
			return 0
		})

		winding := 0
		row := g.Pix[y*g.Width : (y+1)*g.Width]
		for i := 0; i+1 < len(crossings); i++ {
			winding += crossings[i].dir
			if winding == 0 {
				continue
			}
			// Pixel centres px+0.5 in [x0, x1).
			from := max(int(math.Ceil(crossings[i].x-0.5)), 0)
			to := min(int(math.Ceil(crossings[i+1].x-0.5)), g.Width)
			for x := from; x < to; x++ {
				row[x] = label
			}
		}
	}
}

// clip intersects polygon bounds with the grid. The bounds are inclusive of
// the maximum vertex, which is one past the last pixel a centre test can hit,
// so the result still covers every candidate pixel.
func clip(bounds image.Rectangle, g *Grid) (image.Rectangle, bool) {
	r := bounds.Intersect(image.Rect(0, 0, g.Width, g.Height))
	return r, !r.Empty()
}
