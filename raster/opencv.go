package raster

import (
	"image"
	"image/color"

	"github.com/nvr-ai/go-reefscore/geometry"
	"gocv.io/x/gocv"
)

// OpenCVFiller fills polygons with cv::fillPoly. Its masks include the
// polygon boundary, so a w*h box covers (w+1)*(h+1) pixels. Use it to match
// scores produced with OpenCV.
type OpenCVFiller struct{}

// Fill implements Filler.
func (OpenCVFiller) Fill(g *Grid, p geometry.Polygon, label uint8) {
	if len(p) == 0 {
		return
	}

	region, ok := clip(p.Bounds(), g)
	if !ok {
		return
	}

	// Draw into a mask covering only the polygon's bounding box; fillPoly
	// clips whatever falls outside it.
	mask := gocv.Zeros(region.Dy(), region.Dx(), gocv.MatTypeCV8UC1)
	defer mask.Close()

	shifted := make([]image.Point, len(p))
	for i, v := range p {
		shifted[i] = v.Sub(region.Min)
	}
	pts := gocv.NewPointsVectorFromPoints([][]image.Point{shifted})
	defer pts.Close()

	gocv.FillPoly(&mask, pts, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	data := mask.ToBytes()
	w := region.Dx()
	for y := 0; y < region.Dy(); y++ {
		row := g.Pix[(region.Min.Y+y)*g.Width+region.Min.X:]
		for x := 0; x < w; x++ {
			if data[y*w+x] != 0 {
				row[x] = label
			}
		}
	}
}
