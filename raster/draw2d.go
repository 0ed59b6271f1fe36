package raster

import (
	"image"
	"image/color"

	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/nvr-ai/go-reefscore/geometry"
)

// coverageThreshold is the minimum antialiased alpha for a pixel to count as
// inside. Half coverage approximates a pixel-centre test.
const coverageThreshold = 128

// Draw2DFiller fills polygons as vector paths with draw2d and keeps pixels
// that are at least half covered. Integer-aligned boxes match ScanlineFiller
// exactly; slanted edges may differ by a pixel.
type Draw2DFiller struct{}

// Fill implements Filler.
func (Draw2DFiller) Fill(g *Grid, p geometry.Polygon, label uint8) {
	if len(p) < 3 {
		return
	}

	region, ok := clip(p.Bounds(), g)
	if !ok {
		return
	}

	canvas := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillRule(draw2d.FillRuleWinding)
	gc.SetFillColor(color.RGBA{A: 255})

	ox, oy := float64(region.Min.X), float64(region.Min.Y)
	gc.BeginPath()
	gc.MoveTo(float64(p[0].X)-ox, float64(p[0].Y)-oy)
	for _, v := range p[1:] {
		gc.LineTo(float64(v.X)-ox, float64(v.Y)-oy)
	}
	gc.Close()
	gc.Fill()

	for y := 0; y < region.Dy(); y++ {
		row := g.Pix[(region.Min.Y+y)*g.Width+region.Min.X:]
		for x := 0; x < region.Dx(); x++ {
			if canvas.RGBAAt(x, y).A >= coverageThreshold {
				row[x] = label
			}
		}
	}
}
