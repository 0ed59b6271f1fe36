// Package raster - Conversion of per-image polygons into dense label grids.
package raster

import (
	"fmt"

	"github.com/pkg/errors"
)

// Shape is the canonical image resolution every grid is allocated with.
type Shape struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultShape is the resolution of the coral benchmark images: portrait
// 3024x4032, i.e. 4032 rows of 3024 pixels.
var DefaultShape = Shape{Width: 3024, Height: 4032}

// Pixels returns Width*Height.
func (s Shape) Pixels() int {
	return s.Width * s.Height
}

// Validate rejects non-positive dimensions.
func (s Shape) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return errors.Errorf("invalid image shape %v", s)
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Grid is a dense row-major array of label indices. Label 0 is background.
type Grid struct {
	Width, Height int
	Pix           []uint8
}

// NewGrid allocates an all-background grid.
func NewGrid(shape Shape) *Grid {
	return &Grid{
		Width:  shape.Width,
		Height: shape.Height,
		Pix:    make([]uint8, shape.Pixels()),
	}
}

// Shape returns the grid dimensions.
func (g *Grid) Shape() Shape {
	return Shape{Width: g.Width, Height: g.Height}
}

// At returns the label at (x, y).
func (g *Grid) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Set writes a label at (x, y).
func (g *Grid) Set(x, y int, label uint8) {
	g.Pix[y*g.Width+x] = label
}

// Count returns the number of pixels carrying label.
func (g *Grid) Count(label uint8) int64 {
	var n int64
	for _, v := range g.Pix {
		if v == label {
			n++
		}
	}
	return n
}

// Histogram returns the pixel count of every label value.
func (g *Grid) Histogram() [256]int64 {
	var h [256]int64
	for _, v := range g.Pix {
		h[v]++
	}
	return h
}

// Reset sets every pixel back to background.
func (g *Grid) Reset() {
	clear(g.Pix)
}
