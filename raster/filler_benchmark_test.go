package raster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-reefscore/geometry"
)

// Benchmarks run on full benchmark-resolution grids with polygons of the size
// and vertex count typical of coral annotations.

func blob(r *rand.Rand, cx, cy, radius, vertices int) geometry.Polygon {
	p := make(geometry.Polygon, vertices)
	for i := range p {
		angle := 2 * math.Pi * float64(i) / float64(vertices)
		rad := float64(radius) * (0.6 + 0.4*r.Float64())
		p[i].X = cx + int(rad*math.Cos(angle))
		p[i].Y = cy + int(rad*math.Sin(angle))
	}
	return p
}

func benchmarkFiller(b *testing.B, f Filler) {
	r := rand.New(rand.NewSource(42))
	polygons := make([]geometry.Polygon, 20)
	for i := range polygons {
		polygons[i] = blob(r, 300+r.Intn(2400), 300+r.Intn(3400), 300, 120)
	}
	g := NewGrid(DefaultShape)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		g.Reset()
		for j, p := range polygons {
			f.Fill(g, p, uint8(j%13+1))
		}
	}
}

// BenchmarkScanlineFiller measures the default pure-Go filler.
func BenchmarkScanlineFiller(b *testing.B) {
	benchmarkFiller(b, ScanlineFiller{})
}

// BenchmarkOpenCVFiller measures the gocv-backed filler.
func BenchmarkOpenCVFiller(b *testing.B) {
	benchmarkFiller(b, OpenCVFiller{})
}

// BenchmarkDraw2DFiller measures the draw2d vector filler.
func BenchmarkDraw2DFiller(b *testing.B) {
	benchmarkFiller(b, Draw2DFiller{})
}

// BenchmarkHistogram measures the per-image counting pass.
func BenchmarkHistogram(b *testing.B) {
	g := NewGrid(DefaultShape)
	ScanlineFiller{}.Fill(g, geometry.Box{Width: 2000, Height: 3000, X: 100, Y: 100}.Polygon(), 3)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Histogram()
	}
}
