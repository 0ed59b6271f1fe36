package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxPolygon(t *testing.T) {
	box := Box{Width: 2, Height: 3, X: 10, Y: 20}

	assert.Equal(t, Polygon{{10, 20}, {10, 23}, {12, 23}, {12, 20}}, box.Polygon())
	assert.Equal(t, image.Rect(10, 20, 12, 23), box.ToRect())
	assert.Equal(t, "2x3+10+20", box.String())
}

func TestPolygonArea(t *testing.T) {
	tests := []struct {
		name     string
		polygon  Polygon
		expected float64
	}{
		{"Empty", nil, 0},
		{"Segment", Polygon{{0, 0}, {5, 5}}, 0},
		{"Square", Box{Width: 4, Height: 4}.Polygon(), 16},
		{"Clockwise triangle", Polygon{{0, 0}, {4, 0}, {0, 4}}, 8},
		{"Counter-clockwise triangle", Polygon{{0, 0}, {0, 4}, {4, 0}}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.polygon.Area(), 1e-9)
		})
	}
}

func TestPolygonBounds(t *testing.T) {
	p := Polygon{{3, 7}, {-1, 2}, {5, 4}}

	assert.Equal(t, image.Rect(-1, 2, 6, 8), p.Bounds())
	assert.Equal(t, image.Rectangle{}, Polygon{}.Bounds())
	assert.Equal(t, "(3,7) (-1,2) (5,4)", p.String())
}

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name         string
		a, b         Box
		intersection int64
		union        int64
	}{
		{"Half overlap", Box{Width: 100, Height: 100}, Box{Width: 100, Height: 100, X: 50, Y: 50}, 2500, 17500},
		{"Identical", Box{Width: 2, Height: 2, X: 4, Y: 4}, Box{Width: 2, Height: 2, X: 4, Y: 4}, 4, 4},
		{"Disjoint", Box{Width: 2, Height: 2}, Box{Width: 2, Height: 2, X: 10, Y: 10}, 0, 8},
		{"Touching edges", Box{Width: 2, Height: 2}, Box{Width: 2, Height: 2, X: 2}, 0, 8},
		{"Empty", Box{}, Box{}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.intersection, tt.a.Intersection(tt.b))
			assert.Equal(t, tt.union, tt.a.Union(tt.b))
			if tt.union > 0 {
				assert.InDelta(t, float64(tt.intersection)/float64(tt.union), tt.a.IoU(tt.b), 1e-12)
			} else {
				assert.Equal(t, 0.0, tt.a.IoU(tt.b))
			}
		})
	}
}
