package metrics

import (
	"testing"

	"github.com/nvr-ai/go-reefscore/annotations"
	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/geometry"
	"github.com/nvr-ai/go-reefscore/raster"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testShape = raster.Shape{Width: 32, Height: 32}

func box(x, y, w, h int) geometry.Polygon {
	return geometry.Box{Width: w, Height: h, X: x, Y: y}.Polygon()
}

func rasterize(t *testing.T, set annotations.Set, c *catalog.Catalog) map[string]*raster.Grid {
	t.Helper()
	grids, err := raster.Rasterize(set, testShape, c)
	require.NoError(t, err)
	return grids
}

func score(t *testing.T, gt, pred annotations.Set, c *catalog.Catalog) (*Accumulator, *Result) {
	t.Helper()
	acc, err := Accumulate(rasterize(t, gt, c), rasterize(t, pred, c), c)
	require.NoError(t, err)
	res, err := Finalize(acc)
	require.NoError(t, err)
	return acc, res
}

func TestSelfConsistency(t *testing.T) {
	c := catalog.MustNew("a", "b", "c")
	set := annotations.Set{}
	set.Add("img1", "a", box(0, 0, 5, 4))
	set.Add("img1", "b", geometry.Polygon{{10, 10}, {20, 10}, {15, 20}})
	set.Add("img2", "a", box(3, 3, 6, 6))

	acc, res := score(t, set, set, c)

	assert.InDelta(t, 1.0, res.PerSubstrate["a"], 1e-9)
	assert.InDelta(t, 1.0, res.PerSubstrate["b"], 1e-9)
	assert.InDelta(t, 0.0, res.PerSubstrate["c"], 1e-9)
	assert.InDelta(t, 1.0, res.Overall, 1e-12)

	a, ok := acc.Counts("a")
	require.True(t, ok)
	assert.Equal(t, int64(5*4+6*6), a.Intersection)
	assert.Equal(t, a.Intersection, a.Union)

	assert.False(t, res.Substrates[2].Present)
	assert.True(t, res.Substrates[0].Present)
}

func TestDisjointSquares(t *testing.T) {
	c := catalog.MustNew("a")
	gt, pred := annotations.Set{}, annotations.Set{}
	gt.Add("img", "a", box(0, 0, 2, 2))
	pred.Add("img", "a", box(10, 10, 2, 2))

	acc, res := score(t, gt, pred, c)

	counts, _ := acc.Counts("a")
	assert.Equal(t, Counts{Intersection: 0, Union: 8}, counts)
	assert.Equal(t, 0.0, res.PerSubstrate["a"])
	assert.Equal(t, 0.0, res.Overall)
}

func TestIdenticalSquares(t *testing.T) {
	c := catalog.MustNew("a", "b")
	gt, pred := annotations.Set{}, annotations.Set{}
	gt.Add("img", "a", box(4, 4, 2, 2))
	pred.Add("img", "a", box(4, 4, 2, 2))

	acc, res := score(t, gt, pred, c)

	counts, _ := acc.Counts("a")
	assert.Equal(t, Counts{Intersection: 4, Union: 4}, counts)
	assert.InDelta(t, 1.0, res.PerSubstrate["a"], 1e-12)
	assert.Equal(t, 1.0, res.Overall)
}

func TestMissingSubmissionIsBackground(t *testing.T) {
	c := catalog.MustNew("a", "b")
	gt, pred := annotations.Set{}, annotations.Set{}
	gt.Add("scored", "a", box(0, 0, 3, 3))
	gt.Add("missing", "a", box(0, 0, 2, 2))
	gt.Add("missing", "b", box(5, 5, 4, 1))
	pred.Add("scored", "a", box(0, 0, 3, 3))
	// Predictions for images without ground truth are never scored.
	pred.Add("stray", "b", box(0, 0, 10, 10))

	gtGrids := rasterize(t, gt, c)
	predGrids := rasterize(t, pred, c)

	ic, err := Compare("missing", gtGrids["missing"], predGrids["missing"], c)
	require.NoError(t, err)
	assert.Equal(t, []Counts{{0, 4}, {0, 4}}, ic.Counts)

	acc, err := Accumulate(gtGrids, predGrids, c)
	require.NoError(t, err)
	assert.Equal(t, 2, acc.Images())

	a, _ := acc.Counts("a")
	b, _ := acc.Counts("b")
	assert.Equal(t, Counts{Intersection: 9, Union: 13}, a)
	assert.Equal(t, Counts{Intersection: 0, Union: 4}, b)
}

func TestMicroNotMacroAverage(t *testing.T) {
	c := catalog.MustNew("a", "b")
	gt, pred := annotations.Set{}, annotations.Set{}
	gt.Add("img1", "a", box(0, 0, 10, 10))
	pred.Add("img1", "a", box(0, 0, 10, 10))
	gt.Add("img2", "b", box(0, 0, 2, 2))
	pred.Touch("img2")

	_, res := score(t, gt, pred, c)

	assert.InDelta(t, 1.0, res.PerSubstrate["a"], 1e-12)
	assert.Equal(t, 0.0, res.PerSubstrate["b"])
	assert.InDelta(t, 100.0/104.0, res.Overall, 1e-12)
	assert.InDelta(t, 0.9615, res.Overall, 1e-4)
	assert.InDelta(t, 0.5, res.MacroIoU, 1e-12)
}

func TestUnionRule(t *testing.T) {
	// An image only contributes to the substrates that occur in it.
	c := catalog.MustNew("a", "b")
	acc := NewAccumulator(c)

	require.NoError(t, acc.Add(ImageCounts{ImageID: "x", Counts: []Counts{{2, 5}, {0, 0}}}))
	require.NoError(t, acc.Add(ImageCounts{ImageID: "y", Counts: []Counts{{0, 0}, {1, 3}}}))

	a, _ := acc.Counts("a")
	b, _ := acc.Counts("b")
	assert.Equal(t, Counts{2, 5}, a)
	assert.Equal(t, Counts{1, 3}, b)
	assert.Equal(t, Counts{3, 8}, acc.Totals())
	assert.Equal(t, 2, acc.Images())

	err := acc.Add(ImageCounts{ImageID: "z", Counts: []Counts{{1, 1}}})
	assert.Error(t, err)
}

func TestAccumulatorStartsZeroed(t *testing.T) {
	c := catalog.Coral()
	acc := NewAccumulator(c)

	for _, name := range c.Names() {
		counts, ok := acc.Counts(name)
		require.True(t, ok, name)
		assert.Equal(t, Counts{}, counts)
	}
	_, ok := acc.Counts("not_a_substrate")
	assert.False(t, ok)
}

func TestMergeIsOrderIndependent(t *testing.T) {
	c := catalog.MustNew("a", "b", "c")
	images := []ImageCounts{
		{ImageID: "1", Counts: []Counts{{1, 2}, {0, 0}, {5, 9}}},
		{ImageID: "2", Counts: []Counts{{0, 4}, {3, 3}, {0, 0}}},
		{ImageID: "3", Counts: []Counts{{7, 7}, {0, 1}, {2, 2}}},
		{ImageID: "4", Counts: []Counts{{0, 0}, {0, 0}, {1, 8}}},
	}

	sequential := NewAccumulator(c)
	for _, ic := range images {
		require.NoError(t, sequential.Add(ic))
	}

	for workers := 1; workers <= len(images); workers++ {
		partials := make([]*Accumulator, workers)
		for w := range partials {
			partials[w] = NewAccumulator(c, WithPerImage())
		}
		for i := len(images) - 1; i >= 0; i-- {
			require.NoError(t, partials[i%workers].Add(images[i]))
		}

		merged := NewAccumulator(c, WithPerImage())
		for _, p := range partials {
			require.NoError(t, merged.Merge(p))
		}

		assert.Equal(t, sequential.counts, merged.counts, "workers=%d", workers)
		assert.Equal(t, sequential.Images(), merged.Images())
		assert.Equal(t, images, merged.PerImage())
	}

	err := sequential.Merge(NewAccumulator(catalog.MustNew("a", "c", "b")))
	assert.Error(t, err)
}

func TestCompare_ShapeMismatch(t *testing.T) {
	c := catalog.MustNew("a")
	gt := raster.NewGrid(raster.Shape{Width: 4, Height: 4})
	pred := raster.NewGrid(raster.Shape{Width: 4, Height: 5})

	_, err := Compare("img", gt, pred, c)

	var mismatch *raster.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "img", mismatch.Image)
}

func TestFinalize_Degenerate(t *testing.T) {
	c := catalog.MustNew("a")

	_, err := Finalize(NewAccumulator(c))
	var degenerate *DegenerateInputError
	require.True(t, errors.As(err, &degenerate))

	acc := NewAccumulator(c)
	require.NoError(t, acc.Add(ImageCounts{ImageID: "blank", Counts: []Counts{{0, 0}}}))
	_, err = Finalize(acc)
	require.True(t, errors.As(err, &degenerate))
}

func TestCountsIoU(t *testing.T) {
	assert.Equal(t, 0.0, Counts{}.IoU())
	assert.Equal(t, 0.5, Counts{Intersection: 2, Union: 4}.IoU())
}

func TestCompare_MatchesAnalyticBoxIoU(t *testing.T) {
	c := catalog.MustNew("a")
	pairs := [][2]geometry.Box{
		{{Width: 10, Height: 8, X: 2, Y: 3}, {Width: 6, Height: 12, X: 7, Y: 1}},
		{{Width: 5, Height: 5, X: 0, Y: 0}, {Width: 5, Height: 5, X: 20, Y: 20}},
		{{Width: 30, Height: 2, X: 1, Y: 15}, {Width: 2, Height: 30, X: 15, Y: 1}},
	}

	for _, pair := range pairs {
		gt, pred := annotations.Set{}, annotations.Set{}
		gt.Add("img", "a", pair[0].Polygon())
		pred.Add("img", "a", pair[1].Polygon())

		ic, err := Compare("img", rasterize(t, gt, c)["img"], rasterize(t, pred, c)["img"], c)
		require.NoError(t, err)

		assert.Equal(t, pair[0].Intersection(pair[1]), ic.Counts[0].Intersection, "%v vs %v", pair[0], pair[1])
		assert.Equal(t, pair[0].Union(pair[1]), ic.Counts[0].Union)
		assert.InDelta(t, pair[0].IoU(pair[1]), ic.Counts[0].IoU(), 1e-12)
	}
}
