package evaluation

import (
	"context"
	"sort"

	"github.com/nvr-ai/go-reefscore/annotations"
	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/geometry"
	"github.com/nvr-ai/go-reefscore/metrics"
	"github.com/nvr-ai/go-reefscore/profiler"
	"github.com/nvr-ai/go-reefscore/raster"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Stage names recorded in the profiler.
const (
	StageParseGroundTruth = "parse_ground_truth"
	StageParseSubmission  = "parse_submission"
	StageRasterize        = "rasterize"
	StageScore            = "score"
)

// Evaluator scores submissions against ground truth. One catalog and one
// rasterizer are shared by both inputs so that label indices and overlap
// priority always agree.
type Evaluator struct {
	cfg        Config
	catalog    *catalog.Catalog
	rasterizer *raster.Rasterizer
	log        *logrus.Entry
	profiler   *profiler.Profiler
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default is the standard logrus logger.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Evaluator) {
		e.log = log
	}
}

// WithProfiler shares a profiler, e.g. across several evaluators.
func WithProfiler(p *profiler.Profiler) Option {
	return func(e *Evaluator) {
		e.profiler = p
	}
}

// New creates an evaluator.
//
// Arguments:
//   - cfg: Settings, normalized before use.
//   - opts: Logger and profiler overrides.
//
// Returns:
//   - *Evaluator: The evaluator.
//   - error: If cfg is invalid.
func New(cfg Config, opts ...Option) (*Evaluator, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, errors.Wrap(err, "invalid evaluation config")
	}

	c, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	filler, err := raster.ParseFiller(cfg.Filler)
	if err != nil {
		return nil, err
	}
	r, err := raster.New(c, cfg.Shape, raster.WithFiller(filler), raster.WithBoundsCheck(cfg.BoundsCheck))
	if err != nil {
		return nil, err
	}

	e := &Evaluator{
		cfg:        cfg,
		catalog:    c,
		rasterizer: r,
		log:        logrus.NewEntry(logrus.StandardLogger()).WithField("component", "evaluation"),
		profiler:   profiler.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns the normalized settings.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Catalog returns the catalog shared by both inputs.
func (e *Evaluator) Catalog() *catalog.Catalog {
	return e.catalog
}

// Rasterizer returns the rasterizer shared by both inputs.
func (e *Evaluator) Rasterizer() *raster.Rasterizer {
	return e.rasterizer
}

// Profiler returns the stage timings collected so far.
func (e *Evaluator) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *Evaluator) parseOptions(filter annotations.Filter) annotations.Options {
	return annotations.Options{
		Dialect: e.cfg.Dialect,
		Filter:  filter,
		Policy:  e.cfg.UnknownSubstrates,
		Catalog: e.catalog,
	}
}

// LoadGroundTruth parses a ground-truth file with the configured dialect and
// policy. A nil filter keeps every image.
func (e *Evaluator) LoadGroundTruth(path string, filter annotations.Filter) (annotations.Set, error) {
	done := e.profiler.StartOperation(StageParseGroundTruth)
	defer done()

	set, err := annotations.LoadGroundTruth(path, e.parseOptions(filter))
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"file":      path,
		"images":    len(set),
		"instances": set.Instances(),
	}).Debug("parsed ground truth")
	return set, nil
}

// LoadSubmission parses a submission file with the configured dialect and
// policy. A nil filter keeps every image.
func (e *Evaluator) LoadSubmission(path string, filter annotations.Filter) (annotations.Set, error) {
	done := e.profiler.StartOperation(StageParseSubmission)
	defer done()

	set, err := annotations.LoadSubmission(path, e.parseOptions(filter))
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"file":      path,
		"images":    len(set),
		"instances": set.Instances(),
	}).Debug("parsed submission")
	return set, nil
}

// Accumulate rasterizes and compares every ground-truth image with its
// prediction on a pool of workers. Each worker sums into its own partial
// accumulator; the partials are merged once all workers are done, so the
// totals do not depend on the number of workers or on scheduling.
func (e *Evaluator) Accumulate(ctx context.Context, gt, pred annotations.Set) (*metrics.Accumulator, error) {
	done := e.profiler.StartOperation(StageScore)
	defer done()

	var accOpts []metrics.AccumulatorOption
	if e.cfg.PerImage {
		accOpts = append(accOpts, metrics.WithPerImage())
	}

	ids := gt.ImageIDs()
	workers := max(min(e.cfg.Workers, len(ids)), 1)
	partials := make([]*metrics.Accumulator, workers)
	jobs := make(chan string)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, id := range ids {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := range partials {
		partial := metrics.NewAccumulator(e.catalog, accOpts...)
		partials[w] = partial

		g.Go(func() error {
			gtGrid := raster.NewGrid(e.rasterizer.Shape())
			predGrid := raster.NewGrid(e.rasterizer.Shape())
			for id := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				ic, err := e.scoreImage(id, gt[id], pred[id], gtGrid, predGrid)
				if err != nil {
					return err
				}
				if err := partial.Add(ic); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc := metrics.NewAccumulator(e.catalog, accOpts...)
	for _, partial := range partials {
		if err := acc.Merge(partial); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (e *Evaluator) scoreImage(id string, gtPolygons, predPolygons map[string][]geometry.Polygon, gtGrid, predGrid *raster.Grid) (metrics.ImageCounts, error) {
	done := e.profiler.StartOperation(StageRasterize)
	if err := e.rasterizer.RasterizeInto(gtGrid, id, gtPolygons); err != nil {
		done()
		return metrics.ImageCounts{}, err
	}

	// No prediction for the image is scored as an all-background grid.
	var pg *raster.Grid
	if len(predPolygons) > 0 {
		if err := e.rasterizer.RasterizeInto(predGrid, id, predPolygons); err != nil {
			done()
			return metrics.ImageCounts{}, err
		}
		pg = predGrid
	}
	done()

	return metrics.Compare(id, gtGrid, pg, e.catalog)
}

// EvaluateSets scores parsed annotations.
//
// Arguments:
//   - ctx: Cancels scoring.
//   - gt: Ground truth. Only its images are scored.
//   - pred: Predictions. Images missing here are scored as all background.
//
// Returns:
//   - *metrics.Result: Per-substrate and overall IoU, with unknown substrate
//     counts of both inputs.
//   - error: Rasterization errors, or *metrics.DegenerateInputError.
func (e *Evaluator) EvaluateSets(ctx context.Context, gt, pred annotations.Set) (*metrics.Result, error) {
	acc, err := e.Accumulate(ctx, gt, pred)
	if err != nil {
		return nil, err
	}

	res, err := metrics.Finalize(acc)
	if err != nil {
		return nil, err
	}
	res.UnknownSubstrates = e.unknownSubstrates(gt, pred)

	e.log.WithFields(logrus.Fields{
		"images":    res.Images,
		"overall":   res.Overall,
		"macro_iou": res.MacroIoU,
	}).Debug("scored")

	return res, nil
}

// unknownSubstrates logs and sums the polygons of both inputs that were
// ignored for lack of a catalog entry.
func (e *Evaluator) unknownSubstrates(gt, pred annotations.Set) map[string]int {
	var total map[string]int
	for _, input := range []struct {
		name string
		set  annotations.Set
	}{{"ground_truth", gt}, {"submission", pred}} {
		counts := input.set.UnknownSubstrates(e.catalog)
		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			e.log.WithFields(logrus.Fields{
				"input":     input.name,
				"substrate": name,
				"polygons":  counts[name],
			}).Warn("ignoring substrate missing from catalog")

			if total == nil {
				total = make(map[string]int)
			}
			total[name] += counts[name]
		}
	}
	return total
}

// EvaluateFiles parses a ground-truth and a submission file and scores them.
// The filter is applied to both inputs before rasterization; nil keeps every
// image.
func (e *Evaluator) EvaluateFiles(ctx context.Context, gtPath, runPath string, filter annotations.Filter) (*metrics.Result, error) {
	gt, err := e.LoadGroundTruth(gtPath, filter)
	if err != nil {
		return nil, err
	}
	pred, err := e.LoadSubmission(runPath, filter)
	if err != nil {
		return nil, err
	}
	return e.EvaluateSets(ctx, gt, pred)
}

// LogStages writes the collected stage timings at info level.
func (e *Evaluator) LogStages() {
	for _, s := range e.profiler.Stats() {
		e.log.WithFields(logrus.Fields{
			"stage": s.Name,
			"count": s.Count,
			"total": s.Total,
			"mean":  s.Mean,
			"max":   s.Max,
		}).Info("stage timing")
	}
}

// Evaluate scores one submission file with DefaultConfig and the given
// dialect.
//
// @example
//
//	res, err := evaluation.Evaluate(ctx, "annotations_test_task_2.csv", "run.txt", annotations.DialectPolygon, nil)
//	fmt.Println(res.Overall, res.PerSubstrate["c_soft_coral"])
func Evaluate(ctx context.Context, gtPath, runPath string, dialect annotations.Dialect, filter annotations.Filter) (*metrics.Result, error) {
	cfg := DefaultConfig()
	cfg.Dialect = dialect

	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return e.EvaluateFiles(ctx, gtPath, runPath, filter)
}
