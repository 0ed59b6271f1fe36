package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvr-ai/go-reefscore/annotations"
	"github.com/nvr-ai/go-reefscore/evaluation"
	"github.com/nvr-ai/go-reefscore/metrics"
	"github.com/nvr-ai/go-reefscore/raster"
	"github.com/nvr-ai/go-reefscore/registry"
	"github.com/nvr-ai/go-reefscore/report"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to a YAML evaluation config")
		gtFile       = flag.String("gt", "", "Path to the ground-truth annotation file")
		runFile      = flag.String("run", "", "Path to a single submission file")
		runsDir      = flag.String("runs", "", "Folder with submissions.json and submission_files/")
		registryFile = flag.String("registry", "", "Run registry (default <runs>/submissions.json)")
		task         = flag.Int("task", 0, "Benchmark task: 1 (boxes) or 2 (polygons)")
		dialect      = flag.String("dialect", "", "Annotation dialect: box or polygon")
		subsetFile   = flag.String("subset", "", "Restrict scoring to the image ids listed in this file")
		subsetsDir   = flag.String("subsets", "", "Score every subset file in this folder separately")
		output       = flag.String("output", "", "Write the CSV report here (default stdout)")
		sqlitePath   = flag.String("sqlite", "", "Also store results in this SQLite database")
		workers      = flag.Int("workers", 0, "Images scored concurrently (default one per CPU)")
		strict       = flag.Bool("strict", false, "Fail on substrates missing from the catalog")
		filler       = flag.String("filler", "", "Polygon filler: scanline, opencv or draw2d")
		boundsCheck  = flag.Bool("bounds-check", false, "Fail on polygons outside the image instead of clipping")
		dumpMasks    = flag.String("dump-masks", "", "Write ground-truth mask previews into this folder")
		maskSide     = flag.Uint("mask-side", 512, "Longest side of mask previews, 0 for full size")
		verbose      = flag.Bool("v", false, "Debug logging")
		timeout      = flag.Duration("timeout", time.Hour, "Abort scoring after this long")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *gtFile == "" {
		log.Fatal("Ground-truth path is required (-gt)")
	}
	if (*runFile == "") == (*runsDir == "") {
		log.Fatal("Exactly one of -run or -runs is required")
	}

	cfg := evaluation.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = evaluation.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flags given on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "task":
			cfg.Dialect = annotations.Dialect(fmt.Sprint(*task))
		case "dialect":
			cfg.Dialect = annotations.Dialect(*dialect)
		case "workers":
			cfg.Workers = *workers
		case "strict":
			cfg.UnknownSubstrates = annotations.PolicyLenient
			if *strict {
				cfg.UnknownSubstrates = annotations.PolicyStrict
			}
		case "filler":
			cfg.Filler = *filler
		case "bounds-check":
			cfg.BoundsCheck = *boundsCheck
		}
	})

	evaluator, err := evaluation.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create evaluator: %v", err)
	}
	cfg = evaluator.Config()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var subsets []evaluation.Subset
	switch {
	case *subsetFile != "" && *subsetsDir != "":
		log.Fatal("Use either -subset or -subsets, not both")
	case *subsetFile != "":
		filter, err := annotations.LoadFilter(*subsetFile)
		if err != nil {
			log.Fatalf("Failed to load subset: %v", err)
		}
		name := strings.TrimSuffix(filepath.Base(*subsetFile), filepath.Ext(*subsetFile))
		subsets = []evaluation.Subset{{Name: name, Filter: filter}}
	case *subsetsDir != "":
		subsets, err = evaluation.LoadSubsets(*subsetsDir)
		if err != nil {
			log.Fatalf("Failed to load subsets: %v", err)
		}
	}

	if *dumpMasks != "" {
		if err := dumpGroundTruthMasks(evaluator, *gtFile, *dumpMasks, *maskSide); err != nil {
			log.Fatalf("Failed to dump masks: %v", err)
		}
	}

	log.WithFields(log.Fields{
		"ground_truth": *gtFile,
		"subsets":      len(subsets),
		"dialect":      cfg.Dialect,
		"shape":        cfg.Shape.String(),
		"workers":      cfg.Workers,
		"filler":       cfg.Filler,
	}).Info("Scoring")

	var rows []report.Row
	if *runFile != "" {
		rows, err = scoreFile(ctx, evaluator, *gtFile, *runFile, subsets)
	} else {
		path := *registryFile
		if path == "" {
			path = filepath.Join(*runsDir, "submissions.json")
		}
		var runs []registry.Run
		runs, err = registry.Load(path)
		if err != nil {
			log.Fatalf("Failed to load run registry: %v", err)
		}
		rows, err = evaluator.ScoreRuns(ctx, *gtFile, *runsDir, runs, subsets)
	}
	if err != nil {
		log.Fatalf("Scoring failed: %v", err)
	}
	evaluator.LogStages()

	if *runFile != "" {
		for _, row := range rows {
			printSummary(os.Stdout, row)
		}
	}

	if *output != "" || *runsDir != "" {
		if err := writeReport(*output, evaluator, rows); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
	}

	if *sqlitePath != "" {
		store, err := report.OpenStore(*sqlitePath)
		if err != nil {
			log.Fatalf("Failed to open results database: %v", err)
		}
		defer store.Close()

		id, err := store.Save(ctx, report.Evaluation{GroundTruth: *gtFile, Dialect: string(cfg.Dialect)}, rows)
		if err != nil {
			log.Fatalf("Failed to store results: %v", err)
		}
		log.WithField("evaluation_id", id.String()).Info("Stored results")
	}
}

// scoreFile scores one submission file, once per subset, naming the run
// after the file.
func scoreFile(ctx context.Context, e *evaluation.Evaluator, gtPath, runPath string, subsets []evaluation.Subset) ([]report.Row, error) {
	if len(subsets) == 0 {
		subsets = []evaluation.Subset{{}}
	}

	runID := strings.TrimSuffix(filepath.Base(runPath), filepath.Ext(runPath))
	rows := make([]report.Row, 0, len(subsets))
	for _, subset := range subsets {
		res, err := e.EvaluateFiles(ctx, gtPath, runPath, subset.Filter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, report.Row{Subset: subset.Name, RunID: runID, Result: res})
	}
	return rows, nil
}

func writeReport(path string, e *evaluation.Evaluator, rows []report.Row) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return report.WriteCSV(w, e.Catalog(), rows)
}

func printSummary(w io.Writer, row report.Row) {
	res := row.Result
	if row.Subset != "" {
		fmt.Fprintf(w, "\n=== %s (subset %s) ===\n", row.RunID, row.Subset)
	} else {
		fmt.Fprintf(w, "\n=== %s ===\n", row.RunID)
	}
	fmt.Fprintf(w, "Images:      %d\n", res.Images)
	fmt.Fprintf(w, "Overall IoU: %.4f\n", res.Overall)
	fmt.Fprintf(w, "Macro IoU:   %.4f\n", res.MacroIoU)
	fmt.Fprintf(w, "\n%-28s %8s %14s %14s\n", "Substrate", "IoU", "Intersection", "Union")
	for _, s := range res.Substrates {
		fmt.Fprintf(w, "%-28s %8.4f %14d %14d%s\n", s.Name, s.IoU, s.Intersection, s.Union, absentMarker(s))
	}
	for name, n := range res.UnknownSubstrates {
		fmt.Fprintf(w, "ignored unknown substrate %s (%d polygons)\n", name, n)
	}
}

func absentMarker(s metrics.SubstrateScore) string {
	if s.Present {
		return ""
	}
	return "  (absent)"
}

func dumpGroundTruthMasks(e *evaluation.Evaluator, gtPath, dir string, maxSide uint) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	gt, err := e.LoadGroundTruth(gtPath, nil)
	if err != nil {
		return err
	}

	grid := raster.NewGrid(e.Rasterizer().Shape())
	for _, id := range gt.ImageIDs() {
		if err := e.Rasterizer().RasterizeInto(grid, id, gt[id]); err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(id), filepath.Ext(id)) + ".png"
		if err := raster.WritePreview(filepath.Join(dir, name), grid, e.Catalog().Len(), maxSide); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{"images": len(gt), "dir": dir}).Info("Wrote mask previews")
	return nil
}
