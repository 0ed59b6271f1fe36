package evaluation

import (
	"context"

	"github.com/nvr-ai/go-reefscore/annotations"
	"github.com/nvr-ai/go-reefscore/registry"
	"github.com/nvr-ai/go-reefscore/report"
	"github.com/nvr-ai/go-reefscore/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Subset is a named image filter.
type Subset struct {
	Name   string
	Filter annotations.Filter
}

// LoadSubsets reads every subset file of a directory.
func LoadSubsets(dir string) ([]Subset, error) {
	files, err := util.FindSubsetFiles(dir)
	if err != nil {
		return nil, err
	}

	subsets := make([]Subset, 0, len(files))
	for _, f := range files {
		filter, err := annotations.LoadFilter(f.Path)
		if err != nil {
			return nil, err
		}
		subsets = append(subsets, Subset{Name: f.Name, Filter: filter})
	}
	return subsets, nil
}

// ScoreRuns scores every registry run against one ground truth, once per
// subset. Without subsets every run is scored on the full ground truth.
// Ground truth is parsed once per subset and shared by all runs.
//
// Arguments:
//   - ctx: Cancels scoring.
//   - gtPath: Ground-truth file.
//   - runsDir: Folder holding the registry's submission_files directory.
//   - runs: Runs to score, in output order.
//   - subsets: Optional image subsets.
//
// Returns:
//   - []report.Row: One row per subset and run, subsets outermost.
//   - error: The first failure, naming the run it occurred in.
func (e *Evaluator) ScoreRuns(ctx context.Context, gtPath, runsDir string, runs []registry.Run, subsets []Subset) ([]report.Row, error) {
	if len(subsets) == 0 {
		subsets = []Subset{{}}
	}

	rows := make([]report.Row, 0, len(runs)*len(subsets))
	for _, subset := range subsets {
		gt, err := e.LoadGroundTruth(gtPath, subset.Filter)
		if err != nil {
			return nil, err
		}

		for _, run := range runs {
			log := e.log.WithFields(logrus.Fields{
				"run_id":         run.ID.String(),
				"participant_id": run.ParticipantID.String(),
			})
			if subset.Name != "" {
				log = log.WithField("subset", subset.Name)
			}

			path, err := run.Path(runsDir)
			if err != nil {
				return nil, err
			}
			pred, err := e.LoadSubmission(path, subset.Filter)
			if err != nil {
				return nil, errors.Wrapf(err, "run %s", run.ID)
			}
			res, err := e.EvaluateSets(ctx, gt, pred)
			if err != nil {
				return nil, errors.Wrapf(err, "run %s", run.ID)
			}

			log.WithField("iou_average", res.Overall).Info("scored run")

			rows = append(rows, report.Row{
				Subset:        subset.Name,
				ParticipantID: run.ParticipantID.String(),
				Affiliation:   run.Affiliation,
				RunID:         run.ID.String(),
				Result:        res,
			})
		}
	}
	return rows, nil
}
