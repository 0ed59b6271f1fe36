// Package report - Tabular output of scored runs: CSV tables and a SQLite
// results store.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nvr-ai/go-reefscore/catalog"
	"github.com/nvr-ai/go-reefscore/metrics"
	"github.com/pkg/errors"
)

// Row is the score of one run, optionally on one image subset.
type Row struct {
	// Subset is the name of the image subset, empty for the full test set.
	Subset        string          `json:"subset,omitempty"`
	ParticipantID string          `json:"participant_id"`
	Affiliation   string          `json:"participant_affiliation"`
	RunID         string          `json:"run_id"`
	Result        *metrics.Result `json:"result"`
}

// Header returns the CSV column names for a catalog. The subset column is
// only present when withSubset is set.
func Header(c *catalog.Catalog, withSubset bool) []string {
	header := make([]string, 0, c.Len()+5)
	if withSubset {
		header = append(header, "subset")
	}
	header = append(header, "participant_id", "participant_affiliation", "run_id", "iou_average")
	return append(header, c.Names()...)
}

// WriteCSV writes one line per row: run identity, overall IoU, then the IoU of
// every substrate in catalog order.
//
// Arguments:
//   - w: Destination.
//   - c: Catalog fixing the substrate columns.
//   - rows: Scored runs. Every row needs a Result.
//
// Returns:
//   - error: If a row has no result or writing fails.
func WriteCSV(w io.Writer, c *catalog.Catalog, rows []Row) error {
	withSubset := false
	for _, row := range rows {
		if row.Subset != "" {
			withSubset = true
			break
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(c, withSubset)); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	for _, row := range rows {
		if row.Result == nil {
			return errors.Errorf("run %s has no result", row.RunID)
		}
		record := make([]string, 0, c.Len()+5)
		if withSubset {
			record = append(record, row.Subset)
		}
		record = append(record, row.ParticipantID, row.Affiliation, row.RunID, formatScore(row.Result.Overall))
		for _, name := range c.Names() {
			record = append(record, formatScore(row.Result.PerSubstrate[name]))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "writing run %s", row.RunID)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
