package report

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Evaluation describes one scoring session stored as a unit.
type Evaluation struct {
	ID          uuid.UUID
	Created     time.Time
	GroundTruth string
	Dialect     string
}

// Store persists scored runs in SQLite.
type Store struct {
	*sql.DB
}

// OpenStore opens or creates the database at path and applies the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening results database")
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "applying results schema")
	}

	return &Store{db}, nil
}

// Save writes an evaluation and its rows in one transaction. A zero
// evaluation id is replaced by a fresh one.
//
// Arguments:
//   - ctx: Cancels the transaction.
//   - ev: Evaluation metadata.
//   - rows: Scored runs. Every row needs a Result.
//
// Returns:
//   - uuid.UUID: The evaluation id the rows were stored under.
//   - error: If any statement fails; nothing is stored then.
func (s *Store) Save(ctx context.Context, ev Evaluation, rows []Row) (uuid.UUID, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Created.IsZero() {
		ev.Created = time.Now()
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO evaluations (id, created_unix_nanos, ground_truth, dialect) VALUES (?, ?, ?, ?)`,
		ev.ID.String(), ev.Created.UnixNano(), ev.GroundTruth, ev.Dialect,
	); err != nil {
		return uuid.Nil, errors.Wrap(err, "inserting evaluation")
	}

	for _, row := range rows {
		if row.Result == nil {
			return uuid.Nil, errors.Errorf("run %s has no result", row.RunID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_scores (evaluation_id, subset, participant_id, participant_affiliation, run_id, images, iou_average, macro_iou)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID.String(), row.Subset, row.ParticipantID, row.Affiliation, row.RunID,
			row.Result.Images, row.Result.Overall, row.Result.MacroIoU,
		); err != nil {
			return uuid.Nil, errors.Wrapf(err, "inserting run %s", row.RunID)
		}

		for _, sc := range row.Result.Substrates {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO substrate_scores (evaluation_id, subset, run_id, substrate, iou, intersection_pixels, union_pixels, present)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				ev.ID.String(), row.Subset, row.RunID, sc.Name, sc.IoU, sc.Intersection, sc.Union, sc.Present,
			); err != nil {
				return uuid.Nil, errors.Wrapf(err, "inserting %s score of run %s", sc.Name, row.RunID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, errors.Wrap(err, "committing evaluation")
	}
	return ev.ID, nil
}

// RunScore is a stored row of run_scores.
type RunScore struct {
	Subset        string
	ParticipantID string
	Affiliation   string
	RunID         string
	Images        int
	Overall       float64
	MacroIoU      float64
}

// RunScores returns the stored scores of an evaluation ordered by subset and
// run id.
func (s *Store) RunScores(ctx context.Context, id uuid.UUID) ([]RunScore, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT subset, participant_id, participant_affiliation, run_id, images, iou_average, macro_iou
		FROM run_scores WHERE evaluation_id = ? ORDER BY subset, run_id`, id.String())
	if err != nil {
		return nil, errors.Wrap(err, "querying run scores")
	}
	defer rows.Close()

	var out []RunScore
	for rows.Next() {
		var rs RunScore
		if err := rows.Scan(&rs.Subset, &rs.ParticipantID, &rs.Affiliation, &rs.RunID, &rs.Images, &rs.Overall, &rs.MacroIoU); err != nil {
			return nil, errors.Wrap(err, "scanning run score")
		}
		out = append(out, rs)
	}
	return out, errors.Wrap(rows.Err(), "iterating run scores")
}

// SubstrateIoU returns the stored per-substrate IoU of one run.
func (s *Store) SubstrateIoU(ctx context.Context, id uuid.UUID, subset, runID string) (map[string]float64, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT substrate, iou FROM substrate_scores WHERE evaluation_id = ? AND subset = ? AND run_id = ?`,
		id.String(), subset, runID)
	if err != nil {
		return nil, errors.Wrap(err, "querying substrate scores")
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var iou float64
		if err := rows.Scan(&name, &iou); err != nil {
			return nil, errors.Wrap(err, "scanning substrate score")
		}
		out[name] = iou
	}
	return out, errors.Wrap(rows.Err(), "iterating substrate scores")
}
