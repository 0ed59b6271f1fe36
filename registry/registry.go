// Package registry - Loading of the submissions.json run registry.
package registry

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SubmissionDir is the directory, relative to the runs folder, that holds
// the submitted run files.
const SubmissionDir = "submission_files"

// SubmissionFile is one file attached to a run.
type SubmissionFile struct {
	FileName string `json:"file_name"`
}

// Run is one participant run.
type Run struct {
	ID              json.Number      `json:"id"`
	ParticipantID   json.Number      `json:"participant_id"`
	Affiliation     string           `json:"participant_affiliation"`
	SubmissionFiles []SubmissionFile `json:"submission_files"`
}

// Path returns the location of the run's first submission file under
// runsDir.
func (r Run) Path(runsDir string) (string, error) {
	if len(r.SubmissionFiles) == 0 || r.SubmissionFiles[0].FileName == "" {
		return "", errors.Errorf("run %s has no submission file", r.ID)
	}
	return filepath.Join(runsDir, SubmissionDir, r.SubmissionFiles[0].FileName), nil
}

// Read decodes a registry. Ids may be JSON numbers or strings.
//
// Arguments:
//   - r: JSON array of runs.
//
// Returns:
//   - []Run: Runs in registry order.
//   - error: If the document is not a run array or a run lacks a file.
func Read(r io.Reader) ([]Run, error) {
	var raw []struct {
		ID              any              `json:"id"`
		ParticipantID   any              `json:"participant_id"`
		Affiliation     string           `json:"participant_affiliation"`
		SubmissionFiles []SubmissionFile `json:"submission_files"`
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding run registry")
	}

	runs := make([]Run, 0, len(raw))
	for i, entry := range raw {
		run := Run{
			ID:              toNumber(entry.ID),
			ParticipantID:   toNumber(entry.ParticipantID),
			Affiliation:     entry.Affiliation,
			SubmissionFiles: entry.SubmissionFiles,
		}
		if run.ID == "" {
			return nil, errors.Errorf("run %d has no id", i)
		}
		if _, err := run.Path(""); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Load reads the registry file at path.
func Load(path string) ([]Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening run registry")
	}
	defer f.Close()

	runs, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return runs, nil
}

func toNumber(v any) json.Number {
	switch x := v.(type) {
	case json.Number:
		return x
	case string:
		return json.Number(x)
	}
	return ""
}
