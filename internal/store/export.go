package store

import (
	"fmt"

	"github.com/mkraev/rubriceval/internal/model"
)

// ExportRun builds an export-ready view of one stored run.
func (s *Store) ExportRun(runID int64) (model.RunExport, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return model.RunExport{}, fmt.Errorf("get run %d: %w", runID, err)
	}
	results, err := s.ResultsForRun(runID)
	if err != nil {
		return model.RunExport{}, fmt.Errorf("results for run %d: %w", runID, err)
	}
	return model.RunExport{Run: run, Results: results}, nil
}
