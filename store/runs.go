package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resource-planner/models"
)

// SaveRun records a run summary, assigning an ID when it has none.
func (s *Store) SaveRun(ctx context.Context, r models.RunSummary) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
INSERT INTO runs (id, command, scenario_id, started_at, duration_ms, status, records, conflicts, failed_employees, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Command, r.ScenarioID, r.StartedAt.UTC().Format(timeLayout), r.Duration.Milliseconds(),
		r.Status, r.Records, r.Conflicts, strings.Join(r.FailedEmployees, ","), r.Error)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return r.ID, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	query := `
SELECT id, command, scenario_id, started_at, duration_ms, status, records, conflicts, failed_employees, error
FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]models.RunSummary, 0)
	for rows.Next() {
		var (
			r       models.RunSummary
			started string
			ms      int64
			failed  string
		)
		if err := rows.Scan(&r.ID, &r.Command, &r.ScenarioID, &started, &ms, &r.Status,
			&r.Records, &r.Conflicts, &failed, &r.Error); err != nil {
			return nil, err
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		if failed != "" {
			r.FailedEmployees = strings.Split(failed, ",")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
