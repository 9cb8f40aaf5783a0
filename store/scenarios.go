package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resource-planner/models"
)

// CommitScenario replaces the stored allocations of s with s.Allocations and
// bumps the scenario revision. This is the only write path for allocations:
// derived candidates reach the store only through an explicit commit.
func (s *Store) CommitScenario(ctx context.Context, sc models.Scenario) (int, error) {
	if sc.ID == "" {
		return 0, fmt.Errorf("commit scenario: missing id")
	}

	var revision int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.rebind("SELECT revision FROM scenarios WHERE id = ?"), sc.ID).Scan(&revision)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			revision = 0
		case err != nil:
			return fmt.Errorf("failed to check existing scenario: %w", err)
		}
		revision++

		now := time.Now().UTC().Format(timeLayout)
		if _, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO scenarios (id, name, base_date, forecast_months, revision, committed_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	base_date = excluded.base_date,
	forecast_months = excluded.forecast_months,
	revision = excluded.revision,
	committed_at = excluded.committed_at`),
			sc.ID, sc.Name, sc.BaseDate.UTC().Format(timeLayout), sc.ForecastPeriodMonths, revision, now); err != nil {
			return fmt.Errorf("failed to save scenario: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM allocations WHERE scenario_id = ?"), sc.ID); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, s.rebind(`
INSERT INTO allocations (scenario_id, id, employee_id, subject_id, type, percentage, start_date,
	end_date, confidence, skill_category, skill_level, hourly_rate, estimated_hours)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range sc.Allocations {
			var category, level sql.NullString
			if a.Skill != nil {
				category = sql.NullString{String: a.Skill.Category, Valid: true}
				level = sql.NullString{String: string(a.Skill.Level), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				sc.ID, a.ID, a.EmployeeID, a.SubjectID, string(a.Type), a.Percentage,
				a.StartDate.UTC().Format(timeLayout), nullTime(a.EndDate), a.ConfidenceLevel,
				category, level, nullFloat(a.HourlyRate), nullFloat(a.EstimatedHours),
			); err != nil {
				return fmt.Errorf("failed to save allocation %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revision, nil
}

// LoadScenario returns a committed scenario with its allocations ordered by ID.
func (s *Store) LoadScenario(ctx context.Context, id string) (models.Scenario, int, error) {
	sc := models.Scenario{ID: id}
	var baseDate string
	var revision int
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT name, base_date, forecast_months, revision FROM scenarios WHERE id = ?"), id,
	).Scan(&sc.Name, &baseDate, &sc.ForecastPeriodMonths, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return sc, 0, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return sc, 0, err
	}
	if sc.BaseDate, err = parseTime(baseDate); err != nil {
		return sc, 0, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, employee_id, subject_id, type, percentage, start_date, end_date, confidence,
	skill_category, skill_level, hourly_rate, estimated_hours
FROM allocations WHERE scenario_id = ? ORDER BY id`), id)
	if err != nil {
		return sc, 0, err
	}
	defer rows.Close()

	sc.Allocations = make([]models.Allocation, 0)
	for rows.Next() {
		a := models.Allocation{ScenarioID: id}
		var (
			typ, start      string
			end             sql.NullString
			category, level sql.NullString
			rate, hours     sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.SubjectID, &typ, &a.Percentage, &start, &end,
			&a.ConfidenceLevel, &category, &level, &rate, &hours); err != nil {
			return sc, 0, err
		}
		a.Type = models.AllocationType(typ)
		if a.StartDate, err = parseTime(start); err != nil {
			return sc, 0, err
		}
		if end.Valid {
			t, err := parseTime(end.String)
			if err != nil {
				return sc, 0, err
			}
			a.EndDate = &t
		}
		if category.Valid {
			a.Skill = &models.Skill{Category: category.String, Level: models.ExperienceLevel(level.String)}
		}
		if rate.Valid {
			a.HourlyRate = &rate.Float64
		}
		if hours.Valid {
			a.EstimatedHours = &hours.Float64
		}
		sc.Allocations = append(sc.Allocations, a)
	}
	return sc, revision, rows.Err()
}
