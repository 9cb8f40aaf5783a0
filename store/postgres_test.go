package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-planner/models"
	"resource-planner/store"
)

func TestIsPostgresDSN(t *testing.T) {
	tests := map[string]struct {
		dsn      string
		expected bool
	}{
		"URL":        {dsn: "postgres://planner@localhost/planner", expected: true},
		"LongScheme": {dsn: "postgresql://localhost/planner?sslmode=disable", expected: true},
		"File":       {dsn: "/var/lib/planner/planner.db", expected: false},
		"Relative":   {dsn: "postgres.db", expected: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, store.IsPostgresDSN(tt.dsn))
		})
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	s, err := store.Open(dsn)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	id := "pg-" + uuid.NewString()
	end := date(2, 28)
	sc := models.Scenario{
		ID: id, BaseDate: date(1, 1), ForecastPeriodMonths: 2,
		Allocations: []models.Allocation{{
			ID: "a1", EmployeeID: "e1", ScenarioID: id, Type: models.AllocationProbable,
			Percentage: 33.3, StartDate: date(1, 1), EndDate: &end, ConfidenceLevel: 4,
		}},
	}
	revision, err := s.CommitScenario(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 1, revision)

	loaded, _, err := s.LoadScenario(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sc.Allocations, loaded.Allocations)

	runID, err := s.SaveRun(ctx, models.RunSummary{
		Command: "conflicts", ScenarioID: id, StartedAt: time.Now().UTC(), Status: models.RunSucceeded,
	})
	require.NoError(t, err)
	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
}
