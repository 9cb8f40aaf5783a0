package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-planner/models"
)

const capacitiesCSV = `# employee_id,name,weekly_hours,skills,hourly_rate
e1,Ada,40,backend:senior,100
e2,Bo,40,frontend:mid,80
`

const allocationsCSV = `# id,employee,subject,scenario,type,percentage,start,end,confidence
a1,e1,p1,,confirmed,70,2025-01-01,2025-01-31,5
a2,e1,p2,,tentative,60,2025-01-15,2025-02-15,3
b1,e2,p1,,confirmed,50,2025-01-01,,4
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestConflictsCommand(t *testing.T) {
	dir := t.TempDir()
	caps := writeFile(t, dir, "caps.csv", capacitiesCSV)
	allocs := writeFile(t, dir, "allocs.csv", allocationsCSV)

	out, err := run(t, "conflicts", "--capacities", caps, "--allocations", allocs,
		"--start", "2025-01-01", "--months", "3", "--format", "json")
	require.NoError(t, err)

	var conflicts []models.Conflict
	require.NoError(t, json.Unmarshal([]byte(out), &conflicts))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "e1", conflicts[0].EmployeeID)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), conflicts[0].PeriodStart)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), conflicts[0].PeriodEnd)
	assert.Equal(t, models.SeverityHigh, conflicts[0].Severity)
}

func TestCriticalPathCommand(t *testing.T) {
	dir := t.TempDir()
	tasks := writeFile(t, dir, "tasks.csv", `# id,name,duration,deps
design,Design,2,
build,Build,3,design
docs,Docs,1,design
`)

	out, err := run(t, "critical-path", "--tasks", tasks, "--format", "json")
	require.NoError(t, err)

	var analysis models.CriticalPathAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Equal(t, 5, analysis.ProjectDuration)
	assert.Equal(t, []string{"design", "build"}, analysis.CriticalTaskIDs)
}

func TestCommitAndRuns(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "planner.db")
	caps := writeFile(t, dir, "caps.csv", capacitiesCSV)
	allocs := writeFile(t, dir, "allocs.csv", allocationsCSV)

	out, err := run(t, "commit", "--db", db, "--capacities", caps, "--allocations", allocs, "--scenario-id", "q1")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed scenario q1 (revision 1, 3 allocations)")

	out, err = run(t, "compare", "--db", db, "--capacities", caps, "--a-id", "q1", "--b", allocs, "--format", "json")
	require.NoError(t, err)
	var cmp models.ScenarioComparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	assert.Equal(t, "q1", cmp.ScenarioA)
	assert.Equal(t, "allocs", cmp.ScenarioB)

	out, err = run(t, "runs", "--db", db, "--format", "json")
	require.NoError(t, err)
	var runs []models.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "commit", runs[1].Command)
	assert.Equal(t, models.RunSucceeded, runs[1].Status)
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	caps := writeFile(t, dir, "caps.csv", capacitiesCSV)
	allocs := writeFile(t, dir, "allocs.csv", allocationsCSV)

	tests := map[string]struct {
		args     []string
		contains string
	}{
		"BadFormat": {
			args:     []string{"conflicts", "--allocations", allocs, "--format", "xml"},
			contains: "format must be one of",
		},
		"MissingRequiredFlag": {
			args:     []string{"critical-path"},
			contains: "tasks",
		},
		"NoDemandSource": {
			args:     []string{"forecast", "--capacities", caps},
			contains: "at least one of",
		},
		"RunsWithoutDB": {
			args:     []string{"runs"},
			contains: "no store configured",
		},
		"BadStart": {
			args:     []string{"conflicts", "--allocations", allocs, "--start", "01/02/2025"},
			contains: "invalid date",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestScenarioFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plan-b.csv", `a1,e1,p1,alt,confirmed,50,2025-03-10,2025-04-30,5
a2,e2,p1,alt,probable,50,2025-02-20,,4
`)

	sc, err := scenarioFromFile(path, "", time.Time{}, 6)
	require.NoError(t, err)
	assert.Equal(t, "alt", sc.ID)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), sc.BaseDate)
	assert.Equal(t, 6, sc.ForecastPeriodMonths)
	assert.Len(t, sc.Allocations, 2)

	mixed := writeFile(t, dir, "mixed.csv", allocationsCSV)
	sc, err = scenarioFromFile(mixed, "", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	assert.Equal(t, "mixed", sc.ID)
}
