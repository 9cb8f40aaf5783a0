package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-planner/config"
	customerrors "resource-planner/errors"
	"resource-planner/metrics"
	"resource-planner/models"
	"resource-planner/service"
	"resource-planner/store"
)

var (
	backendSenior = models.Skill{Category: "backend", Level: models.LevelSenior}
	frontendMid   = models.Skill{Category: "frontend", Level: models.LevelMid}
)

func date(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func team() service.StaticCapacities {
	return service.StaticCapacities{
		{EmployeeID: "e1", Name: "Ada", WeeklyHours: 40, Skills: []models.Skill{backendSenior}, HourlyRate: ptr(100.0)},
		{EmployeeID: "e2", Name: "Bo", WeeklyHours: 40, Skills: []models.Skill{frontendMid}, HourlyRate: ptr(80.0)},
		{EmployeeID: "e3", Name: "Cy", WeeklyHours: 32, Skills: []models.Skill{backendSenior, frontendMid}, HourlyRate: ptr(90.0)},
	}
}

func alloc(id, employee string, pct float64, start, end time.Time) models.Allocation {
	return models.Allocation{
		ID: id, EmployeeID: employee, SubjectID: "p-" + id, ScenarioID: models.LiveScenarioID,
		Type: models.AllocationConfirmed, Percentage: pct, StartDate: start, EndDate: &end, ConfidenceLevel: 5,
	}
}

// clock returns a time source that advances one second per call.
func clock() func() time.Time {
	t := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newService(t *testing.T, cfg config.Config) (*service.Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return service.New(cfg, team(), service.WithStore(st), service.WithClock(clock())), st
}

var q1 = models.DateRange{Start: date(1, 1), End: date(3, 31)}

func TestConflicts_IsolatesFailedEmployees(t *testing.T) {
	svc, st := newService(t, config.Default())
	failuresBefore := testutil.ToFloat64(metrics.EmployeeFailuresTotal)

	bad := alloc("b1", "e2", 0, date(1, 1), date(1, 31))
	report, err := svc.Conflicts(context.Background(), []models.Allocation{
		alloc("a1", "e1", 60, date(1, 1), date(1, 31)),
		alloc("a2", "e1", 60, date(1, 1), date(1, 31)),
		bad,
		alloc("c1", "e3", 100, date(2, 1), date(2, 28)),
	}, q1)
	require.NoError(t, err)

	require.Len(t, report.Conflicts, 1)
	c := report.Conflicts[0]
	assert.Equal(t, "e1", c.EmployeeID)
	assert.Equal(t, 120.0, c.TotalAllocationPercentage)
	assert.Equal(t, models.SeverityMedium, c.Severity)
	assert.Equal(t, 1, report.Summary.Total)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "e2", report.Failures[0].EmployeeID)
	assert.ErrorIs(t, report.Failures[0].Err, customerrors.ErrInvalidAllocation)

	assert.Equal(t, models.RunPartial, report.Run.Status)
	assert.Equal(t, []string{"e2"}, report.Run.FailedEmployees)
	assert.Equal(t, 4, report.Run.Records)
	assert.NotEmpty(t, report.Run.ID)
	assert.Equal(t, failuresBefore+1, testutil.ToFloat64(metrics.EmployeeFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConflictsBySeverity.WithLabelValues("medium")))

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "conflicts", runs[0].Command)
	assert.Equal(t, 1, runs[0].Conflicts)
}

func TestConflicts_MatchesSequentialDetection(t *testing.T) {
	cfg := config.Default()
	cfg.Service.Workers = 1
	svc := service.New(cfg, team())

	allocs := []models.Allocation{
		alloc("a1", "e1", 80, date(1, 1), date(2, 28)),
		alloc("a2", "e1", 50, date(2, 1), date(3, 31)),
		alloc("b1", "e2", 70, date(1, 10), date(1, 20)),
		alloc("b2", "e2", 70, date(1, 15), date(1, 25)),
		alloc("c1", "e3", 100, date(1, 1), date(3, 31)),
		alloc("c2", "e3", 90, date(3, 1), date(3, 31)),
	}
	one, err := svc.Conflicts(context.Background(), allocs, q1)
	require.NoError(t, err)

	cfg.Service.Workers = 8
	many, err := service.New(cfg, team()).Conflicts(context.Background(), allocs, q1)
	require.NoError(t, err)

	assert.Len(t, one.Conflicts, 3)
	assert.Equal(t, one.Conflicts, many.Conflicts)
	assert.Equal(t, models.RunSucceeded, many.Run.Status)
}

func TestConflicts_AllEmployeesFail(t *testing.T) {
	svc, st := newService(t, config.Default())

	_, err := svc.Conflicts(context.Background(), []models.Allocation{
		alloc("a1", "e1", 120, date(1, 1), date(1, 31)),
	}, q1)
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrInvalidAllocation)

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestConflicts_Cancelled(t *testing.T) {
	svc := service.New(config.Default(), team())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Conflicts(ctx, []models.Allocation{
		alloc("a1", "e1", 60, date(1, 1), date(1, 31)),
		alloc("a2", "e1", 60, date(1, 1), date(1, 31)),
	}, q1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForecast_CombinesSources(t *testing.T) {
	svc := service.New(config.Default(), team(), service.WithClock(clock()))

	res, err := svc.Forecast(context.Background(), service.ForecastRequest{
		Sources: []service.DemandSource{
			service.StaticDemand{{
				SkillCategory: "backend", ExperienceLevel: models.LevelSenior, Date: date(1, 15),
				RequiredHours: 400, ProbabilityWeight: 1, Source: models.SourceScenario,
			}},
			service.PipelineSource{
				Deals: []models.PipelineDeal{{
					ID: "d1", Stage: "closed_won", Probability: 100, StartDate: date(2, 1), EndDate: date(2, 28),
					Requirements: []models.Requirement{{Skill: frontendMid, HoursPerWeek: 40, Priority: 1}},
				}},
				StageProbabilities: config.Default().Pipeline.StageProbabilities,
			},
		},
		Start:  date(1, 1),
		Months: 3,
	})
	require.NoError(t, err)
	require.Len(t, res.Buckets, 2)

	jan := res.Buckets[0]
	assert.Equal(t, date(1, 1), jan.Period)
	assert.Equal(t, "backend", jan.SkillCategory)
	assert.InDelta(t, 400, jan.DemandHours, 1e-9)
	// e1 and e3 hold backend:senior
	assert.InDelta(t, 2*36*4.33, jan.SupplyHours, 1e-6)

	feb := res.Buckets[1]
	assert.Equal(t, "frontend", feb.SkillCategory)
	assert.InDelta(t, 160, feb.DemandHours, 1e-9)
	assert.Len(t, res.Totals, 2)
	assert.Equal(t, 2, res.Run.Records)
	assert.Equal(t, models.RunSucceeded, res.Run.Status)
}

func TestForecast_ScenarioSource(t *testing.T) {
	svc := service.New(config.Default(), team())
	sc := models.Scenario{
		ID: "s1", BaseDate: date(1, 1), ForecastPeriodMonths: 1,
		Allocations: []models.Allocation{{
			ID: "x", EmployeeID: "ghost", Type: models.AllocationConfirmed, Percentage: 50,
			StartDate: date(1, 1), ConfidenceLevel: 5,
		}},
	}

	_, err := svc.Forecast(context.Background(), service.ForecastRequest{
		Sources: []service.DemandSource{service.ScenarioSource{Scenario: sc, Capacities: team()}},
		Start:   date(1, 1),
		Months:  1,
	})
	assert.ErrorIs(t, err, customerrors.ErrUnknownEmployee)
}

func TestForecast_InvalidWindow(t *testing.T) {
	svc := service.New(config.Default(), team())
	_, err := svc.Forecast(context.Background(), service.ForecastRequest{Start: date(1, 1), Months: -1})
	assert.ErrorIs(t, err, customerrors.ErrInvalidForecastWindow)
}

func TestCompareCriticalPathAndDerive(t *testing.T) {
	svc, st := newService(t, config.Default())
	ctx := context.Background()

	a := models.Scenario{ID: "a", BaseDate: date(1, 1), ForecastPeriodMonths: 1,
		Allocations: []models.Allocation{alloc("a1", "e1", 50, date(1, 1), date(1, 31))}}
	b := models.Scenario{ID: "b", BaseDate: date(1, 1), ForecastPeriodMonths: 1,
		Allocations: []models.Allocation{alloc("b1", "e1", 100, date(1, 1), date(1, 31))}}
	cmp, err := svc.Compare(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, "a", cmp.ScenarioA)
	assert.InDelta(t, cmp.TotalCost.A*2, cmp.TotalCost.B, 1e-6)

	analysis, err := svc.CriticalPath(ctx, []models.Task{
		{ID: "design", DurationDays: ptr(2)},
		{ID: "build", DurationDays: ptr(3), Dependencies: []string{"design"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, analysis.ProjectDuration)

	_, err = svc.CriticalPath(ctx, []models.Task{
		{ID: "x", DurationDays: ptr(1), Dependencies: []string{"y"}},
		{ID: "y", DurationDays: ptr(1), Dependencies: []string{"x"}},
	})
	assert.ErrorIs(t, err, customerrors.ErrCyclicDependency)

	plan, err := svc.Derive(ctx, "pipeline", []models.PipelineDeal{{
		ID: "d1", Stage: "closed_won", Probability: 100, StartDate: date(4, 1), EndDate: date(4, 30),
		Requirements: []models.Requirement{{Skill: frontendMid, HoursPerWeek: 20, Priority: 1}},
	}}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Allocations)
	assert.Empty(t, plan.Unmet)

	runs, err := svc.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "derive", runs[0].Command)
	assert.Equal(t, models.RunFailed, runs[1].Status)
	assert.Equal(t, "a..b", runs[3].ScenarioID)

	stored, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		allocs  []models.Allocation
		wantErr error
	}{
		"Valid": {
			allocs: []models.Allocation{alloc("a1", "e1", 50, date(1, 1), date(1, 31))},
		},
		"UnknownEmployee": {
			allocs:  []models.Allocation{alloc("a1", "ghost", 50, date(1, 1), date(1, 31))},
			wantErr: customerrors.ErrUnknownEmployee,
		},
		"InvalidDateRange": {
			allocs:  []models.Allocation{alloc("a1", "e1", 50, date(2, 1), date(1, 31))},
			wantErr: customerrors.ErrInvalidDateRange,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, _ := newService(t, config.Default())
			sc := models.Scenario{ID: "plan", BaseDate: date(1, 1), ForecastPeriodMonths: 3, Allocations: tt.allocs}

			revision, err := svc.Commit(ctx, sc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, revision)

			loaded, err := svc.Scenario(ctx, "plan")
			require.NoError(t, err)
			require.Len(t, loaded.Allocations, 1)
			assert.Equal(t, "plan", loaded.Allocations[0].ScenarioID)
			assert.Equal(t, models.LiveScenarioID, sc.Allocations[0].ScenarioID, "input untouched")
		})
	}
}

func TestRunsResetGauges(t *testing.T) {
	svc := service.New(config.Default(), team())
	ctx := context.Background()

	_, err := svc.CriticalPath(ctx, []models.Task{{ID: "a", DurationDays: ptr(9)}})
	require.NoError(t, err)
	assert.Equal(t, 9.0, testutil.ToFloat64(metrics.ProjectDurationDays))

	// a failed run leaves no stale value behind
	_, err = svc.CriticalPath(ctx, []models.Task{{ID: "a", Dependencies: []string{"a"}}})
	require.Error(t, err)
	assert.Zero(t, testutil.ToFloat64(metrics.ProjectDurationDays))
}

func TestWithoutStore(t *testing.T) {
	svc := service.New(config.Default(), team())
	ctx := context.Background()

	_, err := svc.Commit(ctx, models.Scenario{ID: "x"})
	assert.ErrorIs(t, err, service.ErrNoStore)
	_, err = svc.Runs(ctx, 10)
	assert.ErrorIs(t, err, service.ErrNoStore)
	_, err = svc.Scenario(ctx, "x")
	assert.ErrorIs(t, err, service.ErrNoStore)
}

func TestStaticCapacities(t *testing.T) {
	caps := team()

	backend := caps.BySkill(backendSenior)
	require.Len(t, backend, 2)
	assert.Equal(t, "e1", backend[0].EmployeeID)
	assert.Equal(t, "e3", backend[1].EmployeeID)
	assert.Empty(t, caps.BySkill(models.Skill{Category: "design", Level: models.LevelLead}))

	all := caps.All()
	all[0].Name = "changed"
	assert.Equal(t, "Ada", caps[0].Name)
}
