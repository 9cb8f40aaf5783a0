// Package service runs the planning engine as batch jobs. It fetches capacity
// and demand snapshots, fans per-employee work out over a bounded worker pool
// under a timeout, and records the outcome of every run in metrics, logs and,
// when configured, the store.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"resource-planner/capacity"
	"resource-planner/config"
	"resource-planner/conflicts"
	"resource-planner/critpath"
	planerrors "resource-planner/errors"
	"resource-planner/forecast"
	"resource-planner/logger"
	"resource-planner/metrics"
	"resource-planner/models"
	"resource-planner/scenario"
	"resource-planner/scheduler"
)

// ErrNoStore is returned by operations that need persistence when no store is configured.
var ErrNoStore = fmt.Errorf("no store configured")

// Store persists committed scenarios and run summaries.
type Store interface {
	CommitScenario(ctx context.Context, sc models.Scenario) (int, error)
	LoadScenario(ctx context.Context, id string) (models.Scenario, int, error)
	SaveRun(ctx context.Context, run models.RunSummary) (string, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}

// Service owns one configuration and one capacity snapshot source.
type Service struct {
	cfg   config.Config
	caps  CapacitySource
	store Store
	now   func() time.Time
}

type Option func(*Service)

// WithStore persists run summaries and enables Commit and Runs.
func WithStore(st Store) Option {
	return func(s *Service) { s.store = st }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(cfg config.Config, caps CapacitySource, opts ...Option) *Service {
	s := &Service{cfg: cfg, caps: caps, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmployeeFailure is an employee whose allocations could not be checked.
type EmployeeFailure struct {
	EmployeeID string
	Err        error
}

// ConflictReport is the merged result of a batch conflict run.
type ConflictReport struct {
	Conflicts []models.Conflict
	Summary   conflicts.Summary
	// Failures are sorted by employee ID.
	Failures []EmployeeFailure
	Run      models.RunSummary
}

type employeeResult struct {
	conflicts []models.Conflict
	err       error
}

// Conflicts detects overallocations employee by employee. An employee whose
// allocations are invalid is reported in Failures and skipped; the others are
// still merged. Only the batch timeout fails the whole run.
func (s *Service) Conflicts(ctx context.Context, allocs []models.Allocation, horizon models.DateRange) (*ConflictReport, error) {
	report := &ConflictReport{}
	run, err := s.track(ctx, "conflicts", func(ctx context.Context, run *models.RunSummary) error {
		run.Records = len(allocs)

		byEmployee := conflicts.GroupByEmployee(allocs)
		ids := make([]string, 0, len(byEmployee))
		for id := range byEmployee {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		metrics.EmployeesProcessed.Observe(float64(len(ids)))

		capIdx := capacity.Index(s.caps.All())
		bands := s.cfg.Bands()
		results := make([]employeeResult, len(ids))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers())
		for i, id := range ids {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				var ec *models.EmployeeCapacity
				if c, ok := capIdx[id]; ok {
					ec = &c
				}
				found, err := conflicts.DetectEmployee(id, byEmployee[id], ec, horizon, bands)
				results[i] = employeeResult{conflicts: found, err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("conflict detection: %w", err)
		}

		for i, r := range results {
			if r.err != nil {
				logger.Warn("skipping employee", "employee", ids[i], "err", r.err)
				report.Failures = append(report.Failures, EmployeeFailure{EmployeeID: ids[i], Err: r.err})
				run.FailedEmployees = append(run.FailedEmployees, ids[i])
				continue
			}
			report.Conflicts = append(report.Conflicts, r.conflicts...)
		}
		metrics.EmployeeFailuresTotal.Add(float64(len(report.Failures)))
		if len(ids) > 0 && len(report.Failures) == len(ids) {
			return fmt.Errorf("all %d employees failed, first: %w", len(ids), report.Failures[0].Err)
		}

		conflicts.Sort(report.Conflicts)
		report.Summary = conflicts.Summarize(report.Conflicts)
		run.Conflicts = len(report.Conflicts)
		metrics.RecordConflicts(report.Conflicts)
		return nil
	})
	report.Run = run
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ForecastRequest selects the demand and window of a forecast run. A zero
// Start uses the current month. A nil Threshold uses the configured one.
type ForecastRequest struct {
	Sources   []DemandSource
	Start     time.Time
	Months    int
	Threshold *float64
}

type ForecastResult struct {
	Buckets []models.ForecastBucket
	Totals  []forecast.PeriodTotal
	Gaps    []models.SkillGap
	Run     models.RunSummary
}

// Forecast gathers demand from every source and projects it against the
// capacity of the employees holding the demanded skills.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) (*ForecastResult, error) {
	result := &ForecastResult{}
	run, err := s.track(ctx, "forecast", func(ctx context.Context, run *models.RunSummary) error {
		start := req.Start
		if start.IsZero() {
			start = s.now()
		}
		params := s.cfg.ForecastParams(models.MonthStart(start))
		if req.Months != 0 {
			params.ForecastMonths = req.Months
		}
		if req.Threshold != nil {
			params.ConfidenceThreshold = *req.Threshold
		}
		if params.ForecastMonths <= 0 {
			return fmt.Errorf("%w: forecast months %d must be positive", planerrors.ErrInvalidForecastWindow, params.ForecastMonths)
		}
		window := models.DateRange{Start: params.Start, End: params.Start.AddDate(0, params.ForecastMonths, -1)}

		var demand []models.DemandRecord
		for _, src := range req.Sources {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := src.Demand(ctx, window)
			if err != nil {
				return fmt.Errorf("collect demand: %w", err)
			}
			demand = append(demand, records...)
		}
		run.Records = len(demand)
		logger.Debug("demand collected", "records", len(demand), "sources", len(req.Sources))

		buckets, err := forecast.Forecast(demand, s.supplyFor(demand), params)
		if err != nil {
			return err
		}
		result.Buckets = buckets
		result.Totals = forecast.Totals(buckets)
		result.Gaps = forecast.GapsBySkill(buckets)
		metrics.RecordForecast(buckets)
		return nil
	})
	result.Run = run
	if err != nil {
		return nil, err
	}
	return result, nil
}

// supplyFor returns the employees holding any skill present in demand.
func (s *Service) supplyFor(demand []models.DemandRecord) []models.EmployeeCapacity {
	seenSkill := make(map[models.Skill]bool)
	seenEmployee := make(map[string]bool)
	var caps []models.EmployeeCapacity
	for _, d := range demand {
		skill := models.Skill{Category: d.SkillCategory, Level: d.ExperienceLevel}
		if seenSkill[skill] {
			continue
		}
		seenSkill[skill] = true
		for _, c := range s.caps.BySkill(skill) {
			if !seenEmployee[c.EmployeeID] {
				seenEmployee[c.EmployeeID] = true
				caps = append(caps, c)
			}
		}
	}
	return caps
}

// Compare evaluates two scenarios against the current capacity snapshot.
func (s *Service) Compare(ctx context.Context, a, b models.Scenario) (*models.ScenarioComparison, error) {
	var cmp *models.ScenarioComparison
	_, err := s.track(ctx, "compare", func(ctx context.Context, run *models.RunSummary) error {
		run.ScenarioID = a.ID + ".." + b.ID
		run.Records = len(a.Allocations) + len(b.Allocations)

		var err error
		cmp, err = scenario.Compare(a, b, s.caps.All(), s.cfg.ScenarioOptions())
		if err != nil {
			return err
		}
		run.Conflicts = len(cmp.TimelineConflicts)
		metrics.RecordComparison(cmp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cmp, nil
}

// CriticalPath analyzes a task graph.
func (s *Service) CriticalPath(ctx context.Context, tasks []models.Task) (*models.CriticalPathAnalysis, error) {
	var analysis *models.CriticalPathAnalysis
	_, err := s.track(ctx, "critical-path", func(ctx context.Context, run *models.RunSummary) error {
		run.Records = len(tasks)

		var err error
		analysis, err = critpath.Analyze(tasks)
		if err != nil {
			return err
		}
		metrics.RecordCriticalPath(analysis)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// Derive proposes candidate allocations for pipeline deals on top of the
// existing allocations. Nothing is stored; see Commit.
func (s *Service) Derive(ctx context.Context, scenarioID string, deals []models.PipelineDeal, existing []models.Allocation) (*models.CandidatePlan, error) {
	var plan *models.CandidatePlan
	_, err := s.track(ctx, "derive", func(ctx context.Context, run *models.RunSummary) error {
		run.ScenarioID = scenarioID
		run.Records = len(deals)

		var err error
		plan, err = scheduler.DeriveCandidates(scenarioID, deals, s.caps.All(), existing, s.cfg.SchedulerOptions())
		if err != nil {
			return err
		}
		metrics.RecordPlan(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Commit validates a scenario and stores it, returning its new revision.
// Every allocation is stamped with the scenario ID.
func (s *Service) Commit(ctx context.Context, sc models.Scenario) (int, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	var revision int
	_, err := s.track(ctx, "commit", func(ctx context.Context, run *models.RunSummary) error {
		run.ScenarioID = sc.ID
		run.Records = len(sc.Allocations)

		capIdx := capacity.Index(s.caps.All())
		allocs := make([]models.Allocation, len(sc.Allocations))
		for i, a := range sc.Allocations {
			if err := capacity.ValidateAllocation(a); err != nil {
				return err
			}
			if _, ok := capIdx[a.EmployeeID]; !ok {
				return fmt.Errorf("allocation %q: %w: %s", a.ID, planerrors.ErrUnknownEmployee, a.EmployeeID)
			}
			a.ScenarioID = sc.ID
			allocs[i] = a
		}
		sc.Allocations = allocs

		var err error
		revision, err = s.store.CommitScenario(ctx, sc)
		if err != nil {
			return fmt.Errorf("commit scenario %s: %w", sc.ID, err)
		}
		logger.Info("scenario committed", "scenario", sc.ID, "revision", revision, "allocations", len(allocs))
		return nil
	})
	return revision, err
}

// Scenario loads a committed scenario.
func (s *Service) Scenario(ctx context.Context, id string) (models.Scenario, error) {
	if s.store == nil {
		return models.Scenario{}, ErrNoStore
	}
	sc, _, err := s.store.LoadScenario(ctx, id)
	return sc, err
}

// Runs lists the most recent persisted runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) workers() int {
	if s.cfg.Service.Workers > 0 {
		return s.cfg.Service.Workers
	}
	return config.DefaultWorkers
}

// track runs fn under the batch timeout and records its outcome. The
// returned summary is complete even when fn fails.
func (s *Service) track(ctx context.Context, command string, fn func(context.Context, *models.RunSummary) error) (models.RunSummary, error) {
	run := models.RunSummary{Command: command, StartedAt: s.now().UTC()}
	timer := time.Now()
	metrics.ResetRunGauges()
	logger.Debug("run started", "command", command)

	runCtx := ctx
	if s.cfg.Service.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Service.Timeout)
		defer cancel()
	}

	err := fn(runCtx, &run)
	run.Duration = time.Since(timer)
	switch {
	case err != nil:
		run.Status = models.RunFailed
		run.Error = err.Error()
	case len(run.FailedEmployees) > 0:
		run.Status = models.RunPartial
	default:
		run.Status = models.RunSucceeded
	}

	metrics.RunDurationSeconds.WithLabelValues(command).Observe(run.Duration.Seconds())
	metrics.RunsTotal.WithLabelValues(command, run.Status).Inc()
	if err != nil {
		logger.Error("run failed", "command", command, "err", err, "error_type", metrics.ErrorType(err))
	} else {
		logger.Info("run finished", "command", command, "status", run.Status, "records", run.Records, "conflicts", run.Conflicts, "duration", run.Duration)
	}

	if s.store != nil {
		id, saveErr := s.store.SaveRun(ctx, run)
		if saveErr != nil {
			logger.Warn("could not save run summary", "command", command, "err", saveErr)
		} else {
			run.ID = id
		}
	}
	return run, err
}
