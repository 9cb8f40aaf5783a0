// Package metrics provides Prometheus observability metrics for the resource planner.
// It includes Critical and Important metrics for business and operational visibility.
package metrics

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"resource-planner/errors"
	"resource-planner/models"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// CRITICAL METRICS - Business Impact Visibility
// =============================================================================

// ConflictsBySeverity is the number of conflicts found by the last run, per severity.
var ConflictsBySeverity = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "planner",
	Name:      "conflicts",
	Help:      "Overallocation conflicts found by the last run, by severity",
}, []string{"severity"})

// ConflictsDetectedTotal counts every conflict ever reported.
var ConflictsDetectedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planner",
	Name:      "conflicts_detected_total",
	Help:      "Total overallocation conflicts detected, by severity",
}, []string{"severity"})

// OverallocatedEmployees is the number of employees with at least one conflict.
var OverallocatedEmployees = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "planner",
	Name:      "overallocated_employees",
	Help:      "Employees with at least one overallocation conflict in the last run",
})

// ForecastGapHours tracks the summed demand-supply gap per skill.
// Positive values mean demand exceeds supply.
var ForecastGapHours = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "gap_hours",
	Help:      "Demand minus supply hours over the forecast window, by skill and level",
}, []string{"skill", "level"})

// ForecastHiresRecommended is the total FTE hiring recommendation of the last forecast.
var ForecastHiresRecommended = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "hires_recommended",
	Help:      "FTE hires recommended over the forecast window",
})

// ForecastDemandHours and ForecastSupplyHours total the last forecast.
var ForecastDemandHours = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "demand_hours",
	Help:      "Weighted demand hours over the forecast window",
})

var ForecastSupplyHours = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "forecast",
	Name:      "supply_hours",
	Help:      "Supply hours matching forecast demand over the window",
})

// ScenarioCost tracks the total cost of each compared scenario.
var ScenarioCost = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scenario",
	Name:      "cost",
	Help:      "Total cost of a compared scenario",
}, []string{"scenario"})

// ScenarioUtilization tracks resource utilization percentage of compared scenarios.
var ScenarioUtilization = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scenario",
	Name:      "utilization_percent",
	Help:      "Resource utilization of a compared scenario",
}, []string{"scenario"})

// CandidateUnmetHours is the weekly hours of pipeline demand no one could be found for.
var CandidateUnmetHours = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "scheduler",
	Name:      "candidate_unmet_hours",
	Help:      "Weekly hours of pipeline requirements left unstaffed by candidate derivation",
})

// CandidateAllocationsTotal counts derived candidate allocations.
var CandidateAllocationsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "scheduler",
	Name:      "candidate_allocations_total",
	Help:      "Candidate allocations derived from pipeline demand",
})

// ProjectDurationDays is the critical path length of the last analysis.
var ProjectDurationDays = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "critpath",
	Name:      "project_duration_days",
	Help:      "Project duration along the critical path",
})

// CriticalTasks is the number of zero-slack tasks of the last analysis.
var CriticalTasks = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "critpath",
	Name:      "critical_tasks",
	Help:      "Tasks with zero slack in the last analysis",
})

// =============================================================================
// IMPORTANT METRICS - Operational Health
// =============================================================================

// ParserErrorsTotal tracks parse errors by error type.
var ParserErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "errors_total",
	Help:      "Total parse errors by input and error type",
}, []string{"input", "error_type"})

// ParserRecordsTotal tracks total records successfully parsed.
var ParserRecordsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "records_total",
	Help:      "Total records successfully parsed, by input",
}, []string{"input"})

// ParserDurationSeconds tracks time to parse input files.
var ParserDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to parse an input file",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
}, []string{"input"})

// RunDurationSeconds tracks time to run a planning command.
var RunDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "planner",
	Name:      "run_duration_seconds",
	Help:      "Time taken by a planning run",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 5},
}, []string{"command"})

// RunsTotal counts runs by command and final status.
var RunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planner",
	Name:      "runs_total",
	Help:      "Planning runs by command and status",
}, []string{"command", "status"})

// EmployeeFailuresTotal counts employees skipped because their inputs were invalid.
var EmployeeFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "planner",
	Name:      "employee_failures_total",
	Help:      "Employees skipped during batch conflict detection",
})

// EmployeesProcessed tracks number of employees per batch run.
var EmployeesProcessed = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "planner",
	Name:      "employees_processed",
	Help:      "Number of employees processed per batch run",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetRunGauges resets all per-run gauges before a new run.
func ResetRunGauges() {
	ConflictsBySeverity.Reset()
	OverallocatedEmployees.Set(0)
	ForecastGapHours.Reset()
	ForecastHiresRecommended.Set(0)
	ForecastDemandHours.Set(0)
	ForecastSupplyHours.Set(0)
	CandidateUnmetHours.Set(0)
	ProjectDurationDays.Set(0)
	CriticalTasks.Set(0)
}

// RecordConflicts publishes a conflict list.
func RecordConflicts(cs []models.Conflict) {
	employees := make(map[string]bool)
	for _, sev := range models.Severities {
		ConflictsBySeverity.WithLabelValues(string(sev)).Set(0)
	}
	for _, c := range cs {
		ConflictsBySeverity.WithLabelValues(string(c.Severity)).Inc()
		ConflictsDetectedTotal.WithLabelValues(string(c.Severity)).Inc()
		employees[c.EmployeeID] = true
	}
	OverallocatedEmployees.Set(float64(len(employees)))
}

// RecordForecast publishes forecast totals and per-skill gaps.
func RecordForecast(buckets []models.ForecastBucket) {
	ForecastGapHours.Reset()
	var demand, supply float64
	hires := 0
	for _, b := range buckets {
		ForecastGapHours.WithLabelValues(b.SkillCategory, string(b.ExperienceLevel)).Add(b.GapHours)
		demand += b.DemandHours
		supply += b.SupplyHours
		hires += b.HiringRecommendation
	}
	ForecastDemandHours.Set(demand)
	ForecastSupplyHours.Set(supply)
	ForecastHiresRecommended.Set(float64(hires))
}

// RecordComparison publishes both sides of a scenario comparison.
func RecordComparison(c *models.ScenarioComparison) {
	ScenarioCost.WithLabelValues(c.ScenarioA).Set(c.TotalCost.A)
	ScenarioCost.WithLabelValues(c.ScenarioB).Set(c.TotalCost.B)
	ScenarioUtilization.WithLabelValues(c.ScenarioA).Set(c.ResourceUtilization.A)
	ScenarioUtilization.WithLabelValues(c.ScenarioB).Set(c.ResourceUtilization.B)
}

// RecordCriticalPath publishes the size of a critical path analysis.
func RecordCriticalPath(r *models.CriticalPathAnalysis) {
	ProjectDurationDays.Set(float64(r.ProjectDuration))
	CriticalTasks.Set(float64(len(r.CriticalTaskIDs)))
}

// RecordPlan publishes a candidate plan.
func RecordPlan(p *models.CandidatePlan) {
	CandidateAllocationsTotal.Add(float64(len(p.Allocations)))
	unmet := 0.0
	for _, u := range p.Unmet {
		unmet += u.UnmetHours
	}
	CandidateUnmetHours.Set(unmet)
}

// errorTypes maps error kinds to stable label values. Order matters: more
// specific kinds come before the kinds they wrap.
var errorTypes = []struct {
	err   error
	label string
}{
	{errors.ErrInvalidFieldCount, "invalid_field_count"},
	{errors.ErrInvalidNumber, "invalid_number"},
	{errors.ErrInvalidDate, "invalid_date"},
	{errors.ErrInvalidSkill, "invalid_skill"},
	{errors.ErrInvalidType, "invalid_type"},
	{errors.ErrMissingField, "missing_field"},
	{errors.ErrEmptyRecord, "empty_record"},
	{errors.ErrInvalidDateRange, "invalid_date_range"},
	{errors.ErrInvalidAllocation, "invalid_allocation"},
	{errors.ErrInvalidCapacity, "invalid_capacity"},
	{errors.ErrInvalidForecastWindow, "invalid_forecast_window"},
	{errors.ErrCyclicDependency, "cyclic_dependency"},
	{errors.ErrUnknownDependency, "unknown_dependency"},
	{errors.ErrMissingHourlyRate, "missing_hourly_rate"},
	{errors.ErrInvalidDemand, "invalid_demand"},
	{errors.ErrInvalidTask, "invalid_task"},
	{errors.ErrUnknownEmployee, "unknown_employee"},
	{errors.ErrInvalidConfig, "invalid_config"},
}

// ErrorType returns the label value for err.
func ErrorType(err error) string {
	for _, et := range errorTypes {
		if stderrors.Is(err, et.err) {
			return et.label
		}
	}
	return "other"
}
