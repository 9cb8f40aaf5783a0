package models

import "time"

// DemandSource tells where a demand record came from.
type DemandSource string

const (
	SourcePipeline DemandSource = "pipeline"
	SourceScenario DemandSource = "scenario"
)

// DemandRecord is projected demand for a skill on a date.
type DemandRecord struct {
	SkillCategory     string          `json:"skill_category"`
	ExperienceLevel   ExperienceLevel `json:"experience_level"`
	Date              time.Time       `json:"date"`
	RequiredHours     float64         `json:"required_hours"`
	ProbabilityWeight float64         `json:"probability_weight"`
	Source            DemandSource    `json:"source"`
	SourceID          string          `json:"source_id,omitempty"`
}

// ForecastBucket is demand against supply for one (period, skill, level).
type ForecastBucket struct {
	Period               time.Time       `json:"period"`
	SkillCategory        string          `json:"skill_category"`
	ExperienceLevel      ExperienceLevel `json:"experience_level"`
	DemandHours          float64         `json:"demand_hours"`
	SupplyHours          float64         `json:"supply_hours"`
	GapHours             float64         `json:"gap_hours"`
	UtilizationRate      float64         `json:"utilization_rate"`
	HiringRecommendation int             `json:"hiring_recommendation"`
	ConfidenceScore      float64         `json:"confidence_score"`
	ScenarioDemandHours  float64         `json:"scenario_demand_hours"`
	PipelineDemandHours  float64         `json:"pipeline_demand_hours"`
}

// Severity classifies how far over capacity a conflict peaks.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists severities from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Conflict is a contiguous period in which an employee is allocated over 100%.
type Conflict struct {
	EmployeeID                string    `json:"employee_id"`
	PeriodStart               time.Time `json:"period_start"`
	PeriodEnd                 time.Time `json:"period_end"`
	TotalAllocationPercentage float64   `json:"total_allocation_percentage"`
	ContributingAllocationIDs []string  `json:"contributing_allocation_ids"`
	Severity                  Severity  `json:"severity"`
	// ExcessWeeklyHours is zero when the employee's capacity is unknown.
	ExcessWeeklyHours float64 `json:"excess_weekly_hours"`
	ScenarioID        string  `json:"scenario_id,omitempty"`
}

// Task is a node of a schedule dependency graph.
type Task struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	DurationDays *int       `json:"duration_days,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
}

// TaskSchedule holds the derived CPM times of one task, in days from project start.
type TaskSchedule struct {
	TaskID       string `json:"task_id"`
	DurationDays int    `json:"duration_days"`
	ES           int    `json:"earliest_start"`
	EF           int    `json:"earliest_finish"`
	LS           int    `json:"latest_start"`
	LF           int    `json:"latest_finish"`
	Slack        int    `json:"slack"`
	IsCritical   bool   `json:"is_critical"`
	Wave         int    `json:"wave"`
}

// Wave is a group of tasks that can be staffed in parallel.
type Wave struct {
	Index      int      `json:"index"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"is_critical"`
}

// CriticalPathAnalysis is the result of a critical path run.
type CriticalPathAnalysis struct {
	Tasks           map[string]*TaskSchedule `json:"tasks"`
	TopoOrder       []string                 `json:"topo_order"`
	ProjectDuration int                      `json:"project_duration"`
	CriticalTaskIDs []string                 `json:"critical_task_ids"`
	CriticalPaths   [][]string               `json:"critical_paths"`
	// PathsTruncated is set when more critical paths exist than were listed.
	PathsTruncated bool   `json:"critical_paths_truncated,omitempty"`
	Waves          []Wave `json:"waves"`
}

// CostComparison compares total cost of two scenarios. Diff is B - A.
type CostComparison struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Diff      float64 `json:"diff"`
	PctChange float64 `json:"pct_change"`
}

// UtilizationComparison compares resource utilization percentages. Diff is B - A.
type UtilizationComparison struct {
	A    float64 `json:"a"`
	B    float64 `json:"b"`
	Diff float64 `json:"diff"`
}

// SkillGap is the aggregated unmet demand for a skill over a scenario horizon.
type SkillGap struct {
	SkillCategory   string          `json:"skill_category"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	DemandHours     float64         `json:"demand_hours"`
	SupplyHours     float64         `json:"supply_hours"`
	GapHours        float64         `json:"gap_hours"`
}

// SkillGapDelta pairs the gap of one skill in both scenarios.
type SkillGapDelta struct {
	SkillCategory   string          `json:"skill_category"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	GapA            float64         `json:"gap_a"`
	GapB            float64         `json:"gap_b"`
	// Improvement is GapA - GapB; positive means B leaves less unmet demand.
	Improvement float64 `json:"improvement"`
	// MissingIn is "a" or "b" when the key exists in only one scenario.
	MissingIn string `json:"missing_in,omitempty"`
}

// SkillGapComparison holds per-scenario gaps and their pairing.
type SkillGapComparison struct {
	A          []SkillGap      `json:"a"`
	B          []SkillGap      `json:"b"`
	Comparison []SkillGapDelta `json:"comparison"`
}

// ScenarioComparison is the differential view of two scenarios.
type ScenarioComparison struct {
	ScenarioA           string                `json:"scenario_a"`
	ScenarioB           string                `json:"scenario_b"`
	TotalCost           CostComparison        `json:"total_cost"`
	ResourceUtilization UtilizationComparison `json:"resource_utilization"`
	SkillGaps           SkillGapComparison    `json:"skill_gaps"`
	TimelineConflicts   []Conflict            `json:"timeline_conflicts"`
}

// RunSummary records one persisted planning run.
type RunSummary struct {
	ID              string        `json:"id"`
	Command         string        `json:"command"`
	ScenarioID      string        `json:"scenario_id,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Status          string        `json:"status"`
	Records         int           `json:"records"`
	Conflicts       int           `json:"conflicts"`
	FailedEmployees []string      `json:"failed_employees,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunPartial   = "partial"
	RunFailed    = "failed"
)
