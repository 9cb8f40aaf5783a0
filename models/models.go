package models

import "time"

// ExperienceLevel is the seniority band a skill is held at.
type ExperienceLevel string

const (
	LevelJunior    ExperienceLevel = "junior"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelLead      ExperienceLevel = "lead"
	LevelPrincipal ExperienceLevel = "principal"
)

// ValidLevel reports whether l is a known experience level.
func ValidLevel(l ExperienceLevel) bool {
	switch l {
	case LevelJunior, LevelMid, LevelSenior, LevelLead, LevelPrincipal:
		return true
	}
	return false
}

// Skill is a (category, experience level) pair. It is the key used to match
// demand against supply.
type Skill struct {
	Category string          `json:"skill_category" yaml:"category"`
	Level    ExperienceLevel `json:"experience_level" yaml:"level"`
}

// EmployeeCapacity is a point-in-time snapshot of an employee's capacity.
type EmployeeCapacity struct {
	EmployeeID  string   `json:"employee_id"`
	Name        string   `json:"name,omitempty"`
	WeeklyHours float64  `json:"weekly_hours"`
	Skills      []Skill  `json:"skills"`
	HourlyRate  *float64 `json:"hourly_rate,omitempty"`
	// Inactive employees keep their allocations but contribute no supply.
	Inactive bool `json:"inactive,omitempty"`
}

// HasSkill reports whether the employee holds s.
func (e EmployeeCapacity) HasSkill(s Skill) bool {
	for _, sk := range e.Skills {
		if sk == s {
			return true
		}
	}
	return false
}

// PrimarySkill returns the first listed skill, if any.
func (e EmployeeCapacity) PrimarySkill() (Skill, bool) {
	if len(e.Skills) == 0 {
		return Skill{}, false
	}
	return e.Skills[0], true
}

// AllocationType describes how firm an allocation is.
type AllocationType string

const (
	AllocationTentative AllocationType = "tentative"
	AllocationProbable  AllocationType = "probable"
	AllocationConfirmed AllocationType = "confirmed"
)

// LiveScenarioID identifies the scenario holding live project assignments.
const LiveScenarioID = "live"

// Allocation assigns a fraction of an employee's weekly capacity to a subject
// (project or scenario allocation) for a date range.
type Allocation struct {
	ID         string         `json:"id"`
	EmployeeID string         `json:"employee_id"`
	SubjectID  string         `json:"subject_id"`
	ScenarioID string         `json:"scenario_id,omitempty"`
	Type       AllocationType `json:"allocation_type"`
	// Percentage of the employee's weekly capacity, in (0, 100].
	Percentage float64    `json:"percentage"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"` // nil means open ended
	// ConfidenceLevel ranges 1..5.
	ConfidenceLevel int `json:"confidence_level"`
	// Skill is the role being filled. Defaults to the employee's primary skill.
	Skill          *Skill   `json:"skill,omitempty"`
	HourlyRate     *float64 `json:"hourly_rate,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Days returns the number of calendar days covered, or 0 for an empty range.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(Day(r.End).Sub(Day(r.Start)).Hours()/24) + 1
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Scenario is a closed world of allocations evaluated against a base date.
type Scenario struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name,omitempty"`
	BaseDate             time.Time    `json:"base_date"`
	ForecastPeriodMonths int          `json:"forecast_period_months"`
	Allocations          []Allocation `json:"allocations"`
}

// Horizon is [BaseDate, BaseDate + ForecastPeriodMonths) as an inclusive day range.
func (s Scenario) Horizon() DateRange {
	start := Day(s.BaseDate)
	return DateRange{
		Start: start,
		End:   start.AddDate(0, s.ForecastPeriodMonths, -1),
	}
}

// EmployeeIDs returns the set of employees holding allocations in the scenario.
func (s Scenario) EmployeeIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Allocations))
	for _, a := range s.Allocations {
		ids[a.EmployeeID] = true
	}
	return ids
}
