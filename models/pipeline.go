package models

import "time"

// PipelineDeal is a sales opportunity that will need staff if it closes.
type PipelineDeal struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Stage string `json:"stage" yaml:"stage"`
	// Probability is the deal's own win probability, 0..100.
	Probability  float64       `json:"probability" yaml:"probability"`
	StartDate    time.Time     `json:"start_date" yaml:"start_date"`
	EndDate      time.Time     `json:"end_date" yaml:"end_date"`
	Requirements []Requirement `json:"requirements" yaml:"requirements"`
}

// Requirement is the staffing need of a deal for one skill.
type Requirement struct {
	Skill        Skill   `json:"skill" yaml:"skill"`
	HoursPerWeek float64 `json:"hours_per_week" yaml:"hours_per_week"`
	// Priority 1 is highest.
	Priority int `json:"priority" yaml:"priority"`
}

// UnmetRequirement tracks demand that could not be turned into candidate allocations.
type UnmetRequirement struct {
	DealID         string  `json:"deal_id"`
	Skill          Skill   `json:"skill"`
	RequestedHours float64 `json:"requested_hours_per_week"`
	AllocatedHours float64 `json:"allocated_hours_per_week"`
	UnmetHours     float64 `json:"unmet_hours_per_week"`
	Priority       int     `json:"priority"`
}

// CandidatePlan is the output of deriving allocations from pipeline demand.
// It is never applied implicitly; committing is a separate step.
type CandidatePlan struct {
	ScenarioID  string             `json:"scenario_id"`
	Allocations []Allocation       `json:"allocations"`
	Unmet       []UnmetRequirement `json:"unmet"`
}
