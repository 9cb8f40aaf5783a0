package service

import (
	"context"
	"slices"

	"resource-planner/forecast"
	"resource-planner/models"
)

// CapacitySource hands out snapshots of employee capacity. Callers must not
// modify the returned slices.
type CapacitySource interface {
	All() []models.EmployeeCapacity
	// BySkill returns every employee holding skill, active or not.
	BySkill(skill models.Skill) []models.EmployeeCapacity
}

// StaticCapacities is an in-memory CapacitySource.
type StaticCapacities []models.EmployeeCapacity

func (s StaticCapacities) All() []models.EmployeeCapacity {
	return slices.Clone(s)
}

func (s StaticCapacities) BySkill(skill models.Skill) []models.EmployeeCapacity {
	var out []models.EmployeeCapacity
	for _, c := range s {
		if c.HasSkill(skill) {
			out = append(out, c)
		}
	}
	return out
}

// DemandSource produces demand records for a forecast window.
type DemandSource interface {
	Demand(ctx context.Context, window models.DateRange) ([]models.DemandRecord, error)
}

// StaticDemand is demand read up front, e.g. from a CSV file. Records outside
// the window are left for the forecaster to drop.
type StaticDemand []models.DemandRecord

func (d StaticDemand) Demand(_ context.Context, _ models.DateRange) ([]models.DemandRecord, error) {
	return slices.Clone(d), nil
}

// PipelineSource derives demand from sales pipeline deals.
type PipelineSource struct {
	Deals              []models.PipelineDeal
	StageProbabilities map[string]float64
}

func (p PipelineSource) Demand(_ context.Context, window models.DateRange) ([]models.DemandRecord, error) {
	return forecast.PipelineDemand(p.Deals, p.StageProbabilities, window)
}

// ScenarioSource derives demand from the allocations of a scenario.
type ScenarioSource struct {
	Scenario   models.Scenario
	Capacities CapacitySource
}

func (s ScenarioSource) Demand(_ context.Context, _ models.DateRange) ([]models.DemandRecord, error) {
	return forecast.ScenarioDemand(s.Scenario, s.Capacities.All())
}
