package config

import (
	"time"

	"resource-planner/conflicts"
	"resource-planner/forecast"
	"resource-planner/scenario"
	"resource-planner/scheduler"
)

// Bands returns the severity thresholds for conflict detection.
func (c Config) Bands() conflicts.Bands {
	return conflicts.Bands{Low: c.Severity.Low, Medium: c.Severity.Medium, High: c.Severity.High}
}

// ForecastParams returns forecast parameters anchored at start. A zero start
// lets the forecaster anchor on the earliest demand.
func (c Config) ForecastParams(start time.Time) forecast.Params {
	return forecast.Params{
		Start:               start,
		ForecastMonths:      c.Forecast.Months,
		ConfidenceThreshold: c.Forecast.ConfidenceThreshold,
		WeeksPerMonth:       c.Forecast.WeeksPerMonth,
		FTEWeeklyHours:      c.Forecast.FTEWeeklyHours,
	}
}

func (c Config) ScenarioOptions() scenario.Options {
	return scenario.Options{
		FallbackHourlyRate: c.Costing.FallbackHourlyRate,
		Bands:              c.Bands(),
		WeeksPerMonth:      c.Forecast.WeeksPerMonth,
		FTEWeeklyHours:     c.Forecast.FTEWeeklyHours,
	}
}

func (c Config) SchedulerOptions() scheduler.Options {
	return scheduler.Options{
		StageProbabilities: c.Pipeline.StageProbabilities,
		MinWeight:          c.Forecast.ConfidenceThreshold,
	}
}
