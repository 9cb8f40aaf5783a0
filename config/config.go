// Package config loads the tunables of the planning engine from YAML.
//
// Every threshold the engine uses (severity bands, the weeks-per-month
// approximation, FTE hours, the fallback hourly rate, pipeline stage
// conversion rates) is a named value here rather than a literal in the
// algorithms.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	planerrors "resource-planner/errors"
)

// Defaults.
const (
	DefaultWeeksPerMonth  = 4.33
	DefaultFTEWeeklyHours = 40.0
	DefaultForecastMonths = 6
	DefaultWorkers        = 4
	DefaultTimeout        = 30 * time.Second
)

// Config is the root configuration document.
type Config struct {
	Severity SeverityConfig `yaml:"severity"`
	Forecast ForecastConfig `yaml:"forecast"`
	Costing  CostingConfig  `yaml:"costing"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Service  ServiceConfig  `yaml:"service"`
}

// SeverityConfig holds the upper bounds (inclusive) of each severity band, in
// percent of capacity. Anything above High is critical.
type SeverityConfig struct {
	Low    float64 `yaml:"low"`
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

type ForecastConfig struct {
	Months              int     `yaml:"months"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	WeeksPerMonth       float64 `yaml:"weeks_per_month"`
	FTEWeeklyHours      float64 `yaml:"fte_weekly_hours"`
}

type CostingConfig struct {
	// FallbackHourlyRate applies to allocations without a rate. Zero means
	// unset: comparisons that need it fail instead of costing at zero.
	FallbackHourlyRate float64 `yaml:"fallback_hourly_rate"`
}

type PipelineConfig struct {
	// StageProbabilities maps a deal stage to its conversion probability (0..1).
	StageProbabilities map[string]float64 `yaml:"stage_probabilities"`
}

type ServiceConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Severity: SeverityConfig{Low: 110, Medium: 125, High: 150},
		Forecast: ForecastConfig{
			Months:         DefaultForecastMonths,
			WeeksPerMonth:  DefaultWeeksPerMonth,
			FTEWeeklyHours: DefaultFTEWeeklyHours,
		},
		Pipeline: PipelineConfig{
			StageProbabilities: map[string]float64{
				"lead":        0.10,
				"qualified":   0.25,
				"proposal":    0.50,
				"negotiation": 0.75,
				"closed_won":  1.00,
				"closed_lost": 0.00,
			},
		},
		Service: ServiceConfig{
			Workers: DefaultWorkers,
			Timeout: DefaultTimeout,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the bands are ordered and the constants positive.
func (c Config) Validate() error {
	var problems []string

	s := c.Severity
	if !(100 < s.Low && s.Low < s.Medium && s.Medium < s.High) {
		problems = append(problems, fmt.Sprintf("severity bands must satisfy 100 < low < medium < high (got %.2f, %.2f, %.2f)", s.Low, s.Medium, s.High))
	}
	if c.Forecast.Months <= 0 {
		problems = append(problems, "forecast.months must be positive")
	}
	if c.Forecast.WeeksPerMonth <= 0 {
		problems = append(problems, "forecast.weeks_per_month must be positive")
	}
	if c.Forecast.FTEWeeklyHours <= 0 {
		problems = append(problems, "forecast.fte_weekly_hours must be positive")
	}
	if c.Forecast.ConfidenceThreshold < 0 || c.Forecast.ConfidenceThreshold > 1 {
		problems = append(problems, "forecast.confidence_threshold must be within [0,1]")
	}
	if c.Costing.FallbackHourlyRate < 0 {
		problems = append(problems, "costing.fallback_hourly_rate must not be negative")
	}
	for stage, p := range c.Pipeline.StageProbabilities {
		if p < 0 || p > 1 {
			problems = append(problems, fmt.Sprintf("pipeline stage %q probability must be within [0,1]", stage))
		}
	}
	if c.Service.Workers <= 0 {
		problems = append(problems, "service.workers must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", planerrors.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
