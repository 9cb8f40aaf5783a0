package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"resource-planner/capacity"
	planerrors "resource-planner/errors"
	"resource-planner/models"
)

const (
	// DefaultWeeksPerMonth approximates 52/12.
	DefaultWeeksPerMonth = 4.33
	// DefaultFTEWeeklyHours is one full-time employee.
	DefaultFTEWeeklyHours = 40.0

	baseConfidence = 40.0
	scenarioBoost  = 60.0
	maxConfidence  = 100.0
	demandEpsilon  = 1e-9
)

// Params controls a forecast run.
type Params struct {
	// Start anchors month 0. A zero Start uses the month of the earliest demand record.
	Start               time.Time
	ForecastMonths      int
	ConfidenceThreshold float64
	WeeksPerMonth       float64
	FTEWeeklyHours      float64
}

func (p Params) weeksPerMonth() float64 {
	if p.WeeksPerMonth > 0 {
		return p.WeeksPerMonth
	}
	return DefaultWeeksPerMonth
}

func (p Params) fteWeeklyHours() float64 {
	if p.FTEWeeklyHours > 0 {
		return p.FTEWeeklyHours
	}
	return DefaultFTEWeeklyHours
}

// FTEMonthHours is the number of hours one hire covers in a month.
func (p Params) FTEMonthHours() float64 {
	return p.fteWeeklyHours() * p.weeksPerMonth()
}

type bucketKey struct {
	period time.Time
	skill  models.Skill
}

type accum struct {
	scenario float64
	pipeline float64
}

// Forecast projects weighted demand against supply per calendar month and
// skill. Only (month, skill) pairs with demand are emitted; absence means zero
// demand. Buckets are sorted by period, skill category and level.
func Forecast(demand []models.DemandRecord, caps []models.EmployeeCapacity, p Params) ([]models.ForecastBucket, error) {
	if p.ForecastMonths <= 0 {
		return nil, fmt.Errorf("%w: forecast months %d must be positive", planerrors.ErrInvalidForecastWindow, p.ForecastMonths)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("%w: confidence threshold %.2f outside [0,1]", planerrors.ErrInvalidForecastWindow, p.ConfidenceThreshold)
	}
	for i, d := range demand {
		if err := ValidateDemand(d); err != nil {
			return nil, fmt.Errorf("demand record %d: %w", i, err)
		}
	}
	for _, c := range caps {
		if c.Inactive {
			continue
		}
		if err := capacity.ValidateCapacity(c); err != nil {
			return nil, err
		}
	}

	start := p.Start
	if start.IsZero() {
		start = earliest(demand)
		if start.IsZero() {
			return nil, nil
		}
	}
	first := models.MonthStart(start)
	end := first.AddDate(0, p.ForecastMonths, 0)

	sums := make(map[bucketKey]*accum)
	for _, d := range demand {
		date := models.Day(d.Date)
		if date.Before(first) || !date.Before(end) {
			continue
		}
		if d.ProbabilityWeight < p.ConfidenceThreshold {
			continue
		}
		key := bucketKey{
			period: models.MonthStart(date),
			skill:  models.Skill{Category: d.SkillCategory, Level: d.ExperienceLevel},
		}
		acc, ok := sums[key]
		if !ok {
			acc = &accum{}
			sums[key] = acc
		}
		weighted := d.RequiredHours * d.ProbabilityWeight
		if d.Source == models.SourceScenario {
			acc.scenario += weighted
		} else {
			acc.pipeline += weighted
		}
	}

	supply := supplyIndex(caps, p.weeksPerMonth())
	fteMonth := p.FTEMonthHours()

	buckets := make([]models.ForecastBucket, 0, len(sums))
	for key, acc := range sums {
		demandHours := acc.scenario + acc.pipeline
		if demandHours <= demandEpsilon {
			continue
		}
		supplyHours := supply.hours(key.skill)
		gap := demandHours - supplyHours

		utilization := 0.0
		if supplyHours > 0 {
			utilization = demandHours / supplyHours
		}

		buckets = append(buckets, models.ForecastBucket{
			Period:               key.period,
			SkillCategory:        key.skill.Category,
			ExperienceLevel:      key.skill.Level,
			DemandHours:          demandHours,
			SupplyHours:          supplyHours,
			GapHours:             gap,
			UtilizationRate:      utilization,
			HiringRecommendation: HiringRecommendation(gap, fteMonth),
			ConfidenceScore:      ConfidenceScore(acc.scenario, acc.pipeline),
			ScenarioDemandHours:  acc.scenario,
			PipelineDemandHours:  acc.pipeline,
		})
	}

	SortBuckets(buckets)
	return buckets, nil
}

// HiringRecommendation is the number of FTEs needed to close a positive gap.
func HiringRecommendation(gapHours, fteMonthHours float64) int {
	if gapHours <= 0 || fteMonthHours <= 0 {
		return 0
	}
	return int(math.Ceil(gapHours / fteMonthHours))
}

// ConfidenceScore weighs scenario-sourced demand (explicit plans) above
// pipeline-sourced demand (sales forecast): 40 + 60 × scenario share, capped at 100.
func ConfidenceScore(scenarioDemand, pipelineDemand float64) float64 {
	total := scenarioDemand + pipelineDemand
	if total <= 0 {
		return baseConfidence
	}
	return math.Min(maxConfidence, baseConfidence+scenarioBoost*(scenarioDemand/total))
}

// ValidateDemand rejects records the forecaster cannot weigh.
func ValidateDemand(d models.DemandRecord) error {
	switch {
	case d.ProbabilityWeight < 0 || d.ProbabilityWeight > 1:
		return fmt.Errorf("%w: probability weight %.3f outside [0,1]", planerrors.ErrInvalidDemand, d.ProbabilityWeight)
	case d.RequiredHours < 0:
		return fmt.Errorf("%w: negative required hours %.2f", planerrors.ErrInvalidDemand, d.RequiredHours)
	case d.SkillCategory == "":
		return fmt.Errorf("%w: missing skill category", planerrors.ErrInvalidDemand)
	case d.Date.IsZero():
		return fmt.Errorf("%w: missing date", planerrors.ErrInvalidDemand)
	}
	return nil
}

// SortBuckets orders buckets by period, skill category, then experience level.
func SortBuckets(buckets []models.ForecastBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if !a.Period.Equal(b.Period) {
			return a.Period.Before(b.Period)
		}
		if a.SkillCategory != b.SkillCategory {
			return a.SkillCategory < b.SkillCategory
		}
		return a.ExperienceLevel < b.ExperienceLevel
	})
}

// supplyTable holds monthly supply hours per skill.
type supplyTable map[models.Skill]float64

// supplyIndex sums, for every skill, count(active holders) × average weekly
// hours × weeks per month, which equals the holders' total weekly hours × weeks.
func supplyIndex(caps []models.EmployeeCapacity, weeksPerMonth float64) supplyTable {
	table := make(supplyTable)
	for _, c := range caps {
		if c.Inactive {
			continue
		}
		seen := make(map[models.Skill]bool, len(c.Skills))
		for _, s := range c.Skills {
			if seen[s] {
				continue
			}
			seen[s] = true
			table[s] += c.WeeklyHours * weeksPerMonth
		}
	}
	return table
}

func (t supplyTable) hours(s models.Skill) float64 {
	return t[s]
}

func earliest(demand []models.DemandRecord) time.Time {
	var first time.Time
	for _, d := range demand {
		if first.IsZero() || d.Date.Before(first) {
			first = d.Date
		}
	}
	return first
}

// PeriodTotal aggregates all buckets of one month.
type PeriodTotal struct {
	Period       time.Time `json:"period"`
	DemandHours  float64   `json:"demand_hours"`
	SupplyHours  float64   `json:"supply_hours"`
	GapHours     float64   `json:"gap_hours"`
	HiringNeeded int       `json:"hiring_needed"`
}

// Totals sums buckets per period, in period order.
func Totals(buckets []models.ForecastBucket) []PeriodTotal {
	idx := make(map[time.Time]*PeriodTotal)
	var order []time.Time
	for _, b := range buckets {
		pt, ok := idx[b.Period]
		if !ok {
			pt = &PeriodTotal{Period: b.Period}
			idx[b.Period] = pt
			order = append(order, b.Period)
		}
		pt.DemandHours += b.DemandHours
		pt.SupplyHours += b.SupplyHours
		pt.GapHours += b.GapHours
		pt.HiringNeeded += b.HiringRecommendation
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	totals := make([]PeriodTotal, 0, len(order))
	for _, p := range order {
		totals = append(totals, *idx[p])
	}
	return totals
}

// GapsBySkill sums bucket gaps, demand and supply per skill over all periods.
func GapsBySkill(buckets []models.ForecastBucket) []models.SkillGap {
	idx := make(map[models.Skill]*models.SkillGap)
	for _, b := range buckets {
		key := models.Skill{Category: b.SkillCategory, Level: b.ExperienceLevel}
		g, ok := idx[key]
		if !ok {
			g = &models.SkillGap{SkillCategory: b.SkillCategory, ExperienceLevel: b.ExperienceLevel}
			idx[key] = g
		}
		g.DemandHours += b.DemandHours
		g.SupplyHours += b.SupplyHours
		g.GapHours += b.GapHours
	}

	gaps := make([]models.SkillGap, 0, len(idx))
	for _, g := range idx {
		gaps = append(gaps, *g)
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].SkillCategory != gaps[j].SkillCategory {
			return gaps[i].SkillCategory < gaps[j].SkillCategory
		}
		return gaps[i].ExperienceLevel < gaps[j].ExperienceLevel
	})
	return gaps
}
