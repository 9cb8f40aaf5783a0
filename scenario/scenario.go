package scenario

import (
	"fmt"
	"sort"

	"resource-planner/capacity"
	"resource-planner/conflicts"
	planerrors "resource-planner/errors"
	"resource-planner/forecast"
	"resource-planner/models"
)

// Options carries the configuration a comparison depends on.
type Options struct {
	// FallbackHourlyRate prices allocations when neither the allocation nor the
	// employee has a rate. It must be configured explicitly; a comparison that
	// needs it while it is unset fails with ErrMissingHourlyRate.
	FallbackHourlyRate float64
	Bands              conflicts.Bands
	WeeksPerMonth      float64
	FTEWeeklyHours     float64
}

// Evaluation is everything computed for a single scenario. AllocatedHours and
// CapacityHours only count active employees; Cost counts everyone.
type Evaluation struct {
	ScenarioID     string
	Cost           float64
	AllocatedHours float64
	CapacityHours  float64
	Utilization    float64
	Buckets        []models.ForecastBucket
	Gaps           []models.SkillGap
	Conflicts      []models.Conflict
}

// Compare evaluates a and b against the same capacity snapshot and reports the
// differences. Diffs are B - A, so Compare(a, b) and Compare(b, a) mirror each
// other. Neither scenario is modified.
func Compare(a, b models.Scenario, caps []models.EmployeeCapacity, opts Options) (*models.ScenarioComparison, error) {
	evalA, err := Evaluate(a, caps, opts)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", a.ID, err)
	}
	evalB, err := Evaluate(b, caps, opts)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", b.ID, err)
	}

	return &models.ScenarioComparison{
		ScenarioA: a.ID,
		ScenarioB: b.ID,
		TotalCost: models.CostComparison{
			A:         evalA.Cost,
			B:         evalB.Cost,
			Diff:      evalB.Cost - evalA.Cost,
			PctChange: pctChange(evalA.Cost, evalB.Cost),
		},
		ResourceUtilization: models.UtilizationComparison{
			A:    evalA.Utilization,
			B:    evalB.Utilization,
			Diff: evalB.Utilization - evalA.Utilization,
		},
		SkillGaps: models.SkillGapComparison{
			A:          evalA.Gaps,
			B:          evalB.Gaps,
			Comparison: CompareGaps(evalA.Gaps, evalB.Gaps),
		},
		TimelineConflicts: sharedConflicts(a, b, evalA.Conflicts, evalB.Conflicts),
	}, nil
}

// Evaluate computes cost, utilization, skill gaps and conflicts of one scenario
// within its own horizon.
func Evaluate(s models.Scenario, caps []models.EmployeeCapacity, opts Options) (*Evaluation, error) {
	if s.ForecastPeriodMonths <= 0 {
		return nil, fmt.Errorf("%w: forecast period %d months must be positive", planerrors.ErrInvalidForecastWindow, s.ForecastPeriodMonths)
	}
	horizon := s.Horizon()
	idx := capacity.Index(caps)

	eval := &Evaluation{ScenarioID: s.ID}
	for _, a := range s.Allocations {
		c, ok := idx[a.EmployeeID]
		if !ok {
			return nil, &planerrors.ValidationError{
				Subject: "allocation",
				ID:      a.ID,
				Err:     fmt.Errorf("%w: %s", planerrors.ErrUnknownEmployee, a.EmployeeID),
			}
		}

		hours, err := capacity.EstimatedHours(a, c, horizon)
		if err != nil {
			return nil, err
		}
		rate, err := hourlyRate(a, c, opts.FallbackHourlyRate)
		if err != nil {
			return nil, err
		}
		eval.Cost += hours * rate

		inHorizon, err := capacity.Normalize(a, c, horizon)
		if err != nil {
			return nil, err
		}
		if !c.Inactive {
			eval.AllocatedHours += inHorizon
		}
	}

	weeks := float64(horizon.Days()) / 7
	for _, c := range caps {
		if c.Inactive {
			continue
		}
		eval.CapacityHours += c.WeeklyHours * weeks
	}
	if eval.CapacityHours > 0 {
		eval.Utilization = eval.AllocatedHours / eval.CapacityHours * 100
	}

	demand, err := forecast.ScenarioDemand(s, caps)
	if err != nil {
		return nil, err
	}
	eval.Buckets, err = forecast.Forecast(demand, caps, forecast.Params{
		Start:          horizon.Start,
		ForecastMonths: s.ForecastPeriodMonths,
		WeeksPerMonth:  opts.WeeksPerMonth,
		FTEWeeklyHours: opts.FTEWeeklyHours,
	})
	if err != nil {
		return nil, err
	}
	eval.Gaps = forecast.GapsBySkill(eval.Buckets)

	bands := opts.Bands
	if bands == (conflicts.Bands{}) {
		bands = conflicts.DefaultBands
	}
	eval.Conflicts, err = conflicts.Detect(s.Allocations, caps, horizon, bands)
	if err != nil {
		return nil, err
	}
	for i := range eval.Conflicts {
		eval.Conflicts[i].ScenarioID = s.ID
	}

	return eval, nil
}

func hourlyRate(a models.Allocation, c models.EmployeeCapacity, fallback float64) (float64, error) {
	switch {
	case a.HourlyRate != nil:
		return *a.HourlyRate, nil
	case c.HourlyRate != nil:
		return *c.HourlyRate, nil
	case fallback > 0:
		return fallback, nil
	}
	return 0, &planerrors.ValidationError{
		Subject: "allocation",
		ID:      a.ID,
		Err:     fmt.Errorf("%w: no allocation or employee rate and no fallback configured", planerrors.ErrMissingHourlyRate),
	}
}

// pctChange is (b - a) / a in percent, or 0 when a is 0.
func pctChange(a, b float64) float64 {
	if a == 0 {
		return 0
	}
	return (b - a) / a * 100
}

// CompareGaps pairs gaps by (skill, level). A key present on one side only is
// compared against a zero gap on the other and flagged with MissingIn.
func CompareGaps(a, b []models.SkillGap) []models.SkillGapDelta {
	type pair struct {
		a, b     float64
		inA, inB bool
		category string
		level    models.ExperienceLevel
	}
	keys := make(map[models.Skill]*pair)
	get := func(g models.SkillGap) *pair {
		k := models.Skill{Category: g.SkillCategory, Level: g.ExperienceLevel}
		p, ok := keys[k]
		if !ok {
			p = &pair{category: g.SkillCategory, level: g.ExperienceLevel}
			keys[k] = p
		}
		return p
	}
	for _, g := range a {
		p := get(g)
		p.a += g.GapHours
		p.inA = true
	}
	for _, g := range b {
		p := get(g)
		p.b += g.GapHours
		p.inB = true
	}

	deltas := make([]models.SkillGapDelta, 0, len(keys))
	for _, p := range keys {
		d := models.SkillGapDelta{
			SkillCategory:   p.category,
			ExperienceLevel: p.level,
			GapA:            p.a,
			GapB:            p.b,
			Improvement:     p.a - p.b,
		}
		switch {
		case !p.inA:
			d.MissingIn = "a"
		case !p.inB:
			d.MissingIn = "b"
		}
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].SkillCategory != deltas[j].SkillCategory {
			return deltas[i].SkillCategory < deltas[j].SkillCategory
		}
		return deltas[i].ExperienceLevel < deltas[j].ExperienceLevel
	})
	return deltas
}

// sharedConflicts merges both scenarios' conflicts, keeping only employees that
// hold allocations in both.
func sharedConflicts(a, b models.Scenario, ca, cb []models.Conflict) []models.Conflict {
	inA, inB := a.EmployeeIDs(), b.EmployeeIDs()

	out := make([]models.Conflict, 0, len(ca)+len(cb))
	for _, list := range [][]models.Conflict{ca, cb} {
		for _, c := range list {
			if inA[c.EmployeeID] && inB[c.EmployeeID] {
				out = append(out, c)
			}
		}
	}
	conflicts.Sort(out)
	return out
}
