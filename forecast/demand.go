package forecast

import (
	"fmt"
	"sort"

	"resource-planner/capacity"
	planerrors "resource-planner/errors"
	"resource-planner/models"
)

// Months splits a day range into per-calendar-month sub-ranges.
func Months(window models.DateRange) []models.DateRange {
	if window.End.Before(window.Start) {
		return nil
	}
	var out []models.DateRange
	for m := models.MonthStart(window.Start); !m.After(window.End); m = m.AddDate(0, 1, 0) {
		month := models.DateRange{Start: m, End: m.AddDate(0, 1, -1)}
		if o, ok := capacity.Overlap(month, window); ok {
			out = append(out, o)
		}
	}
	return out
}

// PipelineDemand turns pipeline deals into monthly demand records. The weight
// of each record is stage conversion probability × deal probability.
func PipelineDemand(deals []models.PipelineDeal, stageProbabilities map[string]float64, window models.DateRange) ([]models.DemandRecord, error) {
	var records []models.DemandRecord
	for _, deal := range deals {
		stageP, ok := stageProbabilities[deal.Stage]
		if !ok {
			return nil, &planerrors.ValidationError{
				Subject: "deal",
				ID:      deal.ID,
				Err:     fmt.Errorf("%w: unknown stage %q", planerrors.ErrInvalidDemand, deal.Stage),
			}
		}
		if deal.Probability < 0 || deal.Probability > 100 {
			return nil, &planerrors.ValidationError{
				Subject: "deal",
				ID:      deal.ID,
				Err:     fmt.Errorf("%w: probability %.1f outside 0..100", planerrors.ErrInvalidDemand, deal.Probability),
			}
		}
		if deal.EndDate.Before(deal.StartDate) {
			return nil, &planerrors.ValidationError{Subject: "deal", ID: deal.ID, Err: planerrors.ErrInvalidDateRange}
		}
		weight := stageP * deal.Probability / 100

		dealRange := models.DateRange{Start: models.Day(deal.StartDate), End: models.Day(deal.EndDate)}
		active, ok := capacity.Overlap(dealRange, window)
		if !ok {
			continue
		}
		for _, month := range Months(active) {
			weeks := float64(month.Days()) / 7
			for _, req := range deal.Requirements {
				if req.HoursPerWeek <= 0 {
					continue
				}
				records = append(records, models.DemandRecord{
					SkillCategory:     req.Skill.Category,
					ExperienceLevel:   req.Skill.Level,
					Date:              month.Start,
					RequiredHours:     req.HoursPerWeek * weeks,
					ProbabilityWeight: weight,
					Source:            models.SourcePipeline,
					SourceID:          deal.ID,
				})
			}
		}
	}
	sortRecords(records)
	return records, nil
}

// ScenarioDemand turns a scenario's allocations into monthly demand records
// weighted by confidence level / 5. Every allocated employee must be present
// in caps so that percentages can be converted to hours.
func ScenarioDemand(s models.Scenario, caps []models.EmployeeCapacity) ([]models.DemandRecord, error) {
	window := s.Horizon()
	idx := capacity.Index(caps)

	var records []models.DemandRecord
	for _, a := range s.Allocations {
		c, ok := idx[a.EmployeeID]
		if !ok {
			return nil, &planerrors.ValidationError{
				Subject: "allocation",
				ID:      a.ID,
				Err:     fmt.Errorf("%w: %s", planerrors.ErrUnknownEmployee, a.EmployeeID),
			}
		}
		skill, ok := capacity.SkillFor(a, c)
		if !ok {
			return nil, &planerrors.ValidationError{
				Subject: "allocation",
				ID:      a.ID,
				Err:     fmt.Errorf("%w: no role skill and employee %s has no skills", planerrors.ErrInvalidAllocation, a.EmployeeID),
			}
		}
		weight := float64(a.ConfidenceLevel) / 5

		for _, month := range Months(window) {
			hours, err := capacity.Normalize(a, c, month)
			if err != nil {
				return nil, err
			}
			if hours <= 0 {
				continue
			}
			records = append(records, models.DemandRecord{
				SkillCategory:     skill.Category,
				ExperienceLevel:   skill.Level,
				Date:              month.Start,
				RequiredHours:     hours,
				ProbabilityWeight: weight,
				Source:            models.SourceScenario,
				SourceID:          a.ID,
			})
		}
	}
	sortRecords(records)
	return records, nil
}

func sortRecords(records []models.DemandRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.SkillCategory != b.SkillCategory {
			return a.SkillCategory < b.SkillCategory
		}
		if a.ExperienceLevel != b.ExperienceLevel {
			return a.ExperienceLevel < b.ExperienceLevel
		}
		return a.SourceID < b.SourceID
	})
}
