package scheduler

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"resource-planner/capacity"
	planerrors "resource-planner/errors"
	"resource-planner/models"
)

// candidateNamespace seeds deterministic candidate allocation IDs so that the
// same inputs always derive the same plan.
var candidateNamespace = uuid.MustParse("6f1c3a52-9a7e-4c1e-8d0b-2f6d4e8b7a10")

// Options controls candidate derivation.
type Options struct {
	StageProbabilities map[string]float64
	// MinWeight skips deals whose combined probability is below it.
	MinWeight float64
}

// request is one deal requirement waiting for staff.
type request struct {
	deal   models.PipelineDeal
	index  int
	req    models.Requirement
	weight float64
	window models.DateRange
}

// booking is capacity already promised to something in a date range.
type booking struct {
	window     models.DateRange
	percentage float64
}

// DeriveCandidates proposes allocations that would staff the given pipeline
// deals from the capacity left over by existing allocations. It only computes
// a plan: nothing is committed and none of the inputs are modified.
//
// Requirements are served in priority order (1 = highest), then by deal ID.
// Each is filled from the employees holding the skill, most available first,
// until its weekly hours are covered; what cannot be covered is reported as
// unmet.
func DeriveCandidates(scenarioID string, deals []models.PipelineDeal, caps []models.EmployeeCapacity, existing []models.Allocation, opts Options) (*models.CandidatePlan, error) {
	for _, c := range caps {
		if c.Inactive {
			continue
		}
		if err := capacity.ValidateCapacity(c); err != nil {
			return nil, err
		}
	}

	requests, err := collectRequests(deals, opts)
	if err != nil {
		return nil, err
	}

	bookings := make(map[string][]booking)
	for _, a := range existing {
		if err := capacity.ValidateAllocation(a); err != nil {
			return nil, err
		}
		end := a.StartDate.AddDate(100, 0, 0)
		bookings[a.EmployeeID] = append(bookings[a.EmployeeID], booking{
			window:     capacity.Range(a, end),
			percentage: a.Percentage,
		})
	}

	plan := &models.CandidatePlan{
		ScenarioID:  scenarioID,
		Allocations: make([]models.Allocation, 0),
		Unmet:       make([]models.UnmetRequirement, 0),
	}

	for _, r := range requests {
		remaining := r.req.HoursPerWeek
		skill := r.req.Skill

		for _, c := range candidatesFor(skill, r.window, caps, bookings) {
			if remaining <= 0 {
				break
			}
			freePct := 100 - bookedPercentage(bookings[c.EmployeeID], r.window)
			if freePct <= 0 {
				continue
			}
			freeHours := freePct / 100 * c.WeeklyHours
			hours := math.Min(freeHours, remaining)
			pct := math.Min(100, hours/c.WeeklyHours*100)

			end := r.window.End
			plan.Allocations = append(plan.Allocations, models.Allocation{
				ID:              candidateID(scenarioID, r, c.EmployeeID),
				EmployeeID:      c.EmployeeID,
				SubjectID:       r.deal.ID,
				ScenarioID:      scenarioID,
				Type:            typeForWeight(r.weight),
				Percentage:      pct,
				StartDate:       r.window.Start,
				EndDate:         &end,
				ConfidenceLevel: confidenceForWeight(r.weight),
				Skill:           &skill,
			})
			bookings[c.EmployeeID] = append(bookings[c.EmployeeID], booking{window: r.window, percentage: pct})
			remaining -= hours
		}

		if remaining > 1e-9 {
			plan.Unmet = append(plan.Unmet, models.UnmetRequirement{
				DealID:         r.deal.ID,
				Skill:          skill,
				RequestedHours: r.req.HoursPerWeek,
				AllocatedHours: r.req.HoursPerWeek - remaining,
				UnmetHours:     remaining,
				Priority:       r.req.Priority,
			})
		}
	}

	return plan, nil
}

func collectRequests(deals []models.PipelineDeal, opts Options) ([]request, error) {
	var requests []request
	for _, d := range deals {
		stageP, ok := opts.StageProbabilities[d.Stage]
		if !ok {
			return nil, &planerrors.ValidationError{
				Subject: "deal",
				ID:      d.ID,
				Err:     fmt.Errorf("%w: unknown stage %q", planerrors.ErrInvalidDemand, d.Stage),
			}
		}
		if d.EndDate.Before(d.StartDate) {
			return nil, &planerrors.ValidationError{Subject: "deal", ID: d.ID, Err: planerrors.ErrInvalidDateRange}
		}
		weight := stageP * d.Probability / 100
		if weight <= 0 || weight < opts.MinWeight {
			continue
		}
		window := models.DateRange{Start: models.Day(d.StartDate), End: models.Day(d.EndDate)}
		for i, req := range d.Requirements {
			if req.HoursPerWeek <= 0 {
				continue
			}
			requests = append(requests, request{deal: d, index: i, req: req, weight: weight, window: window})
		}
	}

	// Sort by priority (1 = highest), then deal, then requirement order.
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if a.req.Priority != b.req.Priority {
			return a.req.Priority < b.req.Priority
		}
		if a.deal.ID != b.deal.ID {
			return a.deal.ID < b.deal.ID
		}
		return a.index < b.index
	})
	return requests, nil
}

// candidatesFor returns active holders of skill ordered by free capacity in
// window (most free first), then employee ID.
func candidatesFor(skill models.Skill, window models.DateRange, caps []models.EmployeeCapacity, bookings map[string][]booking) []models.EmployeeCapacity {
	type scored struct {
		c    models.EmployeeCapacity
		free float64
	}
	var pool []scored
	for _, c := range caps {
		if c.Inactive || !c.HasSkill(skill) {
			continue
		}
		free := (100 - bookedPercentage(bookings[c.EmployeeID], window)) / 100 * c.WeeklyHours
		pool = append(pool, scored{c: c, free: free})
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].free != pool[j].free {
			return pool[i].free > pool[j].free
		}
		return pool[i].c.EmployeeID < pool[j].c.EmployeeID
	})

	out := make([]models.EmployeeCapacity, len(pool))
	for i, s := range pool {
		out[i] = s.c
	}
	return out
}

// bookedPercentage sums every booking overlapping window. Summing rather than
// taking the peak never over-promises an employee.
func bookedPercentage(bs []booking, window models.DateRange) float64 {
	total := 0.0
	for _, b := range bs {
		if _, ok := capacity.Overlap(b.window, window); ok {
			total += b.percentage
		}
	}
	return total
}

func candidateID(scenarioID string, r request, employeeID string) string {
	name := scenarioID + "/" + r.deal.ID + "/" + strconv.Itoa(r.index) + "/" + employeeID
	return uuid.NewSHA1(candidateNamespace, []byte(name)).String()
}

func typeForWeight(w float64) models.AllocationType {
	switch {
	case w >= 1:
		return models.AllocationConfirmed
	case w >= 0.5:
		return models.AllocationProbable
	default:
		return models.AllocationTentative
	}
}

func confidenceForWeight(w float64) int {
	level := int(math.Ceil(w*5 - 1e-9))
	if level < 1 {
		return 1
	}
	if level > 5 {
		return 5
	}
	return level
}
