package capacity

import (
	"fmt"
	"time"

	planerrors "resource-planner/errors"
	"resource-planner/models"
)

// ValidateCapacity rejects employees with non-positive weekly hours.
func ValidateCapacity(c models.EmployeeCapacity) error {
	if c.WeeklyHours <= 0 {
		return &planerrors.ValidationError{
			Subject: "employee",
			ID:      c.EmployeeID,
			Err:     fmt.Errorf("%w: weekly hours %.2f must be positive", planerrors.ErrInvalidCapacity, c.WeeklyHours),
		}
	}
	return nil
}

// ValidateAllocation checks percentage, date range and confidence level.
// Percentages are never clamped: 100.01 is an error, not 100.
func ValidateAllocation(a models.Allocation) error {
	var err error
	switch {
	case !(a.Percentage > 0 && a.Percentage <= 100):
		err = fmt.Errorf("%w: percentage %.2f outside (0,100]", planerrors.ErrInvalidAllocation, a.Percentage)
	case a.StartDate.IsZero():
		err = fmt.Errorf("%w: missing start date", planerrors.ErrInvalidAllocation)
	case a.EndDate != nil && models.Day(*a.EndDate).Before(models.Day(a.StartDate)):
		err = fmt.Errorf("%w (%s < %s)", planerrors.ErrInvalidDateRange,
			a.EndDate.Format(time.DateOnly), a.StartDate.Format(time.DateOnly))
	case a.ConfidenceLevel < 1 || a.ConfidenceLevel > 5:
		err = fmt.Errorf("%w: confidence level %d outside 1..5", planerrors.ErrInvalidAllocation, a.ConfidenceLevel)
	}
	if err != nil {
		return &planerrors.ValidationError{Subject: "allocation", ID: a.ID, Err: err}
	}
	return nil
}

// Range returns the allocation's day range. Open-ended allocations run until
// openEnd.
func Range(a models.Allocation, openEnd time.Time) models.DateRange {
	r := models.DateRange{Start: models.Day(a.StartDate)}
	if a.EndDate != nil {
		r.End = models.Day(*a.EndDate)
	} else {
		r.End = models.Day(openEnd)
	}
	return r
}

// Overlap returns the intersection of two day ranges and whether it is non-empty.
func Overlap(a, b models.DateRange) (models.DateRange, bool) {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if end.Before(start) {
		return models.DateRange{}, false
	}
	return models.DateRange{Start: models.Day(start), End: models.Day(end)}, true
}

// WeeksOverlapping returns how many weeks (fractional) of a fall inside b.
func WeeksOverlapping(a, b models.DateRange) float64 {
	o, ok := Overlap(a, b)
	if !ok {
		return 0
	}
	return float64(o.Days()) / 7
}

// HoursPerWeek converts an allocation percentage to weekly hours.
func HoursPerWeek(a models.Allocation, c models.EmployeeCapacity) (float64, error) {
	if err := ValidateCapacity(c); err != nil {
		return 0, err
	}
	if err := ValidateAllocation(a); err != nil {
		return 0, err
	}
	return a.Percentage / 100 * c.WeeklyHours, nil
}

// Normalize returns the hours an allocation consumes inside window.
//
//	hours = percentage/100 × weeklyHours × weeksOverlapping(allocation, window)
//
// Open-ended allocations are taken to run to the end of the window.
func Normalize(a models.Allocation, c models.EmployeeCapacity, window models.DateRange) (float64, error) {
	perWeek, err := HoursPerWeek(a, c)
	if err != nil {
		return 0, err
	}
	return perWeek * WeeksOverlapping(Range(a, window.End), window), nil
}

// EstimatedHours is the allocation's explicit estimate when present, otherwise
// its normalized hours within horizon.
func EstimatedHours(a models.Allocation, c models.EmployeeCapacity, horizon models.DateRange) (float64, error) {
	if a.EstimatedHours != nil {
		if err := ValidateAllocation(a); err != nil {
			return 0, err
		}
		return *a.EstimatedHours, nil
	}
	return Normalize(a, c, horizon)
}

// SkillFor returns the role an allocation fills: its explicit skill, else the
// employee's primary skill.
func SkillFor(a models.Allocation, c models.EmployeeCapacity) (models.Skill, bool) {
	if a.Skill != nil {
		return *a.Skill, true
	}
	return c.PrimarySkill()
}

// Index maps employee IDs to capacities.
func Index(caps []models.EmployeeCapacity) map[string]models.EmployeeCapacity {
	idx := make(map[string]models.EmployeeCapacity, len(caps))
	for _, c := range caps {
		idx[c.EmployeeID] = c
	}
	return idx
}
