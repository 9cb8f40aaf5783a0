package conflicts

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"resource-planner/capacity"
	"resource-planner/models"
)

// epsilon absorbs float noise when summing percentages.
const epsilon = 1e-9

// Bands holds the inclusive upper bound of each severity band in percent.
// A peak above High is critical.
type Bands struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultBands is (100,110] low, (110,125] medium, (125,150] high, >150 critical.
var DefaultBands = Bands{Low: 110, Medium: 125, High: 150}

// Classify buckets a peak allocation percentage into a severity.
func (b Bands) Classify(peak float64) models.Severity {
	switch {
	case peak <= b.Low+epsilon:
		return models.SeverityLow
	case peak <= b.Medium+epsilon:
		return models.SeverityMedium
	case peak <= b.High+epsilon:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// Detect finds every period in which an employee's summed allocation exceeds
// 100%. Allocations of several employees may be mixed; each employee is swept
// independently. Open-ended allocations run to horizon.End and, when a horizon
// is given, allocations are clipped to it.
//
// The result is sorted by period start, then employee, and does not depend on
// the order of allocs. Any invalid allocation fails the whole call.
func Detect(allocs []models.Allocation, caps []models.EmployeeCapacity, horizon models.DateRange, bands Bands) ([]models.Conflict, error) {
	byEmployee := GroupByEmployee(allocs)
	capIdx := capacity.Index(caps)

	employees := make([]string, 0, len(byEmployee))
	for id := range byEmployee {
		employees = append(employees, id)
	}
	sort.Strings(employees)

	var result []models.Conflict
	for _, id := range employees {
		var c *models.EmployeeCapacity
		if ec, ok := capIdx[id]; ok {
			c = &ec
		}
		found, err := DetectEmployee(id, byEmployee[id], c, horizon, bands)
		if err != nil {
			return nil, err
		}
		result = append(result, found...)
	}

	Sort(result)
	return result, nil
}

// GroupByEmployee splits allocations per employee.
func GroupByEmployee(allocs []models.Allocation) map[string][]models.Allocation {
	groups := make(map[string][]models.Allocation)
	for _, a := range allocs {
		groups[a.EmployeeID] = append(groups[a.EmployeeID], a)
	}
	return groups
}

// span is a half-open [start, end) day interval of one allocation.
type span struct {
	id         string
	percentage float64
	start, end time.Time
}

// DetectEmployee sweeps the allocations of a single employee. capacity may be
// nil, in which case ExcessWeeklyHours is left at zero.
func DetectEmployee(employeeID string, allocs []models.Allocation, ec *models.EmployeeCapacity, horizon models.DateRange, bands Bands) ([]models.Conflict, error) {
	if ec != nil {
		if err := capacity.ValidateCapacity(*ec); err != nil {
			return nil, err
		}
	}

	spans, err := buildSpans(allocs, horizon)
	if err != nil {
		return nil, err
	}
	if len(spans) < 2 {
		// A single valid allocation can never exceed 100%.
		return nil, nil
	}

	boundaries := make([]time.Time, 0, len(spans)*2)
	for _, s := range spans {
		boundaries = append(boundaries, s.start, s.end)
	}
	slices.SortFunc(boundaries, func(a, b time.Time) int { return a.Compare(b) })
	boundaries = slices.CompactFunc(boundaries, func(a, b time.Time) bool { return a.Equal(b) })

	var (
		result  []models.Conflict
		current *models.Conflict
		curIDs  map[string]bool
		curEnd  time.Time
	)
	closeCurrent := func() {
		if current != nil {
			current.PeriodEnd = curEnd.AddDate(0, 0, -1)
			current.ContributingAllocationIDs = make([]string, 0, len(curIDs))
			for id := range curIDs {
				current.ContributingAllocationIDs = append(current.ContributingAllocationIDs, id)
			}
			sort.Strings(current.ContributingAllocationIDs)
			current.Severity = bands.Classify(current.TotalAllocationPercentage)
			if ec != nil {
				current.ExcessWeeklyHours = (current.TotalAllocationPercentage - 100) / 100 * ec.WeeklyHours
			}
			result = append(result, *current)
			current = nil
		}
	}

	// A conflict is a maximal contiguous run of over-100 intervals. Its
	// percentage is the peak of the run and its contributors the union.
	for i := 0; i+1 < len(boundaries); i++ {
		from, to := boundaries[i], boundaries[i+1]

		var (
			total float64
			ids   []string
		)
		for _, s := range spans {
			if !s.start.After(from) && !s.end.Before(to) {
				total += s.percentage
				ids = append(ids, s.id)
			}
		}

		if total <= 100+epsilon {
			closeCurrent()
			continue
		}

		if current == nil || !curEnd.Equal(from) {
			closeCurrent()
			current = &models.Conflict{EmployeeID: employeeID, PeriodStart: from}
			curIDs = make(map[string]bool, len(ids))
		}
		for _, id := range ids {
			curIDs[id] = true
		}
		if total > current.TotalAllocationPercentage {
			current.TotalAllocationPercentage = total
		}
		curEnd = to
	}
	closeCurrent()

	return result, nil
}

func buildSpans(allocs []models.Allocation, horizon models.DateRange) ([]span, error) {
	openEnd := horizon.End
	if horizon.IsZero() {
		openEnd = latestDate(allocs)
	}

	spans := make([]span, 0, len(allocs))
	for _, a := range allocs {
		if err := capacity.ValidateAllocation(a); err != nil {
			return nil, err
		}

		r := capacity.Range(a, openEnd)
		if r.End.Before(r.Start) {
			// Open-ended allocation starting after the horizon.
			continue
		}
		if !horizon.IsZero() {
			clipped, ok := capacity.Overlap(r, horizon)
			if !ok {
				continue
			}
			r = clipped
		}

		spans = append(spans, span{
			id:         a.ID,
			percentage: a.Percentage,
			start:      r.Start,
			end:        r.End.AddDate(0, 0, 1),
		})
	}
	return spans, nil
}

// latestDate is the open-end fallback when no horizon is supplied: the last
// date mentioned by any allocation.
func latestDate(allocs []models.Allocation) time.Time {
	var latest time.Time
	for _, a := range allocs {
		if a.StartDate.After(latest) {
			latest = a.StartDate
		}
		if a.EndDate != nil && a.EndDate.After(latest) {
			latest = *a.EndDate
		}
	}
	return models.Day(latest)
}

// Sort orders conflicts by period start, employee, period end and first
// contributing allocation.
func Sort(cs []models.Conflict) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if !a.PeriodStart.Equal(b.PeriodStart) {
			return a.PeriodStart.Before(b.PeriodStart)
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if !a.PeriodEnd.Equal(b.PeriodEnd) {
			return a.PeriodEnd.Before(b.PeriodEnd)
		}
		if a.ScenarioID != b.ScenarioID {
			return a.ScenarioID < b.ScenarioID
		}
		return strings.Join(a.ContributingAllocationIDs, ",") < strings.Join(b.ContributingAllocationIDs, ",")
	})
}

// Summary counts conflicts per severity.
type Summary struct {
	Total      int                     `json:"total"`
	BySeverity map[models.Severity]int `json:"by_severity"`
	Employees  int                     `json:"employees"`
}

// Summarize aggregates a conflict list.
func Summarize(cs []models.Conflict) Summary {
	s := Summary{
		Total:      len(cs),
		BySeverity: make(map[models.Severity]int, len(models.Severities)),
	}
	for _, sev := range models.Severities {
		s.BySeverity[sev] = 0
	}
	employees := make(map[string]bool)
	for _, c := range cs {
		s.BySeverity[c.Severity]++
		employees[c.EmployeeID] = true
	}
	s.Employees = len(employees)
	return s
}

// String renders a conflict on one line.
func String(c models.Conflict) string {
	return fmt.Sprintf("%s %s..%s %.1f%% %s [%s]",
		c.EmployeeID,
		c.PeriodStart.Format(time.DateOnly),
		c.PeriodEnd.Format(time.DateOnly),
		c.TotalAllocationPercentage,
		c.Severity,
		strings.Join(c.ContributingAllocationIDs, ","))
}
