package capacity_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-planner/capacity"
	planerrors "resource-planner/errors"
	"resource-planner/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestNormalize(t *testing.T) {
	emp := models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 40}
	window := models.DateRange{Start: date(2025, 1, 1), End: date(2025, 1, 28)} // 4 weeks

	tests := map[string]struct {
		alloc    models.Allocation
		expected float64
	}{
		"FullWindow_Half": {
			alloc: models.Allocation{ID: "a", Percentage: 50, ConfidenceLevel: 3,
				StartDate: date(2025, 1, 1), EndDate: ptr(date(2025, 1, 28))},
			expected: 80, // 20h/week * 4 weeks
		},
		"PartialOverlap": {
			alloc: models.Allocation{ID: "a", Percentage: 100, ConfidenceLevel: 3,
				StartDate: date(2025, 1, 22), EndDate: ptr(date(2025, 2, 28))},
			expected: 40, // 7 days inside the window
		},
		"OpenEnded_RunsToWindowEnd": {
			alloc: models.Allocation{ID: "a", Percentage: 25, ConfidenceLevel: 3,
				StartDate: date(2025, 1, 15)},
			expected: 10 * 2, // 14 days
		},
		"OutsideWindow": {
			alloc: models.Allocation{ID: "a", Percentage: 100, ConfidenceLevel: 3,
				StartDate: date(2025, 3, 1), EndDate: ptr(date(2025, 3, 31))},
			expected: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			hours, err := capacity.Normalize(tt.alloc, emp, window)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, hours, 1e-9)
		})
	}
}

func TestNormalize_Errors(t *testing.T) {
	window := models.DateRange{Start: date(2025, 1, 1), End: date(2025, 1, 31)}
	valid := models.Allocation{ID: "a", Percentage: 50, ConfidenceLevel: 3, StartDate: date(2025, 1, 1)}

	tests := map[string]struct {
		alloc    models.Allocation
		emp      models.EmployeeCapacity
		expected error
	}{
		"ZeroWeeklyHours": {
			alloc:    valid,
			emp:      models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 0},
			expected: planerrors.ErrInvalidCapacity,
		},
		"NegativeWeeklyHours": {
			alloc:    valid,
			emp:      models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: -5},
			expected: planerrors.ErrInvalidCapacity,
		},
		"PercentageZero": {
			alloc:    models.Allocation{ID: "a", Percentage: 0, ConfidenceLevel: 3, StartDate: date(2025, 1, 1)},
			emp:      models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 40},
			expected: planerrors.ErrInvalidAllocation,
		},
		"PercentageJustOver100": {
			alloc:    models.Allocation{ID: "a", Percentage: 100.01, ConfidenceLevel: 3, StartDate: date(2025, 1, 1)},
			emp:      models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 40},
			expected: planerrors.ErrInvalidAllocation,
		},
		"EndBeforeStart": {
			alloc: models.Allocation{ID: "a", Percentage: 50, ConfidenceLevel: 3,
				StartDate: date(2025, 1, 10), EndDate: ptr(date(2025, 1, 9))},
			emp:      models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 40},
			expected: planerrors.ErrInvalidDateRange,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := capacity.Normalize(tt.alloc, tt.emp, window)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), "expected %v, got %v", tt.expected, err)
		})
	}
}

func TestInvalidDateRangeIsInvalidAllocation(t *testing.T) {
	a := models.Allocation{ID: "a", Percentage: 50, ConfidenceLevel: 3,
		StartDate: date(2025, 2, 1), EndDate: ptr(date(2025, 1, 1))}

	err := capacity.ValidateAllocation(a)
	assert.ErrorIs(t, err, planerrors.ErrInvalidDateRange)
	assert.ErrorIs(t, err, planerrors.ErrInvalidAllocation)

	var verr *planerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "a", verr.ID)
}

func TestWeeksOverlapping(t *testing.T) {
	a := models.DateRange{Start: date(2025, 1, 1), End: date(2025, 1, 14)}
	b := models.DateRange{Start: date(2025, 1, 8), End: date(2025, 1, 31)}

	assert.InDelta(t, 1.0, capacity.WeeksOverlapping(a, b), 1e-9)
	assert.InDelta(t, 1.0, capacity.WeeksOverlapping(b, a), 1e-9)
	assert.Zero(t, capacity.WeeksOverlapping(a, models.DateRange{Start: date(2025, 2, 1), End: date(2025, 2, 2)}))
}

func TestEstimatedHours_ExplicitOverride(t *testing.T) {
	emp := models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 40}
	a := models.Allocation{ID: "a", Percentage: 50, ConfidenceLevel: 3, StartDate: date(2025, 1, 1),
		EstimatedHours: ptr(123.0)}

	hours, err := capacity.EstimatedHours(a, emp, models.DateRange{Start: date(2025, 1, 1), End: date(2025, 1, 31)})
	require.NoError(t, err)
	assert.Equal(t, 123.0, hours)
}

func TestSkillFor(t *testing.T) {
	emp := models.EmployeeCapacity{EmployeeID: "e1", WeeklyHours: 40,
		Skills: []models.Skill{{Category: "backend", Level: models.LevelSenior}}}

	s, ok := capacity.SkillFor(models.Allocation{}, emp)
	require.True(t, ok)
	assert.Equal(t, "backend", s.Category)

	explicit := models.Skill{Category: "qa", Level: models.LevelMid}
	s, ok = capacity.SkillFor(models.Allocation{Skill: &explicit}, emp)
	require.True(t, ok)
	assert.Equal(t, explicit, s)

	_, ok = capacity.SkillFor(models.Allocation{}, models.EmployeeCapacity{EmployeeID: "e2"})
	assert.False(t, ok)
}
