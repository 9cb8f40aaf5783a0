package critpath_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-planner/critpath"
	planerrors "resource-planner/errors"
	"resource-planner/models"
)

func task(id string, days int, deps ...string) models.Task {
	return models.Task{ID: id, DurationDays: &days, Dependencies: deps}
}

func TestAnalyze_LinearChain(t *testing.T) {
	result, err := critpath.Analyze([]models.Task{
		task("c", 4, "b"),
		task("a", 2),
		task("b", 3, "a"),
	})
	require.NoError(t, err)

	assert.Equal(t, 9, result.ProjectDuration)
	assert.Equal(t, []string{"a", "b", "c"}, result.TopoOrder)
	assert.Equal(t, []string{"a", "b", "c"}, result.CriticalTaskIDs)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, result.CriticalPaths)
	for id, ts := range result.Tasks {
		assert.Zero(t, ts.Slack, "slack of %s", id)
		assert.True(t, ts.IsCritical)
	}

	c := result.Tasks["c"]
	assert.Equal(t, 5, c.ES)
	assert.Equal(t, 9, c.EF)
	assert.Equal(t, 5, c.LS)
	assert.Equal(t, 9, c.LF)
}

func TestAnalyze_Slack(t *testing.T) {
	result, err := critpath.Analyze([]models.Task{
		task("X", 5),
		task("Y", 2),
		task("Z", 1, "X", "Y"),
	})
	require.NoError(t, err)

	assert.Equal(t, 6, result.ProjectDuration)
	assert.Zero(t, result.Tasks["X"].Slack)
	assert.Equal(t, 3, result.Tasks["Y"].Slack)
	assert.Equal(t, 3, result.Tasks["Y"].LS)
	assert.False(t, result.Tasks["Y"].IsCritical)
	assert.Equal(t, []string{"X", "Z"}, result.CriticalTaskIDs)
	assert.Equal(t, [][]string{{"X", "Z"}}, result.CriticalPaths)
}

func TestAnalyze_ParallelCriticalPaths(t *testing.T) {
	// a -> b -> d and a -> c -> d, both branches 3 days long.
	result, err := critpath.Analyze([]models.Task{
		task("a", 1),
		task("b", 3, "a"),
		task("c", 3, "a"),
		task("d", 2, "b", "c"),
		task("e", 1, "a"),
	})
	require.NoError(t, err)

	assert.Equal(t, 6, result.ProjectDuration)
	assert.Equal(t, [][]string{{"a", "b", "d"}, {"a", "c", "d"}}, result.CriticalPaths)
	assert.Equal(t, 4, result.Tasks["e"].Slack)
	assert.NotContains(t, result.CriticalTaskIDs, "e")
}

func TestAnalyze_IndependentChains(t *testing.T) {
	result, err := critpath.Analyze([]models.Task{
		task("a", 4),
		task("b", 4),
		task("c", 1),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.ProjectDuration)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, result.CriticalPaths)
	assert.Equal(t, 3, result.Tasks["c"].Slack)
}

func TestAnalyze_Waves(t *testing.T) {
	result, err := critpath.Analyze([]models.Task{
		task("X", 5),
		task("Y", 2),
		task("Z", 1, "X", "Y"),
	})
	require.NoError(t, err)
	require.Len(t, result.Waves, 2)

	assert.Equal(t, []string{"X", "Y"}, result.Waves[0].TaskIDs)
	assert.True(t, result.Waves[0].IsCritical)
	assert.Equal(t, []string{"Z"}, result.Waves[1].TaskIDs)
	assert.Equal(t, 1, result.Tasks["Z"].Wave)

	// critical tasks come first within a wave
	result, err = critpath.Analyze([]models.Task{
		task("a", 1),
		task("b", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, result.Waves[0].TaskIDs)
}

func TestAnalyze_DurationFromDates(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

	result, err := critpath.Analyze([]models.Task{
		{ID: "dated", Start: &start, End: &end},
		{ID: "bare", Dependencies: []string{"dated"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Tasks["dated"].DurationDays)
	assert.Equal(t, 1, result.Tasks["bare"].DurationDays)
	assert.Equal(t, 6, result.ProjectDuration)
}

func TestAnalyze_Milestone(t *testing.T) {
	result, err := critpath.Analyze([]models.Task{
		task("build", 2),
		task("release", 0, "build"),
		task("announce", 1, "release"),
	})
	require.NoError(t, err)

	m := result.Tasks["release"]
	assert.Zero(t, m.DurationDays)
	assert.Equal(t, 2, m.ES)
	assert.Equal(t, 2, m.EF)
	assert.True(t, m.IsCritical)
	assert.Equal(t, 3, result.ProjectDuration)
	assert.Equal(t, [][]string{{"build", "release", "announce"}}, result.CriticalPaths)

	result, err = critpath.Analyze([]models.Task{task("A", 2), task("M", 0, "A")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProjectDuration)
	assert.Zero(t, result.Tasks["M"].DurationDays)
}

func TestAnalyze_ChainedDiamondsCapPaths(t *testing.T) {
	// Each diamond split -> {l, r} -> join doubles the number of critical paths.
	var tasks []models.Task
	prev := ""
	for i := range 20 {
		split := fmt.Sprintf("s%02d", i)
		if prev == "" {
			tasks = append(tasks, task(split, 1))
		} else {
			tasks = append(tasks, task(split, 1, prev))
		}
		l, r := fmt.Sprintf("l%02d", i), fmt.Sprintf("r%02d", i)
		tasks = append(tasks, task(l, 1, split), task(r, 1, split))
		prev = fmt.Sprintf("j%02d", i)
		tasks = append(tasks, task(prev, 1, l, r))
	}

	result, err := critpath.Analyze(tasks)
	require.NoError(t, err)

	assert.Equal(t, 60, result.ProjectDuration)
	assert.Len(t, result.CriticalTaskIDs, len(tasks))
	assert.Len(t, result.CriticalPaths, critpath.MaxCriticalPaths)
	assert.True(t, result.PathsTruncated)
	for _, p := range result.CriticalPaths {
		assert.Len(t, p, 60)
	}

	small, err := critpath.Analyze(tasks[:8])
	require.NoError(t, err)
	assert.Len(t, small.CriticalPaths, 4)
	assert.False(t, small.PathsTruncated)
}

func TestAnalyze_Empty(t *testing.T) {
	result, err := critpath.Analyze(nil)
	require.NoError(t, err)
	assert.Zero(t, result.ProjectDuration)
	assert.Empty(t, result.CriticalPaths)
	assert.Empty(t, result.Waves)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := map[string]struct {
		tasks    []models.Task
		expected error
	}{
		"UnknownDependency": {
			tasks:    []models.Task{task("a", 1, "ghost")},
			expected: planerrors.ErrUnknownDependency,
		},
		"Cycle": {
			tasks:    []models.Task{task("a", 1, "c"), task("b", 1, "a"), task("c", 1, "b")},
			expected: planerrors.ErrCyclicDependency,
		},
		"SelfDependency": {
			tasks:    []models.Task{task("a", 1, "a")},
			expected: planerrors.ErrCyclicDependency,
		},
		"DuplicateID": {
			tasks:    []models.Task{task("a", 1), task("a", 2)},
			expected: planerrors.ErrInvalidTask,
		},
		"NegativeDuration": {
			tasks:    []models.Task{task("a", -1)},
			expected: planerrors.ErrInvalidTask,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := critpath.Analyze(tt.tasks)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestAnalyze_CyclePath(t *testing.T) {
	_, err := critpath.Analyze([]models.Task{task("a", 1, "c"), task("b", 1, "a"), task("c", 1, "b")})

	var cycleErr *critpath.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycleErr.Path)
}
