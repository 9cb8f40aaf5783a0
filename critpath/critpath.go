package critpath

import (
	"fmt"
	"sort"

	planerrors "resource-planner/errors"
	"resource-planner/models"
)

// MaxCriticalPaths caps how many critical paths Analyze lists. Parallel
// zero-slack branches multiply the number of paths, so a graph of chained
// diamonds has exponentially many.
const MaxCriticalPaths = 100

// Duration returns a task's length in days: DurationDays when set (0 is a
// milestone), else the inclusive day count between Start and End, else 1.
func Duration(t models.Task) (int, error) {
	switch {
	case t.DurationDays != nil && *t.DurationDays < 0:
		return 0, &planerrors.ValidationError{
			Subject: "task",
			ID:      t.ID,
			Err:     fmt.Errorf("%w: negative duration %d", planerrors.ErrInvalidTask, *t.DurationDays),
		}
	case t.DurationDays != nil:
		return *t.DurationDays, nil
	case t.Start != nil && t.End != nil:
		r := models.DateRange{Start: models.Day(*t.Start), End: models.Day(*t.End)}
		if r.End.Before(r.Start) {
			return 0, &planerrors.ValidationError{Subject: "task", ID: t.ID, Err: planerrors.ErrInvalidDateRange}
		}
		return r.Days(), nil
	}
	return 1, nil
}

// Analyze runs the critical path method over a task DAG.
//
// Times are whole days from project start. A task with dependencies starts
// when the last of them finishes; tasks are critical when their slack is 0.
// Zero-slack chains from a source to a sink are returned, not just one, up to
// MaxCriticalPaths; PathsTruncated reports when more exist.
func Analyze(tasks []models.Task) (*models.CriticalPathAnalysis, error) {
	g, err := buildGraph(tasks)
	if err != nil {
		return nil, err
	}
	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}

	result := &models.CriticalPathAnalysis{
		Tasks:           make(map[string]*models.TaskSchedule, len(order)),
		TopoOrder:       order,
		CriticalTaskIDs: make([]string, 0),
		CriticalPaths:   make([][]string, 0),
	}
	for _, id := range order {
		result.Tasks[id] = &models.TaskSchedule{TaskID: id, DurationDays: g.durations[id]}
	}

	// Forward pass.
	for _, id := range order {
		ts := result.Tasks[id]
		es := 0
		for _, pred := range g.revAdj[id] {
			if ef := result.Tasks[pred].EF; ef > es {
				es = ef
			}
		}
		ts.ES = es
		ts.EF = es + ts.DurationDays
		if ts.EF > result.ProjectDuration {
			result.ProjectDuration = ts.EF
		}
	}

	// Backward pass.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]
		lf := result.ProjectDuration
		for _, succ := range g.adj[id] {
			if ls := result.Tasks[succ].LS; ls < lf {
				lf = ls
			}
		}
		ts.LF = lf
		ts.LS = lf - ts.DurationDays
		ts.Slack = ts.LS - ts.ES
		ts.IsCritical = ts.Slack == 0
	}

	for _, id := range order {
		if result.Tasks[id].IsCritical {
			result.CriticalTaskIDs = append(result.CriticalTaskIDs, id)
		}
	}
	result.CriticalPaths, result.PathsTruncated = criticalPaths(g, result.Tasks, MaxCriticalPaths)
	result.Waves = computeWaves(result)

	return result, nil
}

// criticalPaths enumerates chains of critical tasks from a source to a sink
// where each step is tight (the successor starts when its predecessor
// finishes). It stops after limit paths and reports whether any were left.
//
// Every critical task that is not a sink has a tight critical successor, so
// the walk never backtracks out of a dead end and stops after at most limit
// root-to-sink descents.
func criticalPaths(g *taskGraph, sched map[string]*models.TaskSchedule, limit int) ([][]string, bool) {
	paths := make([][]string, 0)
	truncated := false

	var walk func(id string, path []string)
	walk = func(id string, path []string) {
		if truncated {
			return
		}
		path = append(path, id)
		if len(g.adj[id]) == 0 {
			if len(paths) == limit {
				truncated = true
				return
			}
			paths = append(paths, append([]string(nil), path...))
			return
		}
		for _, succ := range g.adj[id] {
			s := sched[succ]
			if s.IsCritical && s.ES == sched[id].EF {
				walk(succ, path)
			}
		}
	}

	for _, root := range g.roots {
		if sched[root].IsCritical {
			walk(root, nil)
		}
	}
	return paths, truncated
}

// computeWaves groups tasks by earliest start. Tasks in one wave can be
// staffed in parallel; critical tasks are listed first.
func computeWaves(result *models.CriticalPathAnalysis) []models.Wave {
	groups := make(map[int][]string)
	for _, id := range result.TopoOrder {
		es := result.Tasks[id].ES
		groups[es] = append(groups[es], id)
	}

	starts := make([]int, 0, len(groups))
	for es := range groups {
		starts = append(starts, es)
	}
	sort.Ints(starts)

	waves := make([]models.Wave, len(starts))
	for i, es := range starts {
		ids := groups[es]
		sort.Strings(ids)

		critical := false
		for _, id := range ids {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				critical = true
			}
		}
		sort.SliceStable(ids, func(a, b int) bool {
			return result.Tasks[ids[a]].IsCritical && !result.Tasks[ids[b]].IsCritical
		})

		waves[i] = models.Wave{Index: i, TaskIDs: ids, IsCritical: critical}
	}
	return waves
}
