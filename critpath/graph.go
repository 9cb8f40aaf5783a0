package critpath

import (
	"fmt"
	"sort"

	planerrors "resource-planner/errors"
	"resource-planner/models"
)

// taskGraph is the dependency DAG of a task set. Edges point from a
// dependency to its dependent.
type taskGraph struct {
	tasks     map[string]models.Task
	durations map[string]int
	adj       map[string][]string // dependency -> dependents
	revAdj    map[string][]string // dependent -> dependencies
	roots     []string
	leaves    []string
}

func buildGraph(tasks []models.Task) (*taskGraph, error) {
	g := &taskGraph{
		tasks:     make(map[string]models.Task, len(tasks)),
		durations: make(map[string]int, len(tasks)),
		adj:       make(map[string][]string),
		revAdj:    make(map[string][]string),
	}

	for _, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: missing id", planerrors.ErrInvalidTask)
		}
		if _, dup := g.tasks[t.ID]; dup {
			return nil, &planerrors.ValidationError{Subject: "task", ID: t.ID, Err: fmt.Errorf("%w: duplicate id", planerrors.ErrInvalidTask)}
		}
		d, err := Duration(t)
		if err != nil {
			return nil, err
		}
		g.tasks[t.ID] = t
		g.durations[t.ID] = d
	}

	edges := make(map[[2]string]bool)
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := g.tasks[dep]; !ok {
				return nil, &planerrors.ValidationError{
					Subject: "task",
					ID:      t.ID,
					Err:     fmt.Errorf("%w: %s", planerrors.ErrUnknownDependency, dep),
				}
			}
			key := [2]string{dep, t.ID}
			if edges[key] {
				continue
			}
			edges[key] = true
			g.adj[dep] = append(g.adj[dep], t.ID)
			g.revAdj[t.ID] = append(g.revAdj[t.ID], dep)
		}
	}

	for k := range g.adj {
		sort.Strings(g.adj[k])
	}
	for k := range g.revAdj {
		sort.Strings(g.revAdj[k])
	}

	for id := range g.tasks {
		if len(g.revAdj[id]) == 0 {
			g.roots = append(g.roots, id)
		}
		if len(g.adj[id]) == 0 {
			g.leaves = append(g.leaves, id)
		}
	}
	sort.Strings(g.roots)
	sort.Strings(g.leaves)

	if cycle := g.detectCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	return g, nil
}

// CycleError reports a dependency cycle. Path starts and ends with the same task.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %v", planerrors.ErrCyclicDependency, e.Path)
}

func (e *CycleError) Unwrap() error {
	return planerrors.ErrCyclicDependency
}

// detectCycle returns a cycle path if one exists, or nil if the graph is
// acyclic. DFS with white/gray/black colouring, visiting IDs in sorted order.
func (g *taskGraph) detectCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.adj[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// topoSort is Kahn's algorithm with a sorted ready queue so the order is
// deterministic.
func (g *taskGraph) topoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.tasks))
	for id := range g.tasks {
		inDegree[id] = len(g.revAdj[id])
	}

	queue := append([]string(nil), g.roots...)
	order := make([]string, 0, len(g.tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var ready []string
		for _, succ := range g.adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(order) != len(g.tasks) {
		return nil, fmt.Errorf("%w: %d of %d tasks sorted", planerrors.ErrCyclicDependency, len(order), len(g.tasks))
	}
	return order, nil
}
