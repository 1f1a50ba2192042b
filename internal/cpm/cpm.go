// Package cpm runs the critical path method over a task graph: a forward
// pass for earliest start/finish, a backward pass for latest start/finish,
// and slack as the difference.
package cpm

import (
	"fmt"
	"math"

	"planline/internal/domain"
)

const epsilon = 1e-9

type TaskSchedule struct {
	TaskID     string  `json:"task_id"`
	ES         float64 `json:"es"`
	EF         float64 `json:"ef"`
	LS         float64 `json:"ls"`
	LF         float64 `json:"lf"`
	Slack      float64 `json:"slack"`
	IsCritical bool    `json:"is_critical"`
}

type Result struct {
	Tasks         map[string]*TaskSchedule `json:"tasks"`
	TopoOrder     []string                 `json:"topo_order"`
	CriticalPath  []string                 `json:"critical_path"`
	TotalDuration float64                  `json:"total_duration"`
}

type graph struct {
	order  []string
	adj    map[string][]string
	revAdj map[string][]string
}

// buildGraph keeps task ids in input order and drops edges whose
// predecessor is not a task.
func buildGraph(tasks []domain.Task, preds map[string][]string) graph {
	g := graph{
		adj:    map[string][]string{},
		revAdj: map[string][]string{},
	}
	known := map[string]bool{}
	for _, t := range tasks {
		if known[t.ID] {
			continue
		}
		known[t.ID] = true
		g.order = append(g.order, t.ID)
	}
	for _, id := range g.order {
		seen := map[string]bool{}
		for _, p := range preds[id] {
			if !known[p] || seen[p] {
				continue
			}
			seen[p] = true
			g.adj[p] = append(g.adj[p], id)
			g.revAdj[id] = append(g.revAdj[id], p)
		}
	}
	return g
}

// Analyze computes the critical path for the given durations. Tasks missing
// from durations take duration 0. A cycle is an error.
func Analyze(tasks []domain.Task, preds map[string][]string, durations map[string]float64) (*Result, error) {
	g := buildGraph(tasks, preds)
	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Tasks:     make(map[string]*TaskSchedule, len(order)),
		TopoOrder: order,
	}
	for _, id := range order {
		result.Tasks[id] = &TaskSchedule{TaskID: id}
	}

	// Forward pass.
	for _, id := range order {
		ts := result.Tasks[id]
		es := 0.0
		for _, p := range g.revAdj[id] {
			es = math.Max(es, result.Tasks[p].EF)
		}
		ts.ES = es
		ts.EF = es + durations[id]
		result.TotalDuration = math.Max(result.TotalDuration, ts.EF)
	}

	// Backward pass in reverse topological order.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]
		lf := result.TotalDuration
		for _, s := range g.adj[id] {
			lf = math.Min(lf, result.Tasks[s].LS)
		}
		ts.LF = lf
		ts.LS = lf - durations[id]
		ts.Slack = ts.LS - ts.ES
		if math.Abs(ts.Slack) < epsilon {
			ts.Slack = 0
			ts.IsCritical = true
		}
	}

	for _, id := range order {
		if result.Tasks[id].IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}
	return result, nil
}

// topoSort is Kahn's algorithm; ready tasks are taken in input order.
func topoSort(g graph) ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		inDegree[id] = len(g.revAdj[id])
	}
	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, succ := range g.adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	if len(order) != len(g.order) {
		return nil, fmt.Errorf("topological sort failed: graph has a cycle (%d of %d tasks sorted)", len(order), len(g.order))
	}
	return order, nil
}
