package scheduler

import "sort"

// TaskSlack holds the unconstrained-worker schedule of a single task.
type TaskSlack struct {
	ID     string
	ES, EF int // earliest start/finish
	LS, LF int // latest start/finish
	Slack  int
}

// Critical reports whether delaying the task would delay the whole run.
func (t TaskSlack) Critical() bool {
	return t.Slack == 0
}

// PathAnalysis is the critical path of a graph under a duration function.
// Length is a lower bound on the makespan for any worker count, reached
// once there are at least as many workers as tasks.
type PathAnalysis struct {
	Tasks  map[string]*TaskSlack
	Path   []string // critical task IDs ordered by (ES, ID)
	Length int
	Order  []string // Topological order used for both passes
}

// AnalyzeCriticalPath runs a forward and backward pass over the graph.
func AnalyzeCriticalPath(d *DAG, dur DurationFunc) (*PathAnalysis, error) {
	if dur == nil {
		dur = AlphabetDuration(d.Alphabet(), 0)
	}
	tasks := d.snapshot()

	order, err := topoOrder(tasks)
	if err != nil {
		return nil, err
	}

	durations := make(map[string]int, len(tasks))
	for _, id := range order {
		n, err := dur(id)
		if err != nil {
			return nil, err
		}
		durations[id] = n
	}

	res := &PathAnalysis{Tasks: make(map[string]*TaskSlack, len(tasks)), Order: order}
	for _, id := range order {
		res.Tasks[id] = &TaskSlack{ID: id}
	}

	// Forward pass: ES = max EF over predecessors.
	for _, id := range order {
		ts := res.Tasks[id]
		for pred := range tasks[id].Predecessors {
			if ef := res.Tasks[pred].EF; ef > ts.ES {
				ts.ES = ef
			}
		}
		ts.EF = ts.ES + durations[id]
		if ts.EF > res.Length {
			res.Length = ts.EF
		}
	}

	// Backward pass: LF = min LS over successors, or Length for sinks.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := res.Tasks[id]
		ts.LF = res.Length
		for succ := range tasks[id].Successors {
			if ls := res.Tasks[succ].LS; ls < ts.LF {
				ts.LF = ls
			}
		}
		ts.LS = ts.LF - durations[id]
		ts.Slack = ts.LS - ts.ES
	}

	for _, id := range order {
		if res.Tasks[id].Critical() {
			res.Path = append(res.Path, id)
		}
	}
	sort.SliceStable(res.Path, func(i, j int) bool {
		a, b := res.Tasks[res.Path[i]], res.Tasks[res.Path[j]]
		if a.ES != b.ES {
			return a.ES < b.ES
		}
		return a.ID < b.ID
	})

	return res, nil
}
