package scheduler

import "strings"

// SequentialResult is the completion order of a sequential run.
type SequentialResult struct {
	Order []string
}

// String concatenates the order, e.g. "CABDFE".
func (r *SequentialResult) String() string {
	return strings.Join(r.Order, "")
}

// SequentialScheduler executes tasks one at a time with zero duration,
// always taking the smallest eligible identity next.
type SequentialScheduler struct {
	dag   *DAG
	state RunState
	tasks map[string]*Task // snapshot owned by the current run
}

// NewSequentialScheduler creates a scheduler over d. The graph is not mutated.
func NewSequentialScheduler(d *DAG) *SequentialScheduler {
	return &SequentialScheduler{dag: d}
}

// State returns the run state of the most recent run.
func (s *SequentialScheduler) State() RunState {
	return s.state
}

// Tasks returns the per-run task records of the most recent run, sorted by ID.
func (s *SequentialScheduler) Tasks() []*Task {
	out := make([]*Task, 0, len(s.tasks))
	for _, id := range sortedKeys(s.tasks) {
		out = append(out, cloneTask(s.tasks[id]))
	}
	return out
}

// Run produces a topological order of every task. Fails with
// ErrCyclicDependency if some tasks can never become eligible.
func (s *SequentialScheduler) Run() (*SequentialResult, error) {
	s.tasks = s.dag.snapshot()
	s.state = RunRunning

	completed := make(map[string]bool, len(s.tasks))
	ready := make(map[string]bool)
	for _, id := range s.dag.Roots() {
		ready[id] = true
		s.tasks[id].Status = TaskReady
	}

	result := &SequentialResult{Order: make([]string, 0, len(s.tasks))}
	for len(ready) > 0 {
		eligible := eligibleSorted(ready, s.tasks, completed)
		if len(eligible) == 0 {
			s.state = RunFailed
			return result, cyclic(unfinished(s.tasks, completed), "no ready task is eligible")
		}

		next := eligible[0]
		delete(ready, next)

		task := s.tasks[next]
		task.Status = TaskCompleted
		task.StartedAt = len(result.Order)
		task.FinishedAt = len(result.Order)
		completed[next] = true
		result.Order = append(result.Order, next)

		markReady(next, s.tasks, ready, completed)
	}

	if len(completed) != len(s.tasks) {
		s.state = RunFailed
		return result, cyclic(unfinished(s.tasks, completed), "tasks never became ready")
	}

	s.state = RunDone
	return result, nil
}
