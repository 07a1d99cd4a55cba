package scheduler

import (
	"math"
	"strings"
)

// TaskStatus represents the current state of a task within a run.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // Waiting on predecessors
	TaskReady                       // Unlocked by a completed predecessor, in the ready set
	TaskRunning                     // Occupying a worker
	TaskCompleted                   // Finished
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	}
	return "unknown"
}

// RunState is the overall state of one scheduler run.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunDone
	RunFailed
)

// Task is a node in the step graph.
type Task struct {
	ID           string
	Predecessors map[string]struct{} // Must complete before this task starts
	Successors   map[string]struct{} // Unlocked when this task completes

	// Per-run state. Only ever written on a run's private snapshot.
	Status     TaskStatus
	StartedAt  int
	FinishedAt int
	Worker     int // -1 when the task never held a worker (sequential runs)
}

func newTask(id string) *Task {
	return &Task{
		ID:           id,
		Predecessors: make(map[string]struct{}),
		Successors:   make(map[string]struct{}),
		Worker:       -1,
	}
}

// Completed reports whether the task finished in the run it belongs to.
func (t *Task) Completed() bool {
	return t.Status == TaskCompleted
}

// PredecessorIDs returns the predecessor identities in sorted order.
func (t *Task) PredecessorIDs() []string {
	return sortedKeys(t.Predecessors)
}

// SuccessorIDs returns the successor identities in sorted order.
func (t *Task) SuccessorIDs() []string {
	return sortedKeys(t.Successors)
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	cp.Predecessors = make(map[string]struct{}, len(task.Predecessors))
	for id := range task.Predecessors {
		cp.Predecessors[id] = struct{}{}
	}
	cp.Successors = make(map[string]struct{}, len(task.Successors))
	for id := range task.Successors {
		cp.Successors[id] = struct{}{}
	}
	return &cp
}

// Edge is a precedence pair: Before must complete before After may start.
type Edge struct {
	Before string
	After  string
}

// Alphabet is the ordered set of single-symbol identities a graph accepts.
// A task's position in it drives its duration.
type Alphabet string

// Uppercase is the default alphabet, 'A' through 'Z'.
const Uppercase Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Offset returns the zero-based position of id within the alphabet.
func (a Alphabet) Offset(id string) (int, error) {
	if len(id) != 1 {
		return 0, unknownIdentity(id, a)
	}
	idx := strings.IndexByte(string(a), id[0])
	if idx < 0 {
		return 0, unknownIdentity(id, a)
	}
	return idx, nil
}

// Contains reports whether id is a member of the alphabet.
func (a Alphabet) Contains(id string) bool {
	_, err := a.Offset(id)
	return err == nil
}

// DurationFunc maps a task identity to the number of time units it occupies a worker.
type DurationFunc func(id string) (int, error)

// AlphabetDuration returns base + 1 + offset(id).
func AlphabetDuration(alphabet Alphabet, baseCost int) DurationFunc {
	return func(id string) (int, error) {
		offset, err := alphabet.Offset(id)
		if err != nil {
			return 0, err
		}
		if baseCost > math.MaxInt-1-offset {
			return 0, &ScheduleError{Kind: ErrInvalidConfiguration, IDs: []string{id}, Msg: "duration overflows"}
		}
		return baseCost + 1 + offset, nil
	}
}

// UnitDuration makes every task take exactly one time unit.
func UnitDuration(string) (int, error) {
	return 1, nil
}
