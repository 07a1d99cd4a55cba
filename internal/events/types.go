package events

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicRun  = "run"
)

// Event type constants
const (
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskCompleted = "task.completed"
	EventTypeRunProgress   = "run.progress"
	EventTypeRunFinished   = "run.finished"
)

// TaskStartedEvent is published when a task is assigned to a worker.
// At is the simulated clock, not wall time.
type TaskStartedEvent struct {
	ID     string
	Worker int
	At     int
	Finish int // Scheduled completion time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskCompletedEvent is published when a task releases its worker.
type TaskCompletedEvent struct {
	ID     string
	Worker int
	At     int
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() string    { return e.ID }

// RunProgressEvent is published after each batch of completions.
type RunProgressEvent struct {
	Total     int
	Completed int
	Running   int
	Pending   int
	Clock     int
	Active    []string // IDs holding a worker after the batch, sorted
}

func (e RunProgressEvent) EventType() string { return EventTypeRunProgress }
func (e RunProgressEvent) TaskID() string    { return "" }

// RunFinishedEvent is published once the simulation has drained.
type RunFinishedEvent struct {
	Makespan int
	Workers  int
	Err      error // Non-nil when the run aborted (e.g. cycle)
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }
func (e RunFinishedEvent) TaskID() string    { return "" }
