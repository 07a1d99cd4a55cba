package scheduler

import (
	"math"
	"sort"

	"github.com/aristath/stepsched/internal/events"
)

// ParallelConfig configures a simulated multi-worker run.
type ParallelConfig struct {
	Workers   int              // Number of simulated workers, must be positive
	BaseCost  int              // Added to every task's alphabet-derived duration
	Duration  DurationFunc     // Optional override; nil means AlphabetDuration(alphabet, BaseCost)
	Publisher events.Publisher // Optional sink for simulation events
}

// TaskRun records when and where a task ran in simulated time.
type TaskRun struct {
	ID     string
	Worker int
	Start  int
	Finish int
}

// ParallelResult is the outcome of a simulated run.
type ParallelResult struct {
	Makespan int
	Workers  int
	BaseCost int
	Timeline []TaskRun // Sorted by (Start, Worker)
	Order    []string  // Completion order; simultaneous completions sorted by ID
}

// ParallelScheduler simulates the graph on a fixed pool of identical workers.
// The simulation is single-threaded; workers are resource slots, not goroutines.
type ParallelScheduler struct {
	dag   *DAG
	cfg   ParallelConfig
	state RunState
	tasks map[string]*Task // snapshot owned by the current run
}

// NewParallelScheduler validates cfg and creates a scheduler over d.
func NewParallelScheduler(d *DAG, cfg ParallelConfig) (*ParallelScheduler, error) {
	if cfg.Workers <= 0 {
		return nil, invalidf("worker count must be positive, got %d", cfg.Workers)
	}
	if cfg.BaseCost < 0 {
		return nil, invalidf("base cost must be non-negative, got %d", cfg.BaseCost)
	}
	if cfg.Duration == nil {
		// The longest task costs BaseCost+len(alphabet); a chain of every
		// task must still fit in an int.
		longest := len(d.Alphabet())
		n := max(d.Len(), 1)
		if cfg.BaseCost > math.MaxInt/n-longest {
			return nil, invalidf("base cost %d overflows a run of %d tasks", cfg.BaseCost, n)
		}
		cfg.Duration = AlphabetDuration(d.Alphabet(), cfg.BaseCost)
	}
	return &ParallelScheduler{dag: d, cfg: cfg}, nil
}

// State returns the run state of the most recent run.
func (s *ParallelScheduler) State() RunState {
	return s.state
}

// Tasks returns the per-run task records of the most recent run, sorted by ID.
func (s *ParallelScheduler) Tasks() []*Task {
	out := make([]*Task, 0, len(s.tasks))
	for _, id := range sortedKeys(s.tasks) {
		out = append(out, cloneTask(s.tasks[id]))
	}
	return out
}

// Run simulates the graph until every task has completed and returns the
// makespan. Completions sharing a timestamp are applied as one batch before
// any new assignment is made.
func (s *ParallelScheduler) Run() (*ParallelResult, error) {
	s.tasks = s.dag.snapshot()
	s.state = RunRunning

	result := &ParallelResult{Workers: s.cfg.Workers, BaseCost: s.cfg.BaseCost}

	durations, err := s.resolveDurations()
	if err != nil {
		s.state = RunFailed
		return result, err
	}

	total := len(s.tasks)
	completed := make(map[string]bool, total)
	ready := make(map[string]bool)
	inProgress := make(map[string]int) // task ID -> completion time
	// Workers beyond the task count can never receive a task.
	pool := NewWorkerPool(min(s.cfg.Workers, total))
	clock := 0

	for _, id := range s.dag.Roots() {
		ready[id] = true
		s.tasks[id].Status = TaskReady
	}

	// Every pass either completes at least one task or returns, so the
	// loop runs at most total+1 times.
	for pass := 0; pass <= total; pass++ {
		// Assignment phase
		for _, id := range eligibleSorted(ready, s.tasks, completed) {
			if pool.Idle() == 0 {
				break
			}
			worker, _ := pool.Acquire(id)
			finish := clock + durations[id]

			delete(ready, id)
			inProgress[id] = finish

			task := s.tasks[id]
			task.Status = TaskRunning
			task.StartedAt = clock
			task.Worker = worker

			s.publish(events.TopicTask, events.TaskStartedEvent{ID: id, Worker: worker, At: clock, Finish: finish})
		}

		if len(inProgress) == 0 {
			break
		}

		// Advance phase
		next := -1
		for _, finish := range inProgress {
			if next == -1 || finish < next {
				next = finish
			}
		}
		clock = next

		// Completion phase: collect the batch first, then apply it.
		var batch []string
		for id, finish := range inProgress {
			if finish == clock {
				batch = append(batch, id)
			}
		}
		sort.Strings(batch)

		for _, id := range batch {
			delete(inProgress, id)
			worker, _ := pool.Release(id)
			completed[id] = true

			task := s.tasks[id]
			task.Status = TaskCompleted
			task.FinishedAt = clock

			result.Order = append(result.Order, id)
			result.Timeline = append(result.Timeline, TaskRun{ID: id, Worker: worker, Start: task.StartedAt, Finish: clock})
			s.publish(events.TopicTask, events.TaskCompletedEvent{ID: id, Worker: worker, At: clock})
		}
		for _, id := range batch {
			markReady(id, s.tasks, ready, completed)
		}

		s.publish(events.TopicRun, events.RunProgressEvent{
			Total:     total,
			Completed: len(completed),
			Running:   len(inProgress),
			Pending:   total - len(completed) - len(inProgress),
			Clock:     clock,
			Active:    pool.Busy(),
		})
	}

	sort.Slice(result.Timeline, func(i, j int) bool {
		a, b := result.Timeline[i], result.Timeline[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Worker < b.Worker
	})

	if len(completed) != total {
		s.state = RunFailed
		err := cyclic(unfinished(s.tasks, completed), "no running task and none eligible")
		s.publish(events.TopicRun, events.RunFinishedEvent{Makespan: clock, Workers: s.cfg.Workers, Err: err})
		return result, err
	}

	result.Makespan = clock
	s.state = RunDone
	s.publish(events.TopicRun, events.RunFinishedEvent{Makespan: clock, Workers: s.cfg.Workers})
	return result, nil
}

// resolveDurations computes every task's duration before the clock starts,
// so an unknown identity fails the run up front.
func (s *ParallelScheduler) resolveDurations() (map[string]int, error) {
	durations := make(map[string]int, len(s.tasks))
	sum := 0
	for _, id := range sortedKeys(s.tasks) {
		d, err := s.cfg.Duration(id)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, &ScheduleError{Kind: ErrInvalidConfiguration, IDs: []string{id}, Msg: "duration must be positive"}
		}
		if d > math.MaxInt-sum {
			return nil, &ScheduleError{Kind: ErrInvalidConfiguration, IDs: []string{id}, Msg: "total duration overflows"}
		}
		sum += d
		durations[id] = d
	}
	return durations, nil
}

func (s *ParallelScheduler) publish(topic string, event events.Event) {
	if s.cfg.Publisher != nil {
		s.cfg.Publisher.Publish(topic, event)
	}
}
