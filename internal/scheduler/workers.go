package scheduler

import "sort"

// WorkerPool tracks which simulated worker slot holds which task.
// Slots are interchangeable; the lowest idle index is always handed out
// first so timelines are reproducible. Not safe for concurrent use: a pool
// belongs to exactly one simulation run.
type WorkerPool struct {
	slots []string       // slot index -> task ID, "" when idle
	held  map[string]int // task ID -> slot index
}

// NewWorkerPool creates a pool of n idle workers.
func NewWorkerPool(n int) *WorkerPool {
	return &WorkerPool{
		slots: make([]string, n),
		held:  make(map[string]int, n),
	}
}

// Idle returns the number of workers not holding a task.
func (p *WorkerPool) Idle() int {
	return len(p.slots) - len(p.held)
}

// Acquire assigns taskID to the lowest idle worker and returns its index.
// Returns false if every worker is busy or the task already holds one.
func (p *WorkerPool) Acquire(taskID string) (int, bool) {
	if _, busy := p.held[taskID]; busy {
		return -1, false
	}
	for i, holder := range p.slots {
		if holder == "" {
			p.slots[i] = taskID
			p.held[taskID] = i
			return i, true
		}
	}
	return -1, false
}

// Release frees the worker held by taskID and returns its index.
func (p *WorkerPool) Release(taskID string) (int, bool) {
	i, ok := p.held[taskID]
	if !ok {
		return -1, false
	}
	p.slots[i] = ""
	delete(p.held, taskID)
	return i, true
}

// Busy returns the IDs of tasks currently holding a worker, sorted.
func (p *WorkerPool) Busy() []string {
	ids := make([]string, 0, len(p.held))
	for id := range p.held {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
