package scheduler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gammazero/toposort"
)

// DAG holds every task and the precedence edges between them.
type DAG struct {
	mu       sync.RWMutex
	tasks    map[string]*Task // All tasks indexed by ID
	alphabet Alphabet
}

// NewDAG creates an empty DAG accepting identities from alphabet.
// An empty alphabet means Uppercase.
func NewDAG(alphabet Alphabet) *DAG {
	if alphabet == "" {
		alphabet = Uppercase
	}
	return &DAG{
		tasks:    make(map[string]*Task),
		alphabet: alphabet,
	}
}

// FromEdges builds a DAG over the default alphabet from precedence pairs.
func FromEdges(edges []Edge) (*DAG, error) {
	d := NewDAG(Uppercase)
	if err := d.AddEdges(edges); err != nil {
		return nil, err
	}
	return d, nil
}

// Alphabet returns the identity alphabet the graph was created with.
func (d *DAG) Alphabet() Alphabet {
	return d.alphabet
}

// GetOrCreate returns the task with the given id, creating it with empty
// edge sets on first reference. Ids outside the alphabet are rejected.
func (d *DAG) GetOrCreate(id string) (*Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.getOrCreateLocked(id)
}

func (d *DAG) getOrCreateLocked(id string) (*Task, error) {
	if task, exists := d.tasks[id]; exists {
		return task, nil
	}
	if !d.alphabet.Contains(id) {
		return nil, unknownIdentity(id, d.alphabet)
	}

	task := newTask(id)
	d.tasks[id] = task
	return task, nil
}

// AddEdge records that before must complete before after may start.
// Both directions of the relation are written under the same lock.
func (d *DAG) AddEdge(before, after string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Resolve both ends before touching either, so a bad id leaves no half edge.
	if !d.alphabet.Contains(before) {
		return unknownIdentity(before, d.alphabet)
	}
	if !d.alphabet.Contains(after) {
		return unknownIdentity(after, d.alphabet)
	}

	b, err := d.getOrCreateLocked(before)
	if err != nil {
		return err
	}
	a, err := d.getOrCreateLocked(after)
	if err != nil {
		return err
	}

	b.Successors[after] = struct{}{}
	a.Predecessors[before] = struct{}{}
	return nil
}

// AddEdges adds each pair in order, stopping at the first failure.
func (d *DAG) AddEdges(edges []Edge) error {
	for _, e := range edges {
		if err := d.AddEdge(e.Before, e.After); err != nil {
			return fmt.Errorf("edge %s -> %s: %w", e.Before, e.After, err)
		}
	}
	return nil
}

// Roots returns the ids of tasks with no predecessors, sorted.
func (d *DAG) Roots() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	roots := []string{}
	for id, task := range d.tasks {
		if len(task.Predecessors) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Get returns a copy of the task by ID.
func (d *DAG) Get(taskID string) (*Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	task, exists := d.tasks[taskID]
	if !exists {
		return nil, false
	}
	return cloneTask(task), true
}

// Tasks returns copies of all tasks sorted by ID.
func (d *DAG) Tasks() []*Task {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tasks := make([]*Task, 0, len(d.tasks))
	for _, id := range sortedKeys(d.tasks) {
		tasks = append(tasks, cloneTask(d.tasks[id]))
	}
	return tasks
}

// Len returns the number of tasks.
func (d *DAG) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tasks)
}

// Edges returns every precedence pair sorted by (Before, After).
func (d *DAG) Edges() []Edge {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var edges []Edge
	for _, id := range sortedKeys(d.tasks) {
		for _, succ := range sortedKeys(d.tasks[id].Successors) {
			edges = append(edges, Edge{Before: id, After: succ})
		}
	}
	return edges
}

// Validate runs a topological sort using gammazero/toposort.
// Returns ordered task IDs or ErrCyclicDependency.
func (d *DAG) Validate() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return topoOrder(d.tasks)
}

// topoOrder sorts tasks so every predecessor precedes its successors.
func topoOrder(tasks map[string]*Task) ([]string, error) {
	var edges []toposort.Edge
	for _, taskID := range sortedKeys(tasks) {
		task := tasks[taskID]
		if len(task.Predecessors) == 0 {
			// Edge from nil keeps isolated roots in the output.
			edges = append(edges, toposort.Edge{nil, taskID})
			continue
		}
		for _, predID := range sortedKeys(task.Predecessors) {
			edges = append(edges, toposort.Edge{predID, taskID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, cyclic(nil, err.Error())
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	// Tasks that only sit on a cycle with no entry from a root never appear.
	if len(order) != len(tasks) {
		found := make(map[string]bool, len(order))
		for _, id := range order {
			found[id] = true
		}
		var missing []string
		for _, id := range sortedKeys(tasks) {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, cyclic(missing, "tasks unreachable from any root")
	}

	return order, nil
}

// snapshot returns a deep copy of the task map with runtime state reset.
// Each run works on its own snapshot so the shared graph stays read-only.
func (d *DAG) snapshot() map[string]*Task {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tasks := make(map[string]*Task, len(d.tasks))
	for id, task := range d.tasks {
		cp := cloneTask(task)
		cp.Status = TaskPending
		cp.StartedAt = 0
		cp.FinishedAt = 0
		cp.Worker = -1
		tasks[id] = cp
	}
	return tasks
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
