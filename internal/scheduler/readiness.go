package scheduler

import "sort"

// IsEligible reports whether every predecessor of task is in completed.
// Both schedulers decide readiness through this one function.
func IsEligible(task *Task, completed map[string]bool) bool {
	for predID := range task.Predecessors {
		if !completed[predID] {
			return false
		}
	}
	return true
}

// eligibleSorted returns the ids in ready whose predecessors have all
// completed, ordered by identity. Sorting every time keeps the tie-break
// independent of map iteration order.
func eligibleSorted(ready map[string]bool, tasks map[string]*Task, completed map[string]bool) []string {
	eligible := make([]string, 0, len(ready))
	for id := range ready {
		if IsEligible(tasks[id], completed) {
			eligible = append(eligible, id)
		}
	}
	sort.Strings(eligible)
	return eligible
}

// unfinished lists the ids not yet completed, sorted.
func unfinished(tasks map[string]*Task, completed map[string]bool) []string {
	var ids []string
	for _, id := range sortedKeys(tasks) {
		if !completed[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// markReady moves the successors of id into the ready set unless they are
// already there or finished. Successors land in ready regardless of whether
// their other predecessors are done; eligibility is re-checked on selection.
func markReady(id string, tasks map[string]*Task, ready, completed map[string]bool) {
	for succID := range tasks[id].Successors {
		if ready[succID] || completed[succID] {
			continue
		}
		ready[succID] = true
		tasks[succID].Status = TaskReady
	}
}
