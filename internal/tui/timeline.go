package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/stepsched/internal/scheduler"
)

// IdleCell marks a worker with nothing assigned at that instant.
const IdleCell = '.'

// RenderTimeline draws one row per worker, one column per time unit, showing
// the task each worker held up to clock. When the run is wider than width,
// each column covers several time units and shows the task at the start of
// its span.
func RenderTimeline(res *scheduler.ParallelResult, clock, width int) string {
	if res == nil || res.Workers <= 0 {
		return ""
	}

	byWorker := make([][]scheduler.TaskRun, res.Workers)
	for _, tr := range res.Timeline {
		if tr.Worker >= 0 && tr.Worker < res.Workers {
			byWorker[tr.Worker] = append(byWorker[tr.Worker], tr)
		}
	}

	digits := len(strconv.Itoa(res.Workers - 1))
	labelWidth := digits + 2 // "w" + digits + " "
	scale := timelineScale(res.Makespan, width-labelWidth)
	end := min(clock, res.Makespan)

	rows := make([]string, res.Workers)
	for w := range byWorker {
		var b strings.Builder
		fmt.Fprintf(&b, "w%-*d ", digits, w)

		runs := byWorker[w] // already sorted by Start
		i := 0
		for t := 0; t < end; t += scale {
			for i < len(runs) && runs[i].Finish <= t {
				i++
			}
			if i < len(runs) && runs[i].Start <= t {
				b.WriteString(runs[i].ID)
			} else {
				b.WriteRune(IdleCell)
			}
		}
		rows[w] = b.String()
	}
	return strings.Join(rows, "\n")
}

// timelineScale returns how many time units one column covers.
func timelineScale(makespan, cols int) int {
	if cols <= 0 || makespan <= cols {
		return 1
	}
	return (makespan + cols - 1) / cols
}
