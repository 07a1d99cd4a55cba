package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/stepsched/internal/events"
	"github.com/aristath/stepsched/internal/orchestrator"
	"github.com/aristath/stepsched/internal/persistence"
	"github.com/aristath/stepsched/internal/scheduler"
	"github.com/aristath/stepsched/internal/tui"
)

var (
	styleLabel = lipgloss.NewStyle().Bold(true)
	styleValue = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const timelineWidth = 80

func printSolution(w io.Writer, sol *orchestrator.Solution) {
	fmt.Fprintf(w, "%s %s\n", styleLabel.Render("Order:   "), styleValue.Render(sol.Order()))
	fmt.Fprintf(w, "%s %s %s\n", styleLabel.Render("Makespan:"), styleValue.Render(fmt.Sprint(sol.Makespan())),
		styleMuted.Render(fmt.Sprintf("(%d workers, base cost %d)", sol.Parallel.Workers, sol.Parallel.BaseCost)))
	if cp := sol.CriticalPath; cp != nil && len(cp.Path) > 0 {
		fmt.Fprintf(w, "%s %s %s\n", styleLabel.Render("Critical:"), strings.Join(cp.Path, " -> "),
			styleMuted.Render(fmt.Sprintf("(%d)", cp.Length)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.RenderTimeline(sol.Parallel, sol.Makespan(), timelineWidth))
}

func printSweep(w io.Writer, rep *orchestrator.SweepReport) {
	fmt.Fprintf(w, "%s\n", styleLabel.Render("workers  makespan"))
	violations := make(map[int]bool, len(rep.Violations))
	for _, n := range rep.Violations {
		violations[n] = true
	}
	for _, p := range rep.Points {
		line := fmt.Sprintf("%7d  %8d", p.Workers, p.Makespan)
		if violations[p.Workers] {
			line += "  " + styleWarn.Render("slower than with one fewer worker")
		}
		fmt.Fprintln(w, line)
	}
}

func printCriticalPath(w io.Writer, cp *scheduler.PathAnalysis) {
	fmt.Fprintf(w, "%s\n", styleLabel.Render("step    ES    EF    LS    LF  slack"))
	for _, id := range cp.Order {
		ts := cp.Tasks[id]
		mark := ""
		if ts.Critical() {
			mark = styleWarn.Render(" *")
		}
		fmt.Fprintf(w, "%-4s %5d %5d %5d %5d %6d%s\n", ts.ID, ts.ES, ts.EF, ts.LS, ts.LF, ts.Slack, mark)
	}
	fmt.Fprintf(w, "\n%s %s %s\n", styleLabel.Render("Critical path:"), strings.Join(cp.Path, " -> "),
		styleMuted.Render(fmt.Sprintf("(%d)", cp.Length)))
}

func printRun(w io.Writer, run *persistence.RunRecord) {
	fmt.Fprintln(w, run.Summary())
	res := &scheduler.ParallelResult{
		Makespan: run.Makespan,
		Workers:  run.Workers,
		BaseCost: run.BaseCost,
		Timeline: run.Timeline,
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.RenderTimeline(res, run.Makespan, timelineWidth))
}

// formatEvent renders a simulation event as one trace line.
func formatEvent(e events.Event) string {
	switch e := e.(type) {
	case events.TaskStartedEvent:
		return fmt.Sprintf("t=%-5d start  %s on w%d until %d", e.At, e.ID, e.Worker, e.Finish)
	case events.TaskCompletedEvent:
		return fmt.Sprintf("t=%-5d done   %s on w%d", e.At, e.ID, e.Worker)
	case events.RunProgressEvent:
		line := fmt.Sprintf("t=%-5d %d/%d done, %d running", e.Clock, e.Completed, e.Total, e.Running)
		if len(e.Active) > 0 {
			line += " [" + strings.Join(e.Active, " ") + "]"
		}
		return line
	case events.RunFinishedEvent:
		if e.Err != nil {
			return fmt.Sprintf("t=%-5d aborted: %v", e.Makespan, e.Err)
		}
		return fmt.Sprintf("t=%-5d finished with %d workers", e.Makespan, e.Workers)
	}
	return e.EventType()
}
