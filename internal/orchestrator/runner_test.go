package orchestrator

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/events"
	"github.com/aristath/stepsched/internal/scheduler"
)

func canonicalDAG(t *testing.T) *scheduler.DAG {
	t.Helper()
	d, err := scheduler.FromEdges([]scheduler.Edge{
		{Before: "C", After: "A"}, {Before: "C", After: "F"},
		{Before: "A", After: "B"}, {Before: "A", After: "D"},
		{Before: "B", After: "E"}, {Before: "D", After: "E"}, {Before: "F", After: "E"},
	})
	if err != nil {
		t.Fatalf("FromEdges error = %v", err)
	}
	return d
}

func TestSolveExample(t *testing.T) {
	rec := &events.Recorder{}
	sol, err := Solve(context.Background(), canonicalDAG(t), config.ExampleConfig(), rec)
	if err != nil {
		t.Fatalf("Solve error = %v", err)
	}

	if sol.Order() != "CABDFE" {
		t.Errorf("Order() = %q, want CABDFE", sol.Order())
	}
	if sol.Makespan() != 15 {
		t.Errorf("Makespan() = %d, want 15", sol.Makespan())
	}
	if sol.CriticalPath.Length != 14 {
		t.Errorf("critical path length = %d, want 14", sol.CriticalPath.Length)
	}
	if len(rec.Events()) == 0 {
		t.Error("no events published")
	}
}

func TestSolveFullScale(t *testing.T) {
	sol, err := Solve(context.Background(), canonicalDAG(t), config.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Solve error = %v", err)
	}
	if sol.Makespan() != 253 {
		t.Errorf("Makespan() = %d, want 253", sol.Makespan())
	}
}

func TestSolveErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := config.ExampleConfig()
		cfg.Workers = 0
		_, err := Solve(context.Background(), canonicalDAG(t), cfg, nil)
		if !errors.Is(err, scheduler.ErrInvalidConfiguration) {
			t.Errorf("error = %v, want ErrInvalidConfiguration", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		d := scheduler.NewDAG(scheduler.Uppercase)
		d.AddEdges([]scheduler.Edge{{Before: "A", After: "B"}, {Before: "B", After: "A"}})
		_, err := Solve(context.Background(), d, config.ExampleConfig(), nil)
		if !errors.Is(err, scheduler.ErrCyclicDependency) {
			t.Errorf("error = %v, want ErrCyclicDependency", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Solve(ctx, canonicalDAG(t), config.ExampleConfig(), nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestSweepRunner(t *testing.T) {
	r := NewSweepRunner(SweepRunnerConfig{MaxWorkers: 6, ConcurrencyLimit: 3}, canonicalDAG(t))

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	want := []SweepPoint{
		{Workers: 1, Makespan: 21},
		{Workers: 2, Makespan: 15},
		{Workers: 3, Makespan: 14},
		{Workers: 4, Makespan: 14},
		{Workers: 5, Makespan: 14},
		{Workers: 6, Makespan: 14},
	}
	if !reflect.DeepEqual(rep.Points, want) {
		t.Errorf("Points = %+v, want %+v", rep.Points, want)
	}
	if !rep.Monotonic || len(rep.Violations) != 0 {
		t.Errorf("expected monotonic sweep, got violations %v", rep.Violations)
	}

	// A second run on the same runner starts from scratch.
	again, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run error = %v", err)
	}
	if len(again.Points) != 6 {
		t.Errorf("second run has %d points, want 6", len(again.Points))
	}
}

func TestSweepRunnerErrors(t *testing.T) {
	if _, err := NewSweepRunner(SweepRunnerConfig{}, canonicalDAG(t)).Run(context.Background()); !errors.Is(err, scheduler.ErrInvalidConfiguration) {
		t.Errorf("zero MaxWorkers error = %v, want ErrInvalidConfiguration", err)
	}

	d := scheduler.NewDAG(scheduler.Uppercase)
	d.AddEdges([]scheduler.Edge{{Before: "A", After: "B"}, {Before: "B", After: "C"}, {Before: "C", After: "B"}})
	_, err := NewSweepRunner(SweepRunnerConfig{MaxWorkers: 4}, d).Run(context.Background())
	if !errors.Is(err, scheduler.ErrCyclicDependency) {
		t.Errorf("cycle error = %v, want ErrCyclicDependency", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSweepRunner(SweepRunnerConfig{MaxWorkers: 4}, canonicalDAG(t)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled sweep error = %v, want context.Canceled", err)
	}
}

func TestSweepReportViolations(t *testing.T) {
	r := &SweepRunner{points: []SweepPoint{
		{Workers: 3, Makespan: 9},
		{Workers: 1, Makespan: 10},
		{Workers: 2, Makespan: 8},
	}}
	rep := r.report()
	if rep.Monotonic {
		t.Error("expected non-monotonic report")
	}
	if !reflect.DeepEqual(rep.Violations, []int{3}) {
		t.Errorf("Violations = %v, want [3]", rep.Violations)
	}
}
