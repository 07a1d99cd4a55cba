package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/events"
	"github.com/aristath/stepsched/internal/scheduler"
)

// Solution holds both answers for one configuration plus the critical path.
type Solution struct {
	Sequential   *scheduler.SequentialResult
	Parallel     *scheduler.ParallelResult
	CriticalPath *scheduler.PathAnalysis
}

// Order returns the sequential completion order as a single string.
func (s *Solution) Order() string {
	return s.Sequential.String()
}

// Makespan returns the simulated total time.
func (s *Solution) Makespan() int {
	return s.Parallel.Makespan
}

// Solve runs the sequential and parallel schedulers over d with cfg.
// pub may be nil.
func Solve(ctx context.Context, d *scheduler.DAG, cfg *config.Config, pub events.Publisher) (*Solution, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seq, err := scheduler.NewSequentialScheduler(d).Run()
	if err != nil {
		return nil, fmt.Errorf("ordering steps: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ps, err := scheduler.NewParallelScheduler(d, scheduler.ParallelConfig{
		Workers:   cfg.Workers,
		BaseCost:  cfg.BaseCost,
		Duration:  cfg.Duration(),
		Publisher: pub,
	})
	if err != nil {
		return nil, err
	}
	par, err := ps.Run()
	if err != nil {
		return nil, fmt.Errorf("simulating %d workers: %w", cfg.Workers, err)
	}

	cp, err := scheduler.AnalyzeCriticalPath(d, cfg.Duration())
	if err != nil {
		return nil, fmt.Errorf("critical path: %w", err)
	}
	if par.Makespan < cp.Length {
		log.Printf("WARNING: makespan %d below critical path length %d", par.Makespan, cp.Length)
	}

	return &Solution{Sequential: seq, Parallel: par, CriticalPath: cp}, nil
}

// SweepRunnerConfig configures a worker-count sweep.
type SweepRunnerConfig struct {
	MaxWorkers       int                    // Worker counts 1..MaxWorkers are simulated
	BaseCost         int                    // Fixed for every run in the sweep
	Duration         scheduler.DurationFunc // Optional override, see scheduler.ParallelConfig
	ConcurrencyLimit int                    // Max concurrent simulations (default 4)
}

// SweepPoint is the makespan for one worker count.
type SweepPoint struct {
	Workers  int
	Makespan int
}

// SweepReport collects a sweep and checks that more workers never cost time.
type SweepReport struct {
	Points     []SweepPoint // Sorted by worker count
	Monotonic  bool
	Violations []int // Worker counts n whose makespan exceeds that of n-1
}

// SweepRunner simulates one graph under many worker counts concurrently.
// Each simulation takes its own snapshot of the graph, so runs share no
// mutable state.
type SweepRunner struct {
	config SweepRunnerConfig
	dag    *scheduler.DAG
	mu     sync.Mutex
	points []SweepPoint
}

// NewSweepRunner creates a new sweep runner.
func NewSweepRunner(cfg SweepRunnerConfig, d *scheduler.DAG) *SweepRunner {
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = 4
	}
	return &SweepRunner{config: cfg, dag: d}
}

// Run simulates every worker count. The first failing simulation cancels the
// rest; failures are deterministic so there is nothing to retry.
func (r *SweepRunner) Run(ctx context.Context) (*SweepReport, error) {
	if r.config.MaxWorkers <= 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one worker, got %d", scheduler.ErrInvalidConfiguration, r.config.MaxWorkers)
	}

	r.mu.Lock()
	r.points = nil
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.ConcurrencyLimit)

	for n := 1; n <= r.config.MaxWorkers; n++ {
		workers := n
		g.Go(func() error {
			return r.simulate(gctx, workers)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.report(), nil
}

// simulate runs one worker count and records its makespan.
func (r *SweepRunner) simulate(ctx context.Context, workers int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s, err := scheduler.NewParallelScheduler(r.dag, scheduler.ParallelConfig{
		Workers:  workers,
		BaseCost: r.config.BaseCost,
		Duration: r.config.Duration,
	})
	if err != nil {
		return err
	}
	res, err := s.Run()
	if err != nil {
		return fmt.Errorf("workers=%d: %w", workers, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, SweepPoint{Workers: workers, Makespan: res.Makespan})
	return nil
}

func (r *SweepRunner) report() *SweepReport {
	r.mu.Lock()
	points := append([]SweepPoint(nil), r.points...)
	r.mu.Unlock()

	sort.Slice(points, func(i, j int) bool { return points[i].Workers < points[j].Workers })

	rep := &SweepReport{Points: points, Monotonic: true}
	for i := 1; i < len(points); i++ {
		if points[i].Makespan > points[i-1].Makespan {
			rep.Monotonic = false
			rep.Violations = append(rep.Violations, points[i].Workers)
		}
	}
	if !rep.Monotonic {
		log.Printf("WARNING: makespan grew with more workers at %v", rep.Violations)
	}
	return rep
}
