package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/events"
	"github.com/aristath/stepsched/internal/orchestrator"
	"github.com/aristath/stepsched/internal/persistence"
	"github.com/aristath/stepsched/internal/scheduler"
	"github.com/aristath/stepsched/internal/server"
	"github.com/aristath/stepsched/internal/tui"
)

func orderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the order a single worker completes the steps in",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, d, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}
			res, err := scheduler.NewSequentialScheduler(d).Run()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
			return nil
		},
	}
}

func timeCmd(opts *options) *cobra.Command {
	var flagTrace bool

	cmd := &cobra.Command{
		Use:   "time",
		Short: "Print how long the configured workers need to finish every step",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, d, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			pcfg := scheduler.ParallelConfig{
				Workers:  cfg.Workers,
				BaseCost: cfg.BaseCost,
				Duration: cfg.Duration(),
			}

			var (
				bus *events.EventBus
				rec events.Recorder
				wg  sync.WaitGroup
			)
			if flagTrace {
				bus = events.NewEventBus()
				sub := bus.SubscribeAll(1024)
				out := cmd.ErrOrStderr()
				wg.Add(1)
				go func() {
					defer wg.Done()
					for e := range sub {
						fmt.Fprintln(out, formatEvent(e))
					}
				}()
				pcfg.Publisher = events.Fanout{&rec, bus}
			}

			s, err := scheduler.NewParallelScheduler(d, pcfg)
			if err != nil {
				return err
			}
			res, runErr := s.Run()

			if bus != nil {
				bus.Close()
				wg.Wait()
				if n := bus.Dropped(); n > 0 {
					log.Printf("WARNING: trace dropped %d of %d events", n, len(rec.Events()))
				}
			}
			if runErr != nil {
				return runErr
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Makespan)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagTrace, "trace", false, "Stream simulation events to stderr")
	return cmd
}

func solveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "solve",
		Short: "Print the order, the makespan and the critical path (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}
}

func runSolve(cmd *cobra.Command, opts *options) error {
	cfg, d, err := loadGraph(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	sol, err := orchestrator.Solve(ctx, d, cfg, nil)
	if err != nil {
		return err
	}
	printSolution(cmd.OutOrStdout(), sol)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)
	if store != nil {
		id, err := store.SaveRun(ctx, persistence.NewRunRecord(d, sol.Sequential, sol.Parallel))
		if err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nrecorded run %s\n", id)
	}
	return nil
}

func sweepCmd(opts *options) *cobra.Command {
	var flagMax int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Simulate every worker count from 1 to --max",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, d, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}
			maxWorkers := cfg.SweepMax
			if cmd.Flags().Changed("max") {
				maxWorkers = flagMax
			}

			runner := orchestrator.NewSweepRunner(orchestrator.SweepRunnerConfig{
				MaxWorkers:       maxWorkers,
				BaseCost:         cfg.BaseCost,
				Duration:         cfg.Duration(),
				ConcurrencyLimit: cfg.ConcurrencyLimit,
			}, d)
			rep, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			printSweep(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().IntVar(&flagMax, "max", 0, "Largest worker count (default: config sweep_max)")
	return cmd
}

func criticalCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "critical",
		Short: "Print earliest/latest times, slack and the critical path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, d, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}
			cp, err := scheduler.AnalyzeCriticalPath(d, cfg.Duration())
			if err != nil {
				return err
			}
			printCriticalPath(cmd.OutOrStdout(), cp)
			return nil
		},
	}
}

func watchCmd(opts *options) *cobra.Command {
	var flagStep time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Replay the parallel run in an interactive timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, d, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			globalPath, projectPath, err := config.DefaultPaths()
			if err != nil {
				return err
			}
			if opts.configPath != "" {
				projectPath = opts.configPath
			}

			model := tui.New(d, cfg, globalPath, projectPath).WithStep(flagStep)
			return runProgram(cmd.Context(), tea.NewProgram(model, tea.WithAltScreen()))
		},
	}

	cmd.Flags().DurationVar(&flagStep, "step", tui.DefaultStep, "Wall time per simulated clock value")
	return cmd
}

// runProgram runs p until it exits or ctx is cancelled.
func runProgram(ctx context.Context, p *tea.Program) error {
	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Println("Shutdown signal received, closing the timeline...")
		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-errChan:
			return err
		case <-shutdownCtx.Done():
			return fmt.Errorf("timeline did not exit within 10s")
		}
	}
}

func serveCmd(opts *options) *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /solve and the run history over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			addr := cfg.ListenAddr
			if cmd.Flags().Changed("addr") {
				addr = flagAddr
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			// A nil *SQLiteStore must not become a non-nil Store
			var s *server.Server
			if store != nil {
				s = server.New(cfg, store)
			} else {
				s = server.New(cfg, nil)
			}
			return s.Listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default: config listen_addr)")
	return cmd
}

func runsCmd(opts *options) *cobra.Command {
	var flagLimit int

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded runs, or show one with its timeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("no run history: set --db or db_path")
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				run, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				printRun(out, run)
				return nil
			}

			runs, err := store.ListRuns(ctx, flagLimit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintln(out, run.Summary())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum runs to list (0 for all)")
	return cmd
}
