package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/input"
	"github.com/aristath/stepsched/internal/persistence"
	"github.com/aristath/stepsched/internal/scheduler"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	inputPath  string
	workers    int
	baseCost   int
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "stepsched",
		Short: "Order and time a set of dependent steps",
		Long: `stepsched reads instructions of the form
"Step C must be finished before step A can begin." and reports the order a
single worker completes them in, and how long a team of workers needs when
each step takes its base cost plus its position in the alphabet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: ~/.stepsched/config.json merged with .stepsched/config.json)")
	flags.StringVarP(&opts.inputPath, "input", "i", "", "Instruction file (overrides config input_path)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Simulated workers (overrides config)")
	flags.IntVar(&opts.baseCost, "base-cost", 0, "Base cost added to every step (overrides config)")
	flags.StringVar(&opts.dbPath, "db", "", "SQLite run history path (overrides config db_path)")

	rootCmd.AddCommand(orderCmd(opts))
	rootCmd.AddCommand(timeCmd(opts))
	rootCmd.AddCommand(solveCmd(opts))
	rootCmd.AddCommand(sweepCmd(opts))
	rootCmd.AddCommand(criticalCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(runsCmd(opts))

	return rootCmd
}

// loadConfig resolves the config files and applies any flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load("", opts.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputPath = opts.inputPath
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("base-cost") {
		cfg.BaseCost = opts.baseCost
	}
	if flags.Changed("db") {
		cfg.DBPath = opts.dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadGraph loads config and the instruction file it names.
func loadGraph(cmd *cobra.Command, opts *options) (*config.Config, *scheduler.DAG, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, nil, err
	}
	d, err := input.LoadGraph(cfg.InputPath, scheduler.Alphabet(cfg.Alphabet))
	if err != nil {
		return nil, nil, err
	}
	return cfg, d, nil
}

// openStore opens the run history, or returns nil when none is configured.
func openStore(ctx context.Context, cfg *config.Config) (*persistence.SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	store, err := persistence.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return store, nil
}

// closeStore closes store if one was opened.
func closeStore(store *persistence.SQLiteStore) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Printf("WARNING: closing run history: %v", err)
	}
}
