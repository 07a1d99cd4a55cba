package config

import "github.com/aristath/stepsched/internal/scheduler"

// DefaultConfig returns the full-scale configuration: five workers and a
// sixty-unit base cost over the uppercase alphabet.
func DefaultConfig() *Config {
	return &Config{
		Alphabet:         string(scheduler.Uppercase),
		Workers:          5,
		BaseCost:         60,
		InputPath:        "input.txt",
		SweepMax:         8,
		ConcurrencyLimit: 4,
		ListenAddr:       ":8080",
	}
}

// ExampleConfig returns the small validation setup: two workers, no base cost.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.BaseCost = 0
	return cfg
}
