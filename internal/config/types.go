package config

// Config is the top-level configuration for a scheduling run.
type Config struct {
	Alphabet         string `json:"alphabet"`          // Ordered identities; position drives duration
	Workers          int    `json:"workers"`           // Simulated worker count for the timed run
	BaseCost         int    `json:"base_cost"`         // Added to every step's duration
	InputPath        string `json:"input_path"`        // Instruction file
	DBPath           string `json:"db_path,omitempty"` // SQLite run history; empty disables persistence
	SweepMax         int    `json:"sweep_max"`         // Largest worker count tried by a sweep
	ConcurrencyLimit int    `json:"concurrency_limit"` // Parallel simulations during a sweep
	ListenAddr       string `json:"listen_addr"`       // HTTP server address
}

// fileConfig mirrors Config with pointer fields so a file only overrides
// the keys it actually sets.
type fileConfig struct {
	Alphabet         *string `json:"alphabet"`
	Workers          *int    `json:"workers"`
	BaseCost         *int    `json:"base_cost"`
	InputPath        *string `json:"input_path"`
	DBPath           *string `json:"db_path"`
	SweepMax         *int    `json:"sweep_max"`
	ConcurrencyLimit *int    `json:"concurrency_limit"`
	ListenAddr       *string `json:"listen_addr"`
}
