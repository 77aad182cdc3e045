// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

// Store backends.
const (
	BackendCSV    = "csv"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// StoreBackend selects the result store: csv, badger or memory.
	StoreBackend string `koanf:"store_backend"`

	// ResultsPath is the CSV result file used by the csv backend.
	ResultsPath string `koanf:"results_path"`

	// BadgerPath is the database directory used by the badger backend.
	BadgerPath string `koanf:"badger_path"`

	// RosterPath is the climber roster CSV.
	RosterPath string `koanf:"roster_path"`

	// WatchRoster reloads the roster when the file changes on disk.
	WatchRoster bool `koanf:"watch_roster"`

	// Routes is the fixed set of route names for the competition.
	Routes []string `koanf:"routes"`

	// MilestoneLabel names the intermediate hold, usually "Bonus" or "Zone".
	MilestoneLabel string `koanf:"milestone_label"`

	// SameAttemptMilestone lets a milestone logged on the topping attempt
	// satisfy that attempt's own top. Off by default.
	SameAttemptMilestone bool `koanf:"same_attempt_milestone"`

	// BroadcastQueueSize bounds the pending live event queue.
	BroadcastQueueSize int `koanf:"broadcast_queue_size"`

	// BroadcastWorkers sets the number of dispatch workers. One keeps
	// events in submission order.
	BroadcastWorkers int `koanf:"broadcast_workers"`

	// RedisAddr enables cross-instance fan-out through Redis pub/sub when set.
	RedisAddr string `koanf:"redis_addr"`

	// RedisChannel is the pub/sub channel name.
	RedisChannel string `koanf:"redis_channel"`

	// SubmitRateLimit caps POST /submit in requests per second; 0 disables.
	SubmitRateLimit float64 `koanf:"submit_rate_limit"`

	// SubmitBurst is the token bucket size for SubmitRateLimit.
	SubmitBurst int `koanf:"submit_burst"`

	// MaxUploadBytes caps the roster upload size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":3000",
		StoreBackend:       BackendCSV,
		ResultsPath:        "result.csv",
		BadgerPath:         "data/results",
		RosterPath:         "climbers.csv",
		WatchRoster:        true,
		Routes:             []string{"Route 1", "Route 2", "Route 3", "Route 4", "Route 5", "Route 6"},
		MilestoneLabel:     "Bonus",
		BroadcastQueueSize: 1024,
		BroadcastWorkers:   1,
		RedisChannel:       "cragboard:results",
		SubmitRateLimit:    0,
		SubmitBurst:        10,
		MaxUploadBytes:     1 << 20,
	}
}
