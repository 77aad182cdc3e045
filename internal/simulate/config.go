// Package simulate drives a running scoreboard with generated submissions
// and checks that the read views agree with what was accepted.
package simulate

import (
	"time"

	"github.com/okian/cragboard/pkg/logger"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Climbers      int           // Number of generated climbers
	Routes        []string      // Routes to climb; fetched from /data when empty
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	MaxAttempts   int           // Upper bound on attempts per route
	InvalidRate   float64       // Share of pairs sent with a top before any milestone
	DuplicateRate float64       // Share of pairs sent twice
	UploadRoster  bool          // Replace the roster with the generated climbers first
	Logger        logger.Logger
}

// Defaults returns a Config for a local server.
func Defaults() Config {
	return Config{
		BaseURL:       "http://localhost:3000",
		Climbers:      20,
		Workers:       8,
		Timeout:       10 * time.Second,
		MaxAttempts:   6,
		InvalidRate:   0.1,
		DuplicateRate: 0.2,
	}
}

// Attempt is one attempt as the scoring form posts it.
type Attempt struct {
	Number int  `json:"number"`
	Bonus  bool `json:"bonus"`
	Top    bool `json:"top"`
}

// Submission is one POST /submit body.
type Submission struct {
	Climber  string    `json:"climber"`
	Route    string    `json:"route"`
	Attempts []Attempt `json:"attempts"`
}

// Outcome classifies the server's answer to a submission.
type Outcome string

// Submission outcomes.
const (
	OutcomeSaved     Outcome = "saved"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFailed    Outcome = "failed"
)

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Saved      int
	Duplicate  int
	Invalid    int
	Failed     int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Mismatches []string
}
