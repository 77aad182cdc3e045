// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout matches JavaScript's Date.toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Attempt is one try at a route.
type Attempt struct {
	Number    int  // caller-supplied ordinal, not checked against position
	Milestone bool // bonus/zone reached on this attempt
	Top       bool
}

// UnmarshalJSON accepts the milestone under any of its deployment names.
func (a *Attempt) UnmarshalJSON(data []byte) error {
	var raw struct {
		Number    json.Number `json:"number"`
		Milestone bool        `json:"milestone"`
		Bonus     bool        `json:"bonus"`
		Zone      bool        `json:"zone"`
		Top       bool        `json:"top"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n := 0
	if raw.Number != "" {
		v, err := strconv.Atoi(raw.Number.String())
		if err != nil {
			return fmt.Errorf("attempt number %q: %w", raw.Number, err)
		}
		n = v
	}
	*a = Attempt{
		Number:    n,
		Milestone: raw.Milestone || raw.Bonus || raw.Zone,
		Top:       raw.Top,
	}
	return nil
}

// AttemptIndex is a 1-based position in an attempt sequence; zero means none.
type AttemptIndex int

// NoAttempt marks an achievement that never happened.
const NoAttempt AttemptIndex = 0

// IsSet reports whether the index refers to an attempt.
func (i AttemptIndex) IsSet() bool { return i > 0 }

// String renders the index, or "" when unset, as persisted in the result file.
func (i AttemptIndex) String() string {
	if !i.IsSet() {
		return ""
	}
	return strconv.Itoa(int(i))
}

// MarshalJSON writes the number, or "" when unset.
func (i AttemptIndex) MarshalJSON() ([]byte, error) {
	if !i.IsSet() {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(int(i))), nil
}

// ParseAttemptIndex reverses String.
func ParseAttemptIndex(s string) (AttemptIndex, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoAttempt, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoAttempt, fmt.Errorf("attempt index %q: %w", s, err)
	}
	if n < 0 {
		return NoAttempt, fmt.Errorf("attempt index %d is negative", n)
	}
	return AttemptIndex(n), nil
}

// ResultFields are the values derived from an attempt sequence.
type ResultFields struct {
	TotalAttempts         int
	MilestoneAchieved     bool
	TopAchieved           bool
	FirstMilestoneAttempt AttemptIndex
	FirstTopAttempt       AttemptIndex
}

// Key identifies the single result a climber may have on a route.
type Key struct {
	Climber string
	Route   string
}

// String joins the parts with an ASCII unit separator.
func (k Key) String() string {
	return k.Climber + "\x1f" + k.Route
}

// Result is the persisted, immutable outcome for one (climber, route) pair.
type Result struct {
	Timestamp string
	Climber   string
	Route     string
	ResultFields
}

// Key returns the (climber, route) key of the result.
func (r Result) Key() Key {
	return Key{Climber: r.Climber, Route: r.Route}
}

// NewResult stamps fields for a pair at the given time.
func NewResult(at time.Time, climber, route string, fields ResultFields) Result {
	return Result{
		Timestamp:    at.UTC().Format(TimestampLayout),
		Climber:      climber,
		Route:        route,
		ResultFields: fields,
	}
}

// ResultEvent is pushed to live viewers after a result is stored.
type ResultEvent struct {
	Climber  string
	Route    string
	Fields   ResultFields
	Attempts []Attempt
}
