package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Terminology names the milestone hold for one deployment. Competitions
// call it "Bonus" or "Zone"; the semantics are identical.
type Terminology struct {
	label string
}

// NewTerminology normalizes label to a capitalized word ("zone" -> "Zone").
func NewTerminology(label string) Terminology {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Bonus"
	}
	r, size := utf8.DecodeRuneInString(label)
	return Terminology{label: string(unicode.ToUpper(r)) + strings.ToLower(label[size:])}
}

// Label is the capitalized name, e.g. "Bonus".
func (t Terminology) Label() string { return t.label }

// Key is the lower-case per-attempt field name, e.g. "bonus".
func (t Terminology) Key() string { return strings.ToLower(t.label) }

// AchievedColumn is the persisted flag column, e.g. "BonusAchieved".
func (t Terminology) AchievedColumn() string { return t.label + "Achieved" }

// FirstAttemptColumn is the persisted index column, e.g. "FirstBonusAttempt".
func (t Terminology) FirstAttemptColumn() string { return "First" + t.label + "Attempt" }

// AchievedKey is the live payload flag, e.g. "bonusAchieved".
func (t Terminology) AchievedKey() string { return t.Key() + "Achieved" }

// FirstAttemptKey is the live payload index, e.g. "firstBonusAttempt".
func (t Terminology) FirstAttemptKey() string { return "first" + t.label + "Attempt" }

// Columns returns the persisted header row.
func (t Terminology) Columns() []string {
	return []string{
		ColumnTimestamp,
		ColumnClimber,
		ColumnRoute,
		ColumnTotalAttempts,
		t.AchievedColumn(),
		ColumnTopAchieved,
		t.FirstAttemptColumn(),
		ColumnFirstTopAttempt,
	}
}

// Fixed persisted column names.
const (
	ColumnTimestamp       = "Timestamp"
	ColumnClimber         = "Climber"
	ColumnRoute           = "Route"
	ColumnTotalAttempts   = "TotalAttempts"
	ColumnTopAchieved     = "TopAchieved"
	ColumnFirstTopAttempt = "FirstTopAttempt"
)
