// Package attempts holds the rules applied to a climber's attempt sequence
// on one route: the milestone-before-top check and the derived result fields.
package attempts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/cragboard/internal/domain/model"
)

// ErrTopBeforeMilestone is the kind of every SequenceError.
var ErrTopBeforeMilestone = errors.New("top before milestone")

// SequenceError reports the attempt whose top came before any milestone.
type SequenceError struct {
	Attempt int    // the offending attempt's own number
	Label   string // milestone label used in the message
}

func (e *SequenceError) Error() string {
	label := strings.ToLower(e.Label)
	if label == "" {
		label = "milestone"
	}
	return fmt.Sprintf("Invalid attempt sequence: Top achieved on attempt %d before any %s was recorded.", e.Attempt, label)
}

// Unwrap lets callers match with errors.Is(err, ErrTopBeforeMilestone).
func (e *SequenceError) Unwrap() error { return ErrTopBeforeMilestone }

// Option configures a Validator.
type Option func(*Validator)

// WithTerminology sets the label used in violation messages.
func WithTerminology(t model.Terminology) Option {
	return func(v *Validator) {
		v.label = t.Label()
	}
}

// WithSameAttemptMilestone lets a milestone on the topping attempt satisfy
// that attempt's own top.
func WithSameAttemptMilestone(allow bool) Option {
	return func(v *Validator) {
		v.sameAttempt = allow
	}
}

// Validator checks attempt sequences. The zero value is strict and usable.
type Validator struct {
	label       string
	sameAttempt bool
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{label: "Bonus"}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate scans seq once, front to back. A top is rejected unless a
// milestone was recorded on an earlier attempt. The milestone flag of an
// attempt is applied after its own top check, so a flash that reports both
// fails unless WithSameAttemptMilestone is set.
func (v *Validator) Validate(seq []model.Attempt) error {
	milestoneSeen := false
	for _, a := range seq {
		if v.sameAttempt && a.Milestone {
			milestoneSeen = true
		}
		if a.Top && !milestoneSeen {
			return &SequenceError{Attempt: a.Number, Label: v.label}
		}
		if a.Milestone {
			milestoneSeen = true
		}
	}
	return nil
}

// Validate runs the strict rule with default wording.
func Validate(seq []model.Attempt) error {
	var v Validator
	return v.Validate(seq)
}
