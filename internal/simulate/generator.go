package simulate

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const randomFloatDivisor = 1000000

// randomFloat returns a value in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns a value in [0, n).
func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateClimbers returns n distinct climber names.
func generateClimbers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "sim-" + uuid.NewString()[:8]
	}
	return out
}

// generateSubmissions builds one submission per (climber, route) pair, plus
// a copy of some of them to exercise duplicate rejection. Invalid pairs top
// on the first attempt with no milestone before it.
func generateSubmissions(cfg *Config, climbers []string) []Submission {
	var subs []Submission
	for _, c := range climbers {
		for _, r := range cfg.Routes {
			s := Submission{Climber: c, Route: r}
			if randomFloat() < cfg.InvalidRate {
				s.Attempts = invalidSequence(cfg.MaxAttempts)
			} else {
				s.Attempts = validSequence(cfg.MaxAttempts)
			}
			subs = append(subs, s)
			if randomFloat() < cfg.DuplicateRate {
				subs = append(subs, s)
			}
		}
	}
	// Shuffle so duplicates race their originals.
	for i := len(subs) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		subs[i], subs[j] = subs[j], subs[i]
	}
	return subs
}

// validSequence returns up to max attempts in which any top follows a
// milestone on an earlier attempt.
func validSequence(max int) []Attempt {
	n := randomInt(max + 1)
	seq := make([]Attempt, n)
	milestone := false
	for i := range seq {
		seq[i].Number = i + 1
		if milestone && randomFloat() < 0.4 {
			seq[i].Top = true
			seq[i].Bonus = true
			return seq[:i+1]
		}
		if randomFloat() < 0.5 {
			seq[i].Bonus = true
			milestone = true
		}
	}
	return seq
}

func invalidSequence(max int) []Attempt {
	n := 1 + randomInt(max)
	seq := make([]Attempt, n)
	for i := range seq {
		seq[i].Number = i + 1
	}
	seq[0].Top = true
	return seq
}
