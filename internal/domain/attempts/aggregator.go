package attempts

import "github.com/okian/cragboard/internal/domain/model"

// Aggregate derives the result fields from seq.
//
// First-attempt indices are sequence positions (index+1), not the
// caller-supplied Number; the two differ when numbering has gaps.
func Aggregate(seq []model.Attempt) model.ResultFields {
	f := model.ResultFields{TotalAttempts: len(seq)}
	for i, a := range seq {
		pos := model.AttemptIndex(i + 1)
		if a.Milestone && !f.MilestoneAchieved {
			f.MilestoneAchieved = true
			f.FirstMilestoneAttempt = pos
		}
		if a.Top && !f.TopAchieved {
			f.TopAchieved = true
			f.FirstTopAttempt = pos
		}
	}
	return f
}
