package simulate

import (
	"context"
	"fmt"
	"sort"
)

type pair struct{ climber, route string }

type summaryEntry struct {
	Climber string   `json:"climber"`
	Routes  []string `json:"routes"`
	Count   int      `json:"count"`
}

type submittedPair struct {
	Climber string `json:"climber"`
	Route   string `json:"route"`
}

// expectations derives what the read views must show for the generated
// climbers: every pair with a valid sequence saved exactly once, and no
// pair with an invalid one.
func expectations(records []recorded) (map[pair]int, []string) {
	savedCount := make(map[pair]int)
	var problems []string
	valid := make(map[pair]bool)
	for _, r := range records {
		p := pair{r.sub.Climber, r.sub.Route}
		valid[p] = validSubmission(r.sub)
		if r.outcome == OutcomeSaved {
			savedCount[p]++
		}
		if r.outcome == OutcomeInvalid && valid[p] {
			problems = append(problems, fmt.Sprintf("valid sequence rejected for %s/%s", p.climber, p.route))
		}
		if r.outcome == OutcomeSaved && !valid[p] {
			problems = append(problems, fmt.Sprintf("invalid sequence saved for %s/%s", p.climber, p.route))
		}
	}
	for p, n := range savedCount {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("%s/%s saved %d times", p.climber, p.route, n))
		}
	}
	return savedCount, problems
}

// validSubmission applies the milestone-before-top rule to s.
func validSubmission(s Submission) bool {
	seen := false
	for _, a := range s.Attempts {
		if a.Top && !seen {
			return false
		}
		if a.Bonus {
			seen = true
		}
	}
	return true
}

// verify compares the server's summary and submitted views with records.
func verify(ctx context.Context, client *HTTPClient, climbers []string, records []recorded) ([]string, error) {
	saved, problems := expectations(records)

	var submitted []submittedPair
	if err := client.getJSON(ctx, "/submitted.json", &submitted); err != nil {
		return nil, err
	}
	var summary []summaryEntry
	if err := client.getJSON(ctx, "/summary.json", &summary); err != nil {
		return nil, err
	}

	ours := make(map[string]bool, len(climbers))
	for _, c := range climbers {
		ours[c] = true
	}

	onServer := make(map[pair]bool)
	for _, s := range submitted {
		if !ours[s.Climber] {
			continue
		}
		p := pair{s.Climber, s.Route}
		if onServer[p] {
			problems = append(problems, fmt.Sprintf("%s/%s listed twice in submitted", p.climber, p.route))
		}
		onServer[p] = true
		if saved[p] == 0 {
			problems = append(problems, fmt.Sprintf("%s/%s stored but never acknowledged", p.climber, p.route))
		}
	}
	for p := range saved {
		if !onServer[p] {
			problems = append(problems, fmt.Sprintf("%s/%s acknowledged but missing from submitted", p.climber, p.route))
		}
	}

	want := make(map[string]int)
	for p := range saved {
		want[p.climber]++
	}
	got := make(map[string]int)
	for _, e := range summary {
		if !ours[e.Climber] {
			continue
		}
		got[e.Climber] = e.Count
		if e.Count != len(e.Routes) {
			problems = append(problems, fmt.Sprintf("%s summary count %d for %d routes", e.Climber, e.Count, len(e.Routes)))
		}
	}
	for _, c := range climbers {
		if got[c] != want[c] {
			problems = append(problems, fmt.Sprintf("%s summary count %d, want %d", c, got[c], want[c]))
		}
	}

	sort.Strings(problems)
	return problems, nil
}
