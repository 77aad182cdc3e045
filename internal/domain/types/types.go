// Package types contains the read shapes served over HTTP and the live channel.
package types

import (
	"bytes"
	"encoding/json"

	"github.com/okian/cragboard/internal/domain/model"
)

// EventNewResult names the live event pushed after a result is stored.
const EventNewResult = "newResult"

// Data is the roster and route list served at GET /data.
type Data struct {
	Climbers []string `json:"climbers"`
	Routes   []string `json:"routes"`
}

// SummaryEntry lists the routes a climber has results on.
type SummaryEntry struct {
	Climber string   `json:"climber"`
	Routes  []string `json:"routes"`
	Count   int      `json:"count"`
}

// SubmittedPair is a (climber, route) pair that already has a result.
type SubmittedPair struct {
	Climber string `json:"climber"`
	Route   string `json:"route"`
}

// LiveMessage frames a live event for websocket viewers.
type LiveMessage struct {
	Event string `json:"event"`
	Data  Object `json:"data"`
}

// Member is one key of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its key order. Keys that depend on
// the milestone label cannot be struct tags.
type Object []Member

// MarshalJSON writes the members in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// ResultRecord renders a result with the persisted column names.
func ResultRecord(t model.Terminology, r model.Result) Object {
	return Object{
		{model.ColumnTimestamp, r.Timestamp},
		{model.ColumnClimber, r.Climber},
		{model.ColumnRoute, r.Route},
		{model.ColumnTotalAttempts, r.TotalAttempts},
		{t.AchievedColumn(), r.MilestoneAchieved},
		{model.ColumnTopAchieved, r.TopAchieved},
		{t.FirstAttemptColumn(), r.FirstMilestoneAttempt},
		{model.ColumnFirstTopAttempt, r.FirstTopAttempt},
	}
}

// ResultRecords renders results in order; never nil.
func ResultRecords(t model.Terminology, results []model.Result) []Object {
	out := make([]Object, 0, len(results))
	for _, r := range results {
		out = append(out, ResultRecord(t, r))
	}
	return out
}

// AttemptPayload renders one attempt the way the scoring form sent it.
func AttemptPayload(t model.Terminology, a model.Attempt) Object {
	return Object{
		{"number", a.Number},
		{t.Key(), a.Milestone},
		{"top", a.Top},
	}
}

// NewResultPayload renders the live newResult payload.
func NewResultPayload(t model.Terminology, ev model.ResultEvent) Object {
	attempts := make([]Object, 0, len(ev.Attempts))
	for _, a := range ev.Attempts {
		attempts = append(attempts, AttemptPayload(t, a))
	}
	return Object{
		{"climber", ev.Climber},
		{"route", ev.Route},
		{"totalAttempts", ev.Fields.TotalAttempts},
		{t.AchievedKey(), ev.Fields.MilestoneAchieved},
		{"topAchieved", ev.Fields.TopAchieved},
		{t.FirstAttemptKey(), ev.Fields.FirstMilestoneAttempt},
		{"firstTopAttempt", ev.Fields.FirstTopAttempt},
		{"attempts", attempts},
	}
}

// NewResultMessage wraps the payload for live viewers.
func NewResultMessage(t model.Terminology, ev model.ResultEvent) LiveMessage {
	return LiveMessage{Event: EventNewResult, Data: NewResultPayload(t, ev)}
}
