package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/cragboard/internal/domain/model"
)

const columnCount = 8

// encodeRow renders r in the persisted column order.
func encodeRow(r model.Result) []string {
	return []string{
		r.Timestamp,
		r.Climber,
		r.Route,
		strconv.Itoa(r.TotalAttempts),
		strconv.FormatBool(r.MilestoneAchieved),
		strconv.FormatBool(r.TopAchieved),
		r.FirstMilestoneAttempt.String(),
		r.FirstTopAttempt.String(),
	}
}

// WriteCSV writes a header and one row per result in the persisted layout.
func WriteCSV(w io.Writer, t model.Terminology, results []model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(encodeRow(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// decodeRow parses a persisted row. Rows from files written under another
// milestone label decode the same way since columns are positional.
func decodeRow(row []string) (model.Result, error) {
	if len(row) < columnCount {
		return model.Result{}, fmt.Errorf("%w: %d columns, want %d", ErrCorruptRecord, len(row), columnCount)
	}
	total, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: total attempts: %w", ErrCorruptRecord, err)
	}
	milestone, err := parseBool(row[4])
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: milestone achieved: %w", ErrCorruptRecord, err)
	}
	top, err := parseBool(row[5])
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: top achieved: %w", ErrCorruptRecord, err)
	}
	firstMilestone, err := model.ParseAttemptIndex(row[6])
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	firstTop, err := model.ParseAttemptIndex(row[7])
	if err != nil {
		return model.Result{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return model.Result{
		Timestamp: row[0],
		Climber:   row[1],
		Route:     row[2],
		ResultFields: model.ResultFields{
			TotalAttempts:         total,
			MilestoneAchieved:     milestone,
			TopAchieved:           top,
			FirstMilestoneAttempt: firstMilestone,
			FirstTopAttempt:       firstTop,
		},
	}, nil
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
