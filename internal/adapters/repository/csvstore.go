package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
	"github.com/okian/cragboard/pkg/metrics"
)

// CSVStore keeps results in a single CSV file with a header row. The file
// is created on the first append; a missing file reads as empty.
//
// Every call re-reads the file so external edits are picked up. Writes are
// serialized by mu, which also makes the duplicate check and the append one
// step within this process.
type CSVStore struct {
	mu     sync.Mutex
	path   string
	opts   options
	log    logger.Logger
	closed bool
}

// NewCSVStore creates a store backed by the file at path.
func NewCSVStore(path string, opts ...Option) *CSVStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CSVStore{
		path: path,
		opts: o,
		log:  o.log.Named("csvstore"),
	}
}

// Path returns the backing file.
func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) FindByKey(ctx context.Context, climber, route string) (model.Result, error) {
	results, err := s.ListAll(ctx)
	if err != nil {
		return model.Result{}, err
	}
	for _, r := range results {
		if r.Climber == climber && r.Route == route {
			return r, nil
		}
	}
	return model.Result{}, ErrNotFound
}

func (s *CSVStore) ListAll(ctx context.Context) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreListLatency(metrics.Since(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	results, err := s.readLocked()
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, err
	}
	return results, nil
}

func (s *CSVStore) Append(ctx context.Context, r model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(metrics.Since(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	existing, err := s.readLocked()
	if err != nil {
		metrics.RecordStoreError("append")
		return err
	}
	for _, e := range existing {
		if e.Key() == r.Key() {
			return ErrDuplicate
		}
	}

	if err := s.appendLocked(r); err != nil {
		metrics.RecordStoreError("append")
		s.log.Error(ctx, "append failed",
			logger.String("path", s.path),
			logger.String("climber", r.Climber),
			logger.String("route", r.Route),
			logger.Error(err))
		return err
	}
	return nil
}

// Close marks the store closed. The file is never held open between calls.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *CSVStore) readLocked() ([]model.Result, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1

	results := []model.Result{}
	line := 0
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read results: %w", err)
		}
		line++
		if line == 1 && len(row) > 0 && row[0] == model.ColumnTimestamp {
			continue
		}
		if len(row) == 1 && row[0] == "" {
			continue
		}
		r, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *CSVStore) appendLocked(r model.Result) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open results for append: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(s.opts.terms.Columns()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	} else if needsNewline(f, info.Size()) {
		if _, err := f.Write([]byte("\n")); err != nil {
			return fmt.Errorf("terminate last row: %w", err)
		}
	}
	if err := w.Write(encodeRow(r)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush row: %w", err)
	}
	if s.opts.syncWrites {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("sync results: %w", err)
		}
	}
	return nil
}

// needsNewline reports whether the file ends without a line terminator,
// as happens after a hand edit.
func needsNewline(f *os.File, size int64) bool {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false
	}
	return last[0] != '\n'
}
