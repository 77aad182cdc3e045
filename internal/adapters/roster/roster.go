// Package roster holds the climber list, backed by a CSV file whose first
// column is the climber name.
package roster

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/cragboard/pkg/logger"
	"github.com/okian/cragboard/pkg/metrics"
)

// Load sources, used as metric labels.
const (
	SourceFile   = "file"
	SourceUpload = "upload"
	SourceWatch  = "watch"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store caches the roster in memory. Readers never observe a partially
// replaced roster: the file is swapped by rename and the cache under mu.
type Store struct {
	mu       sync.RWMutex
	path     string
	climbers []string
	loadErr  error

	// writeMu serializes Replace so two uploads cannot interleave their
	// temp files and cache swaps.
	writeMu sync.Mutex

	log      logger.Logger
	maxBytes int64
	debounce time.Duration
}

// New creates a Store for the file at path. Call Load before serving.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		log:      logger.Nop(),
		maxBytes: 1 << 20,
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("roster")
	s.loadErr = fmt.Errorf("%w: not loaded", ErrUnreadable)
	return s
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load reads the backing file into the cache. On failure the previous
// climbers are dropped and Climbers reports the error until the next
// successful load, matching what a fresh read of the file would return.
func (s *Store) Load(ctx context.Context) error {
	return s.load(ctx, SourceFile)
}

func (s *Store) load(ctx context.Context, source string) error {
	climbers, err := readFile(s.path)

	s.mu.Lock()
	if err != nil {
		s.climbers = nil
		s.loadErr = err
	} else {
		s.climbers = climbers
		s.loadErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		metrics.RecordRosterLoad(source, "error")
		s.log.Warn(ctx, "roster load failed", logger.String("path", s.path), logger.String("source", source), logger.Error(err))
		return err
	}
	metrics.RecordRosterLoad(source, "ok")
	metrics.UpdateRosterSize(len(climbers))
	s.log.Info(ctx, "roster loaded", logger.String("source", source), logger.Int("climbers", len(climbers)))
	return nil
}

// Climbers returns a copy of the roster in file order.
func (s *Store) Climbers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]string, len(s.climbers))
	copy(out, s.climbers)
	return out, nil
}

// Replace validates r as a roster and swaps it in for the current one.
// The new file is written beside the old and renamed over it. Returns the
// number of climbers loaded.
func (s *Store) Replace(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return 0, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		metrics.RecordRosterLoad(SourceUpload, "error")
		return 0, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.maxBytes)
	}
	climbers, err := parse(bytes.NewReader(data))
	if err != nil {
		metrics.RecordRosterLoad(SourceUpload, "error")
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := writeAtomic(s.path, data); err != nil {
		metrics.RecordRosterLoad(SourceUpload, "error")
		s.log.Error(ctx, "roster write failed", logger.String("path", s.path), logger.Error(err))
		return 0, err
	}

	s.mu.Lock()
	s.climbers = climbers
	s.loadErr = nil
	s.mu.Unlock()

	metrics.RecordRosterLoad(SourceUpload, "ok")
	metrics.UpdateRosterSize(len(climbers))
	s.log.Info(ctx, "roster replaced", logger.Int("climbers", len(climbers)))
	return len(climbers), nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()
	climbers, err := parse(f)
	if err != nil && !errors.Is(err, ErrEmptyRoster) {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	// An empty file on disk is a valid, empty roster.
	if climbers == nil {
		climbers = []string{}
	}
	return climbers, nil
}

// parse reads climber names from the first CSV column. Blank lines and
// blank names are skipped. Returns ErrEmptyRoster when no names remain.
func parse(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	rd := csv.NewReader(bytes.NewReader(data))
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true
	rd.TrimLeadingSpace = true

	var climbers []string
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		climbers = append(climbers, name)
	}
	if len(climbers) == 0 {
		return nil, ErrEmptyRoster
	}
	return climbers, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create roster dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp roster: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp roster: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp roster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp roster: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp roster: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename roster: %w", err)
	}
	return nil
}
