package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
	"github.com/okian/cragboard/pkg/metrics"
)

// Key layout:
//
//	r/<seq uint64 big-endian>  -> JSON record
//	p/<climber>\x1f<route>     -> seq
//	s/results                  -> badger sequence lease
var (
	resultPrefix = []byte("r/")
	pairPrefix   = []byte("p/")
	seqKey       = []byte("s/results")
)

const (
	seqBandwidth   = 64
	appendAttempts = 3
)

// record is the on-disk shape of a result.
type record struct {
	Timestamp             string `json:"timestamp"`
	Climber               string `json:"climber"`
	Route                 string `json:"route"`
	TotalAttempts         int    `json:"totalAttempts"`
	MilestoneAchieved     bool   `json:"milestoneAchieved"`
	TopAchieved           bool   `json:"topAchieved"`
	FirstMilestoneAttempt int    `json:"firstMilestoneAttempt"`
	FirstTopAttempt       int    `json:"firstTopAttempt"`
}

func toRecord(r model.Result) record {
	return record{
		Timestamp:             r.Timestamp,
		Climber:               r.Climber,
		Route:                 r.Route,
		TotalAttempts:         r.TotalAttempts,
		MilestoneAchieved:     r.MilestoneAchieved,
		TopAchieved:           r.TopAchieved,
		FirstMilestoneAttempt: int(r.FirstMilestoneAttempt),
		FirstTopAttempt:       int(r.FirstTopAttempt),
	}
}

func (rec record) result() model.Result {
	return model.Result{
		Timestamp: rec.Timestamp,
		Climber:   rec.Climber,
		Route:     rec.Route,
		ResultFields: model.ResultFields{
			TotalAttempts:         rec.TotalAttempts,
			MilestoneAchieved:     rec.MilestoneAchieved,
			TopAchieved:           rec.TopAchieved,
			FirstMilestoneAttempt: model.AttemptIndex(rec.FirstMilestoneAttempt),
			FirstTopAttempt:       model.AttemptIndex(rec.FirstTopAttempt),
		},
	}
}

// BadgerStore keeps results in an embedded badger database. A pair index
// makes the duplicate check and the insert one transaction; a badger
// sequence keeps ListAll in insertion order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
	log logger.Logger

	closeOnce sync.Once
}

// badgerLogger routes badger's internal logging to the project logger.
type badgerLogger struct {
	log logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens (or creates) a badger database at dir.
func OpenBadgerStore(dir string, opts ...Option) (*BadgerStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.Named("badgerstore")

	var bopts badger.Options
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if dir == "" {
			return nil, errors.New("badger store: path is required")
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", dir, err)
		}
		bopts = badger.DefaultOptions(dir)
	}
	bopts = bopts.
		WithSyncWrites(o.syncWrites && !o.inMemory).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, log: log}, nil
}

func pairKey(k model.Key) []byte {
	return append(append([]byte{}, pairPrefix...), k.String()...)
}

func resultKey(n uint64) []byte {
	k := make([]byte, len(resultPrefix)+8)
	copy(k, resultPrefix)
	binary.BigEndian.PutUint64(k[len(resultPrefix):], n)
	return k
}

func (s *BadgerStore) FindByKey(_ context.Context, climber, route string) (model.Result, error) {
	var out model.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(model.Key{Climber: climber, Route: route}))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		rk, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(rk)
		if err != nil {
			return fmt.Errorf("%w: dangling pair index: %w", ErrCorruptRecord, err)
		}
		return item.Value(func(v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
			}
			out = rec.result()
			return nil
		})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return model.Result{}, ErrClosed
	}
	return out, err
}

func (s *BadgerStore) Append(ctx context.Context, r model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(metrics.Since(start))
	}()

	value, err := json.Marshal(toRecord(r))
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	pk := pairKey(r.Key())

	// A conflicting commit means another append touched the same pair;
	// the retry then sees its index entry and reports the duplicate.
	for i := 0; i < appendAttempts; i++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(pk)
			if err == nil {
				return ErrDuplicate
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			n, err := s.seq.Next()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			rk := resultKey(n)
			if err := txn.Set(rk, value); err != nil {
				return err
			}
			return txn.Set(pk, rk)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	switch {
	case err == nil, errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	default:
		metrics.RecordStoreError("append")
		s.log.Error(ctx, "append failed",
			logger.String("climber", r.Climber),
			logger.String("route", r.Route),
			logger.Error(err))
		return fmt.Errorf("badger append: %w", err)
	}
}

func (s *BadgerStore) ListAll(_ context.Context) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreListLatency(metrics.Since(start))
	}()

	results := []model.Result{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         resultPrefix,
		})
		defer it.Close()

		for it.Seek(resultPrefix); it.ValidForPrefix(resultPrefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var rec record
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
				}
				results = append(results, rec.result())
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, err
	}
	return results, nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if rerr := s.seq.Release(); rerr != nil {
			s.log.Warn(context.Background(), "release sequence", logger.Error(rerr))
		}
		err = s.db.Close()
	})
	return err
}
