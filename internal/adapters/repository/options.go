package repository

import (
	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
)

type options struct {
	log        logger.Logger
	terms      model.Terminology
	syncWrites bool
	inMemory   bool
}

func defaultOptions() options {
	return options{
		log:        logger.Nop(),
		terms:      model.NewTerminology(""),
		syncWrites: true,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTerminology sets the milestone label used in the CSV header.
func WithTerminology(t model.Terminology) Option {
	return func(o *options) {
		o.terms = t
	}
}

// WithSyncWrites controls fsync after every append.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}

// WithInMemory keeps badger data in memory only. Used in tests.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}
