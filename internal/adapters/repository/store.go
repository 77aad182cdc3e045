// Package repository defines the result store interface and its backends.
package repository

import (
	"context"

	"github.com/okian/cragboard/internal/domain/model"
)

// Store is the append-only record of results.
type Store interface {
	// FindByKey returns the result stored for the pair.
	// Returns ErrNotFound if there is none.
	FindByKey(ctx context.Context, climber, route string) (model.Result, error)

	// Append persists r unless a result for its key already exists, in which
	// case it returns ErrDuplicate and writes nothing.
	Append(ctx context.Context, r model.Result) error

	// ListAll returns every stored result in insertion order. A store that
	// has never been written returns an empty slice.
	ListAll(ctx context.Context) ([]model.Result, error)

	Close() error
}
