// Package broadcast delivers stored results to live viewers. Delivery is
// at-most-once: nothing is persisted or replayed, and a viewer that cannot
// keep up is disconnected.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/cragboard/internal/domain/model"
	types "github.com/okian/cragboard/internal/domain/types"
)

// Publisher sends a result event to viewers.
type Publisher interface {
	Publish(ctx context.Context, ev model.ResultEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev model.ResultEvent) error

func (f PublisherFunc) Publish(ctx context.Context, ev model.ResultEvent) error { return f(ctx, ev) }

// Encode frames ev as the newResult message sent to viewers.
func Encode(t model.Terminology, ev model.ResultEvent) ([]byte, error) {
	b, err := json.Marshal(types.NewResultMessage(t, ev))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", types.EventNewResult, err)
	}
	return b, nil
}
