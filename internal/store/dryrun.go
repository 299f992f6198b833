package store

import (
	"context"
	"time"

	"github.com/amishk599/bountybot/internal/model"
)

// Pruner is implemented by stores that evict old processed records on demand.
// Stores that expire records themselves (Redis TTLs) do not implement it.
type Pruner interface {
	PruneProcessed(ctx context.Context, olderThan time.Duration) (int64, error)
}

// DryRunStore reads through to a real store but never records listings as
// processed, so a one-shot check can be repeated without side effects.
type DryRunStore struct {
	model.Store
}

var _ model.Store = (*DryRunStore)(nil)

func NewDryRunStore(inner model.Store) *DryRunStore { return &DryRunStore{Store: inner} }

func (s *DryRunStore) MarkProcessed(context.Context, string) error { return nil }
