package cache

import (
	"context"

	"github.com/rs/zerolog"
)

// Invalidation describes entries a replica evicted after a successful mutation.
type Invalidation struct {
	Origin string   `json:"origin"`
	IDs    []string `json:"ids"`
}

// Notifier forwards invalidations to other replicas.
type Notifier interface {
	PublishInvalidation(ctx context.Context, inv Invalidation) error
}

// Gate evicts stale product entries after a mutation, and only when the mutation succeeded.
type Gate struct {
	cache    *ProductCache
	log      zerolog.Logger
	notifier Notifier
	origin   string
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithNotifier publishes every local invalidation tagged with origin.
func WithNotifier(n Notifier, origin string) GateOption {
	return func(g *Gate) {
		g.notifier = n
		g.origin = origin
	}
}

// NewGate builds a Gate over cache.
func NewGate(cache *ProductCache, log zerolog.Logger, opts ...GateOption) *Gate {
	g := &Gate{cache: cache, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes op. If op fails its error is returned untouched and nothing is evicted.
// Otherwise single-product entries for ids and the snapshot are evicted; eviction failures
// are logged and never returned.
func (g *Gate) Run(ctx context.Context, ids []string, op func(ctx context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}

	// The write is committed; a cancelled request must not skip eviction.
	ctx = context.WithoutCancel(ctx)
	g.evict(ctx, ids)

	if g.notifier != nil {
		inv := Invalidation{Origin: g.origin, IDs: ids}
		if err := g.notifier.PublishInvalidation(ctx, inv); err != nil {
			g.log.Warn().Err(err).Strs("ids", ids).Msg("failed to publish cache invalidation")
		}
	}
	return nil
}

// Apply evicts what a remote replica reported. Events from this replica are ignored.
func (g *Gate) Apply(ctx context.Context, inv Invalidation) {
	if g.origin != "" && inv.Origin == g.origin {
		return
	}
	g.evict(ctx, inv.IDs)
}

func (g *Gate) evict(ctx context.Context, ids []string) {
	for _, id := range ids {
		if _, err := g.cache.InvalidateSingle(ctx, id); err != nil {
			g.log.Warn().Err(err).Str("id", id).Msg("failed to invalidate product cache entry")
		}
	}
	if _, err := g.cache.InvalidateSnapshot(ctx); err != nil {
		g.log.Warn().Err(err).Str("key", SnapshotKey).Msg("failed to invalidate product snapshot")
	}
}
