package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/storage"
)

const cachePrefix = "idem:v1:"

// ErrInProgress indicates another request holding the same key has claimed it
// but has not reached a terminal state yet. Retry once it settles.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Guard deduplicates retried mutating requests by client-supplied key.
//
// The ledger's unique constraint on idempotency_key is the actual source of
// truth; the redis read here is only a fast path. Two concurrent requests
// sharing a fresh key can both pass Check; the loser of the subsequent
// insert race gets ledger.ErrDuplicateKey and re-reads the winner's entry.
type Guard struct {
	cache  *redis.Client // optional
	ledger ledger.Engine
	db     storage.Queryer
	ttl    time.Duration
	logger *slog.Logger
}

// NewGuard builds a guard. cache may be nil; the guard then always consults
// the ledger.
func NewGuard(cache *redis.Client, ledgerEngine ledger.Engine, db storage.Queryer, ttl time.Duration, logger *slog.Logger) *Guard {
	return &Guard{cache: cache, ledger: ledgerEngine, db: db, ttl: ttl, logger: logger}
}

// Check returns the prior terminal entry claimed under key, or nil when the
// caller should proceed. An empty key always proceeds, idempotency is
// opt-in. A key claimed by a still-PENDING entry yields ErrInProgress.
func (g *Guard) Check(ctx context.Context, key string) (*ledger.Entry, error) {
	if key == "" {
		return nil, nil
	}

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cachePrefix+key).Result(); err == nil {
			var entry ledger.Entry
			if err := json.Unmarshal([]byte(cached), &entry); err == nil {
				return &entry, nil
			}
			g.logger.Warn("dropping undecodable idempotency cache entry", slog.String("key", key))
			g.cache.Del(ctx, cachePrefix+key)
		} else if err != redis.Nil {
			g.logger.Warn("idempotency cache lookup failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	entry, err := g.ledger.FindByIdempotencyKey(ctx, g.db, key)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if entry.Status == ledger.StatusPending {
		return nil, ErrInProgress
	}

	g.remember(ctx, key, entry)
	return &entry, nil
}

// Remember caches a terminal entry under key. Best effort; the ledger lookup
// always backs it.
func (g *Guard) Remember(ctx context.Context, key string, entry ledger.Entry) {
	if key == "" || entry.Status == ledger.StatusPending {
		return
	}
	g.remember(ctx, key, entry)
}

// Resolve handles the insert-race loser: it re-reads the winner's entry and
// returns it when terminal, or ErrInProgress while the winner is still
// settling.
func (g *Guard) Resolve(ctx context.Context, key string) (*ledger.Entry, error) {
	entry, err := g.ledger.FindByIdempotencyKey(ctx, g.db, key)
	if err != nil {
		return nil, err
	}
	if entry.Status == ledger.StatusPending {
		return nil, ErrInProgress
	}
	g.remember(ctx, key, entry)
	return &entry, nil
}

func (g *Guard) remember(ctx context.Context, key string, entry ledger.Entry) {
	if g.cache == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, cachePrefix+key, payload, g.ttl).Err(); err != nil {
		g.logger.Warn("idempotency cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
