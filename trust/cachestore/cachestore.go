// Package cachestore caches small derived values (as JSON strings) with a
// fixed TTL and explicit purging. The engine uses it for the access-check
// projection on the hot read path; entries are written only after the backing
// transaction commits, so a hit is stale-at-worst, never dirty.
package cachestore

import (
	"context"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
