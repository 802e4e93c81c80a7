// Package cache stores rendered pages for a short time.
//
// Two backends implement PageCache: Memory keeps entries in a map inside
// the process, Redis shares them between server instances. The server picks
// Redis when REDIS_ADDR is configured and Memory otherwise.
package cache

import (
	"context"
	"time"
)

// PageCache is a byte store with per-entry expiry.
//
// Get reports ok=false for a missing or expired key; that is not an error.
// Clear drops every entry this cache owns.
type PageCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}
