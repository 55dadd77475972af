// Package cache provides an optional Redis-backed cache for archive status
// lookups. Every authenticated request runs at least one status check (the
// self guard), so keeping hot answers out of postgres is worthwhile.
//
// Correctness does not depend on the cache: entries are short-lived and
// deleted on archive/restore, and all cache failures degrade to a store read.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"civicdesk/internal/archive/models"
	"civicdesk/internal/platform/redis"
)

const statusTTL = 30 * time.Second

// notArchivedMarker caches the negative answer; positive answers cache the
// full record so the guard gets archived_at/archived_by without a store read.
const notArchivedMarker = "0"

// StatusCache caches checkStatus answers. A nil *StatusCache is a no-op.
type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	if client == nil {
		return nil
	}
	return &StatusCache{client: client}
}

func key(kind models.EntityKind, entityID string) string {
	return "archive:status:" + string(kind) + ":" + entityID
}

// Get returns the cached status. ok is false on miss or any cache failure.
func (c *StatusCache) Get(ctx context.Context, kind models.EntityKind, entityID string) (status models.Status, ok bool) {
	if c == nil {
		return models.Status{}, false
	}
	raw, err := c.client.Get(ctx, key(kind, entityID)).Result()
	if err != nil {
		// Misses and cache trouble look the same; the store is authoritative.
		return models.Status{}, false
	}
	if raw == notArchivedMarker {
		return models.Status{Archived: false}, true
	}
	var rec models.ArchiveRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.Status{}, false
	}
	return models.Status{Archived: true, Record: &rec}, true
}

// Set stores a status answer with a short TTL. Failures are ignored.
func (c *StatusCache) Set(ctx context.Context, kind models.EntityKind, entityID string, status models.Status) {
	if c == nil {
		return
	}
	value := notArchivedMarker
	if status.Archived && status.Record != nil {
		raw, err := json.Marshal(status.Record)
		if err != nil {
			return
		}
		value = string(raw)
	}
	_ = c.client.Set(ctx, key(kind, entityID), value, statusTTL).Err()
}

// Invalidate drops the cached answer after an archive or restore.
func (c *StatusCache) Invalidate(ctx context.Context, kind models.EntityKind, entityID string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, key(kind, entityID)).Err()
}
