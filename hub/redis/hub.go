// Package redis implements hub.Hub on Redis via Grove KV.
//
// Layout: one set holds the universal ban list, one hash maps participant
// id to the name of the lounge they are active in. Both are shared by
// every lounge process pointed at the same Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	"github.com/xraph/lounge/hub"
)

// Keys shared by all lounges on one hub.
const (
	sBanned = "lounge:s:banned"
	hActive = "lounge:h:active" // field participantID -> lounge name
)

// compile-time interface check
var _ hub.Hub = (*Hub)(nil)

// Hub implements hub.Hub using Redis via Grove KV.
type Hub struct {
	kv  *kv.Store
	rdb goredis.UniversalClient
}

// New creates a Redis hub backed by Grove KV.
func New(store *kv.Store) *Hub {
	return &Hub{
		kv:  store,
		rdb: redisdriver.UnwrapClient(store),
	}
}

// Ping checks Redis connectivity.
func (h *Hub) Ping(ctx context.Context) error {
	return h.kv.Ping(ctx)
}

// Close closes the KV store.
func (h *Hub) Close() error {
	return h.kv.Close()
}

// BannedEverywhere returns the universal ban set.
func (h *Hub) BannedEverywhere(ctx context.Context) (hub.Set, error) {
	members, err := h.rdb.SMembers(ctx, sBanned).Result()
	if err != nil {
		return nil, fmt.Errorf("lounge/redis: read ban set: %w", err)
	}
	set := make(hub.Set, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		set[id] = struct{}{}
	}
	return set, nil
}

// ActiveElsewhere returns every participant whose active lounge is not the
// named one.
func (h *Hub) ActiveElsewhere(ctx context.Context, lounge string) (hub.Set, error) {
	fields, err := h.rdb.HGetAll(ctx, hActive).Result()
	if err != nil {
		return nil, fmt.Errorf("lounge/redis: read active roster: %w", err)
	}
	set := make(hub.Set)
	for uid, name := range fields {
		if name == lounge {
			continue
		}
		id, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			continue
		}
		set[id] = struct{}{}
	}
	return set, nil
}

// Ban adds the participant to the universal ban set.
func (h *Hub) Ban(ctx context.Context, participantID int64) error {
	if err := h.rdb.SAdd(ctx, sBanned, participantID).Err(); err != nil {
		return fmt.Errorf("lounge/redis: ban: %w", err)
	}
	return nil
}

// Unban removes the participant from the universal ban set.
func (h *Hub) Unban(ctx context.Context, participantID int64) error {
	if err := h.rdb.SRem(ctx, sBanned, participantID).Err(); err != nil {
		return fmt.Errorf("lounge/redis: unban: %w", err)
	}
	return nil
}

// MarkJoined records the participant as active in the named lounge.
func (h *Hub) MarkJoined(ctx context.Context, participantID int64, lounge string) error {
	field := strconv.FormatInt(participantID, 10)
	if err := h.rdb.HSet(ctx, hActive, field, lounge).Err(); err != nil {
		return fmt.Errorf("lounge/redis: mark joined: %w", err)
	}
	return nil
}

// MarkLeft clears the participant's active record, but only if it still
// points at the named lounge. A stale clear must not erase a newer join
// to a different lounge.
func (h *Hub) MarkLeft(ctx context.Context, participantID int64, lounge string) error {
	field := strconv.FormatInt(participantID, 10)
	current, err := h.rdb.HGet(ctx, hActive, field).Result()
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lounge/redis: mark left: %w", err)
	}
	if current != lounge {
		return nil
	}
	if err := h.rdb.HDel(ctx, hActive, field).Err(); err != nil {
		return fmt.Errorf("lounge/redis: mark left: %w", err)
	}
	return nil
}
