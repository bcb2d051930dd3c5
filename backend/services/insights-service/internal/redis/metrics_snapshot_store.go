package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chargelog/backend/services/insights-service/internal/engine"
)

// MetricsSnapshot is a cached per-session metrics bundle. ConfigHash records
// the thresholds it was computed under; a snapshot from different thresholds
// is treated as a miss and recomputed.
type MetricsSnapshot struct {
	SessionID  int64                `json:"session_id"`
	UserID     int64                `json:"user_id"`
	VehicleID  int64                `json:"vehicle_id"`
	ConfigHash string               `json:"config_hash"`
	ComputedAt time.Time            `json:"computed_at"`
	Bundle     engine.MetricsBundle `json:"bundle"`
}

// Store caches metrics snapshots. Next to each snapshot it maintains a
// per-vehicle index set so editing one session can drop the whole vehicle's
// snapshots — any sibling session may have been the edited session's anchor.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID int64) string {
	return fmt.Sprintf("insights:metrics:%d", sessionID)
}

func (s *Store) vehicleKey(userID, vehicleID int64) string {
	return fmt.Sprintf("insights:vehicle:%d:%d", userID, vehicleID)
}

// Save caches a snapshot and registers it in the vehicle index. Overwriting
// an existing snapshot is always safe; recomputation is idempotent.
func (s *Store) Save(ctx context.Context, snapshot MetricsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(snapshot.SessionID), data, s.ttl).Err(); err != nil {
		return err
	}

	vkey := s.vehicleKey(snapshot.UserID, snapshot.VehicleID)
	if err := s.client.SAdd(ctx, vkey, snapshot.SessionID).Err(); err != nil {
		return err
	}
	// Keep the index alive at least as long as its newest member.
	return s.client.Expire(ctx, vkey, s.ttl).Err()
}

// Get returns the cached snapshot, or nil on a miss. A miss is a normal
// outcome, not an error.
func (s *Store) Get(ctx context.Context, sessionID int64) (*MetricsSnapshot, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot MetricsSnapshot
	if err := json.Unmarshal([]byte(result), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteSession drops one snapshot and its index entry.
func (s *Store) DeleteSession(ctx context.Context, userID, vehicleID, sessionID int64) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return err
	}
	return s.client.SRem(ctx, s.vehicleKey(userID, vehicleID), sessionID).Err()
}

// DeleteVehicle drops every snapshot registered for the vehicle along with
// the index itself.
func (s *Store) DeleteVehicle(ctx context.Context, userID, vehicleID int64) error {
	vkey := s.vehicleKey(userID, vehicleID)
	members, err := s.client.SMembers(ctx, vkey).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(members)+1)
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue // foreign entry, drop with the index
		}
		keys = append(keys, s.key(id))
	}
	keys = append(keys, vkey)
	return s.client.Del(ctx, keys...).Err()
}
