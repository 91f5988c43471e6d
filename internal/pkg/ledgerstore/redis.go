package ledgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/inktoons/inktoons/app/models"
)

const snapshotKeyPrefix = "ledger:snapshot:"

// RedisStore keeps ledger snapshots as JSON values in Redis. Snapshots carry
// no TTL: the mirror must survive idle users.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a remote store over an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func snapshotKey(userID uint) string {
	return fmt.Sprintf("%s%d", snapshotKeyPrefix, userID)
}

// Get loads the snapshot for a user.
func (s *RedisStore) Get(ctx context.Context, userID uint) (*models.LedgerState, error) {
	raw, err := s.client.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(raw)
}

// Put overwrites the snapshot for the state's user.
func (s *RedisStore) Put(ctx context.Context, state *models.LedgerState) error {
	raw, err := encodeSnapshot(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, snapshotKey(state.UserID), raw, 0).Err()
}
