package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionPrefix  = "rsess:"
	redisIdentityPrefix = "rsessix:"

	// Expired records stay readable for a grace window so FindByToken can
	// report ErrSessionExpired instead of ErrSessionNotFound.
	redisExpiryGrace = time.Hour
)

// RedisStore implements Store on Redis. Records carry a storage TTL
// slightly past the refresh expiry; Redis eviction is the sweeper.
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

type redisSession struct {
	IdentityID string    `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (r *RedisStore) sessionKey(tokenHash string) string {
	return redisSessionPrefix + tokenHash
}

func (r *RedisStore) identityKey(identityID string) string {
	return redisIdentityPrefix + identityID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	payload, err := json.Marshal(redisSession{
		IdentityID: s.IdentityID,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
	})
	if err != nil {
		return err
	}

	ttl := time.Until(s.ExpiresAt) + redisExpiryGrace
	if ttl <= 0 {
		ttl = redisExpiryGrace
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(s.TokenHash), payload, ttl)
		pipe.SAdd(ctx, r.identityKey(s.IdentityID), s.TokenHash)
		pipe.Expire(ctx, r.identityKey(s.IdentityID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) FindByToken(ctx context.Context, refreshToken string) (Session, error) {
	hash := hashToken(refreshToken)

	data, err := r.client.Get(ctx, r.sessionKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var rec redisSession
	if err := json.Unmarshal(data, &rec); err != nil {
		return Session{}, fmt.Errorf("%w: corrupt session record: %v", ErrStoreUnavailable, err)
	}

	return Session{
		TokenHash:  hash,
		IdentityID: rec.IdentityID,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}

func (r *RedisStore) DeleteByToken(ctx context.Context, refreshToken string) error {
	hash := hashToken(refreshToken)

	rec, err := r.FindByToken(ctx, refreshToken)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(hash))
		pipe.SRem(ctx, r.identityKey(rec.IdentityID), hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) DeleteAllForIdentity(ctx context.Context, identityID string) error {
	idxKey := r.identityKey(identityID)

	hashes, err := r.client.SMembers(ctx, idxKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, h := range hashes {
			pipe.Del(ctx, r.sessionKey(h))
		}
		pipe.Del(ctx, idxKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired prunes index members whose session keys Redis already
// evicted. The records themselves expire via their storage TTL.
func (r *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisIdentityPrefix+"*", 256).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, idxKey := range keys {
			hashes, err := r.client.SMembers(ctx, idxKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}

			for _, h := range hashes {
				exists, err := r.client.Exists(ctx, r.sessionKey(h)).Result()
				if err != nil {
					return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
				}
				if exists == 0 {
					if err := r.client.SRem(ctx, idxKey, h).Err(); err != nil {
						return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
					}
					removed++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}
