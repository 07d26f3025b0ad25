package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/aloha-admin/internal/auth"
)

const storeName = "revocation"

// DefaultPrefix namespaces revocation keys in a shared Redis database.
const DefaultPrefix = "revoked"

// RedisStore keeps one key per revoked token. The key's TTL is the token's
// remaining lifetime, so Redis reclaims the record exactly when the token
// could no longer be replayed.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore builds a store on rdb. An empty prefix uses DefaultPrefix; a
// nil now uses the wall clock.
func NewRedisStore(rdb redis.Cmdable, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: now}
}

func (s *RedisStore) key(token string) string { return s.prefix + ":" + token }

// ttl is the remaining lifetime of the token rec names; zero or negative
// means the token already expired and needs no record.
func (s *RedisStore) ttl(rec Record) time.Duration {
	return rec.ExpiresAt.Sub(s.now())
}

func (s *RedisStore) Blacklist(ctx context.Context, rec Record) error {
	ttl := s.ttl(rec)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal revocation record: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(rec.Token), payload, ttl).Err(); err != nil {
		return auth.Unavailable(storeName, err)
	}
	return nil
}

// Claim uses SET NX so that two concurrent callers presenting the same token
// can never both win.
func (s *RedisStore) Claim(ctx context.Context, rec Record) (bool, error) {
	ttl := s.ttl(rec)
	if ttl <= 0 {
		return true, nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal revocation record: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.key(rec.Token), payload, ttl).Result()
	if err != nil {
		return false, auth.Unavailable(storeName, err)
	}
	return ok, nil
}

func (s *RedisStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, auth.Unavailable(storeName, err)
	}
	return n > 0, nil
}

// Lookup returns the stored record for token, if any.
func (s *RedisStore) Lookup(ctx context.Context, token string) (Record, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, auth.Unavailable(storeName, err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode revocation record: %w", err)
	}
	return rec, true, nil
}

// Delete removes the record for token ahead of its natural expiry.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
		return auth.Unavailable(storeName, err)
	}
	return nil
}
