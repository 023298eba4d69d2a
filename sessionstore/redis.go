package sessionstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/ticketremaster/session"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "ticketremaster:session:"

var _ session.Store = (*RedisStore)(nil)

// RedisStore keeps the session as one JSON value; SET replaces it atomically.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = defaultProfile
	}
	return &RedisStore{
		rdb: rdb,
		key: sessionKeyPrefix + profile,
	}
}

func (s *RedisStore) Load(ctx context.Context) (*session.Session, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return decodeRecord(data)
}

func (s *RedisStore) Save(ctx context.Context, sess session.Session) error {
	payload, err := encodeRecord(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
