// Package redisstore is a kv.Store backed by Redis. Records are Redis hashes, values are
// Redis strings.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/social-auth/kv"
	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

var _ kv.Store = (*Store)(nil)

// Config holds the Redis connection settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // prepended to every key, e.g. "social-auth:"
}

type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrap(err, "failed to connect to redis")
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client (miniredis in tests).
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) key(key string) string {
	return s.keyPrefix + key
}

func (s *Store) PutRecord(ctx context.Context, key string, fields map[string]string) error {
	values := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(key))
	if len(values) > 0 {
		pipe.HSet(ctx, s.key(key), values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return pkgerrors.Wrapf(err, "redis put record %s", key)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "redis get record %s", key)
	}
	if len(fields) == 0 {
		return nil, kv.ErrNotFound
	}
	return fields, nil
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return pkgerrors.Wrapf(err, "redis put %s", key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", kv.ErrNotFound
		}
		return "", pkgerrors.Wrapf(err, "redis get %s", key)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, s.key(k))
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return pkgerrors.Wrap(err, "redis delete")
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return pkgerrors.Wrap(err, "redis health check failed")
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
