// Package redisstore is a client.Store kept in Redis.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/hanpama/typeddoc/client"
	"github.com/redis/go-redis/v9"
)

// Config holds store settings.
type Config struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL bounds how long entries live. Zero keeps them until deleted.
	TTL time.Duration
}

// DefaultConfig returns the settings used by New.
func DefaultConfig() Config {
	return Config{Prefix: "typeddoc:", TTL: 10 * time.Minute}
}

// Store implements client.Store.
type Store struct {
	rdb    redis.UniversalClient
	config Config
}

var _ client.Store = (*Store)(nil)

// New wraps an existing Redis client.
func New(rdb redis.UniversalClient, config Config) *Store {
	return &Store{rdb: rdb, config: config}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string, config Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return New(rdb, config), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.config.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, client.ErrMiss
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.config.Prefix+key, value, s.config.TTL).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.config.Prefix+key).Err()
}

// Clear removes every key under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.rdb.Close() }
