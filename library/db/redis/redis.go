// Package redis wraps go-redis with the few helpers the editor needs.
package redis

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper for go-redis
type DB struct {
	cli *redis.Client
}

// NewDB creates a new DB instance
func NewDB(opt *redis.Options) *DB {
	return &DB{
		cli: redis.NewClient(opt),
	}
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.cli.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "ping redis")
	}

	return nil
}

// GetString returns the value at key, ok is false when the key does not exist.
func (db *DB) GetString(ctx context.Context, key string) (val string, ok bool, err error) {
	val, err = db.cli.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, errors.Wrapf(err, "get `%s`", key)
	}

	return val, true, nil
}

// SetString stores val at key with a ttl.
func (db *DB) SetString(ctx context.Context, key, val string, ttl time.Duration) error {
	if err := db.cli.Set(ctx, key, val, ttl).Err(); err != nil {
		return errors.Wrapf(err, "set `%s`", key)
	}

	return nil
}

// Close closes the client.
func (db *DB) Close() error {
	return db.cli.Close()
}
