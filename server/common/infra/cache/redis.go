package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to the redis instance backing the embedding cache. The
// client name shows up in CLIENT LIST, which helps tell the archiver apart
// from other consumers of a shared instance.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		ClientName: "quoth",
	})
}

func Ping(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}
