// Package redis implements store.RecordStore on Redis. Each namespace is
// one hash whose fields are item IDs and whose values are JSON records, so
// a write touches a single field and never rewrites the whole mapping.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Connect creates a client for addr and verifies it with PING. addr is
// either host:port or a redis:// URL.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	var opts *goredis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: addr}
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
