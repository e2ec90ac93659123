package redisx

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyRef is a redis:// location whose "key" query parameter names one key.
// When the URL has no host, REDIS_ADDR supplies it.
type KeyRef struct {
	Options *goredis.Options
	Key     string
}

func ParseKeyURL(raw string) (KeyRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return KeyRef{}, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return KeyRef{}, fmt.Errorf("not a redis url: %q", raw)
	}
	q := u.Query()
	key := strings.TrimSpace(q.Get("key"))
	if key == "" {
		return KeyRef{}, fmt.Errorf("redis url missing key parameter")
	}
	q.Del("key")
	u.RawQuery = q.Encode()
	if u.Host == "" {
		addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
		if addr == "" {
			return KeyRef{}, fmt.Errorf("redis url has no host and REDIS_ADDR is unset")
		}
		u.Host = addr
	}
	opts, err := goredis.ParseURL(u.String())
	if err != nil {
		return KeyRef{}, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return KeyRef{Options: opts, Key: key}, nil
}

// NewClient connects and pings, closing the client if the ping fails.
func NewClient(ctx context.Context, opts *goredis.Options) (*goredis.Client, error) {
	rdb := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
