package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/platform/redisx"
)

// RedisSource reads the rule document stored under one redis key.
type RedisSource struct {
	key     string
	addr    string
	rdb     *goredis.Client
	timeout time.Duration
	log     *logger.Logger
}

func NewRedisSource(location string, log *logger.Logger) (*RedisSource, error) {
	ref, err := redisx.ParseKeyURL(location)
	if err != nil {
		return nil, err
	}
	return NewRedisSourceWithClient(goredis.NewClient(ref.Options), ref.Key, log), nil
}

func NewRedisSourceWithClient(rdb *goredis.Client, key string, log *logger.Logger) *RedisSource {
	return &RedisSource{
		key:     key,
		addr:    rdb.Options().Addr,
		rdb:     rdb,
		timeout: 3 * time.Second,
		log:     logger.OrNop(log).With("service", "RedisRuleSource"),
	}
}

func (s *RedisSource) Name() string { return fmt.Sprintf("redis:%s/%s", s.addr, s.key) }
func (s *RedisSource) Kind() string { return "redis" }

func (s *RedisSource) TryLoad(ctx context.Context) ([]safety.BannedPhraseRule, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	if len(raw) > maxPayloadBytes {
		return nil, fmt.Errorf("redis key %s exceeds %d bytes", s.key, maxPayloadBytes)
	}
	rules, skipped, err := decodePayload(raw, formatAuto)
	if skipped > 0 {
		s.log.Warn("skipped malformed rule entries", "key", s.key, "skipped", skipped)
	}
	return rules, err
}

func (s *RedisSource) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
