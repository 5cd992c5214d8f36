package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "narrator:narration:"
	DefaultTTL = 24 * time.Hour
)

// NarrationStore keeps raw narration responses keyed by prompt digest.
type NarrationStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewNarrationStore(rdb *redis.Client, ttl time.Duration) (*NarrationStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &NarrationStore{rdb: rdb, ttl: ttl}, nil
}

func (s *NarrationStore) key(digest string) string { return keyPrefix + strings.TrimSpace(digest) }

func (s *NarrationStore) Get(ctx context.Context, digest string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get narration: %w", err)
	}
	return v, true, nil
}

func (s *NarrationStore) Set(ctx context.Context, digest, raw string) error {
	if err := s.rdb.Set(ctx, s.key(digest), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set narration: %w", err)
	}
	return nil
}

// Open connects to redisURL and verifies the server answers.
func Open(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("invalid port %q", port)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opt := &redis.Options{
		Addr:     u.Hostname() + ":" + port,
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}
	if u.Scheme == "rediss" {
		opt.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opt, nil
}
