package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*NarrationStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s, err := NewNarrationStore(rdb, time.Minute)
	if err != nil {
		t.Fatalf("NewNarrationStore: %v", err)
	}
	return s, mr
}

func TestNarrationStoreRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "abc"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "abc", `[{"commentary":"A"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "abc")
	if err != nil || !ok || v != `[{"commentary":"A"}]` {
		t.Fatalf("Get = %q ok=%v err=%v", v, ok, err)
	}
	if ttl := mr.TTL(keyPrefix + "abc"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "abc"); ok {
		t.Fatalf("entry should expire")
	}
}

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	rdb, err := Open(context.Background(), fmt.Sprintf("redis://%s/2", mr.Addr()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rdb.Close()
	if rdb.Options().DB != 2 {
		t.Fatalf("db = %d", rdb.Options().DB)
	}
	if _, err := Open(context.Background(), "http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestNewNarrationStoreRequiresClient(t *testing.T) {
	if _, err := NewNarrationStore(nil, 0); err == nil {
		t.Fatalf("expected error")
	}
}
