package rediscache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

type memKV struct {
	data    map[string]string
	ttl     time.Duration
	failGet error
}

func (m *memKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.failGet != nil {
		return redis.NewStringResult("", m.failGet)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestCacheRoundTrip(t *testing.T) {
	store := &memKV{data: map[string]string{}}
	c := newCache(store, time.Minute, zerolog.Nop())
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("Get() hit on empty cache")
	}

	in := domain.MiningResult{
		Success:     true,
		ProductName: "Mug",
		Keywords:    []string{"mug"},
		Videos:      []domain.VideoRecord{domain.NewVideoRecord(domain.SourceTikTok, "https://t/1", "one")},
	}
	if err := c.Set(ctx, "k", in); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if store.ttl != time.Minute {
		t.Errorf("ttl = %s", store.ttl)
	}

	out, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() miss after Set")
	}
	if out.ProductName != "Mug" || len(out.Videos) != 1 || out.Videos[0].VideoURL != "https://t/1" {
		t.Errorf("Get() = %+v", out)
	}
}

func TestCacheErrorsAreMisses(t *testing.T) {
	store := &memKV{data: map[string]string{"bad": "{not json"}}
	c := newCache(store, time.Minute, zerolog.Nop())

	if _, ok := c.Get(context.Background(), "bad"); ok {
		t.Error("corrupt entry reported as hit")
	}
	store.failGet = errors.New("connection reset")
	if _, ok := c.Get(context.Background(), "bad"); ok {
		t.Error("redis error reported as hit")
	}
}

func TestKey(t *testing.T) {
	a := Key("https://shopee.vn/x", domain.NewSourceSet(domain.SourceTikTok, domain.SourceShopee))
	b := Key(" https://shopee.vn/x ", domain.NewSourceSet(domain.SourceShopee, domain.SourceTikTok))
	c := Key("https://shopee.vn/x", domain.NewSourceSet(domain.SourceShopee))

	if a != b {
		t.Errorf("Key() depends on source order or whitespace: %s vs %s", a, b)
	}
	if a == c {
		t.Error("Key() ignores the source set")
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("Key() = %s", a)
	}
}
