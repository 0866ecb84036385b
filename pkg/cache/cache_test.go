package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "slice:abc"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "slice:abc", []byte("png bundle"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "slice:abc")
	if err != nil || !hit || string(data) != "png bundle" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	// No TTL never expires.
	if err := c.Set(ctx, "forever", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should hit")
	}

	if err := c.Delete(ctx, "slice:abc"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "slice:abc"); hit {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}

	n, err := c.Clear()
	if err != nil || n != 1 {
		t.Errorf("Clear() = %d, %v, want 1", n, err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	sk1 := k.SliceKey("src", SliceKeyOpts{Position: "side", LeafCount: 60, Mode: "fill"})
	sk2 := k.SliceKey("src", SliceKeyOpts{Position: "side", LeafCount: 61, Mode: "fill"})
	if sk1 == sk2 {
		t.Error("Different SliceKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(sk1, "slice:") {
		t.Errorf("SliceKey unexpected: %s", sk1)
	}

	mk1 := k.MockupKey("cover", "edge", MockupKeyOpts{TrimWidth: 6, TrimHeight: 9, PageCount: 120})
	mk2 := k.MockupKey("cover", "other", MockupKeyOpts{TrimWidth: 6, TrimHeight: 9, PageCount: 120})
	if mk1 == mk2 {
		t.Error("Different edge hashes should produce different keys")
	}

	if got := k.InfoKey("abc"); got != "info:abc" {
		t.Errorf("InfoKey = %s, want info:abc", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "staging:")

	if got := scoped.InfoKey("abc"); got != "staging:info:abc" {
		t.Errorf("ScopedKeyer InfoKey unexpected: %s", got)
	}

	sliceKey := scoped.SliceKey("src", SliceKeyOpts{})
	if !strings.HasPrefix(sliceKey, "staging:slice:") {
		t.Errorf("ScopedKeyer SliceKey should be prefixed: %s", sliceKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	if key := scoped.InfoKey("h"); key != "prefix:info:h" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

// memCache is a map-backed Cache for exercising Fetch.
type memCache struct {
	data   map[string][]byte
	failed bool
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.failed {
		return nil, false, errors.New("down")
	}
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	if m.failed {
		return errors.New("down")
	}
	m.data[key] = data
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error { delete(m.data, key); return nil }
func (m *memCache) Close() error                               { return nil }

func TestFetch(t *testing.T) {
	ctx := context.Background()
	c := &memCache{data: map[string][]byte{}}

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("value"), nil
	}

	for range 2 {
		got, err := Fetch(ctx, c, "slice", "k", time.Hour, compute)
		if err != nil || string(got) != "value" {
			t.Fatalf("Fetch = %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}

	// A failing cache degrades to computing every time.
	c.failed = true
	if _, err := Fetch(ctx, c, "slice", "k", time.Hour, compute); err != nil {
		t.Errorf("Fetch with failing cache error: %v", err)
	}
	if calls != 2 {
		t.Errorf("compute calls = %d, want 2", calls)
	}

	// Compute errors propagate.
	wantErr := errors.New("boom")
	if _, err := Fetch(ctx, nil, "slice", "k", 0, func() ([]byte, error) { return nil, wantErr }); err != wantErr {
		t.Errorf("Fetch error = %v, want %v", err, wantErr)
	}
}
