package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

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

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if _, hit, err := c.Get(ctx, "export:abc"); err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "export:abc", []byte("png"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "export:abc")
	if err != nil || !hit {
		t.Fatalf("Get after Set = hit %v, err %v", hit, err)
	}
	if string(data) != "png" {
		t.Errorf("data = %q, want %q", data, "png")
	}

	if err := c.Delete(ctx, "export:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "export:abc"); hit {
		t.Error("entry should be gone after Delete")
	}
	if err := c.Delete(ctx, "export:abc"); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}
}

func TestFileCacheExpired(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should be a miss")
	}
}

func TestFileCacheTruncatedEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	fc := c.(*FileCache)
	path := fc.path("export:x")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{1, 2}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "export:x"); hit || err != nil {
		t.Errorf("truncated entry = hit %v, err %v; want clean miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("truncated entry should be removed")
	}
}

func TestFileCacheKeepsBytes(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	sheet := []byte("\x89PNG\r\n\x1a\n")
	if err := c.Set(ctx, "export:png", sheet, 0); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(c.(*FileCache).path("export:png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw[fileHeader:], sheet) {
		t.Errorf("on-disk payload = %q, want raw sheet bytes", raw[fileHeader:])
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)
	defer c.Close()

	if err := c.Set(ctx, "export:1", []byte("a"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "export:1")
	if err != nil || !hit || string(data) != "a" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	_ = c.Delete(ctx, "export:1")
	if _, hit, _ := c.Get(ctx, "export:1"); hit {
		t.Error("entry should be gone after Delete")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	a := k.ExportKey([]string{"h1", "h2"}, ExportKeyOpts{Format: "png"})
	b := k.ExportKey([]string{"h2", "h1"}, ExportKeyOpts{Format: "png"})
	if a == b {
		t.Error("layer order must change the export key")
	}
	c := k.ExportKey([]string{"h1", "h2"}, ExportKeyOpts{Format: "bmp"})
	if a == c {
		t.Error("format must change the export key")
	}
	if a != k.ExportKey([]string{"h1", "h2"}, ExportKeyOpts{Format: "png"}) {
		t.Error("ExportKey should be deterministic")
	}
	if got := keyType(a); got != "export" {
		t.Errorf("keyType = %q, want export", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "tenant:")
	key := scoped.ExportKey([]string{"h"}, ExportKeyOpts{Format: "png"})
	if key[:7] != "tenant:" {
		t.Errorf("ScopedKeyer key should be prefixed: %s", key)
	}
	if got := keyType(key); got != "export" {
		t.Errorf("keyType(%q) = %q, want export", key, got)
	}
}

func TestBackoffRetry(t *testing.T) {
	ctx := context.Background()
	errPermanent := errors.New("permanent")
	b := Backoff{Attempts: 3, Delay: time.Millisecond}

	tests := []struct {
		name      string
		failUntil int // calls before success; -1 never succeeds
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success", 0, nil, 1, nil},
		{"non-retryable", -1, errPermanent, 1, errPermanent},
		{"recovers", 2, Retryable(ErrNetwork), 3, nil},
		{"exhausted", -1, Retryable(ErrNetwork), 3, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := b.Retry(ctx, func() error {
				calls++
				if tt.failUntil < 0 || calls <= tt.failUntil {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackoffRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Backoff{Attempts: 3, Delay: time.Second}.Retry(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want context.Canceled after 1", err, calls)
	}
}

func TestBackoffZeroAttempts(t *testing.T) {
	calls := 0
	_ = Backoff{}.Retry(context.Background(), func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Errorf("zero Attempts should still call once, got %d", calls)
	}
}
