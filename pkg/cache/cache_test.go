package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("missing key: hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit {
		t.Fatalf("Get after Set: hit=%v err=%v", hit, err)
	}
	if string(data) != "value" {
		t.Errorf("data = %q, want value", data)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("key should be gone after Delete")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("expired entry should be a miss")
	}
}

func TestFileCacheZeroTTL(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); !hit {
		t.Error("entry stored without ttl should never expire")
	}
}

func TestFileCacheStageDirs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	k := NewDefaultKeyer()
	if err := c.Set(ctx, k.LayoutKey("hash", LayoutKeyOpts{}), []byte("l"), 0); err != nil {
		t.Fatalf("Set layout: %v", err)
	}
	if err := c.Set(ctx, k.ArtifactKey("hash", ArtifactKeyOpts{Format: "svg"}), []byte("a"), 0); err != nil {
		t.Fatalf("Set artifact: %v", err)
	}
	if err := c.Set(ctx, "unprefixed", []byte("m"), 0); err != nil {
		t.Fatalf("Set unprefixed: %v", err)
	}

	for _, stage := range []string{"layout", "artifact", "misc"} {
		entries, err := os.ReadDir(filepath.Join(dir, stage))
		if err != nil {
			t.Fatalf("stage dir %s: %v", stage, err)
		}
		if len(entries) != 1 {
			t.Errorf("stage dir %s: %d entries, want 1", stage, len(entries))
		}
	}
}

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

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars.
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	dk1 := k.DocumentKey("hash123", DocumentKeyOpts{DesignID: "sd-1"})
	dk2 := k.DocumentKey("hash123", DocumentKeyOpts{DesignID: "sd-2"})
	if dk1 == dk2 {
		t.Error("Different DocumentKeyOpts should produce different keys")
	}

	lk1 := k.LayoutKey("hash123", LayoutKeyOpts{HorizontalSpacing: 250})
	lk2 := k.LayoutKey("hash123", LayoutKeyOpts{HorizontalSpacing: 300})
	if lk1 == lk2 {
		t.Error("Different LayoutKeyOpts should produce different keys")
	}

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}

	// Same inputs, same key.
	if k.LayoutKey("hash123", LayoutKeyOpts{}) != k.LayoutKey("hash123", LayoutKeyOpts{}) {
		t.Error("Keys should be deterministic")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "study:123:")

	key := scoped.DocumentKey("hash", DocumentKeyOpts{})
	if len(key) < 10 || key[:10] != "study:123:" {
		t.Errorf("ScopedKeyer DocumentKey should be prefixed: %s", key)
	}

	layoutKey := scoped.LayoutKey("hash", LayoutKeyOpts{})
	if layoutKey[:10] != "study:123:" {
		t.Errorf("ScopedKeyer LayoutKey should be prefixed: %s", layoutKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ArtifactKey("hash", ArtifactKeyOpts{Format: "html"})
	if key[:7] != "prefix:" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	cause := errors.New("connection reset")
	err := Retryable(cause)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != cause.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(errors.New("bad request")) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	fatal := errors.New("bad request")
	calls = 0
	err = RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		return fatal
	})
	if err != fatal {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return Retryable(errors.New("timeout"))
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		calls++
		return Retryable(errors.New("timeout"))
	})
	if !IsRetryable(err) {
		t.Errorf("Should return last retryable error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Should exhaust all attempts: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
		return Retryable(errors.New("timeout"))
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
