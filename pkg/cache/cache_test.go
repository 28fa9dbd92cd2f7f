package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	t.Run("set and get", func(t *testing.T) {
		if err := c.Set(ctx, "key1", []byte("value1"), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		data, ok, err := c.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !ok {
			t.Fatal("expected a hit")
		}
		if string(data) != "value1" {
			t.Errorf("data = %q, want %q", data, "value1")
		}
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "no-such-key")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok {
			t.Error("expected a miss")
		}
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
			t.Fatalf("Set: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		_, ok, err := c.Get(ctx, "short")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if ok {
			t.Error("expired entry should miss")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := c.Set(ctx, "gone", []byte("x"), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, ok, _ := c.Get(ctx, "gone"); ok {
			t.Error("deleted entry should miss")
		}
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Errorf("deleting a missing key should not error: %v", err)
		}
	})
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("null cache should never hit")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	t.Run("deterministic", func(t *testing.T) {
		a := k.TopologyKey("icosahedron", 1.0, 1)
		b := k.TopologyKey("icosahedron", 1.0, 1)
		if a != b {
			t.Errorf("same inputs gave different keys: %s vs %s", a, b)
		}
	})

	t.Run("inputs change the key", func(t *testing.T) {
		a := k.TopologyKey("icosahedron", 1.0, 1)
		b := k.TopologyKey("icosahedron", 1.0, 2)
		c := k.TopologyKey("cube", 1.0, 1)
		if a == b || a == c {
			t.Error("different inputs must give different keys")
		}
	})

	t.Run("stage prefixes differ", func(t *testing.T) {
		topo := k.TopologyKey("cube", 1.0, 0)
		art := k.ArtifactKey("abc", ArtifactKeyOpts{Format: "svg"})
		if topo == art {
			t.Error("stage keys must not collide")
		}
	})
}

func TestScopedKeyer(t *testing.T) {
	base := NewDefaultKeyer()
	scoped := NewScopedKeyer(base, "user:42:")

	got := scoped.TopologyKey("cube", 1.0, 0)
	want := "user:42:" + base.TopologyKey("cube", 1.0, 0)
	if got != want {
		t.Errorf("scoped key = %s, want %s", got, want)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("non-retryable fails immediately", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return errors.New("fatal")
		})
		if err == nil || calls != 1 {
			t.Errorf("calls = %d, err = %v; want 1 call and an error", calls, err)
		}
	})

	t.Run("retryable succeeds on second attempt", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls == 1 {
				return Retryable(errors.New("transient"))
			}
			return nil
		})
		if err != nil || calls != 2 {
			t.Errorf("calls = %d, err = %v; want 2 calls and nil", calls, err)
		}
	})
}

func TestHash(t *testing.T) {
	a := Hash([]byte("hello"))
	b := Hash([]byte("hello"))
	c := Hash([]byte("world"))
	if a != b {
		t.Error("hash must be deterministic")
	}
	if a == c {
		t.Error("different inputs must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}
