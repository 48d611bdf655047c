package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T, prefix string) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, prefix), mr
}

type cachedEvaluation struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

func TestCacheHelper_RoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get returns the stored value", func(t *testing.T) {
		helper, _ := newTestHelper(t, "evaluation:")

		stored := cachedEvaluation{ID: 42, Status: "Pending"}
		if err := helper.Set(ctx, "42", stored, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}

		var got cachedEvaluation
		if err := helper.Get(ctx, "42", &got); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != stored {
			t.Errorf("expected %+v, got %+v", stored, got)
		}
	})

	t.Run("get on a missing key returns ErrCacheNotFound", func(t *testing.T) {
		helper, _ := newTestHelper(t, "evaluation:")

		var got cachedEvaluation
		if err := helper.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("expected ErrCacheNotFound, got %v", err)
		}
	})

	t.Run("keys are namespaced by prefix", func(t *testing.T) {
		helper, mr := newTestHelper(t, "evaluation:")

		if err := helper.SetString(ctx, "7", "Recorded", time.Minute); err != nil {
			t.Fatalf("SetString: %v", err)
		}
		if !mr.Exists("evaluation:7") {
			t.Error("expected key evaluation:7 in the store")
		}
	})

	t.Run("get after TTL expiry misses", func(t *testing.T) {
		helper, mr := newTestHelper(t, "member:")

		if err := helper.SetString(ctx, "M-001", "cached", time.Minute); err != nil {
			t.Fatalf("SetString: %v", err)
		}

		mr.FastForward(2 * time.Minute)

		if _, err := helper.GetString(ctx, "M-001"); !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("expected ErrCacheNotFound after expiry, got %v", err)
		}
	})
}

func TestCacheHelper_Delete(t *testing.T) {
	ctx := context.Background()
	helper, mr := newTestHelper(t, "quiz:")

	for _, key := range []string{"1", "2", "3"} {
		if err := helper.SetString(ctx, key, "def", time.Minute); err != nil {
			t.Fatalf("SetString(%s): %v", key, err)
		}
	}

	if err := helper.Delete(ctx, "1", "3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if mr.Exists("quiz:1") || mr.Exists("quiz:3") {
		t.Error("deleted keys still present")
	}
	if !mr.Exists("quiz:2") {
		t.Error("untouched key was removed")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	helper, mr := newTestHelper(t, "stats:")

	seed := map[string]string{
		"coach:c-1":  "a",
		"coach:c-2":  "b",
		"global:all": "c",
	}
	for key, value := range seed {
		if err := helper.SetString(ctx, key, value, time.Minute); err != nil {
			t.Fatalf("SetString(%s): %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "coach:*"); err != nil {
		t.Fatalf("InvalidatePattern: %v", err)
	}

	if mr.Exists("stats:coach:c-1") || mr.Exists("stats:coach:c-2") {
		t.Error("coach keys survived invalidation")
	}
	if !mr.Exists("stats:global:all") {
		t.Error("non-matching key was invalidated")
	}
}

func TestCacheHelper_NilClientDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	helper := NewCacheHelper(nil, "evaluation:")

	if err := helper.Set(ctx, "1", "value", time.Minute); err != nil {
		t.Errorf("Set with nil client should be a no-op, got %v", err)
	}
	if err := helper.Delete(ctx, "1"); err != nil {
		t.Errorf("Delete with nil client should be a no-op, got %v", err)
	}

	var got string
	if err := helper.Get(ctx, "1", &got); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
}

func TestCacheOrExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("miss executes fetch and returns the result", func(t *testing.T) {
		helper, _ := newTestHelper(t, "evaluation:")

		calls := 0
		var got cachedEvaluation
		err := helper.CacheOrExecute(ctx, "9", &got, time.Minute, func() (interface{}, error) {
			calls++
			return cachedEvaluation{ID: 9, Status: "Approved"}, nil
		})
		if err != nil {
			t.Fatalf("CacheOrExecute: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 fetch call, got %d", calls)
		}
		if got.Status != "Approved" {
			t.Errorf("expected Approved, got %s", got.Status)
		}
	})

	t.Run("hit skips the fetch function", func(t *testing.T) {
		helper, _ := newTestHelper(t, "evaluation:")

		stored := cachedEvaluation{ID: 5, Status: "Recorded"}
		if err := helper.Set(ctx, "5", stored, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}

		var got cachedEvaluation
		err := helper.CacheOrExecute(ctx, "5", &got, time.Minute, func() (interface{}, error) {
			t.Fatal("fetch should not run on a cache hit")
			return nil, nil
		})
		if err != nil {
			t.Fatalf("CacheOrExecute: %v", err)
		}
		if got != stored {
			t.Errorf("expected %+v, got %+v", stored, got)
		}
	})

	t.Run("fetch error is propagated", func(t *testing.T) {
		helper, _ := newTestHelper(t, "evaluation:")

		fetchErr := errors.New("database unavailable")
		var got cachedEvaluation
		err := helper.CacheOrExecute(ctx, "11", &got, time.Minute, func() (interface{}, error) {
			return nil, fetchErr
		})
		if !errors.Is(err, fetchErr) {
			t.Errorf("expected fetch error, got %v", err)
		}
	})
}
