package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/models"
)

// TestInMemoryCache_SetGet verifies a stored record is returned before its
// TTL elapses.
func TestInMemoryCache_SetGet(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	record := models.HazmatRecord{"un_na": "1203", "name": "Gasoline"}
	if err := c.Set(ctx, "1203", record, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "1203")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want cache hit")
	}
	if got["name"] != "Gasoline" {
		t.Errorf("Get() name = %q, want Gasoline", got["name"])
	}
}

// TestInMemoryCache_Miss verifies a miss for a key that was never stored.
func TestInMemoryCache_Miss(t *testing.T) {
	c := NewInMemoryCache()

	got, ok, err := c.Get(context.Background(), "9999")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get() ok = true, want miss, got %v", got)
	}
}

// TestInMemoryCache_Expiry verifies expired entries are treated as misses.
func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	record := models.HazmatRecord{"un_na": "1993"}
	if err := c.Set(ctx, "1993", record, 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(25 * time.Millisecond)

	_, ok, err := c.Get(ctx, "1993")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want miss after TTL expiry")
	}
}

// TestInMemoryCache_Overwrite verifies Set replaces an existing entry.
func TestInMemoryCache_Overwrite(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "1203", models.HazmatRecord{"name": "old"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "1203", models.HazmatRecord{"name": "new"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, _ := c.Get(ctx, "1203")
	if !ok || got["name"] != "new" {
		t.Errorf("Get() = (%v, %v), want updated entry", got, ok)
	}
}

// TestInMemoryCache_Concurrent exercises Get and Set from multiple
// goroutines under the race detector.
func TestInMemoryCache_Concurrent(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Set(ctx, "1203", models.HazmatRecord{"name": "Gasoline"}, time.Minute)
				_, _, _ = c.Get(ctx, "1203")
			}
		}()
	}
	wg.Wait()
}
