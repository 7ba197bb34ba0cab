package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

func TestCache_GetSet(t *testing.T) {
	c := New[*models.Report](5*time.Second, 100)

	report := &models.Report{DistrictCode: "pune", Summary: "ok"}
	key := MakeKey("pune", "2024-05")
	c.Set(key, report)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != report {
		t.Errorf("expected same report pointer back")
	}
}

func TestCache_Miss(t *testing.T) {
	c := New[*models.Report](5*time.Second, 100)

	got, ok := c.Get("nonexistent")
	if ok {
		t.Error("expected cache miss for nonexistent key")
	}
	if got != nil {
		t.Error("expected zero value on miss")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := New[string](time.Minute, 100)
	now := time.Now()
	c.now = func() time.Time { return now }

	key := MakeKey("pune", "")
	c.Set(key, "data")

	if _, ok := c.Get(key); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(key); ok {
		t.Error("expected cache miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be removed lazily, len=%d", c.Len())
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New[string](5*time.Second, 100)

	c.Set(MakeKey("pune", "2024-04"), "a")
	c.Set(MakeKey("pune", "2024-05"), "b")
	c.Set(MakeKey("nagpur", "2024-05"), "c")

	c.InvalidatePrefix("district:pune|")

	if _, ok := c.Get(MakeKey("pune", "2024-04")); ok {
		t.Error("expected pune entries to be invalidated")
	}
	if _, ok := c.Get(MakeKey("pune", "2024-05")); ok {
		t.Error("expected pune entries to be invalidated")
	}
	if _, ok := c.Get(MakeKey("nagpur", "2024-05")); !ok {
		t.Error("expected nagpur entry to survive")
	}
}

func TestCache_MaxEntries(t *testing.T) {
	c := New[int](5*time.Second, 3)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}
	if _, ok := c.Get("k0"); ok {
		t.Error("expected oldest entry k0 to be evicted")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Error("expected newest entry k4 to be present")
	}
}

func TestCache_OverwriteExistingKey(t *testing.T) {
	c := New[string](5*time.Second, 2)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")

	if c.Len() != 2 {
		t.Errorf("overwrite must not change capacity, len=%d", c.Len())
	}
	if v, _ := c.Get("a"); v != "3" {
		t.Errorf("expected overwritten value 3, got %s", v)
	}
}

func TestCache_MaxEntriesZeroDisables(t *testing.T) {
	c := New[string](5*time.Second, 0)
	c.Set("a", "1")

	if _, ok := c.Get("a"); ok {
		t.Error("expected caching disabled with maxEntries=0")
	}
}

func TestMakeKey(t *testing.T) {
	if got := MakeKey("pune", ""); got != "district:pune|latest" {
		t.Errorf("unexpected key %s", got)
	}
	if got := MakeKey("pune", "2024-05"); got != "district:pune|2024-05" {
		t.Errorf("unexpected key %s", got)
	}
	if !strings.HasPrefix(MakeKey("pune", ""), DistrictPrefix("pune")) {
		t.Error("keys must start with their district prefix")
	}
	if strings.HasPrefix(MakeKey("pune-rural", ""), DistrictPrefix("pune")) {
		t.Error("district prefix must not match a longer district code")
	}
}

func TestCache_ThreadSafety(t *testing.T) {
	c := New[int](5*time.Second, 50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := MakeKey(fmt.Sprintf("d%d", (n+j)%60), "")
				c.Set(key, j)
				c.Get(key)
				if j%25 == 0 {
					c.InvalidatePrefix("district:d1")
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded max entries: %d", c.Len())
	}
}
