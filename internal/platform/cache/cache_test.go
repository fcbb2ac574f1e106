package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(clk *fakeClock) *Cache[string] {
	return New[string](WithClock(clk.Now), WithDefaultTTL(time.Minute))
}

func TestSetGet(t *testing.T) {
	c := newTestCache(newFakeClock())

	t.Run("set then get returns value", func(t *testing.T) {
		c.Set("patients:list", "v1", 10*time.Second)
		v, ok := c.Get("patients:list")
		require.True(t, ok)
		assert.Equal(t, "v1", v)
	})

	t.Run("get unknown key", func(t *testing.T) {
		v, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("overwrite replaces value", func(t *testing.T) {
		c.Set("k", "a", time.Second)
		c.Set("k", "b", time.Second)
		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "b", v)
	})
}

func TestExpiry(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Set("k", "v", 10*time.Second)

	clk.Advance(10 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok, "entry must be valid at the exact expiry instant")
	assert.Equal(t, "v", v)

	clk.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestDefaultTTL(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Set("k", "v", 0)
	clk.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	assert.Equal(t, DefaultTTL, New[int]().DefaultTTL())
}

func TestDeleteAndClear(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)

	c.Delete("a")
	c.Delete("does-not-exist")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCleanup(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	c.Set("short-1", "x", time.Second)
	c.Set("short-2", "x", 2*time.Second)
	c.Set("long", "x", time.Hour)

	// Access order must not matter.
	_, _ = c.Get("long")

	clk.Advance(2 * time.Second)
	removed := c.Cleanup()
	assert.Equal(t, 1, removed, "only short-1 is past its expiry")
	assert.Equal(t, []string{"long", "short-2"}, c.Keys())

	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, c.Cleanup())
	assert.Equal(t, []string{"long"}, c.Keys())

	assert.Equal(t, 0, c.Cleanup())
}

func TestStartCleanup_StopsOnCancel(t *testing.T) {
	c := New[string](WithDefaultTTL(time.Millisecond))
	c.Set("k", "v", time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	c.StartCleanup(ctx, 5*time.Millisecond)
	defer cancel()

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGetOrSet_Memoizes(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)
	ctx := context.Background()

	var calls int
	compute := func(context.Context) (string, error) {
		calls++
		return "stats", nil
	}

	v, err := c.GetOrSet(ctx, "dashboard:", compute, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stats", v)

	v, err = c.GetOrSet(ctx, "dashboard:", compute, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stats", v)
	assert.Equal(t, 1, calls)

	clk.Advance(31 * time.Second)
	_, err = c.GetOrSet(ctx, "dashboard:", compute, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entry must be recomputed")
}

func TestGetOrSet_ErrorNotCached(t *testing.T) {
	c := newTestCache(newFakeClock())
	boom := errors.New("boom")

	_, err := c.GetOrSet(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	}, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrSet_SingleFlight(t *testing.T) {
	c := New[int]()
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrSet(context.Background(), "slow", compute, time.Minute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give every goroutine a chance to join the in-flight call.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestGetOrSet_InvalidateDuringCompute(t *testing.T) {
	c := New[string]()
	ctx := context.Background()
	key := GenerateKey("patients", nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string, 1)
	go func() {
		v, err := c.GetOrSet(ctx, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old-list", nil
		}, time.Minute)
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	c.InvalidatePattern("patients:*")

	// A read that starts after the write must not take the older result.
	late := make(chan string, 1)
	go func() {
		v, err := c.GetOrSet(ctx, key, func(context.Context) (string, error) {
			return "new-list", nil
		}, time.Minute)
		assert.NoError(t, err)
		late <- v
	}()

	close(release)
	assert.Equal(t, "old-list", <-done)
	assert.Equal(t, "new-list", <-late)

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "new-list", v)
}

func TestGetOrSet_ClearDuringComputeSkipsStore(t *testing.T) {
	c := New[int]()
	v, err := c.GetOrSet(context.Background(), "k", func(context.Context) (int, error) {
		c.Clear()
		return 7, nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Sets)
}

func TestInvalidatePattern(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set("patients:list", "x", 0)
	c.Set("patients:limit:20|offset:0", "x", 0)
	c.Set("appointments:list", "x", 0)
	c.Set("dashboard:", "x", 0)

	removed := c.InvalidatePattern("patients:*")
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"appointments:list", "dashboard:"}, c.Keys())

	assert.Equal(t, 1, c.InvalidatePattern("*:list"))
	assert.Equal(t, 0, c.InvalidatePattern("nothing*"))
	assert.Equal(t, 1, c.InvalidatePattern("dashboard:*"), "star matches the empty suffix")
}

func TestInvalidatePattern_Literal(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set("reports:a.b", "x", 0)
	c.Set("reports:aXb", "x", 0)

	// "." is literal, not a regexp wildcard.
	assert.Equal(t, 1, c.InvalidatePattern("reports:a.b"))
	assert.Equal(t, []string{"reports:aXb"}, c.Keys())
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("dashboard", map[string]string{"b": "2", "a": "1"})
	b := GenerateKey("dashboard", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "dashboard:a:1|b:2", a)

	assert.Equal(t, "dashboard:", GenerateKey("dashboard", nil))
	assert.NotEqual(t,
		GenerateKey("patients", map[string]string{"q": "ann"}),
		GenerateKey("patients", map[string]string{"q": "bob"}))
}

func TestGenerateKey_EscapesValues(t *testing.T) {
	// Without escaping both would read "reports:a:1|b:2".
	assert.NotEqual(t,
		GenerateKey("reports", map[string]string{"a": "1|b:2"}),
		GenerateKey("reports", map[string]string{"a": "1", "b": "2"}))
	assert.NotEqual(t,
		GenerateKey("reports", map[string]string{"a:b": "c"}),
		GenerateKey("reports", map[string]string{"a": "b:c"}))

	key := GenerateKey("appointments", map[string]string{"from": "2026-03-02T09:00:00Z", "q": "a*"})
	assert.Equal(t, "appointments:from:2026-03-02T09%3A00%3A00Z|q:a%2A", key)

	c := New[int]()
	c.Set(key, 1, 0)
	c.Set(GenerateKey("appointments", map[string]string{"q": "ab"}), 2, 0)
	assert.Equal(t, 1, c.InvalidatePattern("appointments:*q:a%2A"))
	assert.Equal(t, 1, c.Len())
}

func TestSetIfAbsent(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	assert.True(t, c.SetIfAbsent("jti", "u1", time.Minute))
	assert.False(t, c.SetIfAbsent("jti", "u2", time.Minute))
	v, _ := c.Get("jti")
	assert.Equal(t, "u1", v)

	clk.Advance(2 * time.Minute)
	assert.True(t, c.SetIfAbsent("jti", "u3", time.Minute), "expired entries count as absent")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.SetIfAbsent("race", "x", time.Minute) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestStats(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)
	c.Set("k", "v", time.Second)
	_, _ = c.Get("k")
	_, _ = c.Get("nope")
	clk.Advance(2 * time.Second)
	_, _ = c.Get("k")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(2), s.Misses)
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, 0, s.Entries)
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartCleanup(ctx, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := GenerateKey("k", map[string]string{"n": string(rune('a' + j%5))})
				c.Set(key, j, time.Millisecond)
				c.Get(key)
				if j%50 == 0 {
					c.InvalidatePattern("k:*")
				}
			}
		}(i)
	}
	wg.Wait()
}
