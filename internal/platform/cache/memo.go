package cache

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Fetch is GetOrSet over a shared Cache[any] for callers that want a typed
// result. A nil cache computes every time.
func Fetch[T any](ctx context.Context, c *Cache[any], key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}
	v, err := c.GetOrSet(ctx, key, func(ctx context.Context) (any, error) {
		return compute(ctx)
	}, ttl)
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: key %q holds %T, want %T", key, v, zero)
	}
	return t, nil
}

// InvalidatePatterns applies InvalidatePattern for each pattern and returns
// the total number of deleted keys. Safe on a nil cache.
func (c *Cache[V]) InvalidatePatterns(patterns ...string) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, p := range patterns {
		n += c.InvalidatePattern(p)
	}
	return n
}

// ParamsFromQuery flattens a query string into GenerateKey params. Repeated
// values are sorted and comma-joined; empty values are dropped.
func ParamsFromQuery(q url.Values) map[string]string {
	params := make(map[string]string, len(q))
	for name, values := range q {
		var kept []string
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		sort.Strings(kept)
		params[name] = strings.Join(kept, ",")
	}
	return params
}

// Merge returns a new map holding every entry of maps; later maps win.
func Merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
