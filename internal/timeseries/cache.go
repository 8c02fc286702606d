package timeseries

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-rca/internal/cache"
)

// CachingClient wraps a Client with a cache.Provider-backed memo of
// recent Sample results: a cache hit skips the range query entirely,
// a miss falls through and stores the result for TTL.
type CachingClient struct {
	next  Client
	cache cache.Provider
	ttl   time.Duration
}

// NewCachingClient wraps next; a nil cacheProvider or non-positive ttl
// disables caching (every call falls through to next).
func NewCachingClient(next Client, cacheProvider cache.Provider, ttl time.Duration) *CachingClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &CachingClient{next: next, cache: cacheProvider, ttl: ttl}
}

func (c *CachingClient) Sample(ctx context.Context, metricID string, labels map[string]string, endTS float64, step, sampleDuration float64) ([]float64, error) {
	if c.ttl <= 0 {
		return c.next.Sample(ctx, metricID, labels, endTS, step, sampleDuration)
	}

	key := sampleCacheKey(metricID, labels, endTS, step, sampleDuration)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var series []float64
		if jsonErr := json.Unmarshal(raw, &series); jsonErr == nil {
			return series, nil
		}
	}

	series, err := c.next.Sample(ctx, metricID, labels, endTS, step, sampleDuration)
	if err != nil {
		return nil, err
	}
	if raw, jsonErr := json.Marshal(series); jsonErr == nil {
		_ = c.cache.Set(ctx, key, raw, c.ttl)
	}
	return series, nil
}

func sampleCacheKey(metricID string, labels map[string]string, endTS, step, sampleDuration float64) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s,", k, labels[k])
	}
	return fmt.Sprintf("ts:%s:%s:%v:%v:%v", metricID, b.String(), endTS, step, sampleDuration)
}
