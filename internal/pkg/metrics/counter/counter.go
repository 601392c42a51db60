package counter

import (
	"context"
	"strconv"

	"github.com/callsight/callsight/internal/pkg/cache"
)

const enrichmentOutcomesKey = "enrichment:counters:outcomes"

// AddEnrichmentOutcome increments the rolling counter for a final status in
// Redis.
func AddEnrichmentOutcome(status string) error {
	if status == "" {
		return nil
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, enrichmentOutcomesKey, status, 1).Err()
}

// Snapshot returns the accumulated per-status enrichment counts.
func Snapshot() (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, enrichmentOutcomesKey).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(data))
	for status, raw := range data {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		counts[status] = n
	}
	return counts, nil
}

// Reset drops the accumulated counters.
func Reset() error {
	ctx := context.Background()
	return cache.GetClient().Del(ctx, enrichmentOutcomesKey).Err()
}
