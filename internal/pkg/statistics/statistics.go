package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/callsight/callsight/app/repository"
	"github.com/callsight/callsight/internal/pkg/cache"
	"github.com/callsight/callsight/internal/pkg/metrics/counter"
	"github.com/callsight/callsight/internal/pkg/stripe"
)

const (
	CacheKeyCallsTotal   = "statistics:calls:total"
	CacheKeyEventsByType = "statistics:events:by_type"
	CacheKeyMRR          = "statistics:mrr:monthly"
	CacheExpiration      = 30 * time.Minute
)

// Data is the dashboard summary.
type Data struct {
	TotalCalls     int64            `json:"total_calls"`
	EventsByType   map[string]int64 `json:"events_by_type"`
	Outcomes       map[string]int64 `json:"enrichment_outcomes"`
	MonthlyRevenue float64          `json:"monthly_recurring_revenue"`
}

// MRRSource is the billing surface the revenue aggregate needs.
// *stripe.Client satisfies it.
type MRRSource interface {
	AllCustomers(ctx context.Context) ([]stripe.Customer, error)
	SubscriptionsForCustomer(ctx context.Context, customerID string) ([]stripe.Subscription, error)
}

// ComputeMRR walks every billing customer and sums the normalized monthly
// amount of their active subscriptions.
func ComputeMRR(ctx context.Context, source MRRSource) (float64, error) {
	customers, err := source.AllCustomers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list customers: %w", err)
	}

	var total float64
	seen := map[string]struct{}{}
	for _, c := range customers {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}

		subs, err := source.SubscriptionsForCustomer(ctx, c.ID)
		if err != nil {
			return 0, fmt.Errorf("list subscriptions for %s: %w", c.ID, err)
		}
		for _, sub := range subs {
			if sub.Status != stripe.SubStatusActive {
				continue
			}
			total += stripe.MonthlyAmount(sub)
		}
	}
	return total, nil
}

// GetMRR returns the cached monthly recurring revenue, recomputing it from
// the billing API on a cache miss.
func GetMRR(ctx context.Context, source MRRSource) (float64, error) {
	val, err := cache.GetFloat(CacheKeyMRR)
	if err == nil {
		return val, nil
	}
	if !cache.IsNotFound(err) {
		log.Printf("Error reading MRR from cache: %v", err)
	}

	mrr, err := ComputeMRR(ctx, source)
	if err != nil {
		return 0, err
	}
	if err := cache.Set(CacheKeyMRR, mrr, CacheExpiration); err != nil {
		log.Printf("Error caching MRR: %v", err)
	}
	return mrr, nil
}

// GetTotalCalls returns the total number of imported calls from cache or
// database.
func GetTotalCalls() int64 {
	val, err := cache.Get(CacheKeyCallsTotal)
	if err == nil {
		count, err := strconv.ParseInt(val, 10, 64)
		if err == nil {
			return count
		}
	}

	count, err := repository.GetGlobalRepositories().Call.Count()
	if err != nil {
		log.Printf("Error counting calls: %v", err)
		return 0
	}
	if err := cache.Set(CacheKeyCallsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching call count: %v", err)
	}
	return count
}

// GetEventsByType returns ingested lifecycle event counts grouped by type,
// from cache or database.
func GetEventsByType() map[string]int64 {
	val, err := cache.Get(CacheKeyEventsByType)
	if err == nil {
		counts := map[string]int64{}
		if err := json.Unmarshal([]byte(val), &counts); err == nil {
			return counts
		}
	}

	counts, err := repository.GetGlobalRepositories().Event.CountByType()
	if err != nil {
		log.Printf("Error counting events by type: %v", err)
		return map[string]int64{}
	}
	if encoded, err := json.Marshal(counts); err == nil {
		if err := cache.Set(CacheKeyEventsByType, string(encoded), CacheExpiration); err != nil {
			log.Printf("Error caching event counts: %v", err)
		}
	}
	return counts
}

// GetStatisticsData returns the full dashboard summary.
func GetStatisticsData(ctx context.Context, source MRRSource) Data {
	mrr, err := GetMRR(ctx, source)
	if err != nil {
		log.Printf("Error computing MRR: %v", err)
	}
	outcomes, err := counter.Snapshot()
	if err != nil {
		log.Printf("Error reading enrichment outcome counters: %v", err)
	}
	return Data{
		TotalCalls:     GetTotalCalls(),
		EventsByType:   GetEventsByType(),
		Outcomes:       outcomes,
		MonthlyRevenue: mrr,
	}
}
