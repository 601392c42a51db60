package stripe

import "strings"

// statusRank orders subscription statuses by significance; lower wins.
func statusRank(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case SubStatusActive:
		return 0
	case SubStatusTrialing:
		return 1
	case SubStatusPastDue:
		return 2
	case SubStatusCanceled:
		return 3
	default:
		return 4
	}
}

// DetermineSubscriptionStatus derives the single effective state of one
// customer's subscription set: active > trialing > past_due > canceled, and
// within a tier the most recently started subscription. No subscriptions
// yields never_subscribed.
func DetermineSubscriptionStatus(subs []Subscription) SubscriptionSummary {
	if len(subs) == 0 {
		return SubscriptionSummary{Status: SubStatusNeverSubscribed}
	}

	best := subs[0]
	for _, s := range subs[1:] {
		r, br := statusRank(s.Status), statusRank(best.Status)
		switch {
		case r < br:
			best = s
		case r == br && s.StartedAt.After(best.StartedAt):
			best = s
		}
	}

	summary := SubscriptionSummary{
		Status:          best.Status,
		CanceledAt:      best.CanceledAt,
		RecurringAmount: MonthlyAmount(best),
	}
	started := best.StartedAt
	summary.StartedAt = &started
	for _, item := range best.Items {
		if item.PlanName != "" {
			summary.Plan = item.PlanName
			break
		}
	}
	return summary
}

// MonthlyAmount normalizes a subscription to a monthly recurring figure:
// month items count directly, yearly items are spread over 12 months,
// interval_count > 1 divides, and a subscription flagged to cancel at period
// end counts as zero even while its status still reads active.
func MonthlyAmount(sub Subscription) float64 {
	if sub.CancelAtPeriodEnd {
		return 0
	}

	total := 0.0
	for _, item := range sub.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		count := item.IntervalCount
		if count <= 0 {
			count = 1
		}
		amount := item.UnitAmount * float64(qty)

		switch item.Interval {
		case "month":
			total += amount / float64(count)
		case "year":
			total += amount / 12 / float64(count)
		default:
			// Weekly/daily items do not feed monthly figures.
		}
	}
	return total
}
