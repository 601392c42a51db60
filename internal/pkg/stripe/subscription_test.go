package stripe

import (
	"testing"
	"time"
)

func TestDetermineSubscriptionStatusPriority(t *testing.T) {
	now := time.Now().UTC()
	subs := []Subscription{
		{ID: "sub_c", Status: SubStatusCanceled, StartedAt: now.Add(-72 * time.Hour)},
		{ID: "sub_a", Status: SubStatusActive, StartedAt: now.Add(-48 * time.Hour), Items: []SubscriptionItem{{PlanName: "Growth", UnitAmount: 99, Interval: "month", IntervalCount: 1, Quantity: 1}}},
		{ID: "sub_t", Status: SubStatusTrialing, StartedAt: now.Add(-24 * time.Hour)},
	}

	summary := DetermineSubscriptionStatus(subs)
	if summary.Status != SubStatusActive {
		t.Fatalf("expected active to win, got %q", summary.Status)
	}
	if summary.Plan != "Growth" {
		t.Fatalf("expected plan from winning subscription, got %q", summary.Plan)
	}
	if summary.RecurringAmount != 99 {
		t.Fatalf("expected 99 recurring, got %v", summary.RecurringAmount)
	}
}

func TestDetermineSubscriptionStatusEmpty(t *testing.T) {
	summary := DetermineSubscriptionStatus(nil)
	if summary.Status != SubStatusNeverSubscribed {
		t.Fatalf("expected never_subscribed, got %q", summary.Status)
	}
	if summary.RecurringAmount != 0 || summary.StartedAt != nil {
		t.Fatalf("expected zero-value summary, got %+v", summary)
	}
}

func TestDetermineSubscriptionStatusSameTierPrefersNewest(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	subs := []Subscription{
		{ID: "sub_old", Status: SubStatusCanceled, StartedAt: t1},
		{ID: "sub_new", Status: SubStatusCanceled, StartedAt: t2},
	}
	summary := DetermineSubscriptionStatus(subs)
	if summary.StartedAt == nil || !summary.StartedAt.Equal(t2) {
		t.Fatalf("expected newest canceled subscription, got %+v", summary.StartedAt)
	}
}

func TestMonthlyAmountYearlySpread(t *testing.T) {
	sub := Subscription{
		Status: SubStatusActive,
		Items:  []SubscriptionItem{{UnitAmount: 1200, Interval: "year", IntervalCount: 1, Quantity: 1}},
	}
	if got := MonthlyAmount(sub); got != 100 {
		t.Fatalf("$1200/year should contribute $100/month, got %v", got)
	}
}

func TestMonthlyAmountQuantity(t *testing.T) {
	sub := Subscription{
		Status: SubStatusActive,
		Items:  []SubscriptionItem{{UnitAmount: 49, Interval: "month", IntervalCount: 1, Quantity: 2}},
	}
	if got := MonthlyAmount(sub); got != 98 {
		t.Fatalf("$49 x 2 should contribute $98/month, got %v", got)
	}
}

func TestMonthlyAmountIntervalCount(t *testing.T) {
	sub := Subscription{
		Status: SubStatusActive,
		Items:  []SubscriptionItem{{UnitAmount: 300, Interval: "month", IntervalCount: 3, Quantity: 1}},
	}
	if got := MonthlyAmount(sub); got != 100 {
		t.Fatalf("$300 per 3 months should contribute $100/month, got %v", got)
	}
}

func TestMonthlyAmountCancelAtPeriodEndIsZero(t *testing.T) {
	sub := Subscription{
		Status:            SubStatusActive,
		CancelAtPeriodEnd: true,
		Items:             []SubscriptionItem{{UnitAmount: 500, Interval: "month", IntervalCount: 1, Quantity: 1}},
	}
	if got := MonthlyAmount(sub); got != 0 {
		t.Fatalf("cancel_at_period_end must contribute $0, got %v", got)
	}
}

func TestMonthlyAmountIgnoresNonMonthlyIntervals(t *testing.T) {
	sub := Subscription{
		Status: SubStatusActive,
		Items: []SubscriptionItem{
			{UnitAmount: 10, Interval: "week", IntervalCount: 1, Quantity: 1},
			{UnitAmount: 20, Interval: "month", IntervalCount: 1, Quantity: 1},
		},
	}
	if got := MonthlyAmount(sub); got != 20 {
		t.Fatalf("weekly items must not count, got %v", got)
	}
}
