package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/callsight/callsight/internal/pkg/apiclient"
	"github.com/callsight/callsight/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.stripe.com/v1"
	listPageSize      = 100
)

// Config is the immutable adapter configuration.
type Config struct {
	SecretKey  string
	APIBaseURL string
}

// NewConfigFromEnv reads the Stripe adapter configuration.
func NewConfigFromEnv() Config {
	return Config{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultAPIBaseURL)),
	}
}

// Client calls the Stripe REST API through the shared rate-limited wrapper.
type Client struct {
	cfg Config
	api *apiclient.Client
}

// NewClient creates a Stripe client from config.
func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{BearerToken: cfg.SecretKey}),
	}
}

type rawCustomer struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Created int64  `json:"created"`
}

func (rc rawCustomer) toCustomer() Customer {
	return Customer{
		ID:        rc.ID,
		Email:     strings.ToLower(strings.TrimSpace(rc.Email)),
		Name:      strings.TrimSpace(rc.Name),
		CreatedAt: time.Unix(rc.Created, 0).UTC(),
	}
}

type customerList struct {
	Data    []rawCustomer `json:"data"`
	HasMore bool          `json:"has_more"`
}

// CustomersByEmail looks up customers with an exact email.
func (c *Client) CustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	q := url.Values{}
	q.Set("email", strings.ToLower(strings.TrimSpace(email)))
	q.Set("limit", fmt.Sprintf("%d", listPageSize))

	body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/customers", q)
	if err != nil {
		return nil, err
	}
	var out customerList
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return convertCustomers(out.Data), nil
}

// CustomersByDomain searches customers whose email shares the domain.
func (c *Client) CustomersByDomain(ctx context.Context, domain string) ([]Customer, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf(`email~"%s"`, strings.ToLower(strings.TrimSpace(domain))))
	q.Set("limit", fmt.Sprintf("%d", listPageSize))

	body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/customers/search", q)
	if err != nil {
		return nil, err
	}
	var out customerList
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return convertCustomers(out.Data), nil
}

// AllCustomers walks the full customer list with cursor pagination. There is
// no fixed page ceiling; the loop ends when has_more goes false.
func (c *Client) AllCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	startingAfter := ""
	for {
		q := url.Values{}
		q.Set("limit", fmt.Sprintf("%d", listPageSize))
		if startingAfter != "" {
			q.Set("starting_after", startingAfter)
		}

		body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/customers", q)
		if err != nil {
			return nil, err
		}
		var out customerList
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}

		customers = append(customers, convertCustomers(out.Data)...)
		if !out.HasMore || len(out.Data) == 0 {
			break
		}
		startingAfter = out.Data[len(out.Data)-1].ID
	}
	return customers, nil
}

type rawSubscription struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	StartDate         int64  `json:"start_date"`
	CanceledAt        *int64 `json:"canceled_at"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			Quantity int `json:"quantity"`
			Price    struct {
				Nickname   string `json:"nickname"`
				UnitAmount int64  `json:"unit_amount"` // cents
				Recurring  struct {
					Interval      string `json:"interval"`
					IntervalCount int    `json:"interval_count"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// SubscriptionsForCustomer lists all subscriptions of a customer regardless
// of status, expanded to include the latest invoice.
func (c *Client) SubscriptionsForCustomer(ctx context.Context, customerID string) ([]Subscription, error) {
	q := url.Values{}
	q.Set("customer", customerID)
	q.Set("status", "all")
	q.Set("limit", fmt.Sprintf("%d", listPageSize))
	q.Add("expand[]", "data.latest_invoice")

	body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/subscriptions", q)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data []rawSubscription `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}

	subs := make([]Subscription, 0, len(out.Data))
	for _, rs := range out.Data {
		sub := Subscription{
			ID:                rs.ID,
			Status:            rs.Status,
			StartedAt:         time.Unix(rs.StartDate, 0).UTC(),
			CancelAtPeriodEnd: rs.CancelAtPeriodEnd,
		}
		if rs.CanceledAt != nil {
			t := time.Unix(*rs.CanceledAt, 0).UTC()
			sub.CanceledAt = &t
		}
		for _, item := range rs.Items.Data {
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			count := item.Price.Recurring.IntervalCount
			if count <= 0 {
				count = 1
			}
			sub.Items = append(sub.Items, SubscriptionItem{
				PlanName:      item.Price.Nickname,
				UnitAmount:    float64(item.Price.UnitAmount) / 100,
				Interval:      item.Price.Recurring.Interval,
				IntervalCount: count,
				Quantity:      qty,
			})
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func convertCustomers(raw []rawCustomer) []Customer {
	out := make([]Customer, 0, len(raw))
	for _, rc := range raw {
		out = append(out, rc.toCustomer())
	}
	return out
}
