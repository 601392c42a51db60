package stripe

import (
	"context"
	"strings"
)

// publicEmailDomains are consumer mail providers that would match unrelated
// customers in the domain fallback tier.
var publicEmailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"live.com":       {},
	"icloud.com":     {},
	"aol.com":        {},
	"gmx.de":         {},
	"gmx.net":        {},
	"web.de":         {},
	"proton.me":      {},
	"protonmail.com": {},
}

const minNameLength = 3

// CustomerSource is the billing API surface the matcher needs. *Client
// satisfies it; tests substitute fakes with call counters.
type CustomerSource interface {
	CustomersByEmail(ctx context.Context, email string) ([]Customer, error)
	CustomersByDomain(ctx context.Context, domain string) ([]Customer, error)
	AllCustomers(ctx context.Context) ([]Customer, error)
	SubscriptionsForCustomer(ctx context.Context, customerID string) ([]Subscription, error)
}

// Matcher performs the cascading identity match against billing customers.
type Matcher struct {
	source CustomerSource
}

// NewMatcher creates a matcher over a billing source.
func NewMatcher(source CustomerSource) *Matcher {
	return &Matcher{source: source}
}

// Enrich tries exact email, then email domain, then display name, in that
// order; the first tier that yields candidates wins and the remaining tiers
// are never queried. No match is a negative result, not an error.
func (m *Matcher) Enrich(ctx context.Context, emails, names []string) (*MatchResult, error) {
	emails = normalizeEmails(emails)

	// Tier 1: exact email.
	var candidates []Customer
	for _, email := range emails {
		found, err := m.source.CustomersByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	if len(candidates) > 0 {
		return m.resolve(ctx, candidates, MatchMethodExactEmail, ConfidenceHigh)
	}

	// Tier 2: email domain.
	for _, domain := range candidateDomains(emails) {
		found, err := m.source.CustomersByDomain(ctx, domain)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	if len(candidates) > 0 {
		return m.resolve(ctx, candidates, MatchMethodDomain, ConfidenceMedium)
	}

	// Tier 3: display name containment.
	if nameCandidates := usableNames(names); len(nameCandidates) > 0 {
		all, err := m.source.AllCustomers(ctx)
		if err != nil {
			return nil, err
		}
		for _, customer := range all {
			if nameMatches(customer.Name, nameCandidates) {
				candidates = append(candidates, customer)
			}
		}
	}
	if len(candidates) > 0 {
		return m.resolve(ctx, candidates, MatchMethodName, ConfidenceLow)
	}

	return &MatchResult{Matched: false}, nil
}

// resolve applies selectBestCustomer to the tier's candidates and builds the
// final result. The tie-break is identical regardless of the producing tier.
func (m *Matcher) resolve(ctx context.Context, candidates []Customer, method, confidence string) (*MatchResult, error) {
	best, subs, err := m.selectBestCustomer(ctx, candidates)
	if err != nil {
		return nil, err
	}

	summary := DetermineSubscriptionStatus(subs)
	return &MatchResult{
		Matched:       true,
		Method:        method,
		Confidence:    confidence,
		Customer:      best,
		Subscriptions: subs,
		Summary:       &summary,
	}, nil
}

// selectBestCustomer breaks ties between duplicate candidates: the customer
// whose own subscription set ranks best (active > trialing > past_due >
// canceled > none) wins; equal ranks fall back to the most recently created
// customer.
func (m *Matcher) selectBestCustomer(ctx context.Context, candidates []Customer) (*Customer, []Subscription, error) {
	var (
		best     *Customer
		bestSubs []Subscription
		bestRank = -1
	)
	seen := make(map[string]struct{}, len(candidates))

	for i := range candidates {
		candidate := candidates[i]
		if _, ok := seen[candidate.ID]; ok {
			continue
		}
		seen[candidate.ID] = struct{}{}

		subs, err := m.source.SubscriptionsForCustomer(ctx, candidate.ID)
		if err != nil {
			return nil, nil, err
		}
		rank := customerRank(subs)

		if best == nil || rank < bestRank ||
			(rank == bestRank && candidate.CreatedAt.After(best.CreatedAt)) {
			best = &candidates[i]
			bestSubs = subs
			bestRank = rank
		}
	}
	return best, bestSubs, nil
}

// customerRank is the rank of the customer's best subscription; customers
// without subscriptions rank below canceled ones.
func customerRank(subs []Subscription) int {
	if len(subs) == 0 {
		return statusRank("") // worst tier
	}
	best := statusRank("")
	for _, s := range subs {
		if r := statusRank(s.Status); r < best {
			best = r
		}
	}
	return best
}

func normalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	var out []string
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.Contains(e, "@") {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func candidateDomains(emails []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range emails {
		at := strings.LastIndex(e, "@")
		if at < 0 || at == len(e)-1 {
			continue
		}
		domain := e[at+1:]
		if _, public := publicEmailDomains[domain]; public {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	return out
}

func usableNames(names []string) []string {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if len(n) >= minNameLength {
			out = append(out, strings.ToLower(n))
		}
	}
	return out
}

// nameMatches is bidirectional containment: either string may contain the
// other, case-insensitively.
func nameMatches(customerName string, candidates []string) bool {
	cn := strings.ToLower(strings.TrimSpace(customerName))
	if len(cn) < minNameLength {
		return false
	}
	for _, candidate := range candidates {
		if strings.Contains(cn, candidate) || strings.Contains(candidate, cn) {
			return true
		}
	}
	return false
}
