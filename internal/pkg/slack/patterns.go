package slack

import (
	"regexp"
	"strings"

	"github.com/callsight/callsight/app/models"
)

const emailPattern = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`

var (
	emailRe  = regexp.MustCompile(emailPattern)
	planRe   = regexp.MustCompile(`(?i)plan[:\s]+"?([A-Za-z0-9][A-Za-z0-9 _\-]{0,60})"?`)
	reasonRe = regexp.MustCompile(`(?i)reason[:\s]+"?([^"\n]{1,200})"?`)
)

// typeMatcher holds the ordered regex pairs for one event type: one
// email-then-keyword form and one keyword-then-email form.
type typeMatcher struct {
	eventType string
	patterns  []*regexp.Regexp
}

// typeMatchers is evaluated in this fixed order; the first type whose
// patterns hit wins and the message yields exactly one typed event.
var typeMatchers = []typeMatcher{
	{
		eventType: models.EventTypeRegistered,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(` + emailPattern + `).{0,60}(signed up|registered|created (an? )?account)`),
			regexp.MustCompile(`(?i)(new (signup|registration)|signed up|registered)[^@]{0,60}(` + emailPattern + `)`),
		},
	},
	{
		eventType: models.EventTypeTrialing,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(` + emailPattern + `).{0,60}(started (a |their )?(free )?trial|trial started)`),
			regexp.MustCompile(`(?i)((free )?trial (started|began)|started (a )?trial)[^@]{0,60}(` + emailPattern + `)`),
		},
	},
	{
		eventType: models.EventTypeActive,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(` + emailPattern + `).{0,60}(upgraded|subscribed|payment (succeeded|received)|became a (paying )?customer|purchased)`),
			regexp.MustCompile(`(?i)(new (subscription|payment|sale)|payment (succeeded|received)|upgraded|purchase)[^@]{0,60}(` + emailPattern + `)`),
		},
	},
	{
		eventType: models.EventTypeCanceled,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(` + emailPattern + `).{0,60}(cancell?ed|churned|downgraded to free)`),
			regexp.MustCompile(`(?i)(cancell?ation|cancell?ed|churn(ed)?)[^@]{0,60}(` + emailPattern + `)`),
		},
	},
	{
		eventType: models.EventTypePaymentFailed,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(` + emailPattern + `).{0,60}(payment failed|charge failed|card declined|invoice payment failed)`),
			regexp.MustCompile(`(?i)(payment failed|charge failed|card declined|failed (payment|charge))[^@]{0,60}(` + emailPattern + `)`),
		},
	},
}

// matchEventType returns the first matching event type for a message, or ""
// when no typed pattern applies.
func matchEventType(text string) string {
	for _, m := range typeMatchers {
		for _, re := range m.patterns {
			if re.MatchString(text) {
				return m.eventType
			}
		}
	}
	return ""
}

// extractEmail returns the first email substring, normalized to lowercase.
func extractEmail(text string) string {
	return strings.ToLower(emailRe.FindString(text))
}

func extractPlan(text string) string {
	m := planRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractCancellationReason(text string) string {
	m := reasonRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
