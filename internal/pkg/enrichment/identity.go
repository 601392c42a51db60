package enrichment

import (
	"encoding/json"
	"strings"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/internal/pkg/env"
)

// IdentityConfig lists the addresses and domains belonging to our own staff;
// they never become prospect candidates.
type IdentityConfig struct {
	InternalEmails  map[string]struct{}
	InternalDomains map[string]struct{}
}

// NewIdentityConfigFromEnv reads comma-separated HOST_EMAILS and
// INTERNAL_DOMAINS.
func NewIdentityConfigFromEnv() IdentityConfig {
	cfg := IdentityConfig{
		InternalEmails:  map[string]struct{}{},
		InternalDomains: map[string]struct{}{},
	}
	for _, e := range strings.Split(env.GetEnv("HOST_EMAILS", ""), ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			cfg.InternalEmails[e] = struct{}{}
		}
	}
	for _, d := range strings.Split(env.GetEnv("INTERNAL_DOMAINS", ""), ",") {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			cfg.InternalDomains[d] = struct{}{}
		}
	}
	return cfg
}

func (c IdentityConfig) isInternal(email string) bool {
	if _, ok := c.InternalEmails[email]; ok {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return true
	}
	_, ok := c.InternalDomains[email[at+1:]]
	return ok
}

// extractIdentity pulls candidate prospect emails and display-name guesses
// out of a call's participant list, excluding the host and internal staff.
func extractIdentity(call *models.Call, cfg IdentityConfig) (emails, names []string) {
	var participants []string
	if call.ParticipantsJSON != "" {
		// Participant parse failures degrade to an empty candidate set.
		_ = json.Unmarshal([]byte(call.ParticipantsJSON), &participants)
	}

	host := strings.ToLower(strings.TrimSpace(call.HostEmail))
	organizer := strings.ToLower(strings.TrimSpace(call.OrganizerEmail))

	seen := map[string]struct{}{}
	for _, p := range participants {
		email := strings.ToLower(strings.TrimSpace(p))
		if email == "" || !strings.Contains(email, "@") {
			continue
		}
		if email == host || email == organizer || cfg.isInternal(email) {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
		if name := nameFromEmail(email); name != "" {
			names = append(names, name)
		}
	}
	return emails, names
}

// nameFromEmail turns "jane.doe@acme.com" into "jane doe". Short or opaque
// local parts yield nothing.
func nameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	local := email[:at]
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	local = strings.TrimSpace(local)
	if len(local) < 3 {
		return ""
	}
	return local
}
