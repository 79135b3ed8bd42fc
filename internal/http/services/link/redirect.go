package link

import (
	"net/url"
	"strings"
)

// Outcome is the terminal result of one callback, surfaced to the UI as the
// `status` query param on the redirect target.
type Outcome string

const (
	OutcomeSignedIn      Outcome = "signed-in"
	OutcomeLinked        Outcome = "linked"
	OutcomeAlreadyLinked Outcome = "already-linked"
	OutcomeError         Outcome = "error"
)

// DefaultNext is the in-app page users land on after a link attempt when no
// usable next target was supplied.
const DefaultNext = "/profile/edit?tab=linked-accounts"

// SafeNext returns raw when it is a same-origin absolute path, otherwise
// fallback. Anything that could escape the origin (scheme, host,
// protocol-relative `//`, backslash tricks) is rejected.
func SafeNext(raw, fallback string) string {
	if fallback == "" {
		fallback = DefaultNext
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return fallback
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return raw
}

// BuildRedirect appends the outcome (and provider, when known) to next as
// query params, preserving any params next already carries. next must already
// be sanitized.
func BuildRedirect(next string, outcome Outcome, provider string) string {
	u, err := url.Parse(next)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("status", string(outcome))
	if provider != "" {
		q.Set("provider", provider)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
