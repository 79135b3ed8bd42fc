package session

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig mirrors the session config block.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string // "lax" | "strict" | "none"
	Secure   bool
	TTL      time.Duration
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return "sid"
	}
	return c.Name
}

func (c CookieConfig) sameSite() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// IDFromRequest extracts the session id from the request cookie. Empty when
// absent.
func IDFromRequest(r *http.Request, cfg CookieConfig) string {
	ck, err := r.Cookie(cfg.name())
	if err != nil || ck == nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// BuildCookie produces the Set-Cookie value for a new session.
func BuildCookie(sess *Session, cfg CookieConfig) *http.Cookie {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Until(sess.ExpiresAt)
	}
	return &http.Cookie{
		Name:     cfg.name(),
		Value:    sess.ID,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	}
}
