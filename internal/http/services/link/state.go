package link

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateClaims carries the signed context of a start-of-link request across
// the provider round trip.
type StateClaims struct {
	Provider string
	Next     string
	Nonce    string
}

// StateAudience is the expected audience for link state tokens.
const StateAudience = "link-state"

// StateSigner signs and verifies the state JWT passed through the provider.
type StateSigner interface {
	SignState(claims StateClaims) (string, error)
	ParseState(tokenString string) (*StateClaims, error)
}

// Errors for state operations.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateExpired  = errors.New("state token expired")
	ErrStateIssuer   = errors.New("state issuer mismatch")
	ErrStateAudience = errors.New("state audience mismatch")
)

// HMACStateSigner signs state tokens with HS256 and a shared secret.
type HMACStateSigner struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func NewHMACStateSigner(secret []byte, issuer string, ttl time.Duration) *HMACStateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &HMACStateSigner{Secret: secret, Issuer: issuer, TTL: ttl}
}

// SignState signs a state JWT. A fresh nonce is generated when the claims
// carry none.
func (s *HMACStateSigner) SignState(claims StateClaims) (string, error) {
	now := time.Now().UTC()
	nonce := claims.Nonce
	if nonce == "" {
		nonce = uuid.NewString()
	}
	mapClaims := jwtv5.MapClaims{
		"iss":      s.Issuer,
		"aud":      StateAudience,
		"exp":      now.Add(s.TTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"provider": claims.Provider,
		"nonce":    nonce,
	}
	if claims.Next != "" {
		mapClaims["next"] = claims.Next
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, mapClaims)
	return tk.SignedString(s.Secret)
}

// ParseState parses and validates a state JWT.
func (s *HMACStateSigner) ParseState(tokenString string) (*StateClaims, error) {
	tk, err := jwtv5.Parse(tokenString,
		func(*jwtv5.Token) (any, error) { return s.Secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tk.Valid {
		return nil, ErrStateInvalid
	}

	mapClaims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrStateInvalid
	}

	if iss, _ := mapClaims["iss"].(string); iss != s.Issuer {
		return nil, ErrStateIssuer
	}
	if aud, _ := mapClaims["aud"].(string); aud != StateAudience {
		return nil, ErrStateAudience
	}

	// Expiration with 30s grace.
	if expf, ok := mapClaims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(time.Now().Add(-30 * time.Second)) {
			return nil, ErrStateExpired
		}
	}

	return &StateClaims{
		Provider: getString(mapClaims, "provider"),
		Next:     getString(mapClaims, "next"),
		Nonce:    getString(mapClaims, "nonce"),
	}, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
