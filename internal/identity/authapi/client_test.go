package authapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayoff-kr/moimlink/internal/identity"
)

func exchangePayload(provider, subject string) map[string]any {
	return map[string]any{
		"access_token":  "at-1",
		"refresh_token": "rt-1",
		"token_type":    "bearer",
		"expires_in":    3600,
		"user": map[string]any{
			"id":    "backend-user",
			"email": "user@example.com",
			"app_metadata": map[string]any{
				"provider": provider,
			},
			"user_metadata": map[string]any{
				"full_name":  "Full Name",
				"avatar_url": "https://img.test/a.png",
			},
			"identities": []map[string]any{
				{"id": subject, "provider": provider},
				{"id": "unrelated", "provider": "email"},
			},
		},
	}
}

func TestExchangeCode_Normalizes(t *testing.T) {
	var gotAuth, gotGrant, gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotGrant = r.PostForm.Get("grant_type")
		gotCode = r.PostForm.Get("code")
		_ = json.NewEncoder(w).Encode(exchangePayload("Google", "g-sub-1"))
	}))
	defer srv.Close()

	c := New(srv.URL, "service-key", 5*time.Second)
	a, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "authorization_code", gotGrant)
	assert.Equal(t, "the-code", gotCode)

	assert.Equal(t, "google", a.Provider)
	assert.Equal(t, "g-sub-1", a.Subject)
	assert.Equal(t, "user@example.com", a.Email)
	assert.Equal(t, "Full Name", a.Name)
	assert.Equal(t, "at-1", a.AccessToken)
	assert.Equal(t, 3600, a.ExpiresIn)
}

func TestExchangeCode_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "invalid_grant",
			"error_description": "code expired",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", time.Second)
	_, err := c.ExchangeCode(context.Background(), "stale")
	require.ErrorIs(t, err, identity.ErrExchangeFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestExchangeCode_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", time.Second)
	_, err := c.ExchangeCode(context.Background(), "c")
	require.ErrorIs(t, err, identity.ErrExchangeFailed)
}

func TestExchangeCode_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, "k", time.Second)
	_, err := c.ExchangeCode(context.Background(), "c")
	require.ErrorIs(t, err, identity.ErrExchangeFailed)
}

func TestExchangeCode_MissingSubjectLeftEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := exchangePayload("kakao", "k-1")
		payload["user"].(map[string]any)["identities"] = []map[string]any{}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", time.Second)
	a, err := c.ExchangeCode(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "kakao", a.Provider)
	assert.Empty(t, a.Subject, "no identity entry means no subject, never a guess")
}

func TestIsolated_SharesNothingWithJar(t *testing.T) {
	c := New("https://auth.test", "k", time.Second)

	iso, ok := c.Isolated().(*Client)
	require.True(t, ok)
	assert.NotSame(t, c.http, iso.http)
	assert.Nil(t, iso.http.Jar)
	assert.Equal(t, c.BaseURL, iso.BaseURL)
}

func TestAuthorizeURL(t *testing.T) {
	c := New("https://auth.test/", "k", time.Second)

	got := c.AuthorizeURL("naver", "https://app.test/account/callback?state=s")
	assert.Equal(t,
		"https://auth.test/v1/authorize?provider=naver&redirect_to=https%3A%2F%2Fapp.test%2Faccount%2Fcallback%3Fstate%3Ds",
		got)
}
