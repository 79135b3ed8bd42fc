package link

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	svc "github.com/dayoff-kr/moimlink/internal/http/services/link"
	"github.com/dayoff-kr/moimlink/internal/session"
)

type stubCallbackService struct {
	gotReq svc.CallbackRequest
	res    *svc.CallbackResult
	err    error
	called bool
}

func (s *stubCallbackService) Callback(_ context.Context, req svc.CallbackRequest) (*svc.CallbackResult, error) {
	s.called = true
	s.gotReq = req
	return s.res, s.err
}

func newCallbackController(s *stubCallbackService) *CallbackController {
	cookie := session.CookieConfig{Name: "sid", TTL: time.Hour}
	return NewCallbackController(s, cookie, "")
}

func TestCallback_MissingCodeRedirectsPlain(t *testing.T) {
	stub := &stubCallbackService{}
	c := newCallbackController(stub)

	r := httptest.NewRequest(http.MethodGet, "/account/callback?next=/groups/1&provider=google", nil)
	w := httptest.NewRecorder()
	c.Callback(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/groups/1" {
		t.Fatalf("location = %q, want bare next without status", loc)
	}
	if stub.called {
		t.Fatal("no exchange may happen without a code")
	}
}

func TestCallback_UnsafeNextFallsBack(t *testing.T) {
	stub := &stubCallbackService{}
	c := newCallbackController(stub)

	r := httptest.NewRequest(http.MethodGet, "/account/callback?next=https://evil.example/", nil)
	w := httptest.NewRecorder()
	c.Callback(w, r)

	if loc := w.Header().Get("Location"); loc != svc.DefaultNext {
		t.Fatalf("location = %q, want default next", loc)
	}
}

func TestCallback_SignInSetsCookieAndStatus(t *testing.T) {
	sess := &session.Session{ID: "sess-1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	stub := &stubCallbackService{res: &svc.CallbackResult{
		Outcome:  svc.OutcomeSignedIn,
		Provider: "google",
		Session:  sess,
	}}
	c := newCallbackController(stub)

	r := httptest.NewRequest(http.MethodGet, "/account/callback?code=abc&next=/home", nil)
	w := httptest.NewRecorder()
	c.Callback(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/home?provider=google&status=signed-in" {
		t.Fatalf("location = %q", loc)
	}

	var sid string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "sid" {
			sid = ck.Value
		}
	}
	if sid != "sess-1" {
		t.Fatalf("session cookie = %q, want sess-1", sid)
	}
	if stub.gotReq.Code != "abc" {
		t.Fatalf("service got code %q", stub.gotReq.Code)
	}
}

func TestCallback_LinkedLeavesCookiesAlone(t *testing.T) {
	stub := &stubCallbackService{res: &svc.CallbackResult{
		Outcome:  svc.OutcomeLinked,
		Provider: "kakao",
	}}
	c := newCallbackController(stub)

	r := httptest.NewRequest(http.MethodGet, "/account/callback?code=abc", nil)
	w := httptest.NewRecorder()
	c.Callback(w, r)

	if len(w.Result().Cookies()) != 0 {
		t.Fatal("link outcome must not touch cookies")
	}
	want := "/profile/edit?provider=kakao&status=linked&tab=linked-accounts"
	if loc := w.Header().Get("Location"); loc != want {
		t.Fatalf("location = %q, want %q", loc, want)
	}
}

func TestCallback_ServiceErrorCollapsesToErrorStatus(t *testing.T) {
	stub := &stubCallbackService{err: svc.ErrCallbackIdentityClaimed}
	c := newCallbackController(stub)

	r := httptest.NewRequest(http.MethodGet, "/account/callback?code=abc&next=/home&provider=naver", nil)
	w := httptest.NewRecorder()
	c.Callback(w, r)

	if loc := w.Header().Get("Location"); loc != "/home?provider=naver&status=error" {
		t.Fatalf("location = %q", loc)
	}
}

func TestCallback_MethodNotAllowed(t *testing.T) {
	c := newCallbackController(&stubCallbackService{})

	r := httptest.NewRequest(http.MethodPost, "/account/callback", nil)
	w := httptest.NewRecorder()
	c.Callback(w, r)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
