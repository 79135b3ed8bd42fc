package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cachememory "github.com/dayoff-kr/moimlink/internal/cache/memory"
)

func TestStore_CreateGetDelete(t *testing.T) {
	st := NewStore(cachememory.New("t:", time.Hour), time.Hour)
	ctx := context.Background()

	sess, err := st.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if sess.ID == "" || sess.UserID != "user-1" {
		t.Fatalf("session = %+v", sess)
	}
	if !sess.Valid(time.Now()) {
		t.Fatal("fresh session should be valid")
	}

	got, err := st.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.UserID != "user-1" || got.ID != sess.ID {
		t.Fatalf("got = %+v", got)
	}

	if err := st.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, err := st.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	st := NewStore(cachememory.New("t:", time.Hour), time.Hour)

	if _, err := st.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := st.Get(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty id: got %v, want ErrNotFound", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	st := NewStore(cachememory.New("t:", time.Hour), 10*time.Millisecond)

	sess, err := st.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)

	_, err = st.Get(context.Background(), sess.ID)
	if !errors.Is(err, ErrExpired) && !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want expired or evicted", err)
	}
	if sess.Valid(time.Now()) {
		t.Fatal("session past its expiry must not be valid")
	}
}

func TestCookieRoundTrip(t *testing.T) {
	cfg := CookieConfig{Name: "sid", SameSite: "lax", Secure: true, TTL: time.Hour}
	sess := &Session{ID: "abc", UserID: "u", ExpiresAt: time.Now().Add(time.Hour)}

	ck := BuildCookie(sess, cfg)
	if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie attrs = %+v", ck)
	}
	if ck.Path != "/" {
		t.Fatalf("path = %q", ck.Path)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(ck)
	if got := IDFromRequest(r, cfg); got != "abc" {
		t.Fatalf("IDFromRequest = %q", got)
	}
}

func TestIDFromRequest_Absent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := IDFromRequest(r, CookieConfig{Name: "sid"}); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
