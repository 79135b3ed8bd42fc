package link

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	cachememory "github.com/dayoff-kr/moimlink/internal/cache/memory"
	"github.com/dayoff-kr/moimlink/internal/identity"
	"github.com/dayoff-kr/moimlink/internal/session"
	"github.com/dayoff-kr/moimlink/internal/store/core"
	memstore "github.com/dayoff-kr/moimlink/internal/store/memory"
)

// fakeGateway returns a canned assertion and records whether the exchange
// went through an isolated clone.
type fakeGateway struct {
	mu        sync.Mutex
	assertion identity.Assertion
	err       error

	directCalls   int
	isolatedCalls int
}

func (g *fakeGateway) ExchangeCode(_ context.Context, code string) (*identity.Assertion, error) {
	g.mu.Lock()
	g.directCalls++
	g.mu.Unlock()
	return g.result()
}

func (g *fakeGateway) result() (*identity.Assertion, error) {
	if g.err != nil {
		return nil, g.err
	}
	cp := g.assertion
	return &cp, nil
}

func (g *fakeGateway) Isolated() identity.Gateway { return &isolatedGateway{parent: g} }

func (g *fakeGateway) AuthorizeURL(provider, redirectTo string) string {
	return "https://auth.test/v1/authorize?" + url.Values{
		"provider":    {provider},
		"redirect_to": {redirectTo},
	}.Encode()
}

type isolatedGateway struct{ parent *fakeGateway }

func (g *isolatedGateway) ExchangeCode(_ context.Context, code string) (*identity.Assertion, error) {
	g.parent.mu.Lock()
	g.parent.isolatedCalls++
	g.parent.mu.Unlock()
	return g.parent.result()
}

func (g *isolatedGateway) Isolated() identity.Gateway { return g }

func (g *isolatedGateway) AuthorizeURL(provider, redirectTo string) string {
	return g.parent.AuthorizeURL(provider, redirectTo)
}

type fixture struct {
	svc      CallbackService
	gw       *fakeGateway
	repo     *memstore.Store
	sessions session.Store
}

func newFixture(t *testing.T, a identity.Assertion) *fixture {
	t.Helper()
	gw := &fakeGateway{assertion: a}
	repo := memstore.New()
	sessions := session.NewStore(cachememory.New("test:", time.Hour), time.Hour)
	svc := NewCallbackService(CallbackDeps{
		Gateway:     gw,
		Sessions:    sessions,
		Repo:        repo,
		StateSigner: NewHMACStateSigner([]byte("test-secret"), "test", time.Minute),
	})
	return &fixture{svc: svc, gw: gw, repo: repo, sessions: sessions}
}

func (f *fixture) signedInSession(t *testing.T, userID string) *session.Session {
	t.Helper()
	s, err := f.sessions.Create(context.Background(), userID)
	if err != nil {
		t.Fatalf("session create: %v", err)
	}
	return s
}

func googleAssertion(subject string) identity.Assertion {
	return identity.Assertion{
		Provider:    "google",
		Subject:     subject,
		Email:       "user@example.com",
		Name:        "User",
		AvatarURL:   "https://img.test/u.png",
		AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600,
	}
}

func TestCallback_SignIn_ProvisionsUserAndSession(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-1"))
	ctx := context.Background()

	res, err := f.svc.Callback(ctx, CallbackRequest{Code: "code-1"})
	if err != nil {
		t.Fatalf("Callback err: %v", err)
	}
	if res.Outcome != OutcomeSignedIn {
		t.Fatalf("outcome = %s, want signed-in", res.Outcome)
	}
	if res.Session == nil || res.Session.UserID == "" {
		t.Fatal("expected a fresh session bound to the provisioned user")
	}

	u, err := f.repo.GetUserByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("user not provisioned: %v", err)
	}
	if res.Session.UserID != u.ID {
		t.Fatalf("session user = %s, want %s", res.Session.UserID, u.ID)
	}

	// Sign-in resolves identity but never writes a link row.
	if n, _ := f.repo.CountLinks(ctx, u.ID); n != 0 {
		t.Fatalf("links after sign-in = %d, want 0", n)
	}
	if f.gw.isolatedCalls != 0 {
		t.Fatal("sign-in must use the primary gateway")
	}
}

func TestCallback_SignIn_ExistingLinkResolvesOwner(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-9"))
	ctx := context.Background()

	owner, err := f.repo.CreateUser(ctx, core.CreateUserInput{Email: "owner@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.repo.CreateLink(ctx, core.CreateLinkInput{UserID: owner.ID, Provider: "google", Subject: "sub-9"}); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.Callback(ctx, CallbackRequest{Code: "code"})
	if err != nil {
		t.Fatalf("Callback err: %v", err)
	}
	if res.Session.UserID != owner.ID {
		t.Fatalf("resolved user = %s, want link owner %s", res.Session.UserID, owner.ID)
	}
}

func TestCallback_SignIn_ExchangeFailure(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-1"))
	f.gw.err = identity.ErrExchangeFailed

	_, err := f.svc.Callback(context.Background(), CallbackRequest{Code: "bad"})
	if !errors.Is(err, ErrCallbackExchangeFailed) {
		t.Fatalf("got %v, want ErrCallbackExchangeFailed", err)
	}
}

func TestCallback_Link_CreatesRow(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-2"))
	ctx := context.Background()
	sess := f.signedInSession(t, "user-a")

	res, err := f.svc.Callback(ctx, CallbackRequest{Code: "code-2", Session: sess})
	if err != nil {
		t.Fatalf("Callback err: %v", err)
	}
	if res.Outcome != OutcomeLinked {
		t.Fatalf("outcome = %s, want linked", res.Outcome)
	}
	if res.Provider != "google" {
		t.Fatalf("provider = %s, want google", res.Provider)
	}
	if res.Session != nil {
		t.Fatal("link path must not mint a session")
	}

	row, err := f.repo.FindLink(ctx, "user-a", "google", "sub-2")
	if err != nil {
		t.Fatalf("row missing: %v", err)
	}
	if row.Email == nil || *row.Email != "user@example.com" {
		t.Fatal("display metadata not persisted")
	}

	// The caller's session must survive untouched.
	got, err := f.sessions.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("session gone after linking: %v", err)
	}
	if got.UserID != "user-a" {
		t.Fatalf("session user changed to %s", got.UserID)
	}
	if f.gw.isolatedCalls != 1 || f.gw.directCalls != 0 {
		t.Fatalf("exchange isolation: direct=%d isolated=%d", f.gw.directCalls, f.gw.isolatedCalls)
	}
}

func TestCallback_Link_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-3"))
	ctx := context.Background()
	sess := f.signedInSession(t, "user-a")

	if _, err := f.svc.Callback(ctx, CallbackRequest{Code: "c1", Session: sess}); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Callback(ctx, CallbackRequest{Code: "c2", Session: sess})
	if err != nil {
		t.Fatalf("second Callback err: %v", err)
	}
	if res.Outcome != OutcomeAlreadyLinked {
		t.Fatalf("outcome = %s, want already-linked", res.Outcome)
	}
	if n, _ := f.repo.CountLinks(ctx, "user-a"); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestCallback_Link_SubjectClaimedByOtherUser(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-4"))
	ctx := context.Background()

	other := f.signedInSession(t, "user-b")
	if _, err := f.svc.Callback(ctx, CallbackRequest{Code: "c1", Session: other}); err != nil {
		t.Fatal(err)
	}

	mine := f.signedInSession(t, "user-a")
	_, err := f.svc.Callback(ctx, CallbackRequest{Code: "c2", Session: mine})
	if !errors.Is(err, ErrCallbackIdentityClaimed) {
		t.Fatalf("got %v, want ErrCallbackIdentityClaimed", err)
	}

	// The claim attempt must not move the link.
	row, err := f.repo.FindLinkBySubject(ctx, "google", "sub-4")
	if err != nil {
		t.Fatal(err)
	}
	if row.UserID != "user-b" {
		t.Fatalf("owner = %s, want user-b", row.UserID)
	}
}

func TestCallback_Link_IncompleteAssertion(t *testing.T) {
	a := googleAssertion("")
	f := newFixture(t, a)
	ctx := context.Background()
	sess := f.signedInSession(t, "user-a")

	_, err := f.svc.Callback(ctx, CallbackRequest{Code: "opaque-code", Session: sess})
	if !errors.Is(err, ErrCallbackIncompleteAssertion) {
		t.Fatalf("got %v, want ErrCallbackIncompleteAssertion", err)
	}
	// The raw code must never be stored as a subject.
	if _, err := f.repo.FindLinkBySubject(ctx, "google", "opaque-code"); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("authorization code leaked into the repository")
	}
	if n, _ := f.repo.CountLinks(ctx, "user-a"); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}

func TestCallback_Link_ExchangeFailureWritesNothing(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-5"))
	f.gw.err = identity.ErrExchangeFailed
	ctx := context.Background()
	sess := f.signedInSession(t, "user-a")

	_, err := f.svc.Callback(ctx, CallbackRequest{Code: "c", Session: sess})
	if !errors.Is(err, ErrCallbackExchangeFailed) {
		t.Fatalf("got %v, want ErrCallbackExchangeFailed", err)
	}
	if n, _ := f.repo.CountLinks(ctx, "user-a"); n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
	if got, err := f.sessions.Get(ctx, sess.ID); err != nil || got.UserID != "user-a" {
		t.Fatal("session must survive a failed link attempt")
	}
}

func TestCallback_Link_ConcurrentDoubleSubmit(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-6"))
	ctx := context.Background()
	sess := f.signedInSession(t, "user-a")

	const submits = 8
	outcomes := make(chan Outcome, submits)
	errs := make(chan error, submits)

	var wg sync.WaitGroup
	for i := 0; i < submits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Callback(ctx, CallbackRequest{Code: "c", Session: sess})
			if err != nil {
				errs <- err
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		t.Fatalf("double submit must resolve benignly, got %v", err)
	}

	linked, already := 0, 0
	for o := range outcomes {
		switch o {
		case OutcomeLinked:
			linked++
		case OutcomeAlreadyLinked:
			already++
		default:
			t.Fatalf("unexpected outcome %s", o)
		}
	}
	if linked != 1 {
		t.Fatalf("linked outcomes = %d, want exactly 1", linked)
	}
	if already != submits-1 {
		t.Fatalf("already-linked outcomes = %d, want %d", already, submits-1)
	}
	if n, _ := f.repo.CountLinks(ctx, "user-a"); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestCallback_StateProviderHintDoesNotOverrideExchange(t *testing.T) {
	f := newFixture(t, googleAssertion("sub-7"))
	ctx := context.Background()
	sess := f.signedInSession(t, "user-a")

	signer := NewHMACStateSigner([]byte("test-secret"), "test", time.Minute)
	state, err := signer.SignState(StateClaims{Provider: "kakao", Next: "/after"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.Callback(ctx, CallbackRequest{Code: "c", State: state, Session: sess})
	if err != nil {
		t.Fatalf("Callback err: %v", err)
	}
	// The exchange said google; the kakao hint loses.
	if res.Provider != "google" {
		t.Fatalf("provider = %s, want google", res.Provider)
	}
	if _, err := f.repo.FindLink(ctx, "user-a", "google", "sub-7"); err != nil {
		t.Fatalf("link not stored under exchanged provider: %v", err)
	}
}
