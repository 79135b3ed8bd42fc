package link

import "testing"

func TestSafeNext(t *testing.T) {
	const fb = "/profile/edit?tab=linked-accounts"
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", fb},
		{"plain path", "/groups/42", "/groups/42"},
		{"path with query", "/profile/edit?tab=linked-accounts", "/profile/edit?tab=linked-accounts"},
		{"absolute url", "https://evil.example/", fb},
		{"protocol relative", "//evil.example/phish", fb},
		{"backslash trick", "/\\evil.example", fb},
		{"relative", "profile", fb},
		{"whitespace", "   ", fb},
		{"scheme smuggled", "/a\njavascript:alert(1)", fb},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SafeNext(tc.raw, fb); got != tc.want {
				t.Fatalf("SafeNext(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestSafeNext_EmptyFallbackUsesDefault(t *testing.T) {
	if got := SafeNext("://bad", ""); got != DefaultNext {
		t.Fatalf("got %q, want %q", got, DefaultNext)
	}
}

func TestBuildRedirect(t *testing.T) {
	got := BuildRedirect("/profile/edit?tab=linked-accounts", OutcomeLinked, "google")
	want := "/profile/edit?provider=google&status=linked&tab=linked-accounts"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildRedirect_NoProvider(t *testing.T) {
	got := BuildRedirect("/home", OutcomeError, "")
	if got != "/home?status=error" {
		t.Fatalf("got %q", got)
	}
}
