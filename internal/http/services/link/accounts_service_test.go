package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dayoff-kr/moimlink/internal/store/core"
	memstore "github.com/dayoff-kr/moimlink/internal/store/memory"
)

func seedLinks(t *testing.T, repo *memstore.Store, userID string, subjects ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(subjects))
	for _, sub := range subjects {
		la, err := repo.CreateLink(context.Background(), core.CreateLinkInput{
			UserID: userID, Provider: "google", Subject: sub,
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, la.ID)
		time.Sleep(2 * time.Millisecond)
	}
	return ids
}

func TestAccounts_List(t *testing.T) {
	repo := memstore.New()
	svc := NewAccountsService(AccountsDeps{Repo: repo})
	seedLinks(t, repo, "u1", "s1", "s2")
	seedLinks(t, repo, "u2", "other")

	links, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("len = %d, want 2", len(links))
	}
	if links[0].Subject != "s2" {
		t.Fatalf("order: got %s first, want s2", links[0].Subject)
	}
}

func TestAccounts_Unlink(t *testing.T) {
	repo := memstore.New()
	svc := NewAccountsService(AccountsDeps{Repo: repo})
	ids := seedLinks(t, repo, "u1", "s1", "s2")

	if err := svc.Unlink(context.Background(), "u1", ids[0]); err != nil {
		t.Fatalf("Unlink err: %v", err)
	}
	if n, _ := repo.CountLinks(context.Background(), "u1"); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestAccounts_Unlink_LastIdentityRejected(t *testing.T) {
	repo := memstore.New()
	svc := NewAccountsService(AccountsDeps{Repo: repo})
	ids := seedLinks(t, repo, "u1", "only")

	err := svc.Unlink(context.Background(), "u1", ids[0])
	if !errors.Is(err, ErrLastLinkedIdentity) {
		t.Fatalf("got %v, want ErrLastLinkedIdentity", err)
	}
	if n, _ := repo.CountLinks(context.Background(), "u1"); n != 1 {
		t.Fatal("last identity must stay")
	}
}

func TestAccounts_Unlink_OtherUsersLinkHidden(t *testing.T) {
	repo := memstore.New()
	svc := NewAccountsService(AccountsDeps{Repo: repo})
	ids := seedLinks(t, repo, "owner", "s1", "s2")

	err := svc.Unlink(context.Background(), "intruder", ids[0])
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestAccounts_Unlink_Missing(t *testing.T) {
	repo := memstore.New()
	svc := NewAccountsService(AccountsDeps{Repo: repo})

	if err := svc.Unlink(context.Background(), "u1", "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}
