package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vtabsquare/officetool/internal/domain"
	"github.com/vtabsquare/officetool/internal/store"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	durable, err := store.OpenDurable(filepath.Join(t.TempDir(), "portal.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	m, err := NewManager(durable, []byte("test-secret"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestLoginNormalizesAndPersists(t *testing.T) {
	m := testManager(t)
	if err := m.Login(domain.User{ID: "7", Name: "Asha"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	current := m.Current()
	if current == nil || current.ID != "EMP007" {
		t.Fatalf("current = %+v", current)
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("expected cleared session")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(t)
	now := time.Now()
	user := domain.User{ID: "emp9", Name: "B", Email: "b@x.com", Roles: domain.RoleFlags{Manager: true}}
	token, err := m.IssueToken(user, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parsed, renewed, err := m.ParseToken(token, now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ID != "EMP9" || !parsed.Roles.Manager || parsed.Roles.Admin {
		t.Fatalf("parsed = %+v", parsed)
	}
	if renewed != "" {
		t.Fatal("fresh token must not be renewed")
	}
}

func TestTokenSlidingRenewal(t *testing.T) {
	m := testManager(t)
	issued := time.Now()
	token, err := m.IssueToken(domain.User{ID: "EMP001"}, issued)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Six and a half days later, under a day remains.
	later := issued.Add(6*24*time.Hour + 12*time.Hour)
	_, renewed, err := m.ParseToken(token, later)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if renewed == "" {
		t.Fatal("expected a renewed token near expiry")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m := testManager(t)
	token, _ := m.IssueToken(domain.User{ID: "EMP001"}, time.Now())
	if _, _, err := m.ParseToken(token+"x", time.Now()); err == nil {
		t.Fatal("expected rejection")
	}
}
