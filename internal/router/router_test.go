package router

import (
	"testing"

	"github.com/vtabsquare/officetool/internal/domain"
)

type stubPage struct {
	name   string
	leaves int
}

func (p *stubPage) Name() string { return p.name }
func (p *stubPage) OnLeave()     { p.leaves++ }

func admin() *domain.User {
	return &domain.User{ID: "EMP001", Roles: domain.RoleFlags{Admin: true}}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"#":                         "/",
		"#/":                        "/",
		"#/leave-my":                "/leave-my",
		"#/time-projects?id=P1&tab": "/time-projects",
		"/inbox?x=1":                "/inbox",
		"meet":                      "/meet",
	}
	for location, want := range cases {
		if got := NormalizePath(location); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", location, got, want)
		}
	}
}

func TestLazyLoadRunsOnce(t *testing.T) {
	rt := New("/")
	loads := 0
	rt.Handle("/", func() Page { loads++; return &stubPage{name: "home"} })

	for i := 0; i < 3; i++ {
		res := rt.Navigate("#/", admin())
		if res.Page == nil || res.Page.Name() != "home" {
			t.Fatalf("navigation %d: %+v", i, res)
		}
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}
}

func TestUnknownPathFallsBackToHome(t *testing.T) {
	rt := New("/")
	rt.Handle("/", func() Page { return &stubPage{name: "home"} })

	res := rt.Navigate("#/no-such-page", admin())
	if res.Denied || res.Page == nil || res.Page.Name() != "home" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestDeniedRouteNeverLoads(t *testing.T) {
	rt := New("/")
	rt.Handle("/", func() Page { return &stubPage{name: "home"} })
	loaded := false
	rt.Handle("/leave-team", func() Page { loaded = true; return &stubPage{name: "leave-team"} })

	manager := &domain.User{ID: "EMP002", Roles: domain.RoleFlags{Manager: true}}
	res := rt.Navigate("#/leave-team", manager)
	if !res.Denied {
		t.Fatal("expected denial")
	}
	if res.Redirect != "/leave-my" {
		t.Fatalf("redirect = %q, want /leave-my", res.Redirect)
	}
	if loaded {
		t.Fatal("denied route's loader must not run")
	}
}

func TestCleanupHooksRunOnNavigation(t *testing.T) {
	rt := New("/")
	rt.Handle("/", func() Page { return &stubPage{name: "home"} })
	rt.Handle("/meet", func() Page { return &stubPage{name: "meet"} })

	calls := 0
	rt.RegisterCleanup("call-dispatch", func() { calls++ })

	rt.Navigate("#/meet", admin())
	if calls != 1 {
		t.Fatalf("cleanup ran %d times after first navigation, want 1", calls)
	}
	rt.Navigate("#/", admin())
	if calls != 2 {
		t.Fatalf("cleanup ran %d times after second navigation, want 2", calls)
	}

	// Unregistering stops further invocations.
	rt.RegisterCleanup("call-dispatch", nil)
	rt.Navigate("#/meet", admin())
	if calls != 2 {
		t.Fatalf("cleanup ran after unregister")
	}
}

func TestOnLeaveFiresForPreviousPage(t *testing.T) {
	rt := New("/")
	home := &stubPage{name: "home"}
	meet := &stubPage{name: "meet"}
	rt.Handle("/", func() Page { return home })
	rt.Handle("/meet", func() Page { return meet })

	rt.Navigate("#/meet", admin())
	rt.Navigate("#/", admin())
	if meet.leaves != 1 {
		t.Fatalf("meet.OnLeave ran %d times, want 1", meet.leaves)
	}
	if home.leaves != 0 {
		t.Fatalf("home.OnLeave ran %d times, want 0", home.leaves)
	}
}
