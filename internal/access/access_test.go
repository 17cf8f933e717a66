package access

import (
	"testing"

	"github.com/vtabsquare/officetool/internal/domain"
)

func user(admin, manager, l3 bool) *domain.User {
	return &domain.User{
		ID:    "EMP001",
		Roles: domain.RoleFlags{Admin: admin, Manager: manager, L3: l3},
	}
}

func TestManagerDeniedAdminRoute(t *testing.T) {
	d := Decide("/leave-team", user(false, true, false))
	if d.Allowed {
		t.Fatal("manager must not reach /leave-team")
	}
	if d.Redirect != "/leave-my" {
		t.Fatalf("redirect = %q, want /leave-my", d.Redirect)
	}
}

func TestEmployeesPrefixCoversSubpaths(t *testing.T) {
	plain := user(false, false, false)
	for _, path := range []string{"/employees", "/employees/EMP007", "/employees/EMP007/projects"} {
		d := Decide(path, plain)
		if d.Allowed {
			t.Errorf("%s: plain user allowed", path)
		}
		if d.Redirect != "/" {
			t.Errorf("%s: redirect = %q, want /", path, d.Redirect)
		}
	}
	if d := Decide("/employees", user(false, true, false)); !d.Allowed {
		t.Error("manager must reach /employees")
	}
}

func TestDecisionIsTotal(t *testing.T) {
	paths := []string{
		"/", "/employees", "/interns", "/team-management",
		"/time-team-timesheet", "/time-clients", "/time-my-timesheet",
		"/leave-team", "/leave-my", "/login-settings",
		"/attendance-team", "/attendance-my", "/onboarding",
		"/my-tasks", "/meet", "/inbox", "/clients", "/unknown",
	}
	users := []*domain.User{
		nil,
		user(false, false, false),
		user(false, true, false),
		user(true, false, false),
		user(false, false, true),
		user(true, true, true),
	}
	for _, path := range paths {
		for _, u := range users {
			d := Decide(path, u)
			if !d.Allowed && d.Redirect == "" {
				t.Errorf("Decide(%s) denied without a redirect target", path)
			}
		}
	}
}

func TestTeamTimesheetRedirect(t *testing.T) {
	d := Decide("/time-team-timesheet", user(false, false, false))
	if d.Allowed || d.Redirect != "/time-my-timesheet" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	d = Decide("/time-clients", user(false, false, false))
	if d.Allowed || d.Redirect != "/time-my-timesheet" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestOnboardingRequiresL3(t *testing.T) {
	if d := Decide("/onboarding", user(true, true, false)); d.Allowed {
		t.Fatal("admin without L3 must not reach /onboarding")
	}
	if d := Decide("/onboarding", user(false, false, true)); !d.Allowed {
		t.Fatal("L3 must reach /onboarding")
	}
}
