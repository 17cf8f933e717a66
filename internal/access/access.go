package access

import (
	"strings"

	"github.com/vtabsquare/officetool/internal/domain"
)

func IsAdmin(u *domain.User) bool {
	return u != nil && u.Roles.Admin
}

func IsManagerOrAdmin(u *domain.User) bool {
	return u != nil && (u.Roles.Manager || u.Roles.Admin)
}

func IsL3(u *domain.User) bool {
	return u != nil && u.Roles.L3
}

// Rule guards a route. Prefix rules cover the path and everything beneath it.
type Rule struct {
	Path     string
	Prefix   bool
	Allowed  func(*domain.User) bool
	Redirect string
}

// Rules is the per-route access table. Paths without a rule are open to any
// authenticated user.
var Rules = []Rule{
	{Path: "/employees", Prefix: true, Allowed: IsManagerOrAdmin, Redirect: "/"},
	{Path: "/interns", Allowed: IsManagerOrAdmin, Redirect: "/"},
	{Path: "/team-management", Allowed: IsManagerOrAdmin, Redirect: "/"},
	{Path: "/time-team-timesheet", Allowed: IsManagerOrAdmin, Redirect: "/time-my-timesheet"},
	{Path: "/time-clients", Allowed: IsManagerOrAdmin, Redirect: "/time-my-timesheet"},
	{Path: "/leave-team", Allowed: IsAdmin, Redirect: "/leave-my"},
	{Path: "/login-settings", Allowed: IsAdmin, Redirect: "/"},
	{Path: "/attendance-team", Allowed: IsAdmin, Redirect: "/attendance-my"},
	{Path: "/onboarding", Allowed: IsL3, Redirect: "/"},
}

// Decision is the total access-control outcome for a (path, user) pair.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Decide resolves the access table for path. Every input yields either an
// allow or a named redirect; unmatched paths are always allowed.
func Decide(path string, u *domain.User) Decision {
	for _, rule := range Rules {
		matched := path == rule.Path
		if !matched && rule.Prefix {
			matched = strings.HasPrefix(path, rule.Path)
		}
		if !matched {
			continue
		}
		if rule.Allowed(u) {
			return Decision{Allowed: true}
		}
		return Decision{Allowed: false, Redirect: rule.Redirect}
	}
	return Decision{Allowed: true}
}
