// Package gate decides whether the current session may open a screen.
// Decisions are pure functions of a session snapshot.
package gate

import (
	"github.com/shopadmin/internal/session"
)

type Outcome int

const (
	Allow Outcome = iota
	Redirect
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "not_found"
	}
}

type Decision struct {
	Outcome Outcome
	// Target is set when Outcome is Redirect.
	Target string
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

func allow() Decision { return Decision{Outcome: Allow} }

func redirectTo(target string) Decision {
	return Decision{Outcome: Redirect, Target: target}
}

// RequireAuthenticated admits any signed-in account.
func RequireAuthenticated(s session.Snapshot) Decision {
	if !s.IsAuthenticated() {
		return redirectTo(session.LoginPath)
	}
	return allow()
}

// RequireAdmin admits administrators. Signed-in non-admins are sent to
// the dashboard rather than the login page.
func RequireAdmin(s session.Snapshot) Decision {
	if !s.IsAuthenticated() {
		return redirectTo(session.LoginPath)
	}
	if !s.IsAdmin() {
		return redirectTo(session.DashboardPath)
	}
	return allow()
}
