// Package guard decides, for every navigation, whether a view may render
// given the current session.
package guard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/users"
)

// Source is the read side of the session store.
type Source interface {
	Current() session.Session
	Pending() bool
}

// State is the session as a guard sees it.
type State struct {
	// Pending is true while the persisted session has not been loaded yet.
	Pending bool
	Session session.Session
}

// StateOf snapshots src.
func StateOf(src Source) State {
	return State{Pending: src.Pending(), Session: src.Current()}
}

// Target is the navigation being evaluated.
type Target struct {
	Path string
	// Intent is the path the user asked for before being sent to sign in.
	Intent string
}

// Action is what the view layer must do with a navigation.
type Action int

const (
	// Render permits the view.
	Render Action = iota
	// Wait renders a neutral waiting state until the session has loaded.
	Wait
	// Redirect sends the user to Decision.Location.
	Redirect
	// NotFound means no route matches the path.
	NotFound
)

func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not-found"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of a guard.
type Decision struct {
	Action   Action
	Location string
	// Replace means the redirect replaces the current history entry.
	Replace bool
	// Intent travels with the redirect so sign-in can return to it.
	Intent string
}

// Guard evaluates a navigation against the session.
type Guard interface {
	Evaluate(state State, target Target) Decision
}

// Func adapts a function to Guard.
type Func func(state State, target Target) Decision

func (f Func) Evaluate(state State, target Target) Decision {
	return f(state, target)
}

var (
	rendered = Decision{Action: Render}
	waiting  = Decision{Action: Wait}
)

func redirect(location, intent string) Decision {
	return Decision{Action: Redirect, Location: location, Replace: true, Intent: intent}
}

// Restricted lets only signed-in users through. Everyone else is sent to the
// login page with the requested path kept as the intent.
func Restricted() Guard {
	return Func(func(state State, target Target) Decision {
		switch {
		case state.Pending:
			return waiting
		case !state.Session.IsLoggedIn():
			return redirect(RouteLogin, target.Path)
		default:
			return rendered
		}
	})
}

// PublicOnly keeps signed-in users off the sign-in pages. They are sent to the
// intent they arrived with or else to their role's home. The landing page is
// exempt.
func PublicOnly() Guard {
	return Func(func(state State, target Target) Decision {
		switch {
		case state.Pending:
			return waiting
		case !state.Session.IsLoggedIn() || cleanPath(target.Path) == RouteLanding:
			return rendered
		}
		if intent := safeIntent(target.Intent); intent != "" && cleanPath(intent) != cleanPath(target.Path) {
			return redirect(intent, "")
		}
		return redirect(DefaultRoute(state.Session.Role), "")
	})
}

// RequireRole sends signed-in users without one of roles to their own home.
// Signed-out users are left to Restricted.
func RequireRole(roles ...users.Role) Guard {
	return Func(func(state State, target Target) Decision {
		if state.Pending {
			return waiting
		}
		if !state.Session.IsLoggedIn() || slices.Contains(roles, state.Session.Role) {
			return rendered
		}
		return redirect(DefaultRoute(state.Session.Role), "")
	})
}

// Chain runs guards in order. The first decision other than Render wins.
func Chain(guards ...Guard) Guard {
	return Func(func(state State, target Target) Decision {
		for _, g := range guards {
			if d := g.Evaluate(state, target); d.Action != Render {
				return d
			}
		}
		return rendered
	})
}

// DefaultRoute is the home page for role. Unknown roles land on the landing
// page, which PublicOnly never redirects away from.
func DefaultRoute(role users.Role) string {
	switch role {
	case users.RoleStudent:
		return RouteStudent
	case users.RoleLecturer:
		return RouteLecturer
	case users.RoleRegistrar:
		return RouteRegistrar
	default:
		return RouteLanding
	}
}

// safeIntent keeps only same-site absolute paths.
func safeIntent(intent string) string {
	if !strings.HasPrefix(intent, "/") || strings.HasPrefix(intent, "//") || strings.Contains(intent, `\`) {
		return ""
	}
	return intent
}
