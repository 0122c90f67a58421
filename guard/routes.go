package guard

import (
	"strings"

	"github.com/jrsteele09/wbcms-session/users"
)

// Route path constants
const (
	// Public Routes - only reachable while signed out (the landing page excepted)
	RouteLanding        = "/"
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password/{token}"

	// Role Routes - the home page of each role
	RouteStudent   = "/student"
	RouteLecturer  = "/lecturer"
	RouteRegistrar = "/registrar"
)

// Route binds a path pattern to its guard.
//
// Patterns are matched segment by segment: "{name}" matches exactly one
// non-empty segment and a trailing "/*" matches the prefix and anything below it.
type Route struct {
	Pattern string
	Guard   Guard
}

// Routes is an ordered route table; the first matching route wins.
type Routes []Route

// DefaultRoutes is the application's route table.
func DefaultRoutes() Routes {
	return Routes{
		{Pattern: RouteLanding, Guard: PublicOnly()},
		{Pattern: RouteLogin, Guard: PublicOnly()},
		{Pattern: RouteSignup, Guard: PublicOnly()},
		{Pattern: RouteForgotPassword, Guard: PublicOnly()},
		{Pattern: RouteResetPassword, Guard: PublicOnly()},
		{Pattern: RouteLecturer + "/*", Guard: Chain(Restricted(), RequireRole(users.RoleLecturer))},
		{Pattern: RouteStudent + "/*", Guard: Chain(Restricted(), RequireRole(users.RoleStudent))},
		{Pattern: RouteRegistrar + "/*", Guard: Chain(Restricted(), RequireRole(users.RoleRegistrar))},
	}
}

// Match returns the first route matching path.
func (r Routes) Match(path string) (Route, bool) {
	path = cleanPath(path)
	for _, route := range r {
		if matchPattern(route.Pattern, path) {
			return route, true
		}
	}
	return Route{}, false
}

// Evaluate runs the guard of the route matching target.Path.
func (r Routes) Evaluate(state State, target Target) Decision {
	route, ok := r.Match(target.Path)
	if !ok {
		return Decision{Action: NotFound}
	}
	if route.Guard == nil {
		return rendered
	}
	return route.Guard.Evaluate(state, target)
}

// cleanPath drops the query, fragment and trailing slash.
func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func matchPattern(pattern, path string) bool {
	if rest, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == rest || strings.HasPrefix(path, rest+"/")
	}

	want := strings.Split(pattern, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}
