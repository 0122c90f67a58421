package guard_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/wbcms-session/guard"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/session/repofake"
	"github.com/jrsteele09/wbcms-session/users"
	"github.com/stretchr/testify/require"
)

type routerFixture struct {
	store   *session.Store
	history *guard.MemoryHistory
	router  *guard.Router
}

func setupRouterFixture(t *testing.T, start string) *routerFixture {
	t.Helper()

	f := &routerFixture{history: guard.NewMemoryHistory(start)}
	store, err := session.NewStore(repofake.NewFakeRecordRepo(), session.WithNavigator(session.NavigatorFunc(func(path string) {
		f.router.Replace(path)
	})))
	require.NoError(t, err)
	f.store = store

	f.router, err = guard.NewRouter(store, f.history)
	require.NoError(t, err)
	t.Cleanup(f.router.Watch(store))
	return f
}

func (f *routerFixture) signIn(t *testing.T, role users.Role) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), session.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		UserID:       "7",
		Email:        "a@cit.mak.ac.ug",
		Role:         role,
	}))
}

func TestNewRouterValidatesArguments(t *testing.T) {
	store, err := session.NewStore(repofake.NewFakeRecordRepo())
	require.NoError(t, err)

	_, err = guard.NewRouter(nil, guard.NewMemoryHistory(""))
	require.Error(t, err)
	_, err = guard.NewRouter(store, nil)
	require.Error(t, err)
}

func TestWaitsUntilSessionLoads(t *testing.T) {
	f := setupRouterFixture(t, "")

	d, err := f.router.Navigate("/lecturer/courses")
	require.NoError(t, err)
	require.Equal(t, guard.Wait, d.Action)
	require.Equal(t, "/lecturer/courses", f.router.Location().Path)

	f.store.Load(context.Background())

	require.Equal(t, guard.Entry{Path: guard.RouteLogin, Intent: "/lecturer/courses"}, f.router.Location())
	require.Equal(t, guard.Render, f.router.Decision().Action)
}

func TestSignInReturnsToIntent(t *testing.T) {
	f := setupRouterFixture(t, "/")
	f.store.Load(context.Background())

	d, err := f.router.Navigate("/lecturer/courses/4")
	require.NoError(t, err)
	require.Equal(t, guard.Render, d.Action)
	require.Equal(t, []guard.Entry{
		{Path: "/"},
		{Path: guard.RouteLogin, Intent: "/lecturer/courses/4"},
	}, f.history.Entries(), "the protected path is replaced, not stacked")

	f.signIn(t, users.RoleLecturer)

	require.Equal(t, guard.Entry{Path: "/lecturer/courses/4"}, f.router.Location())
	require.Equal(t, guard.Render, f.router.Decision().Action)
	require.Len(t, f.history.Entries(), 2)
}

func TestSignedInRouteIsPermittedImmediately(t *testing.T) {
	f := setupRouterFixture(t, guard.RouteLogin)
	f.store.Load(context.Background())

	f.signIn(t, users.RoleLecturer)
	require.Equal(t, "/lecturer", f.router.Location().Path)

	d, err := f.router.Navigate("/lecturer/courses")
	require.NoError(t, err)
	require.Equal(t, guard.Render, d.Action)
}

func TestPublicPagesBounceSignedInUsers(t *testing.T) {
	f := setupRouterFixture(t, "/")
	f.store.Load(context.Background())
	f.signIn(t, users.RoleStudent)

	d, err := f.router.Navigate(guard.RouteSignup)
	require.NoError(t, err)
	require.Equal(t, guard.Render, d.Action)
	require.Equal(t, []guard.Entry{{Path: "/"}, {Path: "/student"}}, f.history.Entries())

	require.Equal(t, guard.Entry{Path: "/"}, f.history.Back(), "back skips the bounced page")
	d, err = f.router.Refresh()
	require.NoError(t, err)
	require.Equal(t, guard.Render, d.Action)
}

func TestClearSendsToLogin(t *testing.T) {
	f := setupRouterFixture(t, "/")
	f.store.Load(context.Background())
	f.signIn(t, users.RoleRegistrar)

	_, err := f.router.Navigate("/registrar/complaints/3")
	require.NoError(t, err)
	require.Equal(t, guard.Render, f.router.Decision().Action)

	require.True(t, f.store.Clear(context.Background()))
	require.Equal(t, guard.RouteLogin, f.router.Location().Path)
	require.Equal(t, guard.Render, f.router.Decision().Action)
}

func TestUnknownPath(t *testing.T) {
	f := setupRouterFixture(t, "/")
	f.store.Load(context.Background())

	d, err := f.router.Navigate("/nowhere")
	require.NoError(t, err)
	require.Equal(t, guard.NotFound, d.Action)
}

func TestRedirectLoopIsBounded(t *testing.T) {
	store, err := session.NewStore(repofake.NewFakeRecordRepo())
	require.NoError(t, err)
	store.Load(context.Background())

	bounce := func(to string) guard.Guard {
		return guard.Func(func(guard.State, guard.Target) guard.Decision {
			return guard.Decision{Action: guard.Redirect, Location: to, Replace: true}
		})
	}
	history := guard.NewMemoryHistory("")
	router, err := guard.NewRouter(store, history,
		guard.WithMaxRedirects(3),
		guard.WithRoutes(guard.Routes{
			{Pattern: "/a", Guard: bounce("/b")},
			{Pattern: "/b", Guard: bounce("/a")},
		}),
	)
	require.NoError(t, err)

	d, err := router.Navigate("/a")
	require.True(t, errors.Is(err, errors.ErrRedirectLoop))
	require.Equal(t, guard.NotFound, d.Action)
	require.Len(t, history.Entries(), 1)
}
