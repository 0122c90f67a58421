// Package cli wires the session client together behind the wbcms commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/wbcms-session/auth"
	"github.com/jrsteele09/wbcms-session/gateway"
	"github.com/jrsteele09/wbcms-session/guard"
	"github.com/jrsteele09/wbcms-session/internal/config"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/internal/logging"
	"github.com/jrsteele09/wbcms-session/profile"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/session/filerepo"
	"github.com/jrsteele09/wbcms-session/session/sqliterepo"
	"github.com/rs/zerolog"
)

// App holds one wired session client: the store loaded from disk, the
// gateway in front of the backend and everything driven through them.
type App struct {
	cfg config.Config
	log zerolog.Logger

	store    *session.Store
	gateway  *gateway.Gateway
	machine  *auth.Machine
	profiles *profile.Service
	history  *guard.MemoryHistory
	router   *guard.Router

	closers []func() error
}

// AppOption defines a function type to modify the App instance.
type AppOption func(*appOptions)

type appOptions struct {
	log    zerolog.Logger
	client *http.Client
	start  string
}

// WithLogger sets the logger every component derives its own from.
func WithLogger(l zerolog.Logger) AppOption {
	return func(o *appOptions) {
		o.log = l
	}
}

// WithHTTPClient sets the client used to reach the backend.
func WithHTTPClient(c *http.Client) AppOption {
	return func(o *appOptions) {
		o.client = c
	}
}

// WithStartPath sets the location the router starts at.
func WithStartPath(path string) AppOption {
	return func(o *appOptions) {
		o.start = path
	}
}

// NewApp opens the configured store, loads the persisted session and wires
// the gateway, auth machine, profile service and router over it.
func NewApp(ctx context.Context, cfg config.Config, options ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[NewApp] config is required")
	}
	opts := &appOptions{
		log:    zerolog.Nop(),
		client: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		start:  guard.RouteLanding,
	}
	for _, opt := range options {
		opt(opts)
	}

	a := &App{cfg: cfg, log: opts.log, history: guard.NewMemoryHistory(opts.start)}

	repo, err := a.openRepo()
	if err != nil {
		return nil, err
	}

	a.store, err = session.NewStore(repo,
		session.WithLogger(logging.Component(a.log, "session")),
		session.WithNavigator(session.NavigatorFunc(func(path string) {
			a.router.Replace(path)
		})),
	)
	if err != nil {
		return nil, a.closeWith(err)
	}

	a.router, err = guard.NewRouter(a.store, a.history, guard.WithLogger(logging.Component(a.log, "router")))
	if err != nil {
		return nil, a.closeWith(err)
	}
	stop := a.router.Watch(a.store)
	a.closers = append(a.closers, func() error {
		stop()
		return nil
	})

	a.gateway, err = gateway.New(cfg.GetBaseURL(), a.store,
		gateway.WithLogger(logging.Component(a.log, "gateway")),
		gateway.WithHTTPClient(opts.client),
		gateway.WithRefreshPath(cfg.GetEndpoints().Refresh),
		gateway.WithExpirySkew(cfg.GetRefreshSkew()),
	)
	if err != nil {
		return nil, a.closeWith(err)
	}

	a.machine, err = auth.NewMachine(a.gateway, a.store,
		auth.WithLogger(logging.Component(a.log, "auth")),
		auth.WithEndpoints(cfg.GetEndpoints()),
		auth.WithValidator(auth.NewValidator(cfg.GetAllowedDomains()...)),
	)
	if err != nil {
		return nil, a.closeWith(err)
	}

	a.profiles, err = profile.New(a.gateway, a.store,
		profile.WithLogger(logging.Component(a.log, "profile")),
		profile.WithEndpoints(cfg.GetEndpoints()),
	)
	if err != nil {
		return nil, a.closeWith(err)
	}

	a.store.Load(ctx)
	return a, nil
}

// Store is the session store.
func (a *App) Store() *session.Store {
	return a.store
}

// Router is the navigation router.
func (a *App) Router() *guard.Router {
	return a.router
}

// Close releases the store and stops watching the session.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) closeWith(err error) error {
	if closeErr := a.Close(); closeErr != nil {
		a.log.Err(closeErr).Msg("Failed to close store")
	}
	return err
}

func (a *App) openRepo() (session.Repo, error) {
	switch a.cfg.GetStoreDriver() {
	case config.StoreSQLite:
		repo, err := sqliterepo.Open(a.cfg.GetStorePath())
		if err != nil {
			return nil, fmt.Errorf("[NewApp] opening session database: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	case config.StoreMemory:
		repo, err := sqliterepo.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("[NewApp] opening in-memory store: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	default:
		repo, err := filerepo.New(a.cfg.GetStorePath(), filerepo.WithPassphrase(a.cfg.GetStoreKey()))
		if err != nil {
			return nil, fmt.Errorf("[NewApp] opening session directory: %w", err)
		}
		return repo, nil
	}
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
