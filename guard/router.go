package guard

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/rs/zerolog"
)

// DefaultMaxRedirects bounds how many redirects one navigation may follow.
const DefaultMaxRedirects = 5

// Entry is one history entry.
type Entry struct {
	Path   string
	Intent string
}

// History is the navigation stack the router drives.
type History interface {
	Push(e Entry)
	Replace(e Entry)
	Current() Entry
}

// Subscriber publishes session changes. *session.Store implements it.
type Subscriber interface {
	Subscribe(fn func(session.Session)) func()
}

// Router applies guard decisions to a History.
type Router struct {
	routes       Routes
	source       Source
	history      History
	log          zerolog.Logger
	maxRedirects int

	mu       sync.Mutex
	decision Decision
}

var _ session.Navigator = (*Router)(nil)

// RouterOption defines a function type to modify the Router instance.
type RouterOption func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l zerolog.Logger) RouterOption {
	return func(r *Router) {
		r.log = l
	}
}

// WithRoutes replaces the default route table.
func WithRoutes(routes Routes) RouterOption {
	return func(r *Router) {
		r.routes = routes
	}
}

// WithMaxRedirects sets how many redirects one navigation may follow.
func WithMaxRedirects(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

// NewRouter creates a Router over source and history.
func NewRouter(source Source, history History, options ...RouterOption) (*Router, error) {
	if source == nil {
		return nil, fmt.Errorf("[NewRouter] session source is required")
	}
	if history == nil {
		return nil, fmt.Errorf("[NewRouter] history is required")
	}
	r := &Router{
		routes:       DefaultRoutes(),
		source:       source,
		history:      history,
		log:          zerolog.Nop(),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Navigate pushes path and follows any redirects its guards issue. The
// returned decision is the one for the final location.
func (r *Router) Navigate(path string) (Decision, error) {
	return r.visit(Entry{Path: path}, r.history.Push)
}

// Replace navigates to path in place of the current entry.
func (r *Router) Replace(path string) {
	if _, err := r.visit(Entry{Path: path}, r.history.Replace); err != nil {
		r.log.Err(err).Str("path", path).Msg("Navigation failed")
	}
}

// Refresh re-evaluates the current location, for example after the session
// changed.
func (r *Router) Refresh() (Decision, error) {
	current := r.history.Current()
	if current.Path == "" {
		return Decision{Action: NotFound}, nil
	}
	return r.visit(current, nil)
}

// Watch re-evaluates the current location on every session change until the
// returned function is called.
func (r *Router) Watch(sub Subscriber) func() {
	return sub.Subscribe(func(session.Session) {
		if _, err := r.Refresh(); err != nil {
			r.log.Err(err).Msg("Re-evaluating location failed")
		}
	})
}

// Location is the current history entry.
func (r *Router) Location() Entry {
	return r.history.Current()
}

// Decision is the decision for the current location.
func (r *Router) Decision() Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decision
}

func (r *Router) visit(entry Entry, write func(Entry)) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if write != nil {
		write(entry)
	}
	for hops := 0; ; hops++ {
		d := r.routes.Evaluate(StateOf(r.source), Target{Path: entry.Path, Intent: entry.Intent})
		if d.Action != Redirect {
			r.decision = d
			r.log.Debug().Str("path", entry.Path).Str("action", d.Action.String()).Msg("Navigated")
			return d, nil
		}
		if hops == r.maxRedirects {
			r.decision = Decision{Action: NotFound}
			return r.decision, errors.Wrapf(errors.ErrRedirectLoop, "[Router] %s after %d redirects", entry.Path, hops)
		}

		entry = Entry{Path: d.Location, Intent: d.Intent}
		if d.Replace {
			r.history.Replace(entry)
		} else {
			r.history.Push(entry)
		}
	}
}

// MemoryHistory is an in-process History.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []Entry
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory creates a history, optionally starting at path.
func NewMemoryHistory(path string) *MemoryHistory {
	h := &MemoryHistory{}
	if path != "" {
		h.entries = append(h.entries, Entry{Path: path})
	}
	return h
}

func (h *MemoryHistory) Push(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
}

func (h *MemoryHistory) Replace(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		h.entries = append(h.entries, e)
		return
	}
	h.entries[len(h.entries)-1] = e
}

func (h *MemoryHistory) Current() Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Entry{}
	}
	return h.entries[len(h.entries)-1]
}

// Back pops the current entry and returns the new current one.
func (h *MemoryHistory) Back() Entry {
	h.mu.Lock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.mu.Unlock()
	return h.Current()
}

// Entries returns a copy of the stack, oldest first.
func (h *MemoryHistory) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}
