package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/users"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// LoginPath is where a cleared session sends the user.
const LoginPath = "/login"

// Navigator moves the UI to a path, replacing the current history entry.
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Replace(path string) { f(path) }

// Store is the single source of truth for the current Session.
//
// Every mutation goes through its methods and is persisted before the method
// returns. The generation counter changes whenever the identity changes
// (load, save, clear) so callers holding an older generation can detect that
// their view of the session is stale.
type Store struct {
	repo      Repo
	log       zerolog.Logger
	navigator Navigator
	nowTime   func() time.Time

	mu         sync.RWMutex
	current    Session
	generation uint64
	loaded     bool

	subsMu  sync.Mutex
	subs    map[uint64]func(Session)
	nextSub uint64
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// WithNavigator sets where Clear sends the user.
func WithNavigator(n Navigator) StoreOption {
	return func(s *Store) {
		s.navigator = n
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// NewStore creates a Store over repo. The store starts pending and
// unauthenticated until Load is called.
func NewStore(repo Repo, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("[NewStore] repo is required")
	}
	s := &Store{
		repo:      repo,
		log:       zerolog.Nop(),
		navigator: NavigatorFunc(func(string) {}),
		nowTime:   time.Now,
		current:   Unauthenticated(),
		subs:      make(map[uint64]func(Session)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load reads the persisted record. Absent, unreadable or incomplete records
// all yield Unauthenticated; Load never fails.
func (s *Store) Load(ctx context.Context) Session {
	loaded := Unauthenticated()

	data, err := s.repo.Get(ctx, RecordKey)
	switch {
	case errors.Is(err, errors.ErrRecordNotFound):
	case err != nil:
		s.log.Warn().Err(err).Msg("Session record unreadable, starting logged out")
	default:
		if loaded, err = decodeRecord(data); err != nil {
			s.log.Debug().Err(err).Msg("Discarding invalid session record")
			loaded = Unauthenticated()
			if err := s.repo.Delete(ctx, RecordKey); err != nil {
				s.log.Debug().Err(err).Msg("Failed to delete invalid session record")
			}
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.generation++
	s.loaded = true
	s.mu.Unlock()

	s.notify(loaded)
	return loaded.clone()
}

// Save replaces the current session with sess and persists it.
// The in-memory session is updated even when persisting fails.
func (s *Store) Save(ctx context.Context, sess Session) error {
	sess = sess.clone()

	s.mu.Lock()
	s.current = sess
	s.generation++
	s.loaded = true
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(sess)
	return err
}

// Clear logs the user out: the record is erased, the session reset and the
// navigator sent to the login page. Only the first of several concurrent
// calls logs out and returns true.
func (s *Store) Clear(ctx context.Context) bool {
	s.mu.Lock()
	return s.clearLocked(ctx)
}

// ClearGeneration clears only if the session is still the one identified by gen.
func (s *Store) ClearGeneration(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	return s.clearLocked(ctx)
}

// clearLocked is entered with mu held and releases it.
// The record is erased even when no session is held, so a clear before Load
// cannot be undone by it.
func (s *Store) clearLocked(ctx context.Context) bool {
	if err := s.repo.Delete(ctx, RecordKey); err != nil && !errors.Is(err, errors.ErrRecordNotFound) {
		s.log.Err(err).Msg("Failed to erase session record")
	}
	if !s.current.IsLoggedIn() {
		s.mu.Unlock()
		return false
	}
	s.current = Unauthenticated()
	s.generation++
	s.mu.Unlock()

	s.log.Info().Msg("Session cleared")
	s.navigator.Replace(LoginPath)
	s.notify(Unauthenticated())
	return true
}

// ReplaceAccessToken swaps only the access token, provided the session is
// still generation gen.
func (s *Store) ReplaceAccessToken(ctx context.Context, gen uint64, access string) error {
	s.mu.Lock()
	if s.generation != gen || !s.current.IsLoggedIn() {
		s.mu.Unlock()
		return errors.ErrSessionChanged
	}
	s.current.AccessToken = access
	err := s.persistLocked(ctx)
	current := s.current.clone()
	s.mu.Unlock()

	s.notify(current)
	return err
}

// UpdateProfile merges the completed profile into the session and marks it as
// having a profile. No re-authentication is involved.
func (s *Store) UpdateProfile(ctx context.Context, update users.ProfileUpdate) error {
	s.mu.Lock()
	if !s.current.IsLoggedIn() {
		s.mu.Unlock()
		return errors.ErrNotLoggedIn
	}
	if update.RegistrationNumber != nil {
		s.current.RegistrationNumber = update.RegistrationNumber
	}
	if update.StudentNumber != nil {
		s.current.StudentNumber = update.StudentNumber
	}
	if update.ProgrammeID != nil {
		s.current.ProgrammeID = update.ProgrammeID
	}
	s.current.HasProfile = true
	s.current = s.current.clone()
	err := s.persistLocked(ctx)
	current := s.current.clone()
	s.mu.Unlock()

	s.notify(current)
	return err
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := encodeRecord(s.current, s.nowTime())
	if err != nil {
		return errors.Wrapf(err, "[Store] encoding session record")
	}
	if err := s.repo.Put(ctx, RecordKey, data); err != nil {
		s.log.Err(err).Msg("Failed to persist session record")
		return errors.Wrapf(err, "[Store] persisting session record")
	}
	return nil
}

// Current returns a copy of the current session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Generation identifies the current session identity.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Credentials returns the token pair together with the generation they belong to.
func (s *Store) Credentials() (access, refresh string, gen uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken, s.current.RefreshToken, s.generation
}

// AccessToken returns the current access token, "" when logged out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

// RefreshToken returns the current refresh token, "" when logged out.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RefreshToken
}

// Pending is true until the persisted record has been loaded.
func (s *Store) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded
}

var _ oauth2.TokenSource = (*Store)(nil)

// Token implements oauth2.TokenSource over the current session.
func (s *Store) Token() (*oauth2.Token, error) {
	current := s.Current()
	if !current.IsLoggedIn() {
		return nil, errors.ErrNotLoggedIn
	}
	return current.OAuth2Token(), nil
}

// Subscribe registers fn to be called with the new session after every
// change. The returned function unregisters it.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify(sess Session) {
	s.subsMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(sess.clone())
	}
}
