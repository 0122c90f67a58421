// Package auth drives the sign-in, sign-up and password recovery actions and
// tracks the request state of each.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jrsteele09/wbcms-session/apimodel"
	"github.com/jrsteele09/wbcms-session/gateway"
	"github.com/jrsteele09/wbcms-session/internal/config"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/session"
	"github.com/jrsteele09/wbcms-session/token"
	"github.com/jrsteele09/wbcms-session/users"
	"github.com/rs/zerolog"
)

// Phase is where an action kind is in its lifecycle.
type Phase int

const (
	Idle Phase = iota
	Pending
	Fulfilled
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// RequestState is the observable state of one action kind.
type RequestState struct {
	Phase Phase
	// ErrorMessage is set while Rejected and cleared by the next dispatch or DismissError.
	ErrorMessage string
	// Message is the confirmation shown after a Fulfilled password or sign-up action.
	Message string
}

// IsPending reports whether a request of this kind is in flight.
func (s RequestState) IsPending() bool {
	return s.Phase == Pending
}

// Backend sends JSON requests. *gateway.Gateway implements it.
type Backend interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

// SessionStore receives the session established by sign-in.
type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
}

// Machine runs the authentication actions.
type Machine struct {
	backend   Backend
	store     SessionStore
	endpoints config.Endpoints
	validator *Validator
	log       zerolog.Logger

	mu     sync.Mutex
	states map[Kind]RequestState

	subsMu  sync.Mutex
	subs    map[uint64]func(Kind, RequestState)
	nextSub uint64
}

// MachineOption defines a function type to modify the Machine instance.
type MachineOption func(*Machine)

// WithLogger sets the machine's logger.
func WithLogger(l zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.log = l
	}
}

// WithValidator replaces the default policy validator.
func WithValidator(v *Validator) MachineOption {
	return func(m *Machine) {
		if v != nil {
			m.validator = v
		}
	}
}

// WithEndpoints overrides the default backend paths.
func WithEndpoints(e config.Endpoints) MachineOption {
	return func(m *Machine) {
		m.endpoints = e
	}
}

// NewMachine creates a Machine. By default registrations are restricted to the
// configured university domains.
func NewMachine(backend Backend, store SessionStore, options ...MachineOption) (*Machine, error) {
	if backend == nil {
		return nil, fmt.Errorf("[NewMachine] backend is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[NewMachine] session store is required")
	}

	cfg := config.Default()
	m := &Machine{
		backend:   backend,
		store:     store,
		endpoints: cfg.GetEndpoints(),
		validator: NewValidator(cfg.GetAllowedDomains()...),
		log:       zerolog.Nop(),
		states:    make(map[Kind]RequestState),
		subs:      make(map[uint64]func(Kind, RequestState)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// SignIn exchanges credentials for a session and commits it to the store.
func (m *Machine) SignIn(ctx context.Context, creds Credentials) (session.Session, error) {
	m.begin(KindSignIn)

	if err := m.validator.ValidateCredentials(creds); err != nil {
		return session.Unauthenticated(), m.reject(KindSignIn, err)
	}

	var resp apimodel.SignInResponse
	if err := m.backend.PostJSON(gateway.Public(ctx), m.endpoints.Login, creds.wire(), &resp); err != nil {
		return session.Unauthenticated(), m.reject(KindSignIn, err)
	}

	s, err := sessionFromSignIn(&resp)
	if err != nil {
		return session.Unauthenticated(), m.reject(KindSignIn, err)
	}
	if err := m.store.Save(ctx, s); err != nil {
		m.log.Warn().Err(err).Msg("Signed in but session not persisted")
	}

	m.log.Info().Str("role", s.Role.String()).Msg("Signed in")
	m.fulfill(KindSignIn, "")
	return s, nil
}

// SignUp registers an account. It never establishes a session: tokens in the
// registration response are ignored and a sign-in must follow.
func (m *Machine) SignUp(ctx context.Context, reg Registration) (*apimodel.SignUpResponse, error) {
	m.begin(KindSignUp)

	if err := m.validator.ValidateRegistration(reg); err != nil {
		return nil, m.reject(KindSignUp, err)
	}

	resp := &apimodel.SignUpResponse{}
	if err := m.backend.PostJSON(gateway.Public(ctx), m.endpoints.Signup, reg.credentials().wire(), resp); err != nil {
		return nil, m.reject(KindSignUp, err)
	}

	msg := resp.Message
	if msg == "" {
		msg = SignUpDoneMsg
	}
	m.fulfill(KindSignUp, msg)
	return resp, nil
}

// SignUpAndSignIn registers the account and then signs in with the same
// credentials.
func (m *Machine) SignUpAndSignIn(ctx context.Context, reg Registration) (session.Session, error) {
	if _, err := m.SignUp(ctx, reg); err != nil {
		return session.Unauthenticated(), err
	}
	return m.SignIn(ctx, reg.credentials())
}

// ForgotPassword requests a reset link for email. A successful response always
// yields ForgotPasswordSentMsg whatever the backend says, so the outcome does
// not reveal whether the account exists.
func (m *Machine) ForgotPassword(ctx context.Context, email string) (string, error) {
	m.begin(KindForgotPassword)

	if err := m.validator.ValidateEmail(email); err != nil {
		return "", m.reject(KindForgotPassword, err)
	}

	req := apimodel.ForgotPasswordRequest{Email: strings.TrimSpace(email)}
	if err := m.backend.PostJSON(gateway.Public(ctx), m.endpoints.ForgotPassword, req, nil); err != nil {
		return "", m.reject(KindForgotPassword, err)
	}

	m.fulfill(KindForgotPassword, ForgotPasswordSentMsg)
	return ForgotPasswordSentMsg, nil
}

// ResetPassword sets a new password. The password policy is checked first and
// nothing is sent when it fails.
func (m *Machine) ResetPassword(ctx context.Context, req ResetRequest) (string, error) {
	m.begin(KindResetPassword)

	if err := m.validator.ValidateReset(req); err != nil {
		return "", m.reject(KindResetPassword, err)
	}

	var resp apimodel.MessageResponse
	path := fmt.Sprintf(m.endpoints.ResetPassword, url.PathEscape(strings.TrimSpace(req.Token)))
	body := apimodel.ResetPasswordRequest{Password: req.Password}
	if err := m.backend.PostJSON(gateway.Public(ctx), path, body, &resp); err != nil {
		return "", m.reject(KindResetPassword, err)
	}

	msg := resp.Message
	if msg == "" {
		msg = ResetPasswordDoneMsg
	}
	m.fulfill(KindResetPassword, msg)
	return msg, nil
}

// State returns the current state of kind.
func (m *Machine) State(kind Kind) RequestState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[kind]
}

// DismissError clears a Rejected kind back to Idle.
func (m *Machine) DismissError(kind Kind) {
	m.mu.Lock()
	st := m.states[kind]
	if st.Phase != Rejected {
		m.mu.Unlock()
		return
	}
	st = RequestState{Phase: Idle}
	m.states[kind] = st
	m.mu.Unlock()

	m.notify(kind, st)
}

// Subscribe registers fn to be called after every state change. The returned
// function unregisters it.
func (m *Machine) Subscribe(fn func(Kind, RequestState)) func() {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

func (m *Machine) begin(kind Kind) {
	m.set(kind, RequestState{Phase: Pending})
}

func (m *Machine) fulfill(kind Kind, msg string) {
	m.set(kind, RequestState{Phase: Fulfilled, Message: msg})
}

// reject records the user-facing message for err and returns err.
func (m *Machine) reject(kind Kind, err error) error {
	msg := Message(kind, err)
	m.log.Debug().Err(err).Str("action", string(kind)).Msg("Action rejected")
	m.set(kind, RequestState{Phase: Rejected, ErrorMessage: msg})
	return err
}

func (m *Machine) set(kind Kind, st RequestState) {
	m.mu.Lock()
	m.states[kind] = st
	m.mu.Unlock()
	m.notify(kind, st)
}

func (m *Machine) notify(kind Kind, st RequestState) {
	m.subsMu.Lock()
	fns := make([]func(Kind, RequestState), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(kind, st)
	}
}

// Message is the user-facing text for an action failure: every violated
// policy rule, else the backend's own message, else a generic one per kind.
func Message(kind Kind, err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Error()
	}
	var server *apimodel.ServerError
	if errors.As(err, &server) {
		if msg := server.UserMessage(); msg != "" {
			return msg
		}
	}
	if msg, ok := fallbackMessages[kind]; ok {
		return msg
	}
	return err.Error()
}

func sessionFromSignIn(resp *apimodel.SignInResponse) (session.Session, error) {
	if !resp.Complete() {
		return session.Session{}, errors.Wrapf(errors.ErrMalformedPayload, "[SignIn] incomplete sign-in response")
	}

	u := resp.User
	role := users.ParseRole(u.Role)
	if role == "" {
		if claims, err := token.Inspect(resp.Access); err == nil {
			role = users.ParseRole(claims.Role)
		}
	}
	if role == "" {
		return session.Session{}, errors.Wrapf(errors.ErrMalformedPayload, "[SignIn] sign-in response has no role")
	}

	return session.Session{
		AccessToken:        resp.Access,
		RefreshToken:       resp.Refresh,
		UserID:             string(u.UserID),
		Email:              u.Email,
		Role:               role,
		HasProfile:         bool(u.HasProfile),
		RegistrationNumber: u.RegistrationNumber,
		StudentNumber:      u.StudentNumber,
		ProgrammeID:        u.Programme.IntPtr(),
	}, nil
}
