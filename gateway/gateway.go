// Package gateway sends every backend call on behalf of the current session.
//
// It attaches the access token held by the session store, renews it through a
// single shared refresh when the backend answers 401, and replays the call once
// with the renewed token. When renewal is impossible the session is cleared
// and the call fails with ErrSessionExpired.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/wbcms-session/internal/errors"
	"github.com/jrsteele09/wbcms-session/token"
	"github.com/jrsteele09/wbcms-session/token/refresh"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// DefaultRefreshPath is the token-refresh endpoint relative to the base URL.
const DefaultRefreshPath = "/token/refresh"

// ErrSessionExpired is returned when the backend rejects the credentials and
// they cannot be renewed. The session has been cleared by the time it is seen.
var ErrSessionExpired = errors.Wrapf(errors.ErrToken, "session expired")

// SessionStore is the part of session.Store the gateway needs.
type SessionStore interface {
	Credentials() (access, refresh string, gen uint64)
	ReplaceAccessToken(ctx context.Context, gen uint64, access string) error
	ClearGeneration(ctx context.Context, gen uint64) bool
}

// Gateway wraps outgoing calls with credential handling.
type Gateway struct {
	baseURL     string
	refreshPath string
	store       SessionStore
	client      *http.Client
	exchanger   *refresh.Exchanger
	log         zerolog.Logger
	skew        time.Duration
	nowTime     func() time.Time
	flights     singleflight.Group
}

// Option defines a function type to modify the Gateway instance.
type Option func(*Gateway)

// WithLogger sets the gateway's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) {
		g.log = l
	}
}

// WithHTTPClient sets the client used for backend calls, including refresh.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithRefreshPath overrides DefaultRefreshPath.
func WithRefreshPath(path string) Option {
	return func(g *Gateway) {
		g.refreshPath = path
	}
}

// WithExpirySkew renews the access token before sending when its exp claim
// falls within skew. Zero (the default) renews only on 401.
func WithExpirySkew(skew time.Duration) Option {
	return func(g *Gateway) {
		g.skew = skew
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Gateway) {
		g.nowTime = nowFunc
	}
}

// New creates a Gateway for the backend at baseURL.
func New(baseURL string, store SessionStore, options ...Option) (*Gateway, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("[gateway.New] base URL is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[gateway.New] session store is required")
	}

	g := &Gateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: DefaultRefreshPath,
		store:       store,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         zerolog.Nop(),
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(g)
	}

	exchanger, err := refresh.NewExchanger(g.URL(g.refreshPath), g.client)
	if err != nil {
		return nil, err
	}
	g.exchanger = exchanger
	return g, nil
}

// URL resolves path against the base URL. Absolute URLs are returned unchanged.
func (g *Gateway) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}

// Refreshes returns how many refresh calls have been issued.
func (g *Gateway) Refreshes() int64 {
	return g.exchanger.Calls()
}

// Do sends req with the session's credentials. A 401 on the first attempt
// triggers one shared refresh and a single replay; a 401 on the replay, a
// missing refresh token or a failed refresh clears the session and returns
// ErrSessionExpired.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if err := rewindable(req); err != nil {
		return nil, err
	}

	if IsPublic(ctx) {
		return g.send(req, "")
	}

	access, _, gen := g.store.Credentials()
	if access != "" && g.skew > 0 && token.ExpiresWithin(token.ExpiresAt(access), g.nowTime(), g.skew) {
		var err error
		if access, gen, err = g.renew(ctx, access, gen); err != nil {
			return nil, err
		}
	}

	for attempt := 0; ; attempt++ {
		resp, err := g.send(req, access)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}
		discard(resp)

		if attempt > 0 {
			g.log.Info().Str("request_id", req.Header.Get(RequestIDHeader)).Msg("Replayed request rejected, clearing session")
			g.store.ClearGeneration(context.WithoutCancel(ctx), gen)
			return nil, errors.Wrapf(ErrSessionExpired, "[Gateway] %s %s rejected after refresh", req.Method, req.URL.Path)
		}
		if access, gen, err = g.renew(ctx, access, gen); err != nil {
			return nil, err
		}
	}
}

// renew returns an access token to replace sent. If another caller already
// renewed it the store's token is used as is; otherwise the caller joins the
// refresh flight for sent, starting it if none is running.
func (g *Gateway) renew(ctx context.Context, sent string, gen uint64) (string, uint64, error) {
	current, refreshToken, currentGen := g.store.Credentials()
	if current != "" && current != sent {
		return current, currentGen, nil
	}
	if refreshToken == "" {
		g.store.ClearGeneration(context.WithoutCancel(ctx), gen)
		return "", 0, fmt.Errorf("[Gateway] %w: %w", ErrSessionExpired, errors.ErrNoRefreshToken)
	}

	// The flight outlives any single caller: one caller giving up must not
	// fail the refresh the others are waiting on.
	flightCtx := context.WithoutCancel(ctx)
	results := g.flights.DoChan(sent, func() (any, error) {
		return g.refresh(flightCtx, sent)
	})

	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return "", 0, res.Err
		}
		r := res.Val.(renewal)
		return r.access, r.gen, nil
	}
}

type renewal struct {
	access string
	gen    uint64
}

// refresh exchanges the refresh token for a new access token unless an
// earlier flight for sent has already replaced it.
func (g *Gateway) refresh(ctx context.Context, sent string) (renewal, error) {
	current, refreshToken, gen := g.store.Credentials()
	if current != "" && current != sent {
		return renewal{access: current, gen: gen}, nil
	}
	if refreshToken == "" {
		return renewal{}, fmt.Errorf("[Gateway] %w: %w", ErrSessionExpired, errors.ErrNoRefreshToken)
	}

	g.log.Debug().Msg("Refreshing access token")

	access, err := g.exchanger.Exchange(ctx, refreshToken)
	if err != nil {
		g.log.Warn().Err(err).Msg("Token refresh failed, clearing session")
		g.store.ClearGeneration(ctx, gen)
		return renewal{}, errors.Wrapf(ErrSessionExpired, "[Gateway] refresh: %s", err)
	}

	if err := g.store.ReplaceAccessToken(ctx, gen, access); err != nil {
		if errors.Is(err, errors.ErrSessionChanged) {
			return renewal{}, errors.Wrapf(ErrSessionExpired, "[Gateway] session changed during refresh")
		}
		g.log.Err(err).Msg("Refreshed token not persisted")
	}
	return renewal{access: access, gen: gen}, nil
}

func (g *Gateway) send(req *http.Request, access string) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrapf(errors.ErrTransport, "[Gateway] rewinding body: %s", err)
		}
		out.Body = body
	}

	if access != "" {
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(out)
	} else {
		out.Header.Del("Authorization")
	}

	resp, err := g.client.Do(out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(errors.ErrTransport, "[Gateway] %s %s: %s", out.Method, out.URL.Path, err)
	}

	g.log.Debug().
		Str("request_id", out.Header.Get(RequestIDHeader)).
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Int("status", resp.StatusCode).
		Msg("Backend call")
	return resp, nil
}

// rewindable makes sure req's body can be sent more than once.
func rewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return errors.Wrapf(errors.ErrTransport, "[Gateway] buffering body: %s", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
