package gateway

import (
	"context"
	"net/http"
)

type publicKey struct{}

// Public marks ctx so that calls made with it carry no credentials and are
// not intercepted on 401. Sign-in and the other anonymous endpoints use it:
// a 401 there means wrong credentials, not an expired session.
func Public(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey{}, true)
}

// IsPublic reports whether ctx was marked by Public.
func IsPublic(ctx context.Context) bool {
	public, _ := ctx.Value(publicKey{}).(bool)
	return public
}

// Transport exposes the gateway as an http.RoundTripper.
func (g *Gateway) Transport() http.RoundTripper {
	return roundTripper{g: g}
}

// Client returns an http.Client whose calls all go through the gateway.
func (g *Gateway) Client() *http.Client {
	return &http.Client{Transport: g.Transport(), Timeout: g.client.Timeout}
}

type roundTripper struct {
	g *Gateway
}

var _ http.RoundTripper = roundTripper{}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.g.Do(req)
}
