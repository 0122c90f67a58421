// Package refresh exchanges a refresh token for a new access token.
package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/jrsteele09/wbcms-session/apimodel"
	"github.com/jrsteele09/wbcms-session/internal/errors"
)

// maxBodySize bounds how much of a refresh response is read.
const maxBodySize = 1 << 20

// Exchanger performs the token-refresh call. It holds no session state:
// coalescing and applying the result is the gateway's job.
type Exchanger struct {
	endpoint string
	client   *http.Client
	calls    atomic.Int64
}

// NewExchanger returns an Exchanger posting to endpoint (an absolute URL).
// A nil client uses http.DefaultClient.
func NewExchanger(endpoint string, client *http.Client) (*Exchanger, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.Wrapf(errors.ErrTransport, "[NewExchanger] endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Exchanger{endpoint: endpoint, client: client}, nil
}

// Exchange posts refreshToken and returns the new access token. Every failure
// wraps errors.ErrToken: a network error, a non-2xx status and a body without
// an access token are all equally unrecoverable for the session.
func (e *Exchanger) Exchange(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] %s", errors.ErrNoRefreshToken)
	}
	e.calls.Add(1)

	body, err := json.Marshal(apimodel.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] encoding request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] creating request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] %s", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] reading response: %s", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := apimodel.ExtractMessage(data)
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] refresh rejected with %d %s", resp.StatusCode, msg)
	}

	var out apimodel.RefreshResponse
	if err := json.Unmarshal(data, &out); err != nil || strings.TrimSpace(out.Access) == "" {
		return "", errors.Wrapf(errors.ErrToken, "[Exchange] %s", errors.ErrMalformedPayload)
	}
	return out.Access, nil
}

// Calls returns how many refresh requests have been issued.
func (e *Exchanger) Calls() int64 {
	return e.calls.Load()
}
