package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/wbcms-session/apimodel"
	"github.com/jrsteele09/wbcms-session/internal/errors"
)

const maxResponseSize = 4 << 20

// Call sends in as a JSON body to path and decodes a 2xx response into out.
// A nil in sends no body, a nil out discards the response. Non-2xx answers
// return an *apimodel.ServerError carrying the backend's message.
func (g *Gateway) Call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(errors.ErrMalformedPayload, "[Gateway.Call] encoding request: %s", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.URL(path), body)
	if err != nil {
		return errors.Wrapf(errors.ErrTransport, "[Gateway.Call] creating request: %s", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrapf(errors.ErrTransport, "[Gateway.Call] reading response: %s", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apimodel.NewServerError(resp.StatusCode, data, "")
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(errors.ErrMalformedPayload, "[Gateway.Call] decoding %s %s: %s", method, path, err)
	}
	return nil
}

// GetJSON decodes the response of a GET to path into out.
func (g *Gateway) GetJSON(ctx context.Context, path string, out any) error {
	return g.Call(ctx, http.MethodGet, path, nil, out)
}

// PostJSON posts in to path and decodes the response into out.
func (g *Gateway) PostJSON(ctx context.Context, path string, in, out any) error {
	return g.Call(ctx, http.MethodPost, path, in, out)
}

// PatchJSON patches path with in and decodes the response into out.
func (g *Gateway) PatchJSON(ctx context.Context, path string, in, out any) error {
	return g.Call(ctx, http.MethodPatch, path, in, out)
}
