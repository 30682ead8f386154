package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"resty.dev/v3"
)

// Endpoint describes one configured provider backend.
type Endpoint struct {
	BaseURL string
	APIKey  string
	// Model is the default model used when a request names none.
	Model   string
	Timeout time.Duration
}

// HTTPClient is a Client that talks JSON over HTTP to configured provider
// endpoints. One resty client per endpoint, reused across calls.
type HTTPClient struct {
	endpoints map[string]*restyEndpoint
}

type restyEndpoint struct {
	cfg    Endpoint
	client *resty.Client
}

// NewHTTPClient builds a client for the given endpoints, keyed by provider
// name.
func NewHTTPClient(endpoints map[string]Endpoint) *HTTPClient {
	c := &HTTPClient{endpoints: make(map[string]*restyEndpoint, len(endpoints))}
	for name, ep := range endpoints {
		rc := resty.New().
			SetBaseURL(ep.BaseURL).
			SetHeader("Content-Type", "application/json")
		if ep.APIKey != "" {
			rc.SetAuthToken(ep.APIKey)
		}
		if ep.Timeout > 0 {
			rc.SetTimeout(ep.Timeout)
		}
		c.endpoints[name] = &restyEndpoint{cfg: ep, client: rc}
	}
	return c
}

// Close releases the underlying HTTP clients.
func (c *HTTPClient) Close() {
	for _, ep := range c.endpoints {
		_ = ep.client.Close()
	}
}

// Generate implements Client.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (*Response, error) {
	return c.call(ctx, "/v1/generate", req)
}

// Transcribe implements Client.
func (c *HTTPClient) Transcribe(ctx context.Context, req Request) (*Response, error) {
	return c.call(ctx, "/v1/transcribe", req)
}

func (c *HTTPClient) call(ctx context.Context, path string, req Request) (*Response, error) {
	ep, ok := c.endpoints[req.Provider]
	if !ok {
		return nil, &Error{
			Kind:     KindInvalidCredentials,
			Provider: req.Provider,
			Model:    req.Model,
			Message:  fmt.Sprintf("provider %q is not configured", req.Provider),
		}
	}
	if req.Model == "" {
		req.Model = ep.cfg.Model
	}

	var out Response
	res, err := ep.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, classifyTransportError(err, req)
	}
	if res.IsError() {
		return nil, classifyStatus(res.StatusCode(), res.String(), req)
	}
	return &out, nil
}

// classifyTransportError maps network-level failures to error kinds.
func classifyTransportError(err error, req Request) *Error {
	kind := KindProviderError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &Error{Kind: kind, Provider: req.Provider, Model: req.Model, Message: err.Error()}
}

// classifyStatus maps HTTP status codes to error kinds.
func classifyStatus(status int, body string, req Request) *Error {
	kind := KindProviderError
	switch status {
	case 401, 403:
		kind = KindInvalidCredentials
	case 408, 504:
		kind = KindTimeout
	case 429:
		kind = KindRateLimited
	}
	return &Error{
		Kind:     kind,
		Provider: req.Provider,
		Model:    req.Model,
		Message:  fmt.Sprintf("HTTP %d: %s", status, body),
	}
}
