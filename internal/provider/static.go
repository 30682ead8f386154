package provider

import (
	"context"
	"strings"
)

// StaticClient is a scripted Client for tests and offline development. Calls
// resolve against canned responses keyed by prompt substring, falling back to
// a default echo.
type StaticClient struct {
	// Responses maps a prompt substring to the text returned for it.
	Responses map[string]string
	// Err, when set, is returned from every call.
	Err error
	// GenerateFn, when set, overrides Generate entirely.
	GenerateFn func(ctx context.Context, req Request) (*Response, error)
}

// Generate implements Client.
func (s *StaticClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if s.GenerateFn != nil {
		return s.GenerateFn(ctx, req)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for needle, text := range s.Responses {
		if strings.Contains(req.Prompt, needle) {
			return &Response{Text: text}, nil
		}
	}
	return &Response{Text: req.Prompt}, nil
}

// Transcribe implements Client.
func (s *StaticClient) Transcribe(ctx context.Context, req Request) (*Response, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, _ := req.Payload["transcript"].(string)
	return &Response{Text: text}, nil
}
