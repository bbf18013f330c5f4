// Package providers holds the shared HTTP transport every vendor client
// (anthropic, openai, gemini, deepseek, zhipu) builds on: a thin
// *http.Client plus a per-vendor request decorator for auth headers.
// Completion shaping (the wire format each vendor speaks) lives one
// package down, in each vendor's own completion.go, so this file never
// imports a vendor package.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// Decorator stamps vendor-specific auth onto an outgoing request —
// Anthropic's x-api-key/anthropic-version pair, OpenAI/DeepSeek/Zhipu's
// Bearer token, Gemini's query-string API key. Mirrors Rust's
// `Provider::on_request`.
type Decorator func(*http.Request)

// HTTPClient is the shared vendor transport: a base URL, an *http.Client
// with the default network timeout, and a Decorator applied to every
// request.
type HTTPClient struct {
	BaseURL   string
	Decorate  Decorator
	transport *http.Client
}

// New builds an HTTPClient against baseURL, decorating every request with
// decorate.
func New(baseURL string, decorate Decorator) *HTTPClient {
	return &HTTPClient{
		BaseURL:  baseURL,
		Decorate: decorate,
		transport: &http.Client{
			Timeout: constants.DefaultNetworkTimeout,
		},
	}
}

// PostJSON POSTs body (marshaled to JSON) to BaseURL+path and decodes the
// JSON response into out. A non-2xx response is surfaced with the
// response body attached for the caller to classify (auth failures in
// particular are distinguished by status code per vendor).
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body any, out any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Decorate != nil {
		c.Decorate(req)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return resp, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decode response body: %w", err)
		}
	}
	return resp, nil
}

// StatusError carries a non-2xx HTTP response so callers can distinguish
// AuthDenied (401/403) from a generic Transport failure.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// DefaultTimeout is exported for providers that need to build their own
// *http.Client (none currently do; kept for parity with the 30s default
// used by every other network-bound operation).
const DefaultTimeout = 30 * time.Second

// ClassifyError turns a StatusError's 401/403 into vcserrors.AuthDenied and
// anything else (including non-HTTP transport failures) into
// vcserrors.Transport, shared across every vendor's
// completion.go so the classification policy lives in one place.
func ClassifyError(vendor string, err error) error {
	if se, ok := err.(*StatusError); ok && (se.StatusCode == 401 || se.StatusCode == 403) {
		return vcserrors.AuthDenied(vendor)
	}
	return vcserrors.Transport(fmt.Sprintf("%s completion request", vendor), err)
}
