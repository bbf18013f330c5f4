package wire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// HTTPSClient is the smart-http transport variant, following the
// `<repo>/info/refs?service=...` and `<repo>/git-<service>` request-path
// convention. Auth uses an oauth2.TokenSource plugged into the
// http.Client, generalized to any bearer-token remote.
type HTTPSClient struct {
	BaseURL string
	HTTP    *http.Client
	// TokenSource, if set, supplies a bearer token added to every
	// request.
	TokenSource oauth2.TokenSource
}

// NewHTTPSClient builds an HTTPSClient. If tokenSource is non-nil the
// client wraps http.DefaultTransport with oauth2's transport so every
// request carries "Authorization: Bearer <token>".
func NewHTTPSClient(baseURL string, tokenSource oauth2.TokenSource) *HTTPSClient {
	httpClient := &http.Client{Timeout: constants.DefaultNetworkTimeout}
	if tokenSource != nil {
		httpClient.Transport = &oauth2.Transport{
			Source: tokenSource,
			Base:   http.DefaultTransport,
		}
	}
	return &HTTPSClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient, TokenSource: tokenSource}
}

func (c *HTTPSClient) do(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "build http request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, fmt.Sprintf("%s %s", method, url), err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, vcserrors.AuthDenied(c.BaseURL)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, vcserrors.Wrap(vcserrors.KindTransport, fmt.Sprintf("%s %s returned %s", method, url, resp.Status), nil)
	}
	return resp, nil
}

// Discover performs GET <repo>/info/refs?service=<service> (smart-http
// ref discovery).
func (c *HTTPSClient) Discover(ctx context.Context, service Service) (*DiscoveryResult, error) {
	url := fmt.Sprintf("%s/info/refs?service=%s", c.BaseURL, service)
	resp, err := c.do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return ParseDiscovery(resp.Body)
}

// Fetch negotiates want/have over POST <repo>/git-upload-pack and returns
// the response body stream (pack bytes, possibly side-band multiplexed).
func (c *HTTPSClient) Fetch(ctx context.Context, haves, wants []objstore.ID, depth *int) (io.ReadCloser, error) {
	body := BuildUploadPackRequest(wants, haves, depth, objstore.HashSHA1)
	url := fmt.Sprintf("%s/git-upload-pack", c.BaseURL)
	resp, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body), "application/x-git-upload-pack-request")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Push sends the receive-pack command list plus pack data over POST
// <repo>/git-receive-pack.
func (c *HTTPSClient) Push(ctx context.Context, updates []RefUpdate, packData io.Reader) (io.ReadCloser, error) {
	header := BuildReceivePackHeader(updates, objstore.HashSHA1)
	body := io.MultiReader(bytes.NewReader(header), packData)
	url := fmt.Sprintf("%s/git-receive-pack", c.BaseURL)
	resp, err := c.do(ctx, http.MethodPost, url, body, "application/x-git-receive-pack-request")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
