// Package webref is a generic web lookup client backed by the Wikipedia
// REST page-summary API. It is the lowest-trust corroboration source.
package webref

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rxscan/verify-cli/internal/resilience"
)

const defaultBaseURL = "https://en.wikipedia.org/api/rest_v1"

// Client fetches encyclopedia page summaries by title.
type Client interface {
	Summary(ctx context.Context, title string) (*PageSummary, error)
}

// PageSummary is a condensed encyclopedia entry.
type PageSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a web reference client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Summary(ctx context.Context, title string) (*PageSummary, error) {
	body, err := resilience.Retry(ctx, resilience.DefaultPolicy(), "webref/summary",
		func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, title)
		})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var summary PageSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, eris.Wrap(err, "webref: unmarshal response")
	}
	return &summary, nil
}

func (c *httpClient) fetch(ctx context.Context, title string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/page/summary/"+url.PathEscape(title), nil)
	if err != nil {
		return nil, eris.Wrap(err, "webref: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "webref: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "webref: read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Endpoint: "webref/summary", Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
