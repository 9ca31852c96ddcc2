// Package dailymed is a client for the NLM DailyMed v2 web services,
// the structured product label (SPL) document registry.
package dailymed

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

const defaultBaseURL = "https://dailymed.nlm.nih.gov/dailymed/services/v2"

// Client queries DailyMed SPL documents.
type Client interface {
	// SearchSPLs finds label documents by drug name or NDC.
	SearchSPLs(ctx context.Context, params SearchParams) ([]SPL, error)
}

// SearchParams selects which identifier to search by. Exactly one
// should be set.
type SearchParams struct {
	DrugName string
	NDC      string
}

// SPL is one structured product label entry.
type SPL struct {
	SetID       string `json:"setid"`
	SPLVersion  int    `json:"spl_version"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_date"`
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

// NewClient creates a DailyMed client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
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

func (c *httpClient) SearchSPLs(ctx context.Context, params SearchParams) ([]SPL, error) {
	q := url.Values{}
	switch {
	case params.NDC != "":
		q.Set("ndc", params.NDC)
	case params.DrugName != "":
		q.Set("drug_name", params.DrugName)
	default:
		return nil, eris.New("dailymed: search requires a drug name or NDC")
	}

	body, err := resilience.Retry(ctx, resilience.DefaultPolicy(), "dailymed/spls",
		func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, q)
		})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var result struct {
		Data []SPL `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "dailymed: unmarshal response")
	}
	return result.Data, nil
}

func (c *httpClient) fetch(ctx context.Context, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/spls.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "dailymed: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dailymed: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dailymed: read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Endpoint: "dailymed/spls", Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
