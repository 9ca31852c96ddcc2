// Package pubmed is a client for the NCBI E-utilities (PubMed
// literature search).
package pubmed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rxscan/verify-cli/internal/resilience"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Client searches PubMed citations.
type Client interface {
	Search(ctx context.Context, term string, limit int) (*SearchResult, error)
}

// SearchResult holds the total hit count and summaries for the first
// page of citations.
type SearchResult struct {
	Count     int       `json:"count"`
	Citations []Citation `json:"citations"`
}

// Citation is one PubMed article summary.
type Citation struct {
	PMID    string `json:"pmid"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pub_date"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithAPIKey sets an NCBI API key for the higher rate tier.
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
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
	apiKey  string
	http    *http.Client
}

// NewClient creates a PubMed client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
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

func (c *httpClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	body, err := resilience.Retry(ctx, resilience.DefaultPolicy(), "pubmed"+path,
		func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, path, q)
		})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "pubmed: unmarshal response")
	}
	return nil
}

func (c *httpClient) fetch(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pubmed: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Endpoint: "pubmed" + path, Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *httpClient) Search(ctx context.Context, term string, limit int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", term)
	q.Set("retmode", "json")
	q.Set("retmax", strconv.Itoa(limit))

	var search struct {
		ESearchResult struct {
			Count  string   `json:"count"`
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := c.getJSON(ctx, "/esearch.fcgi", q, &search); err != nil {
		return nil, err
	}

	result := &SearchResult{}
	result.Count, _ = strconv.Atoi(search.ESearchResult.Count)
	if len(search.ESearchResult.IDList) == 0 {
		return result, nil
	}

	sq := url.Values{}
	sq.Set("db", "pubmed")
	sq.Set("retmode", "json")
	sq.Set("id", strings.Join(search.ESearchResult.IDList, ","))

	var summary struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.getJSON(ctx, "/esummary.fcgi", sq, &summary); err != nil {
		return nil, err
	}

	for _, id := range search.ESearchResult.IDList {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var doc struct {
			Title   string `json:"title"`
			Source  string `json:"source"`
			PubDate string `json:"pubdate"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		result.Citations = append(result.Citations, Citation{
			PMID:    id,
			Title:   doc.Title,
			Source:  doc.Source,
			PubDate: doc.PubDate,
		})
	}
	return result, nil
}
