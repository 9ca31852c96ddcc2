// Package rxnorm is a client for the NLM RxNav REST API, the
// standardized drug nomenclature registry.
package rxnorm

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

const defaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

// Client queries RxNorm concepts.
type Client interface {
	// FindDrugs searches approximate drug concepts by name.
	FindDrugs(ctx context.Context, name string) ([]Concept, error)
	// NDCProperties resolves an NDC to its RxNorm concept.
	NDCProperties(ctx context.Context, ndc string) (*NDCInfo, error)
}

// Concept is one RxNorm drug concept.
type Concept struct {
	RxCUI    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym"`
	TTY      string `json:"tty"` // term type, e.g. SBD, SCD, BN, IN
	Language string `json:"language"`
}

// NDCInfo holds the concept behind an NDC.
type NDCInfo struct {
	NDC    string `json:"ndc"`
	RxCUI  string `json:"rxcui"`
	Status string `json:"status"`
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

// NewClient creates an RxNorm client. The RxNav API requires no key.
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

func (c *httpClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	body, err := resilience.Retry(ctx, resilience.DefaultPolicy(), "rxnorm"+path,
		func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, path, q)
		})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "rxnorm: unmarshal response")
	}
	return nil
}

func (c *httpClient) fetch(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "rxnorm: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "rxnorm: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "rxnorm: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Endpoint: "rxnorm" + path, Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *httpClient) FindDrugs(ctx context.Context, name string) ([]Concept, error) {
	q := url.Values{}
	q.Set("name", name)

	var result struct {
		DrugGroup struct {
			ConceptGroup []struct {
				TTY             string `json:"tty"`
				ConceptProperty []struct {
					RxCUI    string `json:"rxcui"`
					Name     string `json:"name"`
					Synonym  string `json:"synonym"`
					TTY      string `json:"tty"`
					Language string `json:"language"`
				} `json:"conceptProperties"`
			} `json:"conceptGroup"`
		} `json:"drugGroup"`
	}
	if err := c.getJSON(ctx, "/drugs.json", q, &result); err != nil {
		return nil, err
	}

	var concepts []Concept
	for _, g := range result.DrugGroup.ConceptGroup {
		for _, p := range g.ConceptProperty {
			concepts = append(concepts, Concept{
				RxCUI:    p.RxCUI,
				Name:     p.Name,
				Synonym:  p.Synonym,
				TTY:      p.TTY,
				Language: p.Language,
			})
		}
	}
	return concepts, nil
}

func (c *httpClient) NDCProperties(ctx context.Context, ndc string) (*NDCInfo, error) {
	q := url.Values{}
	q.Set("id", ndc)
	q.Set("idtype", "NDC")

	var result struct {
		NDCStatus struct {
			NDC    string `json:"ndc11"`
			RxCUI  string `json:"rxcui"`
			Status string `json:"status"`
		} `json:"ndcStatus"`
	}
	if err := c.getJSON(ctx, "/ndcstatus.json", q, &result); err != nil {
		return nil, err
	}

	if result.NDCStatus.RxCUI == "" {
		return nil, nil
	}
	return &NDCInfo{
		NDC:    result.NDCStatus.NDC,
		RxCUI:  result.NDCStatus.RxCUI,
		Status: result.NDCStatus.Status,
	}, nil
}
