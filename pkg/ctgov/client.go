// Package ctgov is a client for the ClinicalTrials.gov v2 API.
package ctgov

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rxscan/verify-cli/internal/resilience"
)

const defaultBaseURL = "https://clinicaltrials.gov/api/v2"

// Client searches registered clinical studies.
type Client interface {
	SearchStudies(ctx context.Context, intervention string, limit int) ([]Study, error)
}

// Study is one registered clinical study.
type Study struct {
	NCTID         string   `json:"nct_id"`
	Title         string   `json:"title"`
	OverallStatus string   `json:"overall_status"`
	Conditions    []string `json:"conditions"`
	Interventions []string `json:"interventions"`
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

// NewClient creates a ClinicalTrials.gov client.
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

func (c *httpClient) SearchStudies(ctx context.Context, intervention string, limit int) ([]Study, error) {
	q := url.Values{}
	q.Set("query.intr", intervention)
	q.Set("pageSize", fmt.Sprintf("%d", limit))
	q.Set("fields", "NCTId,BriefTitle,OverallStatus,Condition,InterventionName")

	body, err := resilience.Retry(ctx, resilience.DefaultPolicy(), "ctgov/studies",
		func(ctx context.Context) ([]byte, error) {
			return c.fetch(ctx, q)
		})
	if err != nil {
		return nil, err
	}

	var result struct {
		Studies []struct {
			ProtocolSection struct {
				IdentificationModule struct {
					NCTID      string `json:"nctId"`
					BriefTitle string `json:"briefTitle"`
				} `json:"identificationModule"`
				StatusModule struct {
					OverallStatus string `json:"overallStatus"`
				} `json:"statusModule"`
				ConditionsModule struct {
					Conditions []string `json:"conditions"`
				} `json:"conditionsModule"`
				ArmsInterventionsModule struct {
					Interventions []struct {
						Name string `json:"name"`
					} `json:"interventions"`
				} `json:"armsInterventionsModule"`
			} `json:"protocolSection"`
		} `json:"studies"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ctgov: unmarshal response")
	}

	studies := make([]Study, 0, len(result.Studies))
	for _, s := range result.Studies {
		ps := s.ProtocolSection
		st := Study{
			NCTID:         ps.IdentificationModule.NCTID,
			Title:         ps.IdentificationModule.BriefTitle,
			OverallStatus: ps.StatusModule.OverallStatus,
			Conditions:    ps.ConditionsModule.Conditions,
		}
		for _, iv := range ps.ArmsInterventionsModule.Interventions {
			st.Interventions = append(st.Interventions, iv.Name)
		}
		studies = append(studies, st)
	}
	return studies, nil
}

func (c *httpClient) fetch(ctx context.Context, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/studies?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "ctgov: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ctgov: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ctgov: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Endpoint: "ctgov/studies", Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
