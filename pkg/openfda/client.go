// Package openfda is a typed client for the api.fda.gov drug endpoints:
// NDC directory, structured product labels, adverse events (FAERS), and
// enforcement reports. One client shares an API key and rate budget
// across all four endpoints, matching how openFDA meters requests.
package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/rxscan/verify-cli/internal/resilience"
)

const defaultBaseURL = "https://api.fda.gov"

// Client queries the openFDA drug endpoints.
type Client interface {
	SearchNDC(ctx context.Context, search string, limit int) ([]NDCProduct, error)
	SearchLabel(ctx context.Context, search string, limit int) ([]Label, error)
	SearchEvents(ctx context.Context, search string, limit int) ([]Event, error)
	SearchEnforcement(ctx context.Context, search string, limit int) ([]Enforcement, error)
}

// NDCProduct is one entry from the NDC directory.
type NDCProduct struct {
	ProductNDC    string             `json:"product_ndc"`
	BrandName     string             `json:"brand_name"`
	GenericName   string             `json:"generic_name"`
	LabelerName   string             `json:"labeler_name"`
	DosageForm    string             `json:"dosage_form"`
	Route         []string           `json:"route"`
	ActiveIngreds []ActiveIngredient `json:"active_ingredients"`
	Packaging     []Packaging        `json:"packaging"`
}

// ActiveIngredient pairs an ingredient name with its strength.
type ActiveIngredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
}

// Packaging describes one package presentation of a product.
type Packaging struct {
	PackageNDC  string `json:"package_ndc"`
	Description string `json:"description"`
}

// Label is one structured product label document.
type Label struct {
	ID                  string   `json:"id"`
	SetID               string   `json:"set_id"`
	IndicationsAndUsage []string `json:"indications_and_usage"`
	Contraindications   []string `json:"contraindications"`
	Warnings            []string `json:"warnings"`
	AdverseReactions    []string `json:"adverse_reactions"`
	DrugInteractions    []string `json:"drug_interactions"`
	OpenFDA             LabelIDs `json:"openfda"`
}

// LabelIDs are the openfda harmonization fields attached to a label.
type LabelIDs struct {
	BrandName    []string `json:"brand_name"`
	GenericName  []string `json:"generic_name"`
	Manufacturer []string `json:"manufacturer_name"`
	ProductNDC   []string `json:"product_ndc"`
	Route        []string `json:"route"`
	RxCUI        []string `json:"rxcui"`
	SubstanceName []string `json:"substance_name"`
}

// Event is one FAERS adverse event report.
type Event struct {
	SafetyReportID string `json:"safetyreportid"`
	Serious        string `json:"serious"`
	Patient        struct {
		Reactions []Reaction `json:"reaction"`
		Drugs     []struct {
			MedicinalProduct string `json:"medicinalproduct"`
		} `json:"drug"`
	} `json:"patient"`
}

// Reaction is a MedDRA-coded reaction within an event report.
type Reaction struct {
	ReactionMedDRAPT string `json:"reactionmeddrapt"`
}

// Enforcement is one recall enforcement report.
type Enforcement struct {
	RecallNumber       string `json:"recall_number"`
	Status             string `json:"status"`
	Classification     string `json:"classification"`
	ProductDescription string `json:"product_description"`
	ReasonForRecall    string `json:"reason_for_recall"`
	RecallingFirm      string `json:"recalling_firm"`
	RecallInitiation   string `json:"recall_initiation_date"`
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

// WithRateLimit overrides the default requests-per-minute budget.
func WithRateLimit(perMinute int) Option {
	return func(c *httpClient) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 4)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an openFDA client. An empty apiKey uses the shared
// anonymous quota (240 requests/minute per IP).
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(240.0/60.0), 4),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope is the common openFDA response wrapper.
type envelope[T any] struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Results []T `json:"results"`
}

func get[T any](ctx context.Context, c *httpClient, endpoint, search string, limit int) ([]T, error) {
	return resilience.Retry(ctx, resilience.DefaultPolicy(), "openfda"+endpoint,
		func(ctx context.Context) ([]T, error) {
			return fetch[T](ctx, c, endpoint, search, limit)
		})
}

func fetch[T any](ctx context.Context, c *httpClient, endpoint, search string, limit int) ([]T, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openfda: rate limit wait")
	}

	q := url.Values{}
	q.Set("search", search)
	q.Set("limit", fmt.Sprintf("%d", limit))
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "openfda: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openfda: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openfda: read response")
	}

	// openFDA reports "no matches" as a 404 with a NOT_FOUND error body.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &resilience.StatusError{Endpoint: "openfda" + endpoint, Code: resp.StatusCode, Body: string(body)}
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "openfda: unmarshal response")
	}
	if env.Error != nil && env.Error.Code != "" {
		if env.Error.Code == "NOT_FOUND" {
			return nil, nil
		}
		return nil, eris.Errorf("openfda: api error %s: %s", env.Error.Code, env.Error.Message)
	}

	return env.Results, nil
}

func (c *httpClient) SearchNDC(ctx context.Context, search string, limit int) ([]NDCProduct, error) {
	return get[NDCProduct](ctx, c, "/drug/ndc.json", search, limit)
}

func (c *httpClient) SearchLabel(ctx context.Context, search string, limit int) ([]Label, error) {
	return get[Label](ctx, c, "/drug/label.json", search, limit)
}

func (c *httpClient) SearchEvents(ctx context.Context, search string, limit int) ([]Event, error) {
	return get[Event](ctx, c, "/drug/event.json", search, limit)
}

func (c *httpClient) SearchEnforcement(ctx context.Context, search string, limit int) ([]Enforcement, error) {
	return get[Enforcement](ctx, c, "/drug/enforcement.json", search, limit)
}
