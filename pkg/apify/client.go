// Package apify is a minimal client for the Apify v2 REST API: starting an
// actor run, polling it, and reading its default dataset.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ad-scout/internal/resilience"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"

	// DefaultActorID is the Facebook Ads Library scraper actor.
	DefaultActorID = "curious_coder~facebook-ads-library-scraper"
)

// Run statuses reported by GET /actor-runs/{id}.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
)

// Client defines the Apify API operations used by the scraper.
type Client interface {
	StartRun(ctx context.Context, actorID string, input RunInput) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	GetDatasetItems(ctx context.Context, datasetID string) ([]json.RawMessage, error)
	GetActor(ctx context.Context, actorID string) (*Actor, error)
}

// RunInput is the actor input for a Facebook Ads Library search.
type RunInput struct {
	URLs         []StartURL `json:"urls"`
	Count        int        `json:"count"`
	Period       string     `json:"period"`
	ActiveStatus string     `json:"scrapePageAds.activeStatus"`
	CountryCode  string     `json:"scrapePageAds.countryCode"`
}

// StartURL is one entry of RunInput.URLs.
type StartURL struct {
	URL string `json:"url"`
}

// Run is the data envelope of an actor run.
type Run struct {
	ID               string `json:"id"`
	ActID            string `json:"actId"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage,omitempty"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Actor is the subset of actor metadata used for connection checks.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Username is the owner of the actor.
	Username string `json:"username"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// AdsLibraryURL builds the Facebook Ads Library keyword search URL the actor
// scrapes.
func AdsLibraryURL(keyword, country string) string {
	q := url.Values{}
	q.Set("active_status", "all")
	q.Set("ad_type", "all")
	q.Set("country", country)
	q.Set("q", keyword)
	q.Set("search_type", "keyword_unordered")
	q.Set("media_type", "all")
	return "https://www.facebook.com/ads/library/?" + q.Encode()
}

// NewSearchInput builds the actor input for one (keyword, country) pair.
func NewSearchInput(keyword, country string, count int) RunInput {
	return RunInput{
		URLs:         []StartURL{{URL: AdsLibraryURL(keyword, country)}},
		Count:        count,
		Period:       "",
		ActiveStatus: "all",
		CountryCode:  country,
	}
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates an Apify client authenticated with a bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartRun(ctx context.Context, actorID string, input RunInput) (*Run, error) {
	var resp envelope[Run]
	if err := c.post(ctx, "/acts/"+url.PathEscape(actorID)+"/runs", input, &resp); err != nil {
		return nil, eris.Wrapf(err, "apify: start run of %s", actorID)
	}
	if resp.Data.ID == "" {
		return nil, eris.Errorf("apify: start run of %s: response has no run id", actorID)
	}
	return &resp.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var resp envelope[Run]
	if err := c.get(ctx, "/actor-runs/"+url.PathEscape(runID), &resp); err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", runID)
	}
	if resp.Data.Status == "" {
		return nil, eris.Errorf("apify: get run %s: response has no status", runID)
	}
	return &resp.Data, nil
}

// GetDatasetItems returns each dataset item undecoded. A body that is not a
// JSON array yields no items.
func (c *httpClient) GetDatasetItems(ctx context.Context, datasetID string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	err := c.get(ctx, "/datasets/"+url.PathEscape(datasetID)+"/items?format=json&clean=true", &items)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "apify: get dataset %s items", datasetID)
	}
	return items, nil
}

func (c *httpClient) GetActor(ctx context.Context, actorID string) (*Actor, error) {
	var resp envelope[Actor]
	if err := c.get(ctx, "/acts/"+url.PathEscape(actorID), &resp); err != nil {
		return nil, eris.Wrapf(err, "apify: get actor %s", actorID)
	}
	return &resp.Data, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

// do executes req. Retryable statuses come back as *resilience.TransientError
// wrapping the *APIError.
func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
