package apify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/model"
	"github.com/sells-group/ad-scout/internal/resilience"
)

// ErrMissingToken is returned by NewScraper when no API token is configured.
var ErrMissingToken = eris.New("apify: api token is not configured")

// Scraper fetches raw Ads Library listings for one (keyword, country) pair by
// running the actor to completion and reading its dataset.
type Scraper struct {
	client  Client
	actorID string
	poll    []PollOption
}

// ScraperOption configures a Scraper.
type ScraperOption func(*scraperConfig)

type scraperConfig struct {
	client     Client
	clientOpts []Option
	retry      resilience.RetryConfig
	poll       []PollOption
}

// WithClient replaces the HTTP client. The token is still required.
func WithClient(c Client) ScraperOption {
	return func(sc *scraperConfig) {
		sc.client = c
	}
}

// WithClientOptions passes options to NewClient.
func WithClientOptions(opts ...Option) ScraperOption {
	return func(sc *scraperConfig) {
		sc.clientOpts = append(sc.clientOpts, opts...)
	}
}

// WithRetry sets the retry policy applied to every API call.
func WithRetry(cfg resilience.RetryConfig) ScraperOption {
	return func(sc *scraperConfig) {
		sc.retry = cfg
	}
}

// WithPolling sets the run polling options.
func WithPolling(opts ...PollOption) ScraperOption {
	return func(sc *scraperConfig) {
		sc.poll = append(sc.poll, opts...)
	}
}

// NewScraper validates credentials and builds a Scraper. An empty actorID
// selects DefaultActorID.
func NewScraper(token, actorID string, opts ...ScraperOption) (*Scraper, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if actorID == "" {
		actorID = DefaultActorID
	}

	sc := scraperConfig{retry: resilience.DefaultRetryConfig()}
	for _, opt := range opts {
		opt(&sc)
	}
	client := sc.client
	if client == nil {
		client = NewClient(token, sc.clientOpts...)
	}

	return &Scraper{
		client:  &retryClient{Client: client, cfg: sc.retry},
		actorID: actorID,
		poll:    sc.poll,
	}, nil
}

// Fetch runs the actor for keyword in country and returns the dataset items.
// Failures are either transient (resilience.IsTransient) or terminal.
func (s *Scraper) Fetch(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error) {
	count := opts.Count
	if count <= 0 {
		count = model.DefaultFetchCount
	}
	log := zap.L().With(
		zap.String("actor", s.actorID),
		zap.String("keyword", keyword),
		zap.String("country", country),
	)

	start := time.Now()
	run, err := s.client.StartRun(ctx, s.actorID, NewSearchInput(keyword, country, count))
	if err != nil {
		return nil, err
	}
	log.Info("apify: run started", zap.String("run_id", run.ID))

	run, err = PollRun(ctx, s.client, run.ID, s.poll...)
	if err != nil {
		return nil, err
	}

	items, err := s.client.GetDatasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}
	log.Info("apify: run completed",
		zap.String("run_id", run.ID),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return items, nil
}

// TestConnection checks that the token can read the configured actor.
func (s *Scraper) TestConnection(ctx context.Context) (*Actor, error) {
	return s.client.GetActor(ctx, s.actorID)
}

// retryClient retries each API call on transient errors.
type retryClient struct {
	Client
	cfg resilience.RetryConfig
}

func (r *retryClient) with(op string) resilience.RetryConfig {
	cfg := r.cfg
	cfg.OnRetry = resilience.RetryLogger("apify", op)
	return cfg
}

func (r *retryClient) StartRun(ctx context.Context, actorID string, input RunInput) (*Run, error) {
	return resilience.DoVal(ctx, r.with("start_run"), func(ctx context.Context) (*Run, error) {
		return r.Client.StartRun(ctx, actorID, input)
	})
}

func (r *retryClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	return resilience.DoVal(ctx, r.with("get_run"), func(ctx context.Context) (*Run, error) {
		return r.Client.GetRun(ctx, runID)
	})
}

func (r *retryClient) GetDatasetItems(ctx context.Context, datasetID string) ([]json.RawMessage, error) {
	return resilience.DoVal(ctx, r.with("get_dataset_items"), func(ctx context.Context) ([]json.RawMessage, error) {
		return r.Client.GetDatasetItems(ctx, datasetID)
	})
}

func (r *retryClient) GetActor(ctx context.Context, actorID string) (*Actor, error) {
	return resilience.DoVal(ctx, r.with("get_actor"), func(ctx context.Context) (*Actor, error) {
		return r.Client.GetActor(ctx, actorID)
	})
}
