package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ad-scout/internal/classify"
	"github.com/sells-group/ad-scout/internal/config"
	"github.com/sells-group/ad-scout/internal/copywriter"
	"github.com/sells-group/ad-scout/internal/model"
	"github.com/sells-group/ad-scout/internal/resilience"
	"github.com/sells-group/ad-scout/internal/search"
	"github.com/sells-group/ad-scout/internal/simulate"
	"github.com/sells-group/ad-scout/internal/store"
	anthropicpkg "github.com/sells-group/ad-scout/pkg/anthropic"
	"github.com/sells-group/ad-scout/pkg/apify"
)

// errCloneDisabled is returned when no Anthropic key is configured.
var errCloneDisabled = eris.New("clone: anthropic.key is not configured")

// searchEnv holds the store, the per-source orchestrators and the optional
// copywriter used by the search/clone/serve commands.
type searchEnv struct {
	Store   store.Store
	Sources map[model.DataSource]*search.Orchestrator
	// Unavailable records why a data source could not be built.
	Unavailable map[model.DataSource]error
	Apify       *apify.Scraper // nil without a token
	Metrics     *search.Metrics
	Cloner      *copywriter.Copywriter // nil without an Anthropic key
	Defaults    config.SearchConfig
	FetchCount  int
}

// Close releases the store.
func (e *searchEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens the store and builds every data
// source the configuration allows. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*searchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env, err := newSearchEnv(cfg, st, search.NewMetrics())
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if cfg.Anthropic.Key != "" {
		env.Cloner = copywriter.New(
			anthropicpkg.NewClient(cfg.Anthropic.Key),
			copywriter.WithModel(cfg.Anthropic.Model),
			copywriter.WithMaxTokens(cfg.Anthropic.MaxTokens),
		)
	}
	return env, nil
}

// newSearchEnv wires the orchestrators for c over st.
func newSearchEnv(c *config.Config, st store.Store, metrics *search.Metrics) (*searchEnv, error) {
	policy, err := buildPolicy(c.Classify)
	if err != nil {
		return nil, err
	}

	env := &searchEnv{
		Store:       st,
		Sources:     make(map[model.DataSource]*search.Orchestrator),
		Unavailable: make(map[model.DataSource]error),
		Metrics:     metrics,
		Defaults:    c.Search,
		FetchCount:  c.Apify.Count,
	}

	env.Sources[model.DataSourceSimulated] = search.New(
		simulate.New(c.Search.SimulateSeed),
		search.WithPolicy(policy),
		search.WithMetrics(metrics),
		search.WithThrottle(0),
	)

	scraper, err := buildApifyScraper(c.Apify)
	if err != nil {
		env.Unavailable[model.DataSourceApify] = err
		zap.L().Debug("apify source unavailable", zap.Error(err))
		return env, nil
	}
	env.Apify = scraper

	var sc search.Scraper = scraper
	if c.Apify.CacheTTLMins > 0 {
		sc = search.NewCachingScraper(sc, c.Apify.CacheSize, time.Duration(c.Apify.CacheTTLMins)*time.Minute)
	}
	sc = search.NewBreakerScraper(sc, resilience.NewCircuitBreaker(
		resilience.BreakerFromSettings(c.Apify.Breaker.FailureThreshold, c.Apify.Breaker.ResetTimeoutSecs),
	))
	env.Sources[model.DataSourceApify] = search.New(sc,
		search.WithPolicy(policy),
		search.WithMetrics(metrics),
		search.WithThrottle(time.Duration(c.Search.ThrottleMs)*time.Millisecond),
	)
	return env, nil
}

func buildApifyScraper(c config.ApifyConfig) (*apify.Scraper, error) {
	var poll []apify.PollOption
	if c.PollIntervalSecs > 0 {
		poll = append(poll, apify.WithPollInterval(time.Duration(c.PollIntervalSecs)*time.Second))
	}
	if c.PollCapSecs > 0 {
		poll = append(poll, apify.WithPollCap(time.Duration(c.PollCapSecs)*time.Second))
	}
	if c.TimeoutSecs > 0 {
		poll = append(poll, apify.WithPollTimeout(time.Duration(c.TimeoutSecs)*time.Second))
	}

	opts := []apify.ScraperOption{
		apify.WithRetry(resilience.FromSettings(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)),
		apify.WithPolling(poll...),
	}
	if c.BaseURL != "" {
		opts = append(opts, apify.WithClientOptions(apify.WithBaseURL(c.BaseURL)))
	}
	return apify.NewScraper(c.Token, c.ActorID, opts...)
}

// buildPolicy resolves classify.policy. Contact-duration day windows come
// from config when set.
func buildPolicy(c config.ClassifyConfig) (classify.Policy, error) {
	p, err := classify.PolicyByName(c.Policy)
	if err != nil {
		return nil, err
	}
	if cd, ok := p.(classify.ContactDurationPolicy); ok {
		if c.WinnerDays > 0 {
			cd.WinnerDays = c.WinnerDays
		}
		if c.PotentialDays > 0 {
			cd.PotentialDays = c.PotentialDays
		}
		return cd, nil
	}
	return p, nil
}

// applyDefaults fills zero-valued knobs of t from the configured search
// defaults, then from the model defaults.
func (e *searchEnv) applyDefaults(t model.SearchTarget) model.SearchTarget {
	d := e.Defaults
	if t.Thresholds.MinAds == 0 {
		t.Thresholds.MinAds = d.MinAds
	}
	if t.Thresholds.MinDaysRunning == 0 {
		t.Thresholds.MinDaysRunning = d.MinDaysRunning
	}
	if t.Thresholds.MinAdsForLongRunning == 0 {
		t.Thresholds.MinAdsForLongRunning = d.MinAdsForLongRunning
	}
	if t.ResultCap == 0 {
		t.ResultCap = d.ResultCap
	}
	if t.MaxKeywords == 0 {
		t.MaxKeywords = d.MaxKeywords
	}
	if t.MaxCountries == 0 {
		t.MaxCountries = d.MaxCountries
	}
	if t.Count == 0 {
		t.Count = e.FetchCount
	}
	if t.DataSource == "" {
		t.DataSource = model.DataSource(d.Source)
	}
	return t.WithDefaults()
}

// runSearch stores target, orchestrates it and records the outcome. An
// invalid target is rejected before anything is stored. When orchestration
// fails the stored search is marked failed with the error message.
func (e *searchEnv) runSearch(ctx context.Context, target model.SearchTarget) (*model.Search, error) {
	target = e.applyDefaults(target)
	if err := target.Validate(); err != nil {
		return nil, err
	}
	orch, ok := e.Sources[target.DataSource]
	if !ok {
		if err := e.Unavailable[target.DataSource]; err != nil {
			return nil, err
		}
		return nil, eris.Errorf("search: data source %q is not configured", target.DataSource)
	}

	s, err := e.Store.CreateSearch(ctx, target)
	if err != nil {
		return nil, eris.Wrap(err, "search: create")
	}
	if err := e.Store.UpdateSearchStatus(ctx, s.ID, model.SearchStatusProcessing); err != nil {
		return nil, eris.Wrap(err, "search: mark processing")
	}

	res, err := orch.Search(ctx, target)
	if err != nil {
		if ferr := e.Store.FailSearch(context.WithoutCancel(ctx), s.ID, err.Error()); ferr != nil {
			zap.L().Error("search: mark failed", zap.String("search_id", s.ID), zap.Error(ferr))
		}
		return nil, eris.Wrapf(err, "search %s", s.ID)
	}

	if err := e.Store.CompleteSearch(ctx, s.ID, res); err != nil {
		return nil, eris.Wrap(err, "search: complete")
	}
	zap.L().Info("search: stored",
		zap.String("search_id", s.ID),
		zap.Int("total", res.TotalCount),
		zap.Int("winners", res.WinnersCount),
		zap.Int("potential", res.PotentialCount),
		zap.Int("pairs_failed", res.PairsFailed),
	)
	return e.Store.GetSearch(ctx, s.ID)
}

// cloneAd generates copy for req and persists it.
func (e *searchEnv) cloneAd(ctx context.Context, req copywriter.Request) (*model.ClonedAd, error) {
	if e.Cloner == nil {
		return nil, errCloneDisabled
	}
	clone, err := e.Cloner.Clone(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.Store.SaveClone(ctx, clone); err != nil {
		return nil, eris.Wrap(err, "clone: save")
	}
	return clone, nil
}
