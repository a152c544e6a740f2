// Package search runs a keyword x country search against an ad scraper and
// turns the raw listings into a deduplicated, classified result set.
package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/ad-scout/internal/adformat"
	"github.com/sells-group/ad-scout/internal/classify"
	"github.com/sells-group/ad-scout/internal/model"
	"github.com/sells-group/ad-scout/internal/relevance"
	"github.com/sells-group/ad-scout/internal/resilience"
)

// DefaultThrottle is the minimum spacing between scraper calls.
const DefaultThrottle = time.Second

// Orchestrator drives one search at a time per call. Pairs are processed
// sequentially; the limiter is shared across calls so concurrent searches
// still respect the provider's rate.
type Orchestrator struct {
	scraper Scraper
	filter  relevance.Filter
	policy  classify.Policy
	metrics *Metrics
	limiter *rate.Limiter
	now     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the classification policy. Default: classify.AdsCountPolicy.
func WithPolicy(p classify.Policy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithThrottle sets the minimum spacing between scraper calls. Zero disables
// throttling.
func WithThrottle(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d <= 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		o.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithClock overrides the clock used for days-running.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator over scraper.
func New(scraper Scraper, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scraper: scraper,
		policy:  classify.AdsCountPolicy{},
		limiter: rate.NewLimiter(rate.Every(DefaultThrottle), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the active classification policy.
func (o *Orchestrator) Policy() classify.Policy {
	return o.policy
}

// Search validates target, then walks countries (outer) and keywords (inner),
// formatting, filtering, classifying and accumulating each returned record
// until the result cap is reached or the pairs run out. A failing pair is
// logged and skipped. Records are returned in discovery order.
func (o *Orchestrator) Search(ctx context.Context, target model.SearchTarget) (*model.SearchResult, error) {
	target = target.WithDefaults()
	if err := target.Validate(); err != nil {
		return nil, err
	}

	countries := target.EffectiveCountries()
	keywords := target.EffectiveKeywords()
	log := zap.L().With(
		zap.Strings("countries", countries),
		zap.Strings("keywords", keywords),
		zap.String("policy", o.policy.Name()),
	)
	log.Info("search: starting", zap.Int("result_cap", target.ResultCap))

	acc := newAccumulator(target.ResultCap)
	res := &model.SearchResult{}
	now := o.now()
	done := false

	for _, p := range pairs(countries, keywords) {
		if err := o.limiter.Wait(ctx); err != nil {
			return o.finish(res, acc), eris.Wrap(err, "search: cancelled")
		}

		res.PairsAttempted++
		items, err := o.fetch(ctx, p.keyword, p.country, target.Count)
		if err != nil {
			res.PairsFailed++
			class := resilience.ClassifyError(err)
			o.metrics.IncPair(class)
			log.Warn("search: pair failed, skipping",
				zap.String("keyword", p.keyword),
				zap.String("country", p.country),
				zap.String("class", class),
				zap.Error(err),
			)
			continue
		}
		o.metrics.IncPair("ok")

		fc := adformat.Context{Keyword: p.keyword, Country: p.country, Source: target.DataSource, Now: now}
		if done = o.process(items, fc, target.Thresholds, acc); done {
			break
		}
	}

	res.CapReached = done
	o.finish(res, acc)
	o.metrics.IncSearch()
	log.Info("search: finished",
		zap.Int("total", res.TotalCount),
		zap.Int("winners", res.WinnersCount),
		zap.Int("potential", res.PotentialCount),
		zap.Int("pairs_attempted", res.PairsAttempted),
		zap.Int("pairs_failed", res.PairsFailed),
		zap.Int("duplicates", acc.dupes),
		zap.Bool("cap_reached", res.CapReached),
	)
	return res, nil
}

type pair struct {
	country string
	keyword string
}

// pairs lists the cartesian product with countries as the outer loop.
func pairs(countries, keywords []string) []pair {
	out := make([]pair, 0, len(countries)*len(keywords))
	for _, c := range countries {
		for _, k := range keywords {
			out = append(out, pair{country: c, keyword: k})
		}
	}
	return out
}

func (o *Orchestrator) fetch(ctx context.Context, keyword, country string, count int) ([]json.RawMessage, error) {
	start := time.Now()
	defer func() { o.metrics.ObservePair(time.Since(start)) }()
	return o.scraper.Fetch(ctx, keyword, country, model.FetchOptions{Count: count})
}

// process runs each item through the pipeline and reports whether the cap
// has been reached.
func (o *Orchestrator) process(items []json.RawMessage, fc adformat.Context, th model.Thresholds, acc *accumulator) bool {
	o.metrics.AddRecords(StageFetched, len(items))
	relevant := 0
	defer func() { o.metrics.AddRecords(StageRelevant, relevant) }()

	for _, raw := range items {
		rec := adformat.Format(raw, fc)
		if !o.filter.Check(rec, fc.Country, fc.Keyword).Relevant {
			continue
		}
		relevant++

		rec = classify.Apply(rec, o.policy, th)
		kept, full := acc.add(rec)
		if kept {
			o.metrics.AddRecords(StageKept, 1)
			o.metrics.IncTier(rec.Tier().String())
		}
		if full {
			return true
		}
	}
	return false
}

func (o *Orchestrator) finish(res *model.SearchResult, acc *accumulator) *model.SearchResult {
	res.Records = acc.records
	if res.Records == nil {
		res.Records = []model.AdRecord{}
	}
	res.TotalCount = len(res.Records)
	res.WinnersCount, res.PotentialCount = classify.Counts(res.Records)
	return res
}
