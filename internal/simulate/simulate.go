// Package simulate generates synthetic ad-library listings shaped like the
// Apify actor's dataset items. It lets the pipeline run without credentials.
package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ad-scout/internal/model"
)

var (
	baseNames = []string{
		"Cursos Online", "Pack Digital", "Ebooks Premium", "Recetas Saludables",
		"Fitness Digital", "Educativo Pro", "Kit Descargables", "Megapack",
	}
	suffixes  = []string{"Pro", "Premium", "Digital", "Online", "Plus"}
	templates = []string{
		"🎓 CURSO COMPLETO: Aprende %s desde cero",
		"🔥 OFERTA: %s con 70%% OFF",
		"📚 DESCARGA GRATIS: %s completo",
		"💎 Material premium sobre %s",
	}
	mobilePrefixes = map[string]string{
		"CL": "+569",
		"PE": "+519",
		"MX": "+521",
		"AR": "+549",
		"CO": "+573",
		"EC": "+5939",
		"BO": "+5917",
	}
)

// Generator produces listings. Output is a pure function of seed, keyword,
// country and the clock.
type Generator struct {
	seed  uint64
	min   int
	max   int
	delay time.Duration
	now   func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithDelay sleeps d per Fetch to mimic scraper latency.
func WithDelay(d time.Duration) Option {
	return func(g *Generator) {
		g.delay = d
	}
}

// WithRange sets the inclusive bounds on listings per pair.
func WithRange(lo, hi int) Option {
	return func(g *Generator) {
		if lo > 0 && hi >= lo {
			g.min, g.max = lo, hi
		}
	}
}

// WithClock overrides the clock used for start dates.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New returns a generator producing 5 to 15 listings per pair.
func New(seed uint64, opts ...Option) *Generator {
	g := &Generator{seed: seed, min: 5, max: 15, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch implements search.Scraper. opts.Count caps the number of listings.
func (g *Generator) Fetch(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error) {
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "simulate: fetch cancelled")
		case <-time.After(g.delay):
		}
	}

	r := rand.New(rand.NewPCG(g.seed, pairHash(keyword, country)))
	n := g.min + r.IntN(g.max-g.min+1)
	if opts.Count > 0 && n > opts.Count {
		n = opts.Count
	}

	now := g.now().UTC()
	out := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		raw, err := json.Marshal(g.listing(r, keyword, country, i, now))
		if err != nil {
			return nil, eris.Wrap(err, "simulate: marshal listing")
		}
		out = append(out, raw)
	}
	return out, nil
}

func (g *Generator) listing(r *rand.Rand, keyword, country string, i int, now time.Time) map[string]any {
	pageName := fmt.Sprintf("%s %s %s",
		baseNames[r.IntN(len(baseNames))], suffixes[r.IntN(len(suffixes))], model.CountryName(country))
	slug := strings.ToLower(strings.ReplaceAll(pageName, " ", ""))
	pageID := fmt.Sprintf("sim_%s_%d", country, r.Uint32())
	archiveID := fmt.Sprintf("%d", 1_000_000_000+r.Int64N(9_000_000_000))
	daysRunning := 1 + r.IntN(60)

	body := fmt.Sprintf(templates[r.IntN(len(templates))], keyword)
	if r.IntN(10) >= 3 {
		body += " 📱 Escríbenos por WhatsApp"
		if phone := phoneFor(r, country); phone != "" {
			body += " al " + phone
		}
	}

	snapshot := map[string]any{
		"body":      body,
		"page_name": pageName,
		"images":    []string{"https://via.placeholder.com/600x400?text=" + url.QueryEscape(pageName)},
	}
	if r.IntN(10) >= 7 {
		snapshot["cards"] = []map[string]any{{"video_sd_url": fmt.Sprintf("https://example.com/video%d.mp4", i)}}
	}

	return map[string]any{
		"ad_archive_id":      archiveID,
		"ad_id":              fmt.Sprintf("sim_%s_%d", archiveID, i),
		"page_id":            pageID,
		"page_name":          pageName,
		"page_url":           "https://facebook.com/" + slug,
		"ad_snapshot_url":    "https://www.facebook.com/ads/library/?id=" + archiveID,
		"collation_count":    5 + r.IntN(26),
		"start_date":         now.Add(-time.Duration(daysRunning) * 24 * time.Hour).Unix(),
		"publisher_platform": []string{"Facebook", "Instagram"},
		"snapshot":           snapshot,
	}
}

// phoneFor returns a mobile number in country, or "" when the country has no
// known mobile prefix.
func phoneFor(r *rand.Rand, country string) string {
	prefix, ok := mobilePrefixes[country]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s%08d", prefix, 10_000_000+r.IntN(90_000_000))
}

func pairHash(keyword, country string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(country))
	h.Write([]byte{0})
	h.Write([]byte(keyword))
	return h.Sum64()
}
