package model

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTarget is returned when a SearchTarget fails validation.
var ErrInvalidTarget = eris.New("invalid search target")

// Defaults applied by SearchTarget.WithDefaults.
const (
	DefaultMinAds               = 10
	DefaultMinDaysRunning       = 30
	DefaultMinAdsForLongRunning = 5
	DefaultResultCap            = 50
	DefaultMaxKeywords          = 3
	DefaultMaxCountries         = 3
	DefaultFetchCount           = 200
)

// Thresholds drive the ads-count classification policy.
type Thresholds struct {
	MinAds               int `json:"min_ads" yaml:"min_ads" mapstructure:"min_ads"`
	MinDaysRunning       int `json:"min_days_running" yaml:"min_days_running" mapstructure:"min_days_running"`
	MinAdsForLongRunning int `json:"min_ads_for_long_running" yaml:"min_ads_for_long_running" mapstructure:"min_ads_for_long_running"`
}

// DefaultThresholds returns the thresholds used when a search does not set them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAds:               DefaultMinAds,
		MinDaysRunning:       DefaultMinDaysRunning,
		MinAdsForLongRunning: DefaultMinAdsForLongRunning,
	}
}

// SearchTarget describes one orchestration run. It is not modified once the run starts.
type SearchTarget struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	// SelectedKeywords, when non-empty, replaces Keywords for the scrape.
	SelectedKeywords []string   `json:"selected_keywords,omitempty" yaml:"selected_keywords,omitempty"`
	Countries        []string   `json:"countries" yaml:"countries"`
	Thresholds       Thresholds `json:"thresholds" yaml:"thresholds"`
	ResultCap        int        `json:"result_cap" yaml:"result_cap"`
	MaxKeywords      int        `json:"max_keywords" yaml:"max_keywords"`
	MaxCountries     int        `json:"max_countries" yaml:"max_countries"`
	Count            int        `json:"count" yaml:"count"`
	DataSource       DataSource `json:"data_source" yaml:"data_source"`
}

// WithDefaults returns a copy with zero-valued knobs replaced by defaults.
func (t SearchTarget) WithDefaults() SearchTarget {
	def := DefaultThresholds()
	if t.Thresholds.MinAds == 0 {
		t.Thresholds.MinAds = def.MinAds
	}
	if t.Thresholds.MinDaysRunning == 0 {
		t.Thresholds.MinDaysRunning = def.MinDaysRunning
	}
	if t.Thresholds.MinAdsForLongRunning == 0 {
		t.Thresholds.MinAdsForLongRunning = def.MinAdsForLongRunning
	}
	if t.ResultCap == 0 {
		t.ResultCap = DefaultResultCap
	}
	if t.MaxKeywords == 0 {
		t.MaxKeywords = DefaultMaxKeywords
	}
	if t.MaxCountries == 0 {
		t.MaxCountries = DefaultMaxCountries
	}
	if t.Count == 0 {
		t.Count = DefaultFetchCount
	}
	if t.DataSource == "" {
		t.DataSource = DataSourceApify
	}
	return t
}

// EffectiveKeywords returns the keywords to scrape, capped at MaxKeywords.
func (t SearchTarget) EffectiveKeywords() []string {
	kw := t.Keywords
	if len(t.SelectedKeywords) > 0 {
		kw = t.SelectedKeywords
	}
	return capList(kw, t.MaxKeywords)
}

// EffectiveCountries returns the countries to scrape, capped at MaxCountries.
func (t SearchTarget) EffectiveCountries() []string {
	return capList(t.Countries, t.MaxCountries)
}

func capList(in []string, n int) []string {
	if n > 0 && len(in) > n {
		return in[:n]
	}
	return in
}

// Validate checks the target's preconditions. Thresholds must be >= 1 because
// the classifier treats zero thresholds as instant wins.
func (t SearchTarget) Validate() error {
	if len(t.Keywords) == 0 && len(t.SelectedKeywords) == 0 {
		return eris.Wrap(ErrInvalidTarget, "at least one keyword is required")
	}
	for _, kw := range append(append([]string{}, t.Keywords...), t.SelectedKeywords...) {
		if strings.TrimSpace(kw) == "" {
			return eris.Wrap(ErrInvalidTarget, "keywords must not be blank")
		}
		if len(kw) > 255 {
			return eris.Wrapf(ErrInvalidTarget, "keyword %q exceeds 255 characters", kw[:32])
		}
	}
	if len(t.Countries) == 0 {
		return eris.Wrap(ErrInvalidTarget, "at least one country is required")
	}
	for _, c := range t.Countries {
		if !IsCountryCode(c) {
			return eris.Wrapf(ErrInvalidTarget, "country %q is not an upper-case ISO 3166 code", c)
		}
	}
	th := t.Thresholds
	if th.MinAds < 1 || th.MinDaysRunning < 1 || th.MinAdsForLongRunning < 1 {
		return eris.Wrap(ErrInvalidTarget, "thresholds must be >= 1")
	}
	if t.ResultCap < 1 {
		return eris.Wrap(ErrInvalidTarget, "result cap must be >= 1")
	}
	if t.MaxKeywords < 0 || t.MaxCountries < 0 {
		return eris.Wrap(ErrInvalidTarget, "max keywords and max countries must be >= 0")
	}
	if t.Count < 0 {
		return eris.Wrap(ErrInvalidTarget, "count must be >= 0")
	}
	if t.DataSource != "" && !t.DataSource.Valid() {
		return eris.Wrapf(ErrInvalidTarget, "unknown data source %q", t.DataSource)
	}
	return nil
}

// IsCountryCode reports whether code is an upper-case 2-letter ISO country code.
func IsCountryCode(code string) bool {
	if len(code) != 2 || strings.ToUpper(code) != code {
		return false
	}
	r, err := language.ParseRegion(code)
	if err != nil {
		return false
	}
	return r.IsCountry()
}

var spanishRegions = display.Regions(language.Spanish)

// CountryName returns the Spanish display name for an ISO country code, or
// the code itself when unknown.
func CountryName(code string) string {
	r, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := spanishRegions.Name(r); name != "" {
		return name
	}
	return code
}

// LoadTarget reads a SearchTarget from a YAML file.
func LoadTarget(path string) (SearchTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SearchTarget{}, eris.Wrapf(err, "model: read target %s", path)
	}
	var t SearchTarget
	if err := yaml.Unmarshal(data, &t); err != nil {
		return SearchTarget{}, eris.Wrap(err, "model: parse target")
	}
	return t, nil
}

// SearchStatus represents the lifecycle of a stored search.
type SearchStatus string

const (
	SearchStatusPending    SearchStatus = "pending"
	SearchStatusProcessing SearchStatus = "processing"
	SearchStatusCompleted  SearchStatus = "completed"
	SearchStatusFailed     SearchStatus = "failed"
)

// Search is a persisted orchestration run.
type Search struct {
	ID             string       `json:"id"`
	Target         SearchTarget `json:"target"`
	Status         SearchStatus `json:"status"`
	TotalResults   int          `json:"total_results"`
	WinnersCount   int          `json:"winners_count"`
	PotentialCount int          `json:"potential_count"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Ads            []AdRecord   `json:"ads,omitempty"`
}

// SearchResult is the orchestrator's output.
type SearchResult struct {
	Records        []AdRecord `json:"records"`
	WinnersCount   int        `json:"winners_count"`
	PotentialCount int        `json:"potential_count"`
	TotalCount     int        `json:"total_count"`
	PairsAttempted int        `json:"pairs_attempted"`
	PairsFailed    int        `json:"pairs_failed"`
	CapReached     bool       `json:"cap_reached"`
}

// Stats aggregates counts across stored searches.
type Stats struct {
	TotalSearches     int `json:"total_searches"`
	CompletedSearches int `json:"completed_searches"`
	TotalAds          int `json:"total_ads_found"`
	WinnersCount      int `json:"winners_count"`
	PotentialCount    int `json:"potential_count"`
	WithContact       int `json:"with_contact_signal"`
}

// FetchOptions tunes one scraper call.
type FetchOptions struct {
	// Count is the number of listings requested from the source.
	Count int
}
