package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Placeholders applied by the formatter when the source record lacks a value.
const (
	NoTextPlaceholder     = "Sin texto disponible"
	NoPageNamePlaceholder = "Página sin nombre"
)

// DataSource identifies where raw ad records came from.
type DataSource string

const (
	DataSourceApify     DataSource = "apify"
	DataSourceSimulated DataSource = "simulated"
)

// Valid reports whether the data source is one the search command supports.
func (d DataSource) Valid() bool {
	return d == DataSourceApify || d == DataSourceSimulated
}

// AdRecord is the canonical, post-formatting view of one ad-library listing.
type AdRecord struct {
	ID               string          `json:"id,omitempty"`
	SearchID         string          `json:"search_id,omitempty"`
	PageName         string          `json:"page_name"`
	PageID           string          `json:"page_id,omitempty"`
	PageURL          string          `json:"page_url,omitempty"`
	AdID             string          `json:"ad_id,omitempty"`
	LibraryID        string          `json:"library_id,omitempty"`
	AdsLibraryURL    string          `json:"ads_library_url,omitempty"`
	AdText           string          `json:"ad_text"`
	ImageURL         string          `json:"image_url,omitempty"`
	VideoURL         string          `json:"video_url,omitempty"`
	AdsCount         int             `json:"ads_count"`
	DaysRunning      int             `json:"days_running"`
	StartDate        *time.Time      `json:"start_date,omitempty"`
	EndDate          *time.Time      `json:"end_date,omitempty"`
	Country          string          `json:"country"`
	CountryCode      string          `json:"country_code"`
	Platforms        []string        `json:"platforms"`
	HasContactSignal bool            `json:"has_contact_signal"`
	ContactPhone     string          `json:"contact_phone,omitempty"`
	SearchKeyword    string          `json:"search_keyword"`
	MatchedKeywords  []string        `json:"matched_keywords,omitempty"`
	IsWinner         bool            `json:"is_winner"`
	IsPotential      bool            `json:"is_potential"`
	DataSource       DataSource      `json:"data_source"`
	RawSourceData    json.RawMessage `json:"raw_source_data,omitempty"`
}

// HasText reports whether AdText holds real content rather than the placeholder.
func (r AdRecord) HasText() bool {
	t := strings.TrimSpace(r.AdText)
	return t != "" && t != NoTextPlaceholder
}

// IdentityKey is the deduplication key: the page ID when known, else the page name.
func (r AdRecord) IdentityKey() string {
	if id := strings.TrimSpace(r.PageID); id != "" {
		return "id:" + strings.ToLower(id)
	}
	return "name:" + strings.ToLower(strings.TrimSpace(r.PageName))
}

// Tier is the classification outcome for a record.
type Tier int

const (
	TierNormal Tier = iota
	TierPotential
	TierWinner
)

func (t Tier) String() string {
	switch t {
	case TierWinner:
		return "winner"
	case TierPotential:
		return "potential"
	default:
		return "normal"
	}
}

// Tier derives the tier from the record's flags. Winner takes precedence.
func (r AdRecord) Tier() Tier {
	switch {
	case r.IsWinner:
		return TierWinner
	case r.IsPotential:
		return TierPotential
	default:
		return TierNormal
	}
}

// SetTier sets IsWinner/IsPotential so that at most one is true.
func (r *AdRecord) SetTier(t Tier) {
	r.IsWinner = t == TierWinner
	r.IsPotential = t == TierPotential
}

// ClonedAd is an AI-generated rewrite of an ad's copy.
type ClonedAd struct {
	ID           string    `json:"id"`
	AdID         string    `json:"ad_id,omitempty"`
	PageName     string    `json:"page_name"`
	CountryCode  string    `json:"country_code"`
	Price        float64   `json:"price"`
	OriginalText string    `json:"original_text"`
	GeneratedAt  time.Time `json:"generated_at"`
	Copy         string    `json:"copy"`
	Model        string    `json:"model"`
}
