package store

import (
	"context"
	"errors"

	"github.com/sells-group/ad-scout/internal/model"
)

// ErrNotFound is returned when a search or clone does not exist.
var ErrNotFound = errors.New("store: not found")

// SearchFilter specifies criteria for listing searches.
type SearchFilter struct {
	Status model.SearchStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

const defaultListLimit = 50

// Store defines the persistence interface for searches, their ads and
// generated clones.
type Store interface {
	// Searches
	CreateSearch(ctx context.Context, target model.SearchTarget) (*model.Search, error)
	UpdateSearchStatus(ctx context.Context, id string, status model.SearchStatus) error
	CompleteSearch(ctx context.Context, id string, res *model.SearchResult) error
	FailSearch(ctx context.Context, id string, reason string) error
	GetSearch(ctx context.Context, id string) (*model.Search, error)
	ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error)
	Stats(ctx context.Context) (*model.Stats, error)

	// Clones
	SaveClone(ctx context.Context, clone *model.ClonedAd) error
	ListClones(ctx context.Context, limit int) ([]model.ClonedAd, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// adColumns is the insert column order shared by both backends.
var adColumns = []string{
	"id", "search_id", "position", "page_name", "page_id", "page_url", "ad_id",
	"library_id", "ads_library_url", "ad_text", "image_url", "video_url",
	"ads_count", "days_running", "start_date", "end_date", "country", "country_code",
	"platforms", "has_contact_signal", "contact_phone", "search_keyword",
	"matched_keywords", "is_winner", "is_potential", "data_source", "raw_source_data",
}

// adSelect reads ads back in display order: winners, then potentials, then
// longest running, ties broken by discovery order.
const adSelect = `SELECT id, search_id, page_name, page_id, page_url, ad_id, library_id,
	ads_library_url, ad_text, image_url, video_url, ads_count, days_running, start_date,
	end_date, country, country_code, platforms, has_contact_signal, contact_phone,
	search_keyword, matched_keywords, is_winner, is_potential, data_source, raw_source_data
	FROM ads WHERE search_id = %s
	ORDER BY is_winner DESC, is_potential DESC, days_running DESC, position ASC`

const statsQuery = `SELECT
	(SELECT COUNT(*) FROM searches),
	(SELECT COUNT(*) FROM searches WHERE status = 'completed'),
	COUNT(*),
	COALESCE(SUM(CASE WHEN is_winner THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN is_potential THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN has_contact_signal THEN 1 ELSE 0 END), 0)
	FROM ads`

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

func nullIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
