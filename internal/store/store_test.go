package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ad-scout/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testTarget() model.SearchTarget {
	return model.SearchTarget{
		Keywords:   []string{"curso marketing"},
		Countries:  []string{"CL"},
		ResultCap:  50,
		DataSource: model.DataSourceSimulated,
	}
}

func testRecord(name string, adsCount, days int, winner, potential bool) model.AdRecord {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return model.AdRecord{
		PageName:         name,
		PageID:           "pid-" + name,
		AdText:           "Curso de marketing " + name,
		AdsCount:         adsCount,
		DaysRunning:      days,
		StartDate:        &start,
		Country:          "Chile",
		CountryCode:      "CL",
		Platforms:        []string{"Facebook", "Instagram"},
		HasContactSignal: winner,
		SearchKeyword:    "curso marketing",
		MatchedKeywords:  []string{"simulated | curso marketing"},
		IsWinner:         winner,
		IsPotential:      potential,
		DataSource:       model.DataSourceSimulated,
		RawSourceData:    json.RawMessage(`{"page_name":"` + name + `"}`),
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetSearch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		search, err := s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		assert.NotEmpty(t, search.ID)
		assert.Equal(t, model.SearchStatusPending, search.Status)

		got, err := s.GetSearch(ctx, search.ID)
		require.NoError(t, err)
		assert.Equal(t, search.ID, got.ID)
		assert.Equal(t, model.SearchStatusPending, got.Status)
		assert.Equal(t, []string{"curso marketing"}, got.Target.Keywords)
		assert.Equal(t, model.DataSourceSimulated, got.Target.DataSource)
		assert.Nil(t, got.CompletedAt)
		assert.Empty(t, got.Ads)
	})

	t.Run("GetSearch_NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetSearch(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		search, err := s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		require.NoError(t, s.UpdateSearchStatus(ctx, search.ID, model.SearchStatusProcessing))

		got, err := s.GetSearch(ctx, search.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SearchStatusProcessing, got.Status)

		res := &model.SearchResult{
			Records: []model.AdRecord{
				testRecord("normal-long", 3, 50, false, false),
				testRecord("winner", 12, 40, true, false),
				testRecord("potential", 6, 10, false, true),
				testRecord("normal-short", 2, 5, false, false),
			},
			WinnersCount:   1,
			PotentialCount: 1,
			TotalCount:     4,
		}
		require.NoError(t, s.CompleteSearch(ctx, search.ID, res))

		got, err = s.GetSearch(ctx, search.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SearchStatusCompleted, got.Status)
		assert.Equal(t, 4, got.TotalResults)
		assert.Equal(t, 1, got.WinnersCount)
		assert.Equal(t, 1, got.PotentialCount)
		require.NotNil(t, got.CompletedAt)

		require.Len(t, got.Ads, 4)
		names := make([]string, len(got.Ads))
		for i, ad := range got.Ads {
			names[i] = ad.PageName
			assert.Equal(t, search.ID, ad.SearchID)
			assert.NotEmpty(t, ad.ID)
		}
		assert.Equal(t, []string{"winner", "potential", "normal-long", "normal-short"}, names)

		winner := got.Ads[0]
		assert.True(t, winner.IsWinner)
		assert.True(t, winner.HasContactSignal)
		assert.Equal(t, []string{"Facebook", "Instagram"}, winner.Platforms)
		assert.Equal(t, []string{"simulated | curso marketing"}, winner.MatchedKeywords)
		require.NotNil(t, winner.StartDate)
		assert.True(t, winner.StartDate.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)))
		assert.Nil(t, winner.EndDate)
		assert.JSONEq(t, `{"page_name":"winner"}`, string(winner.RawSourceData))
	})

	t.Run("FailSearch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		search, err := s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		require.NoError(t, s.FailSearch(ctx, search.ID, "apify: missing token"))

		got, err := s.GetSearch(ctx, search.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SearchStatusFailed, got.Status)
		assert.Equal(t, "apify: missing token", got.Error)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("UpdateMissingSearch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		assert.ErrorIs(t, s.UpdateSearchStatus(ctx, "missing", model.SearchStatusProcessing), ErrNotFound)
		assert.ErrorIs(t, s.FailSearch(ctx, "missing", "x"), ErrNotFound)
		assert.ErrorIs(t, s.CompleteSearch(ctx, "missing", &model.SearchResult{}), ErrNotFound)
	})

	t.Run("ListSearches", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		second, err := s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		require.NoError(t, s.FailSearch(ctx, second.ID, "boom"))

		all, err := s.ListSearches(ctx, SearchFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		failed, err := s.ListSearches(ctx, SearchFilter{Status: model.SearchStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, second.ID, failed[0].ID)

		pending, err := s.ListSearches(ctx, SearchFilter{Status: model.SearchStatusPending})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)

		limited, err := s.ListSearches(ctx, SearchFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Stats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		empty, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.Stats{}, *empty)

		search, err := s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		_, err = s.CreateSearch(ctx, testTarget())
		require.NoError(t, err)
		require.NoError(t, s.CompleteSearch(ctx, search.ID, &model.SearchResult{
			Records: []model.AdRecord{
				testRecord("a", 12, 40, true, false),
				testRecord("b", 6, 10, false, true),
				testRecord("c", 1, 1, false, false),
			},
			WinnersCount: 1, PotentialCount: 1, TotalCount: 3,
		}))

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.Stats{
			TotalSearches:     2,
			CompletedSearches: 1,
			TotalAds:          3,
			WinnersCount:      1,
			PotentialCount:    1,
			WithContact:       1,
		}, *st)
	})

	t.Run("Clones", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		older := &model.ClonedAd{
			PageName: "Cursos Online", CountryCode: "CL", Price: 9.99,
			OriginalText: "texto", Copy: "nuevo texto", Model: "claude",
			GeneratedAt: time.Now().UTC().Add(-time.Hour),
		}
		require.NoError(t, s.SaveClone(ctx, older))
		assert.NotEmpty(t, older.ID)

		newer := &model.ClonedAd{PageName: "Pack", CountryCode: "PE", OriginalText: "a", Copy: "b"}
		require.NoError(t, s.SaveClone(ctx, newer))
		assert.False(t, newer.GeneratedAt.IsZero())

		clones, err := s.ListClones(ctx, 0)
		require.NoError(t, err)
		require.Len(t, clones, 2)
		assert.Equal(t, newer.ID, clones[0].ID)
		assert.Equal(t, older.ID, clones[1].ID)
		assert.InDelta(t, 9.99, clones[1].Price, 0.001)
		assert.Equal(t, "nuevo texto", clones[1].Copy)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
