package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ad-scout/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	search, err := s.CreateSearch(context.Background(), testTarget())
	require.NoError(t, err)
	assert.NotEmpty(t, search.ID)
	assert.Equal(t, model.SearchStatusPending, search.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateSearchStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE searches SET status = \$1`).
		WithArgs("processing", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSearchStatus(context.Background(), "missing", model.SearchStatusProcessing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE searches SET status = \$1, error = \$2`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), pgxmock.AnyArg(), "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailSearch(context.Background(), "s1", "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE searches SET status = \$1, total_results`).
		WithArgs("completed", 2, 1, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"ads"}, adColumns).WillReturnResult(2)
	mock.ExpectCommit()

	err := s.CompleteSearch(context.Background(), "s1", &model.SearchResult{
		Records: []model.AdRecord{
			testRecord("a", 12, 40, true, false),
			testRecord("b", 1, 1, false, false),
		},
		WinnersCount: 1,
		TotalCount:   2,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSearch_NoRecordsSkipsCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE searches SET status = \$1, total_results`).
		WithArgs("completed", 0, 0, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.CompleteSearch(context.Background(), "s1", &model.SearchResult{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteSearch_CopyErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE searches SET status = \$1, total_results`).
		WithArgs("completed", 1, 0, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"ads"}, adColumns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.CompleteSearch(context.Background(), "s1", &model.SearchResult{
		Records:    []model.AdRecord{testRecord("a", 1, 1, false, false)},
		TotalCount: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store ads for search s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSearch_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, target, status, .* FROM searches WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSearch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	start := now.Add(-40 * 24 * time.Hour)

	mock.ExpectQuery(`FROM searches WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "target", "status", "total_results", "winners_count",
			"potential_count", "error", "created_at", "updated_at", "completed_at",
		}).AddRow("s1", []byte(`{"keywords":["curso"],"countries":["CL"]}`), "completed",
			1, 1, 0, "", now, now, &now))

	mock.ExpectQuery(`FROM ads WHERE search_id = \$1\s+ORDER BY is_winner DESC`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "search_id", "page_name", "page_id", "page_url", "ad_id", "library_id",
			"ads_library_url", "ad_text", "image_url", "video_url", "ads_count", "days_running",
			"start_date", "end_date", "country", "country_code", "platforms", "has_contact_signal",
			"contact_phone", "search_keyword", "matched_keywords", "is_winner", "is_potential",
			"data_source", "raw_source_data",
		}).AddRow("a1", "s1", "Cursos Online", "p1", "", "", "", "", "Curso", "", "",
			12, 40, &start, (*time.Time)(nil), "Chile", "CL", []string{"Facebook"}, true,
			"+56912345678", "curso", []string{"apify | curso"}, true, false,
			"apify", []byte(`{"x":1}`)))

	got, err := s.GetSearch(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusCompleted, got.Status)
	assert.Equal(t, []string{"curso"}, got.Target.Keywords)
	require.NotNil(t, got.CompletedAt)
	require.Len(t, got.Ads, 1)

	ad := got.Ads[0]
	assert.Equal(t, "Cursos Online", ad.PageName)
	assert.Equal(t, model.DataSourceApify, ad.DataSource)
	assert.True(t, ad.IsWinner)
	assert.Equal(t, []string{"Facebook"}, ad.Platforms)
	assert.JSONEq(t, `{"x":1}`, string(ad.RawSourceData))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSearches_Filter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM searches WHERE true AND status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("failed", 5, 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "target", "status", "total_results", "winners_count",
			"potential_count", "error", "created_at", "updated_at", "completed_at",
		}).AddRow("s1", []byte(`{}`), "failed", 0, 0, 0, "boom", now, now, (*time.Time)(nil)))

	got, err := s.ListSearches(context.Background(), SearchFilter{Status: model.SearchStatusFailed, Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Error)
	assert.Nil(t, got[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM searches\)`).
		WillReturnRows(pgxmock.NewRows([]string{"searches", "completed", "ads", "winners", "potential", "contact"}).
			AddRow(3, 2, 20, 4, 6, 9))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{TotalSearches: 3, CompletedSearches: 2, TotalAds: 20, WinnersCount: 4, PotentialCount: 6, WithContact: 9}, *st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveClone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO cloned_ads`).
		WithArgs(pgxmock.AnyArg(), "", "Pack", "PE", 19.9, "orig", "copy", "claude", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	clone := &model.ClonedAd{PageName: "Pack", CountryCode: "PE", Price: 19.9, OriginalText: "orig", Copy: "copy", Model: "claude"}
	require.NoError(t, s.SaveClone(context.Background(), clone))
	assert.NotEmpty(t, clone.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS searches`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
