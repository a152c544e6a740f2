package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ad-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id              TEXT PRIMARY KEY,
	target          TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	total_results   INTEGER NOT NULL DEFAULT 0,
	winners_count   INTEGER NOT NULL DEFAULT 0,
	potential_count INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at    DATETIME
);

CREATE TABLE IF NOT EXISTS ads (
	id                 TEXT PRIMARY KEY,
	search_id          TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	position           INTEGER NOT NULL,
	page_name          TEXT NOT NULL,
	page_id            TEXT NOT NULL DEFAULT '',
	page_url           TEXT NOT NULL DEFAULT '',
	ad_id              TEXT NOT NULL DEFAULT '',
	library_id         TEXT NOT NULL DEFAULT '',
	ads_library_url    TEXT NOT NULL DEFAULT '',
	ad_text            TEXT NOT NULL,
	image_url          TEXT NOT NULL DEFAULT '',
	video_url          TEXT NOT NULL DEFAULT '',
	ads_count          INTEGER NOT NULL DEFAULT 1,
	days_running       INTEGER NOT NULL DEFAULT 0,
	start_date         DATETIME,
	end_date           DATETIME,
	country            TEXT NOT NULL DEFAULT '',
	country_code       TEXT NOT NULL,
	platforms          TEXT NOT NULL DEFAULT '[]',
	has_contact_signal INTEGER NOT NULL DEFAULT 0,
	contact_phone      TEXT NOT NULL DEFAULT '',
	search_keyword     TEXT NOT NULL,
	matched_keywords   TEXT NOT NULL DEFAULT '[]',
	is_winner          INTEGER NOT NULL DEFAULT 0,
	is_potential       INTEGER NOT NULL DEFAULT 0,
	data_source        TEXT NOT NULL,
	raw_source_data    TEXT,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS cloned_ads (
	id            TEXT PRIMARY KEY,
	ad_id         TEXT NOT NULL DEFAULT '',
	page_name     TEXT NOT NULL,
	country_code  TEXT NOT NULL,
	price         REAL NOT NULL DEFAULT 0,
	original_text TEXT NOT NULL,
	copy          TEXT NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	generated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_searches_status ON searches(status);
CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_ads_search_id ON ads(search_id);
CREATE INDEX IF NOT EXISTS idx_cloned_ads_generated_at ON cloned_ads(generated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, target model.SearchTarget) (*model.Search, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	targetJSON, err := json.Marshal(target)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal target")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (id, target, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(targetJSON), string(model.SearchStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search")
	}

	return &model.Search{
		ID:        id,
		Target:    target,
		Status:    model.SearchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateSearchStatus(ctx context.Context, id string, status model.SearchStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update search status %s", id)
	}
	return checkRowsAffected(res, "search", id)
}

// CompleteSearch stores the result's records and marks the search completed
// in one transaction.
func (s *SQLiteStore) CompleteSearch(ctx context.Context, id string, result *model.SearchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin complete search")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE searches SET status = ?, total_results = ?, winners_count = ?, potential_count = ?,
		 error = '', updated_at = ?, completed_at = ? WHERE id = ?`,
		string(model.SearchStatusCompleted), result.TotalCount, result.WinnersCount,
		result.PotentialCount, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete search %s", id)
	}
	if err := checkRowsAffected(res, "search", id); err != nil {
		return err
	}

	if len(result.Records) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			`INSERT INTO ads (%s) VALUES (%s)`,
			strings.Join(adColumns, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(adColumns)), ", "),
		))
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert ad")
		}
		defer stmt.Close()

		for i, rec := range result.Records {
			row, err := sqliteAdRow(id, i, rec)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return eris.Wrapf(err, "sqlite: insert ad %d for search %s", i, id)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit complete search")
}

func (s *SQLiteStore) FailSearch(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET status = ?, error = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		string(model.SearchStatusFailed), reason, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail search %s", id)
	}
	return checkRowsAffected(res, "search", id)
}

func (s *SQLiteStore) GetSearch(ctx context.Context, id string) (*model.Search, error) {
	row := s.db.QueryRowContext(ctx, sqliteSearchSelect+` WHERE id = ?`, id)
	search, err := scanSearch(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(adSelect, "?"), id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list ads for search %s", id)
	}
	defer rows.Close()

	search.Ads = []model.AdRecord{}
	for rows.Next() {
		rec, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		search.Ads = append(search.Ads, *rec)
	}
	return search, eris.Wrap(rows.Err(), "sqlite: list ads iterate")
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error) {
	query := sqliteSearchSelect + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	searches := []model.Search{}
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, *search)
	}
	return searches, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, statsQuery).Scan(
		&st.TotalSearches, &st.CompletedSearches, &st.TotalAds, &st.WinnersCount, &st.PotentialCount, &st.WithContact,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

func (s *SQLiteStore) SaveClone(ctx context.Context, clone *model.ClonedAd) error {
	if clone.ID == "" {
		clone.ID = uuid.New().String()
	}
	if clone.GeneratedAt.IsZero() {
		clone.GeneratedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cloned_ads (id, ad_id, page_name, country_code, price, original_text, copy, model, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clone.ID, clone.AdID, clone.PageName, clone.CountryCode, clone.Price,
		clone.OriginalText, clone.Copy, clone.Model, clone.GeneratedAt,
	)
	return eris.Wrap(err, "sqlite: insert clone")
}

func (s *SQLiteStore) ListClones(ctx context.Context, limit int) ([]model.ClonedAd, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ad_id, page_name, country_code, price, original_text, copy, model, generated_at
		 FROM cloned_ads ORDER BY generated_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clones")
	}
	defer rows.Close()

	clones := []model.ClonedAd{}
	for rows.Next() {
		var c model.ClonedAd
		if err := rows.Scan(&c.ID, &c.AdID, &c.PageName, &c.CountryCode, &c.Price,
			&c.OriginalText, &c.Copy, &c.Model, &c.GeneratedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan clone")
		}
		clones = append(clones, c)
	}
	return clones, eris.Wrap(rows.Err(), "sqlite: list clones iterate")
}

// helpers

const sqliteSearchSelect = `SELECT id, target, status, total_results, winners_count,
	potential_count, error, created_at, updated_at, completed_at FROM searches`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSearch(row scannable) (*model.Search, error) {
	var s model.Search
	var targetJSON string
	var completed sql.NullTime

	err := row.Scan(&s.ID, &targetJSON, &s.Status, &s.TotalResults, &s.WinnersCount,
		&s.PotentialCount, &s.Error, &s.CreatedAt, &s.UpdatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "search")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan search")
	}

	if err := json.Unmarshal([]byte(targetJSON), &s.Target); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal target")
	}
	if completed.Valid {
		t := completed.Time
		s.CompletedAt = &t
	}
	return &s, nil
}

func scanAd(row scannable) (*model.AdRecord, error) {
	var r model.AdRecord
	var start, end sql.NullTime
	var platforms, matched string
	var raw sql.NullString

	err := row.Scan(&r.ID, &r.SearchID, &r.PageName, &r.PageID, &r.PageURL, &r.AdID,
		&r.LibraryID, &r.AdsLibraryURL, &r.AdText, &r.ImageURL, &r.VideoURL, &r.AdsCount,
		&r.DaysRunning, &start, &end, &r.Country, &r.CountryCode, &platforms,
		&r.HasContactSignal, &r.ContactPhone, &r.SearchKeyword, &matched, &r.IsWinner,
		&r.IsPotential, &r.DataSource, &raw)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan ad")
	}

	if start.Valid {
		t := start.Time
		r.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		r.EndDate = &t
	}
	if err := json.Unmarshal([]byte(platforms), &r.Platforms); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal platforms")
	}
	if err := json.Unmarshal([]byte(matched), &r.MatchedKeywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal matched keywords")
	}
	if raw.Valid {
		r.RawSourceData = json.RawMessage(raw.String)
	}
	return &r, nil
}

func sqliteAdRow(searchID string, pos int, rec model.AdRecord) ([]any, error) {
	platforms, err := json.Marshal(nonNil(rec.Platforms))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal platforms")
	}
	matched, err := json.Marshal(nonNil(rec.MatchedKeywords))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal matched keywords")
	}
	var raw any
	if b := nullIfEmpty(rec.RawSourceData); b != nil {
		raw = string(b)
	}

	return []any{
		uuid.New().String(), searchID, pos, rec.PageName, rec.PageID, rec.PageURL, rec.AdID,
		rec.LibraryID, rec.AdsLibraryURL, rec.AdText, rec.ImageURL, rec.VideoURL,
		rec.AdsCount, rec.DaysRunning, nullTime(rec.StartDate), nullTime(rec.EndDate),
		rec.Country, rec.CountryCode, string(platforms), rec.HasContactSignal,
		rec.ContactPhone, rec.SearchKeyword, string(matched), rec.IsWinner,
		rec.IsPotential, string(rec.DataSource), raw,
	}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
