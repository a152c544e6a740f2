package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ad-scout/internal/db"
	"github.com/sells-group/ad-scout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	target          JSONB NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	total_results   INTEGER NOT NULL DEFAULT 0,
	winners_count   INTEGER NOT NULL DEFAULT 0,
	potential_count INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ads (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	start_date         TIMESTAMPTZ,
	end_date           TIMESTAMPTZ,
	country            TEXT NOT NULL DEFAULT '',
	country_code       TEXT NOT NULL,
	platforms          TEXT[] NOT NULL DEFAULT '{}',
	has_contact_signal BOOLEAN NOT NULL DEFAULT false,
	contact_phone      TEXT NOT NULL DEFAULT '',
	search_keyword     TEXT NOT NULL,
	matched_keywords   TEXT[] NOT NULL DEFAULT '{}',
	is_winner          BOOLEAN NOT NULL DEFAULT false,
	is_potential       BOOLEAN NOT NULL DEFAULT false,
	data_source        TEXT NOT NULL,
	raw_source_data    JSONB,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cloned_ads (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ad_id         TEXT NOT NULL DEFAULT '',
	page_name     TEXT NOT NULL,
	country_code  TEXT NOT NULL,
	price         DOUBLE PRECISION NOT NULL DEFAULT 0,
	original_text TEXT NOT NULL,
	copy          TEXT NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	generated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_searches_status ON searches(status);
CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ads_search_id ON ads(search_id);
CREATE INDEX IF NOT EXISTS idx_cloned_ads_generated_at ON cloned_ads(generated_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, target model.SearchTarget) (*model.Search, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	targetJSON, err := json.Marshal(target)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal target")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO searches (id, target, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, targetJSON, string(model.SearchStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search")
	}

	return &model.Search{
		ID:        id,
		Target:    target,
		Status:    model.SearchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateSearchStatus(ctx context.Context, id string, status model.SearchStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE searches SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update search status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "search %s", id)
	}
	return nil
}

// CompleteSearch COPYs the result's records into ads and marks the search
// completed in one transaction.
func (s *PostgresStore) CompleteSearch(ctx context.Context, id string, result *model.SearchResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin complete search")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE searches SET status = $1, total_results = $2, winners_count = $3, potential_count = $4,
		 error = '', updated_at = $5, completed_at = $6 WHERE id = $7`,
		string(model.SearchStatusCompleted), result.TotalCount, result.WinnersCount,
		result.PotentialCount, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete search %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "search %s", id)
	}

	rows := make([][]any, 0, len(result.Records))
	for i, rec := range result.Records {
		rows = append(rows, postgresAdRow(id, i, rec))
	}
	if _, err := db.CopyFrom(ctx, tx, "ads", adColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: store ads for search %s", id)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit complete search")
}

func (s *PostgresStore) FailSearch(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE searches SET status = $1, error = $2, updated_at = $3, completed_at = $4 WHERE id = $5`,
		string(model.SearchStatusFailed), reason, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail search %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "search %s", id)
	}
	return nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, id string) (*model.Search, error) {
	search, err := scanPgSearch(s.pool.QueryRow(ctx, postgresSearchSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "search %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get search %s", id)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(adSelect, "$1"), id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list ads for search %s", id)
	}
	defer rows.Close()

	search.Ads = []model.AdRecord{}
	for rows.Next() {
		rec, err := scanPgAd(rows)
		if err != nil {
			return nil, err
		}
		search.Ads = append(search.Ads, *rec)
	}
	return search, eris.Wrap(rows.Err(), "postgres: list ads iterate")
}

func (s *PostgresStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error) {
	query := postgresSearchSelect + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	searches := []model.Search{}
	for rows.Next() {
		search, err := scanPgSearch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		searches = append(searches, *search)
	}
	return searches, eris.Wrap(rows.Err(), "postgres: list searches iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	err := s.pool.QueryRow(ctx, statsQuery).Scan(
		&st.TotalSearches, &st.CompletedSearches, &st.TotalAds, &st.WinnersCount, &st.PotentialCount, &st.WithContact,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

func (s *PostgresStore) SaveClone(ctx context.Context, clone *model.ClonedAd) error {
	if clone.ID == "" {
		clone.ID = uuid.New().String()
	}
	if clone.GeneratedAt.IsZero() {
		clone.GeneratedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cloned_ads (id, ad_id, page_name, country_code, price, original_text, copy, model, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		clone.ID, clone.AdID, clone.PageName, clone.CountryCode, clone.Price,
		clone.OriginalText, clone.Copy, clone.Model, clone.GeneratedAt,
	)
	return eris.Wrap(err, "postgres: insert clone")
}

func (s *PostgresStore) ListClones(ctx context.Context, limit int) ([]model.ClonedAd, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ad_id, page_name, country_code, price, original_text, copy, model, generated_at
		 FROM cloned_ads ORDER BY generated_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clones")
	}
	defer rows.Close()

	clones := []model.ClonedAd{}
	for rows.Next() {
		var c model.ClonedAd
		if err := rows.Scan(&c.ID, &c.AdID, &c.PageName, &c.CountryCode, &c.Price,
			&c.OriginalText, &c.Copy, &c.Model, &c.GeneratedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan clone")
		}
		clones = append(clones, c)
	}
	return clones, eris.Wrap(rows.Err(), "postgres: list clones iterate")
}

const postgresSearchSelect = `SELECT id, target, status, total_results, winners_count,
	potential_count, error, created_at, updated_at, completed_at FROM searches`

func scanPgSearch(row pgx.Row) (*model.Search, error) {
	var s model.Search
	var targetJSON []byte
	var status string

	err := row.Scan(&s.ID, &targetJSON, &status, &s.TotalResults, &s.WinnersCount,
		&s.PotentialCount, &s.Error, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.SearchStatus(status)
	if err := json.Unmarshal(targetJSON, &s.Target); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target")
	}
	return &s, nil
}

func scanPgAd(row pgx.Row) (*model.AdRecord, error) {
	var r model.AdRecord
	var source string
	var raw []byte

	err := row.Scan(&r.ID, &r.SearchID, &r.PageName, &r.PageID, &r.PageURL, &r.AdID,
		&r.LibraryID, &r.AdsLibraryURL, &r.AdText, &r.ImageURL, &r.VideoURL, &r.AdsCount,
		&r.DaysRunning, &r.StartDate, &r.EndDate, &r.Country, &r.CountryCode, &r.Platforms,
		&r.HasContactSignal, &r.ContactPhone, &r.SearchKeyword, &r.MatchedKeywords, &r.IsWinner,
		&r.IsPotential, &source, &raw)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan ad")
	}
	r.DataSource = model.DataSource(source)
	if len(raw) > 0 {
		r.RawSourceData = json.RawMessage(raw)
	}
	return &r, nil
}

func postgresAdRow(searchID string, pos int, rec model.AdRecord) []any {
	return []any{
		uuid.New().String(), searchID, pos, rec.PageName, rec.PageID, rec.PageURL, rec.AdID,
		rec.LibraryID, rec.AdsLibraryURL, rec.AdText, rec.ImageURL, rec.VideoURL,
		rec.AdsCount, rec.DaysRunning, rec.StartDate, rec.EndDate,
		rec.Country, rec.CountryCode, nonNil(rec.Platforms), rec.HasContactSignal,
		rec.ContactPhone, rec.SearchKeyword, nonNil(rec.MatchedKeywords), rec.IsWinner,
		rec.IsPotential, string(rec.DataSource), nullIfEmpty(rec.RawSourceData),
	}
}
