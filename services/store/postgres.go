package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"groupbuy/detailworker/pkg/errors"
)

// Pool is the subset of pgxpool.Pool the store uses
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements ListingStore on pgxpool
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a pool and pings it
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.NewConfiguration("invalid DATABASE_URL", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewPersistence("postgres", "create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewPersistence("postgres", "ping", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id                 TEXT PRIMARY KEY,
	url                TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	price_raw          TEXT NOT NULL DEFAULT '',
	price_min          DOUBLE PRECISION,
	price_max          DOUBLE PRECISION,
	currency           TEXT NOT NULL DEFAULT '',
	orders_raw         TEXT NOT NULL DEFAULT '',
	image              TEXT NOT NULL DEFAULT '',
	detail_json        JSONB,
	detail_updated_at  TIMESTAMPTZ,
	last_scrape_status TEXT
);

CREATE INDEX IF NOT EXISTS idx_listings_detail_updated_at ON listings(detail_updated_at);
`

// Migrate creates the listings table
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return errors.NewPersistence("postgres", "migrate", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Listing, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanPostgresListing(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewPersistence("postgres", "get listing "+id, err)
	}
	return l, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, update DetailUpdate) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if update.LastScrapeStatus != nil {
		tag, err = s.pool.Exec(ctx,
			`UPDATE listings SET detail_json = $1, detail_updated_at = $2, last_scrape_status = $3 WHERE id = $4`,
			update.DetailJSON, update.DetailUpdatedAt, *update.LastScrapeStatus, id)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE listings SET detail_json = $1, detail_updated_at = $2 WHERE id = $3`,
			update.DetailJSON, update.DetailUpdatedAt, id)
	}
	if err != nil {
		return errors.NewPersistence("postgres", "update listing "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListStale(ctx context.Context, before time.Time, limit int) ([]Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM listings
		WHERE detail_updated_at IS NULL OR detail_updated_at < $1
		ORDER BY detail_updated_at ASC NULLS FIRST
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, errors.NewPersistence("postgres", "list stale listings", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanPostgresListing(rows)
		if err != nil {
			return nil, errors.NewPersistence("postgres", "scan stale listing", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("postgres", "iterate stale listings", err)
	}
	return out, nil
}

func scanPostgresListing(row pgx.Row) (*Listing, error) {
	var (
		l      Listing
		status *string
	)
	err := row.Scan(&l.ID, &l.URL, &l.Title, &l.PriceRaw, &l.PriceMin, &l.PriceMax,
		&l.Currency, &l.OrdersRaw, &l.Image, &l.DetailJSON, &l.DetailUpdatedAt, &status)
	if err != nil {
		return nil, err
	}
	if status != nil {
		l.LastScrapeStatus = *status
	}
	return &l, nil
}
