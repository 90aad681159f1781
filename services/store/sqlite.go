package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"groupbuy/detailworker/pkg/errors"
)

// SQLiteStore implements ListingStore on modernc.org/sqlite. The CLI and
// single-node deployments use it.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewPersistence("sqlite", "open", err)
	}
	// in-memory databases exist per connection
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.NewPersistence("sqlite", "exec "+pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id                 TEXT PRIMARY KEY,
	url                TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	price_raw          TEXT NOT NULL DEFAULT '',
	price_min          REAL,
	price_max          REAL,
	currency           TEXT NOT NULL DEFAULT '',
	orders_raw         TEXT NOT NULL DEFAULT '',
	image              TEXT NOT NULL DEFAULT '',
	detail_json        TEXT,
	detail_updated_at  DATETIME,
	last_scrape_status TEXT
);

CREATE INDEX IF NOT EXISTS idx_listings_detail_updated_at ON listings(detail_updated_at);
`

// Migrate creates the listings table
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return errors.NewPersistence("sqlite", "migrate", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutListing inserts or replaces the aggregator fields of l and returns its
// id. A new id is generated when l.ID is empty. The cached detail columns of
// an existing row are kept.
func (s *SQLiteStore) PutListing(ctx context.Context, l Listing) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (id, url, title, price_raw, price_min, price_max, currency, orders_raw, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			price_raw = excluded.price_raw,
			price_min = excluded.price_min,
			price_max = excluded.price_max,
			currency = excluded.currency,
			orders_raw = excluded.orders_raw,
			image = excluded.image`,
		l.ID, l.URL, l.Title, l.PriceRaw, nullFloat(l.PriceMin), nullFloat(l.PriceMax), l.Currency, l.OrdersRaw, l.Image,
	)
	if err != nil {
		return "", errors.NewPersistence("sqlite", "put listing", err)
	}
	return l.ID, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanSQLiteListing(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewPersistence("sqlite", "get listing "+id, err)
	}
	return l, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, update DetailUpdate) error {
	var (
		res sql.Result
		err error
	)
	detailJSON := nullText(update.DetailJSON)
	updatedAt := update.DetailUpdatedAt.UTC()
	if update.LastScrapeStatus != nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE listings SET detail_json = ?, detail_updated_at = ?, last_scrape_status = ? WHERE id = ?`,
			detailJSON, updatedAt, *update.LastScrapeStatus, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE listings SET detail_json = ?, detail_updated_at = ? WHERE id = ?`,
			detailJSON, updatedAt, id)
	}
	if err != nil {
		return errors.NewPersistence("sqlite", "update listing "+id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewPersistence("sqlite", "rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListStale(ctx context.Context, before time.Time, limit int) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings
		WHERE detail_updated_at IS NULL OR detail_updated_at < ?
		ORDER BY detail_updated_at ASC
		LIMIT ?`, before.UTC(), limit)
	if err != nil {
		return nil, errors.NewPersistence("sqlite", "list stale listings", err)
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, errors.NewPersistence("sqlite", "scan stale listing", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("sqlite", "iterate stale listings", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteListing(row rowScanner) (*Listing, error) {
	var (
		l          Listing
		priceMin   sql.NullFloat64
		priceMax   sql.NullFloat64
		detailJSON sql.NullString
		updatedAt  sql.NullTime
		status     sql.NullString
	)
	err := row.Scan(&l.ID, &l.URL, &l.Title, &l.PriceRaw, &priceMin, &priceMax,
		&l.Currency, &l.OrdersRaw, &l.Image, &detailJSON, &updatedAt, &status)
	if err != nil {
		return nil, err
	}
	if priceMin.Valid {
		l.PriceMin = &priceMin.Float64
	}
	if priceMax.Valid {
		l.PriceMax = &priceMax.Float64
	}
	if detailJSON.Valid {
		l.DetailJSON = []byte(detailJSON.String)
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		l.DetailUpdatedAt = &t
	}
	l.LastScrapeStatus = status.String
	return &l, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullText(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
