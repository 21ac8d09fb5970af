package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"
)

// Dialect selects the SQL flavor the price store speaks. Production runs
// on PostgreSQL; SQLite backs tests and local development.
type Dialect string

// Supported price store dialects.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// PriceStore persists daily price bars to a relational historical_prices
// table, upserting on (ticker, date). The connection pool is constructed
// and owned by the caller; the store never opens or closes connections of
// its own.
type PriceStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewPriceStore wraps an existing database pool.
func NewPriceStore(db *sql.DB, dialect Dialect) *PriceStore {
	if dialect == "" {
		dialect = DialectPostgres
	}
	return &PriceStore{db: db, dialect: dialect}
}

// OpenPostgres opens a pgx-backed pool, verifies connectivity, and ensures
// the schema. The returned *sql.DB is owned by the caller (close it when
// done); the PriceStore only borrows it.
func OpenPostgres(ctx context.Context, dsn string) (*PriceStore, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open price database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping price database: %w", err)
	}

	store := NewPriceStore(db, DialectPostgres)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// EnsureSchema creates the historical_prices table if it doesn't exist.
func (s *PriceStore) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case DialectSQLite:
		ddl = `
		CREATE TABLE IF NOT EXISTS historical_prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL,
			date TEXT NOT NULL,
			open REAL, high REAL, low REAL, close REAL,
			adj_close REAL,
			volume INTEGER,
			source TEXT,
			UNIQUE (ticker, date)
		)`
	default:
		ddl = `
		CREATE TABLE IF NOT EXISTS historical_prices (
			id SERIAL PRIMARY KEY,
			ticker VARCHAR(50) NOT NULL,
			date DATE NOT NULL,
			open NUMERIC(20,10), high NUMERIC(20,10), low NUMERIC(20,10), close NUMERIC(20,10),
			adj_close NUMERIC(20,10),
			volume BIGINT,
			source VARCHAR(50),
			UNIQUE (ticker, date)
		)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure historical_prices schema: %w", err)
	}
	return nil
}

// upsertSQL builds the dialect-appropriate insert statement.
func (s *PriceStore) upsertSQL() string {
	placeholder := func(i int) string {
		if s.dialect == DialectSQLite {
			return "?"
		}
		return fmt.Sprintf("$%d", i)
	}
	ph := make([]string, 9)
	for i := range ph {
		ph[i] = placeholder(i + 1)
	}
	return fmt.Sprintf(`
		INSERT INTO historical_prices (ticker, date, open, high, low, close, adj_close, volume, source)
		VALUES (%s)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			adj_close = excluded.adj_close,
			volume = excluded.volume,
			source = excluded.source`,
		strings.Join(ph, ", "))
}

// SaveBars upserts bars for a ticker and returns the number of rows
// written. An empty bar list is a no-op and returns 0 without touching
// the database. Repeated calls with the same (ticker, date) leave one row
// with the last call's values.
func (s *PriceStore) SaveBars(ctx context.Context, ticker, source string, bars []Bar) (int, error) {
	if ticker == "" {
		return 0, fmt.Errorf("ticker is required")
	}
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, b := range bars {
		if b.Date == "" {
			return 0, fmt.Errorf("bar %d has no date", written)
		}
		if _, err := stmt.ExecContext(ctx, ticker, b.Date,
			b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume, source); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", ticker, b.Date, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// NewSaveHistoryTool exposes price-history persistence as an agent tool.
func NewSaveHistoryTool(store *PriceStore) Tool {
	return NewTool(
		"save_history",
		`Persist daily price bars to the historical prices database, upserting on (ticker, date). Arguments: {"ticker": "BTC-USD", "source": "yahoo", "bars": [{"Date": "2026-01-02", "Open": 1.0, "High": 2.0, "Low": 0.5, "Close": 1.5, "Volume": 1000}]}. Returns a confirmation message.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Ticker string `json:"ticker"`
				Source string `json:"source"`
				Bars   []Bar  `json:"bars"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if len(in.Bars) == 0 {
				return "No data to save; the database was not touched.", nil
			}
			if in.Source == "" {
				in.Source = "unknown"
			}
			n, err := store.SaveBars(ctx, in.Ticker, in.Source, in.Bars)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Saved %d rows of history for %s.", n, in.Ticker), nil
		})
}
