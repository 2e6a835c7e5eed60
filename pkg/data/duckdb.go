package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol VARCHAR NOT NULL,
	datetime TIMESTAMP NOT NULL,
	open DOUBLE,
	high DOUBLE,
	low DOUBLE,
	close DOUBLE,
	volume BIGINT,
	PRIMARY KEY (symbol, datetime)
);

CREATE TABLE IF NOT EXISTS history_fetches (
	symbol VARCHAR PRIMARY KEY,
	start TIMESTAMP NOT NULL,
	fetched_at TIMESTAMP NOT NULL
);

CREATE SEQUENCE IF NOT EXISTS sent_orders_id START 1;

CREATE TABLE IF NOT EXISTS sent_orders (
	id BIGINT PRIMARY KEY DEFAULT nextval('sent_orders_id'),
	account_id VARCHAR NOT NULL,
	symbol VARCHAR NOT NULL,
	instruction VARCHAR NOT NULL,
	quantity DOUBLE NOT NULL,
	price VARCHAR,
	payload VARCHAR NOT NULL,
	sent_at TIMESTAMP NOT NULL
);
`

// InitDuckDB opens the database at path, creating parent directories and the
// schema as needed.
func InitDuckDB(path string) (*sql.DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

type Repository struct {
	db *sql.DB
}

var (
	duckDB   *sql.DB
	duckPath string
	duckMu   sync.Mutex
)

// NewDuckDBRepository returns a repository sharing one connection pool per
// process.
func NewDuckDBRepository(path string) (*Repository, error) {
	duckMu.Lock()
	defer duckMu.Unlock()

	if duckDB == nil || duckPath != path {
		db, err := InitDuckDB(path)
		if err != nil {
			return nil, err
		}
		duckDB = db
		duckPath = path
	}

	return &Repository{db: duckDB}, nil
}

func (r *Repository) Close() error {
	duckMu.Lock()
	defer duckMu.Unlock()

	if r.db == duckDB {
		duckDB = nil
		duckPath = ""
	}
	return r.db.Close()
}

// SaveCandles upserts candles and records when the history of symbol was
// fetched and from which start date.
func (r *Repository) SaveCandles(symbol string, start time.Time, candles []Candle) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, datetime, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, datetime) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, c.Datetime.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("saving candle %s %s: %w", symbol, c.Datetime.Format(time.DateOnly), err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO history_fetches (symbol, start, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET start = excluded.start, fetched_at = excluded.fetched_at`,
		symbol, start.UTC(), time.Now().UTC())
	if err != nil {
		return err
	}

	log.Debug().Str("symbol", symbol).Int("candles", len(candles)).Msg("stored price history")

	return tx.Commit()
}

// HistoryFetchedAt reports when the history of symbol was last stored and the
// earliest date it covers. ok is false when it was never fetched.
func (r *Repository) HistoryFetchedAt(symbol string) (fetchedAt, start time.Time, ok bool, err error) {
	err = r.db.QueryRow(`SELECT fetched_at, start FROM history_fetches WHERE symbol = ?`, symbol).
		Scan(&fetchedAt, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return fetchedAt, start, true, nil
}

// Candles returns the stored candles of symbol since from, oldest first.
func (r *Repository) Candles(symbol string, from time.Time) ([]Candle, error) {
	rows, err := r.db.Query(`
		SELECT datetime, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND datetime >= ?
		ORDER BY datetime`, symbol, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []Candle
	for rows.Next() {
		c := Candle{Symbol: symbol}
		if err := rows.Scan(&c.Datetime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func (r *Repository) SaveSentOrder(o *SentOrder) error {
	if o.SentAt.IsZero() {
		o.SentAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO sent_orders (account_id, symbol, instruction, quantity, price, payload, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.AccountID, o.Symbol, o.Instruction, o.Quantity, o.Price, o.Payload, o.SentAt.UTC())
	return err
}

// ListSentOrders returns the orders sent for accountID, newest first. An empty
// accountID lists every account.
func (r *Repository) ListSentOrders(accountID string) ([]*SentOrder, error) {
	query := `
		SELECT account_id, symbol, instruction, quantity, COALESCE(price, ''), payload, sent_at
		FROM sent_orders`
	var args []any
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY sent_at DESC, id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*SentOrder
	for rows.Next() {
		o := &SentOrder{}
		if err := rows.Scan(&o.AccountID, &o.Symbol, &o.Instruction, &o.Quantity, &o.Price, &o.Payload, &o.SentAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
