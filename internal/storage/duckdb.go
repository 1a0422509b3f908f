// Package storage provides an optional DuckDB sink for fetched TAQ tables.
// It uses the DuckDB Appender API for bulk inserts so multi-day exports of
// tick data land quickly, and mirrors the source-level trade invariants as
// CHECK constraints.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/quantbench/taqload/internal/models"
)

// TickStore persists trade and quote tables to a local DuckDB database.
type TickStore struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// StoreError wraps a storage failure with the operation and table involved.
type StoreError struct {
	Operation string
	Table     string
	Err       error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("storage %s on %s: %v", e.Operation, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewTickStore opens (or creates) a DuckDB database. Use ":memory:" for an
// in-memory store.
func NewTickStore(dbPath string, logger *slog.Logger) (*TickStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, &StoreError{Operation: "open", Table: "", Err: err}
	}

	// Single-writer pattern as recommended for DuckDB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &TickStore{db: db, dbPath: dbPath, logger: logger}, nil
}

// Initialize creates the trades and quotes tables. Constraints restate the
// invariants the source query enforces for trades.
func (s *TickStore) Initialize(ctx context.Context) error {
	tables := map[string]string{
		"trades": `
		CREATE TABLE IF NOT EXISTS trades (
			ts TIMESTAMPTZ NOT NULL,
			exchange VARCHAR NOT NULL,
			symbol VARCHAR NOT NULL,
			price DOUBLE NOT NULL,
			size BIGINT NOT NULL,
			sale_cond VARCHAR,
			corr VARCHAR NOT NULL,
			stored_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT trades_price_positive CHECK (price > 0),
			CONSTRAINT trades_size_positive CHECK (size > 0),
			CONSTRAINT trades_uncorrected CHECK (corr = '00')
		)`,
		"quotes": `
		CREATE TABLE IF NOT EXISTS quotes (
			ts TIMESTAMPTZ NOT NULL,
			exchange VARCHAR NOT NULL,
			symbol VARCHAR NOT NULL,
			bid DOUBLE NOT NULL,
			bid_size BIGINT NOT NULL,
			ask DOUBLE NOT NULL,
			ask_size BIGINT NOT NULL,
			quote_cond VARCHAR,
			stored_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT quotes_sizes_non_negative CHECK (bid_size >= 0 AND ask_size >= 0)
		)`,
	}
	for name, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return &StoreError{Operation: "initialize", Table: name, Err: err}
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_trades_symbol_ts ON trades (symbol, ts)",
		"CREATE INDEX IF NOT EXISTS idx_quotes_symbol_ts ON quotes (symbol, ts)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return &StoreError{Operation: "initialize", Table: "index", Err: err}
		}
	}

	s.logger.Debug("tick store initialized", "db_path", s.dbPath)
	return nil
}

// StoreTable bulk-inserts a fetched table using the DuckDB appender.
func (s *TickStore) StoreTable(ctx context.Context, table *models.Table) error {
	if table == nil || table.Empty() {
		return nil
	}

	target := "trades"
	if table.Kind == models.KindQuote {
		target = "quotes"
	}

	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &StoreError{Operation: "insert", Table: target, Err: fmt.Errorf("failed to get connection: %w", err)}
	}
	defer conn.Close()

	var driverConn *duckdb.Conn
	err = conn.Raw(func(dc interface{}) error {
		var ok bool
		driverConn, ok = dc.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("underlying connection is not a DuckDB connection")
		}
		return nil
	})
	if err != nil {
		return &StoreError{Operation: "insert", Table: target, Err: err}
	}

	appender, err := duckdb.NewAppenderFromConn(driverConn, "", target)
	if err != nil {
		return &StoreError{Operation: "insert", Table: target, Err: fmt.Errorf("failed to create appender: %w", err)}
	}
	defer appender.Close()

	switch table.Kind {
	case models.KindTrade:
		for i := range table.Trades {
			if err := s.appendTrade(appender, &table.Trades[i]); err != nil {
				return &StoreError{Operation: "insert", Table: target, Err: err}
			}
		}
	case models.KindQuote:
		for i := range table.Quotes {
			if err := s.appendQuote(appender, &table.Quotes[i]); err != nil {
				return &StoreError{Operation: "insert", Table: target, Err: err}
			}
		}
	}

	if err := appender.Flush(); err != nil {
		return &StoreError{Operation: "insert", Table: target, Err: fmt.Errorf("failed to flush appender: %w", err)}
	}

	s.logger.Debug("stored table",
		"table", target,
		"rows", table.Len(),
		"duration", time.Since(start))
	return nil
}

func (s *TickStore) appendTrade(appender *duckdb.Appender, rec *models.TradeRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid trade %s: %w", rec.String(), err)
	}
	price, err := rec.PriceDecimal()
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	priceFloat, _ := price.Float64()

	return appender.AppendRow(
		rec.Timestamp,
		rec.Exchange,
		rec.Symbol,
		priceFloat,
		rec.Size,
		rec.SaleCond,
		rec.Corr,
		time.Now().UTC(),
	)
}

func (s *TickStore) appendQuote(appender *duckdb.Appender, rec *models.QuoteRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid quote %s: %w", rec.String(), err)
	}
	bid, err := rec.BidDecimal()
	if err != nil {
		return fmt.Errorf("invalid bid: %w", err)
	}
	ask, err := rec.AskDecimal()
	if err != nil {
		return fmt.Errorf("invalid ask: %w", err)
	}
	bidFloat, _ := bid.Float64()
	askFloat, _ := ask.Float64()

	return appender.AppendRow(
		rec.Timestamp,
		rec.Exchange,
		rec.Symbol,
		bidFloat,
		rec.BidSize,
		askFloat,
		rec.AskSize,
		rec.QuoteCond,
		time.Now().UTC(),
	)
}

// Count returns the number of stored rows of a kind.
func (s *TickStore) Count(ctx context.Context, kind models.RecordKind) (int64, error) {
	target := "trades"
	if kind == models.KindQuote {
		target = "quotes"
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+target).Scan(&count); err != nil {
		return 0, &StoreError{Operation: "count", Table: target, Err: err}
	}
	return count, nil
}

// Close releases the database handle.
func (s *TickStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
