package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS log_files (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			file_hash TEXT UNIQUE NOT NULL,
			record_count INTEGER NOT NULL,
			rejected_count INTEGER NOT NULL,
			ingested_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS trade_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			fee_amount REAL,
			fee_asset_name TEXT NOT NULL,
			base_asset_name TEXT NOT NULL,
			quote_asset_name TEXT NOT NULL,
			side TEXT NOT NULL,
			role TEXT NOT NULL,
			is_fee_evaluated INTEGER NOT NULL,
			price REAL,
			base_amount REAL,
			quote_amount REAL,
			source TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (file_id) REFERENCES log_files(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_trace ON trade_records(trace_id)`,

		`CREATE TABLE IF NOT EXISTS traffic_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			message_name TEXT NOT NULL,
			message_kind TEXT NOT NULL,
			message TEXT NOT NULL,
			FOREIGN KEY (file_id) REFERENCES log_files(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traffic_messages_trace ON traffic_messages(trace_id)`,

		`CREATE TABLE IF NOT EXISTS order_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			status TEXT NOT NULL,
			side TEXT NOT NULL,
			FOREIGN KEY (file_id) REFERENCES log_files(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_records_trace ON order_records(trace_id)`,

		`CREATE TABLE IF NOT EXISTS reconciliation_runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			trades INTEGER NOT NULL,
			messages INTEGER NOT NULL,
			comparisons INTEGER NOT NULL,
			mismatches INTEGER NOT NULL,
			fee_mismatches INTEGER NOT NULL,
			asset_mismatches INTEGER NOT NULL,
			sign_mismatches INTEGER NOT NULL,
			gt_mismatches INTEGER NOT NULL,
			unmatched_trades INTEGER NOT NULL,
			manual_fee_trades INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_started ON reconciliation_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS fee_comparisons (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			trace_id TEXT NOT NULL,
			side TEXT NOT NULL,
			role TEXT NOT NULL,
			source TEXT NOT NULL,
			order_status TEXT NOT NULL,
			is_fee_evaluated INTEGER NOT NULL,
			platform_fee_rate REAL NOT NULL,
			platform_fee_asset TEXT NOT NULL,
			exchange_fee_rate REAL NOT NULL,
			exchange_fee_asset TEXT NOT NULL,
			exchange_gt_fee_rate REAL NOT NULL,
			exchange_gt_fee_asset TEXT NOT NULL,
			fee_mismatch INTEGER NOT NULL,
			asset_mismatch INTEGER NOT NULL,
			difference REAL NOT NULL,
			sign_mismatch INTEGER NOT NULL,
			gt_fee_mismatch INTEGER NOT NULL,
			gt_asset_mismatch INTEGER NOT NULL,
			gt_difference REAL NOT NULL,
			gt_sign_mismatch INTEGER NOT NULL,
			flagged INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq),
			FOREIGN KEY (run_id) REFERENCES reconciliation_runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fee_comparisons_trace ON fee_comparisons(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fee_comparisons_flagged ON fee_comparisons(run_id, flagged)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// parseTime reads a stored timestamp. The driver may already have converted
// DATETIME columns, in which case the value arrives as RFC3339Nano.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
