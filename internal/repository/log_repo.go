package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wakala/feerecon/internal/domain"
)

// LogKind names one of the three source logs.
type LogKind string

const (
	LogTrades  LogKind = "trades"
	LogTraffic LogKind = "traffic"
	LogOrders  LogKind = "orders"
)

// LogFile is the metadata of one ingested log file.
type LogFile struct {
	ID            string    `json:"id"`
	Kind          LogKind   `json:"kind"`
	FileHash      string    `json:"file_hash"`
	RecordCount   int       `json:"record_count"`
	RejectedCount int       `json:"rejected_count"`
	IngestedAt    time.Time `json:"ingested_at"`
}

type LogRepo struct {
	db *sql.DB
}

func NewLogRepo(db *sql.DB) *LogRepo {
	return &LogRepo{db: db}
}

// FileExistsByHash checks whether a log file with the given hash has already
// been ingested.
func (r *LogRepo) FileExistsByHash(hash string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM log_files WHERE file_hash = ?", hash,
	).Scan(&count)
	return count > 0, err
}

func (r *LogRepo) InsertFile(f *LogFile) error {
	_, err := r.db.Exec(
		`INSERT INTO log_files
		(id, kind, file_hash, record_count, rejected_count, ingested_at)
		VALUES (?,?,?,?,?,?)`,
		f.ID, string(f.Kind), f.FileHash, f.RecordCount, f.RejectedCount,
		f.IngestedAt.UTC().Format(timeLayout),
	)
	return err
}

func (r *LogRepo) InsertTrades(fileID string, trades []domain.TradeRecord) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO trade_records
		(file_id, trace_id, fee_amount, fee_asset_name, base_asset_name,
		 quote_asset_name, side, role, is_fee_evaluated, price, base_amount,
		 quote_amount, source)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range trades {
		t := &trades[i]
		_, err := stmt.Exec(
			fileID, t.TraceID, nullableFloat(t.FeeAmount), t.FeeAsset, t.BaseAsset,
			t.QuoteAsset, string(t.Side), string(t.Role), boolInt(t.IsFeeEvaluated),
			nullableFloat(t.Price), nullableFloat(t.BaseAmount),
			nullableFloat(t.QuoteAmount), t.Source,
		)
		if err != nil {
			return i, fmt.Errorf("insert trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(trades), nil
}

func (r *LogRepo) InsertMessages(fileID string, msgs []domain.TrafficMessage) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO traffic_messages
		(file_id, trace_id, direction, message_name, message_kind, message)
		VALUES (?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range msgs {
		m := &msgs[i]
		if _, err := stmt.Exec(fileID, m.TraceID, m.Direction, m.MessageName, m.MessageKind, m.Message); err != nil {
			return i, fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(msgs), nil
}

func (r *LogRepo) InsertOrders(fileID string, orders []domain.OrderRecord) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO order_records (file_id, trace_id, status, side) VALUES (?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range orders {
		o := &orders[i]
		if _, err := stmt.Exec(fileID, o.TraceID, o.Status, string(o.Side)); err != nil {
			return i, fmt.Errorf("insert order %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(orders), nil
}

// LoadAll reads every stored log row in ingestion order.
func (r *LogRepo) LoadAll() (*domain.LogSet, error) {
	trades, err := r.loadTrades()
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	msgs, err := r.loadMessages()
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	orders, err := r.loadOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return &domain.LogSet{Trades: trades, Messages: msgs, Orders: orders}, nil
}

// ListFiles returns ingested file metadata, newest first.
func (r *LogRepo) ListFiles() ([]LogFile, error) {
	rows, err := r.db.Query(
		"SELECT id, kind, file_hash, record_count, rejected_count, ingested_at FROM log_files ORDER BY ingested_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []LogFile
	for rows.Next() {
		var f LogFile
		var kind, ingestedAt string
		if err := rows.Scan(&f.ID, &kind, &f.FileHash, &f.RecordCount, &f.RejectedCount, &ingestedAt); err != nil {
			return nil, err
		}
		f.Kind = LogKind(kind)
		f.IngestedAt = parseTime(ingestedAt)
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- helpers ---

func (r *LogRepo) loadTrades() ([]domain.TradeRecord, error) {
	rows, err := r.db.Query(`
		SELECT trace_id, fee_amount, fee_asset_name, base_asset_name, quote_asset_name,
			side, role, is_fee_evaluated, price, base_amount, quote_amount, source
		FROM trade_records ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var side, role string
		var evaluated int
		var fee, price, base, quote sql.NullFloat64
		err := rows.Scan(
			&t.TraceID, &fee, &t.FeeAsset, &t.BaseAsset, &t.QuoteAsset,
			&side, &role, &evaluated, &price, &base, &quote, &t.Source,
		)
		if err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		t.Role = domain.Role(role)
		t.IsFeeEvaluated = evaluated != 0
		t.FeeAmount = floatPtr(fee)
		t.Price = floatPtr(price)
		t.BaseAmount = floatPtr(base)
		t.QuoteAmount = floatPtr(quote)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *LogRepo) loadMessages() ([]domain.TrafficMessage, error) {
	rows, err := r.db.Query(
		"SELECT trace_id, direction, message_name, message_kind, message FROM traffic_messages ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.TrafficMessage
	for rows.Next() {
		var m domain.TrafficMessage
		if err := rows.Scan(&m.TraceID, &m.Direction, &m.MessageName, &m.MessageKind, &m.Message); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *LogRepo) loadOrders() ([]domain.OrderRecord, error) {
	rows, err := r.db.Query("SELECT trace_id, status, side FROM order_records ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.OrderRecord
	for rows.Next() {
		var o domain.OrderRecord
		var side string
		if err := rows.Scan(&o.TraceID, &o.Status, &side); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
