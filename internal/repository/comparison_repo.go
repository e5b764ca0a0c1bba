package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/wakala/feerecon/internal/domain"
)

const comparisonColumns = `trace_id, side, role, source, order_status, is_fee_evaluated,
	platform_fee_rate, platform_fee_asset, exchange_fee_rate, exchange_fee_asset,
	exchange_gt_fee_rate, exchange_gt_fee_asset, fee_mismatch, asset_mismatch,
	difference, sign_mismatch, gt_fee_mismatch, gt_asset_mismatch, gt_difference,
	gt_sign_mismatch`

// ComparisonRepo stores the evaluated comparison rows of each run. Mismatches
// are the rows stored with flagged = 1.
type ComparisonRepo struct {
	db *sql.DB
}

func NewComparisonRepo(db *sql.DB) *ComparisonRepo {
	return &ComparisonRepo{db: db}
}

func (r *ComparisonRepo) BulkInsert(runID string, rows []domain.MismatchRow) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO fee_comparisons
		(run_id, seq, ` + comparisonColumns + `, flagged)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		m := &rows[i]
		_, err := stmt.Exec(
			runID, i, m.TraceID, string(m.Side), string(m.Role), m.Source, m.OrderStatus,
			boolInt(m.IsFeeEvaluated), m.PlatformFeeRate, string(m.PlatformFeeAsset),
			m.ExchangeFeeRate, string(m.ExchangeFeeAsset), m.ExchangeGTFeeRate,
			string(m.ExchangeGTFeeAsset), boolInt(m.FeeMismatch), boolInt(m.AssetMismatch),
			m.Difference, boolInt(m.SignMismatch), boolInt(m.GTFeeMismatch),
			boolInt(m.GTAssetMismatch), m.GTDifference, boolInt(m.GTSignMismatch),
			boolInt(m.Flagged()),
		)
		if err != nil {
			return i, fmt.Errorf("insert %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

type ComparisonFilter struct {
	RunID       string
	TraceID     string
	Side        string
	Role        string
	FlaggedOnly bool
	Page        int
	Limit       int
}

func (r *ComparisonRepo) List(f ComparisonFilter) ([]domain.MismatchRow, int, error) {
	where, args := buildComparisonWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM fee_comparisons"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := "SELECT " + comparisonColumns + " FROM fee_comparisons" + where + " ORDER BY seq LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanComparisons(rows)
	return out, total, err
}

// ListAll returns every row of a run without pagination.
func (r *ComparisonRepo) ListAll(runID string, flaggedOnly bool) ([]domain.MismatchRow, error) {
	where, args := buildComparisonWhere(ComparisonFilter{RunID: runID, FlaggedOnly: flaggedOnly})
	rows, err := r.db.Query("SELECT "+comparisonColumns+" FROM fee_comparisons"+where+" ORDER BY seq", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComparisons(rows)
}

// CountBy returns the number of flagged rows of a run per value of col.
func (r *ComparisonRepo) CountBy(runID, col string) (map[string]int, error) {
	if !countableColumns[col] {
		return nil, fmt.Errorf("column %q cannot be counted", col)
	}
	rows, err := r.db.Query(
		"SELECT "+col+", COUNT(*) FROM fee_comparisons WHERE run_id = ? AND flagged = 1 GROUP BY "+col,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]int)
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, rows.Err()
}

// --- helpers ---

var countableColumns = map[string]bool{
	"side":               true,
	"role":               true,
	"source":             true,
	"platform_fee_asset": true,
	"exchange_fee_asset": true,
}

func buildComparisonWhere(f ComparisonFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.TraceID != "" {
		clauses = append(clauses, "trace_id = ?")
		args = append(args, f.TraceID)
	}
	if f.Side != "" {
		clauses = append(clauses, "side = ?")
		args = append(args, f.Side)
	}
	if f.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, f.Role)
	}
	if f.FlaggedOnly {
		clauses = append(clauses, "flagged = 1")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanComparisons(rows *sql.Rows) ([]domain.MismatchRow, error) {
	var out []domain.MismatchRow
	for rows.Next() {
		var m domain.MismatchRow
		var side, role, platformAsset, exchangeAsset, gtAsset string
		var evaluated, feeMis, assetMis, signMis, gtFeeMis, gtAssetMis, gtSignMis int

		err := rows.Scan(
			&m.TraceID, &side, &role, &m.Source, &m.OrderStatus, &evaluated,
			&m.PlatformFeeRate, &platformAsset, &m.ExchangeFeeRate, &exchangeAsset,
			&m.ExchangeGTFeeRate, &gtAsset, &feeMis, &assetMis,
			&m.Difference, &signMis, &gtFeeMis, &gtAssetMis, &m.GTDifference,
			&gtSignMis,
		)
		if err != nil {
			return nil, err
		}

		m.Side = domain.Side(side)
		m.Role = domain.Role(role)
		m.IsFeeEvaluated = evaluated != 0
		m.PlatformFeeAsset = domain.AssetRole(platformAsset)
		m.ExchangeFeeAsset = domain.AssetRole(exchangeAsset)
		m.ExchangeGTFeeAsset = domain.AssetRole(gtAsset)
		m.FeeMismatch = feeMis != 0
		m.AssetMismatch = assetMis != 0
		m.SignMismatch = signMis != 0
		m.GTFeeMismatch = gtFeeMis != 0
		m.GTAssetMismatch = gtAssetMis != 0
		m.GTSignMismatch = gtSignMis != 0

		out = append(out, m)
	}
	return out, rows.Err()
}
