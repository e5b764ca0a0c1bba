package repository

import (
	"database/sql"
	"time"
)

// Run is the stored summary of one reconciliation run.
type Run struct {
	ID              string    `json:"id"`
	Mode            string    `json:"mode"`
	StartedAt       time.Time `json:"started_at"`
	Trades          int       `json:"trades"`
	Messages        int       `json:"messages"`
	Comparisons     int       `json:"comparisons"`
	Mismatches      int       `json:"mismatches"`
	FeeMismatches   int       `json:"fee_mismatches"`
	AssetMismatches int       `json:"asset_mismatches"`
	SignMismatches  int       `json:"sign_mismatches"`
	GTMismatches    int       `json:"gt_mismatches"`
	UnmatchedTrades int       `json:"unmatched_trades"`
	ManualFeeTrades int       `json:"manual_fee_trades"`
}

type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Insert(run *Run) error {
	_, err := r.db.Exec(
		`INSERT INTO reconciliation_runs
		(id, mode, started_at, trades, messages, comparisons, mismatches,
		 fee_mismatches, asset_mismatches, sign_mismatches, gt_mismatches,
		 unmatched_trades, manual_fee_trades)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Mode, run.StartedAt.UTC().Format(timeLayout), run.Trades, run.Messages,
		run.Comparisons, run.Mismatches, run.FeeMismatches, run.AssetMismatches,
		run.SignMismatches, run.GTMismatches, run.UnmatchedTrades, run.ManualFeeTrades,
	)
	return err
}

// Delete removes a run and any comparison rows stored under it.
func (r *RunRepo) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM fee_comparisons WHERE run_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM reconciliation_runs WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// Latest returns the most recent run, or sql.ErrNoRows if none exists.
func (r *RunRepo) Latest() (*Run, error) {
	row := r.db.QueryRow("SELECT * FROM reconciliation_runs ORDER BY started_at DESC LIMIT 1")
	return scanRun(row)
}

func (r *RunRepo) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow("SELECT * FROM reconciliation_runs WHERE id = ?", id)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var startedAt string
	err := row.Scan(
		&run.ID, &run.Mode, &startedAt, &run.Trades, &run.Messages, &run.Comparisons,
		&run.Mismatches, &run.FeeMismatches, &run.AssetMismatches, &run.SignMismatches,
		&run.GTMismatches, &run.UnmatchedTrades, &run.ManualFeeTrades,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedAt)
	return &run, nil
}
