package reconciliation

import (
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
)

// Result is the outcome of one reconciliation run.
type Result struct {
	Comparisons []domain.ComparisonRow
	// Evaluated holds every comparison row with its flags; Mismatches is the
	// flagged subset in the same order.
	Evaluated  []domain.MismatchRow
	Mismatches []domain.MismatchRow
	Stats      Stats
}

// Stats summarises a run.
type Stats struct {
	Trades          int `json:"trades"`
	Messages        int `json:"messages"`
	Comparisons     int `json:"comparisons"`
	Mismatches      int `json:"mismatches"`
	FeeMismatches   int `json:"fee_mismatches"`
	AssetMismatches int `json:"asset_mismatches"`
	SignMismatches  int `json:"sign_mismatches"`
	GTMismatches    int `json:"gt_mismatches"`
	UnmatchedTrades int `json:"unmatched_trades"`
	ManualFeeTrades int `json:"manual_fee_trades"`
}

// Engine runs the comparison and mismatch detection stages in order.
type Engine struct {
	comparator *Comparator
	detector   *Detector
	logger     *zap.Logger
}

// NewEngine wires a comparator and detector into one pipeline.
func NewEngine(comparator *Comparator, detector *Detector, logger *zap.Logger) *Engine {
	return &Engine{comparator: comparator, detector: detector, logger: logger}
}

// Run compares logs and flags mismatches, returning rows and run counters.
func (e *Engine) Run(logs *domain.LogSet) *Result {
	comparisons := e.comparator.Compare(logs)
	evaluated := e.detector.EvaluateAll(comparisons)

	res := &Result{
		Comparisons: comparisons,
		Evaluated:   evaluated,
		Stats: Stats{
			Trades:      len(logs.Trades),
			Messages:    len(logs.Messages),
			Comparisons: len(comparisons),
		},
	}

	matched := make(map[string]bool, len(comparisons))
	for _, c := range comparisons {
		matched[c.TraceID] = true
	}
	for _, t := range logs.Trades {
		if !matched[t.TraceID] {
			res.Stats.UnmatchedTrades++
		}
		if !t.IsFeeEvaluated {
			res.Stats.ManualFeeTrades++
		}
	}

	for _, m := range evaluated {
		if !m.Flagged() {
			continue
		}
		res.Mismatches = append(res.Mismatches, m)
		if m.FeeMismatch {
			res.Stats.FeeMismatches++
		}
		if m.AssetMismatch {
			res.Stats.AssetMismatches++
		}
		if m.SignMismatch {
			res.Stats.SignMismatches++
		}
		if m.GTFeeMismatch || m.GTAssetMismatch {
			res.Stats.GTMismatches++
		}
	}
	res.Stats.Mismatches = len(res.Mismatches)

	e.logger.Info("reconciliation finished",
		zap.String("mode", string(e.detector.Mode())),
		zap.Int("trades", res.Stats.Trades),
		zap.Int("comparisons", res.Stats.Comparisons),
		zap.Int("mismatches", res.Stats.Mismatches),
		zap.Int("unmatched_trades", res.Stats.UnmatchedTrades),
	)
	return res
}
