package ingestion

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
)

var (
	tradeLogRequired = []string{
		"trace_id", "fee_amount", "fee_asset_name", "base_asset_name",
		"quote_asset_name", "side", "role", "is_fee_evaluated", "price", "base_amount",
	}
	tradeLogOptional = []string{"quote_amount", "source"}
)

// ParseTradeLog parses the platform own-trade log.
//
// Expected header (any order, extra columns ignored):
//
//	trace_id,fee_amount,fee_asset_name,base_asset_name,quote_asset_name,side,role,is_fee_evaluated,price,base_amount[,quote_amount][,source]
//
// Rows without a trace id are rejected and counted; empty or non-numeric
// amounts are kept as absent values.
func ParseTradeLog(r io.Reader, logger *zap.Logger) ([]domain.TradeRecord, LoadStats, error) {
	t, err := newTable(r, tradeLogRequired, tradeLogOptional)
	if err != nil {
		return nil, LoadStats{}, errors.Wrap(err, "trade log")
	}

	var trades []domain.TradeRecord
	var stats LoadStats
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, errors.Wrap(err, "trade log")
		}
		stats.Rows++

		traceID := rec.str("trace_id")
		if traceID == "" {
			stats.Rejected++
			logger.Warn("trade row rejected: empty trace_id", zap.Int("line", rec.line))
			continue
		}

		trades = append(trades, domain.TradeRecord{
			TraceID:        traceID,
			FeeAmount:      rec.float("fee_amount"),
			FeeAsset:       rec.str("fee_asset_name"),
			BaseAsset:      rec.str("base_asset_name"),
			QuoteAsset:     rec.str("quote_asset_name"),
			Side:           domain.Side(rec.str("side")),
			Role:           domain.Role(rec.str("role")),
			IsFeeEvaluated: rec.bool("is_fee_evaluated"),
			Price:          rec.float("price"),
			BaseAmount:     rec.float("base_amount"),
			QuoteAmount:    rec.float("quote_amount"),
			Source:         rec.str("source"),
		})
	}

	return trades, stats, nil
}
