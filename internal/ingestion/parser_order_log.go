package ingestion

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
)

var orderLogRequired = []string{"trace_id", "status", "side"}

// ParseOrderLog parses the order log.
//
// Expected header:
//
//	trace_id,status,side
func ParseOrderLog(r io.Reader, logger *zap.Logger) ([]domain.OrderRecord, LoadStats, error) {
	t, err := newTable(r, orderLogRequired, nil)
	if err != nil {
		return nil, LoadStats{}, errors.Wrap(err, "order log")
	}

	var orders []domain.OrderRecord
	var stats LoadStats
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, errors.Wrap(err, "order log")
		}
		stats.Rows++

		traceID := rec.str("trace_id")
		if traceID == "" {
			stats.Rejected++
			logger.Warn("order row rejected: empty trace_id", zap.Int("line", rec.line))
			continue
		}

		orders = append(orders, domain.OrderRecord{
			TraceID: traceID,
			Status:  rec.str("status"),
			Side:    domain.Side(rec.str("side")),
		})
	}

	return orders, stats, nil
}
