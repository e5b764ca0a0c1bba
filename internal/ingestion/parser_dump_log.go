package ingestion

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/domain"
)

var dumpLogRequired = []string{"trace_id", "direction", "message_name", "message_kind", "message"}

// ParseDumpLog parses the exchange traffic dump log.
//
// Expected header:
//
//	trace_id,direction,message_name,message_kind,message
//
// The message payload is kept verbatim. When message is the last column an
// unquoted JSON payload spanning several cells is reassembled.
func ParseDumpLog(r io.Reader, logger *zap.Logger) ([]domain.TrafficMessage, LoadStats, error) {
	t, err := newTable(r, dumpLogRequired, nil)
	if err != nil {
		return nil, LoadStats{}, errors.Wrap(err, "dump log")
	}

	var msgs []domain.TrafficMessage
	var stats LoadStats
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, errors.Wrap(err, "dump log")
		}
		stats.Rows++

		traceID := rec.str("trace_id")
		if traceID == "" || !rec.complete() {
			stats.Rejected++
			logger.Warn("dump row rejected", zap.Int("line", rec.line), zap.String("trace_id", traceID))
			continue
		}

		msgs = append(msgs, domain.TrafficMessage{
			TraceID:     traceID,
			Direction:   rec.str("direction"),
			MessageName: rec.str("message_name"),
			MessageKind: rec.str("message_kind"),
			Message:     rec.rest("message"),
		})
	}

	return msgs, stats, nil
}
