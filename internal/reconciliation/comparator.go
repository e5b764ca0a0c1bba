package reconciliation

import (
	"go.uber.org/zap"

	"github.com/wakala/feerecon/internal/currency"
	"github.com/wakala/feerecon/internal/domain"
)

// Comparator joins trades with the eligible traffic messages that share their
// trace id and computes both sides' fee rates.
type Comparator struct {
	filter domain.TrafficFilter
	logger *zap.Logger
}

// NewComparator creates a comparator that only considers messages accepted
// by filter.
func NewComparator(filter domain.TrafficFilter, logger *zap.Logger) *Comparator {
	return &Comparator{filter: filter, logger: logger}
}

// Compare emits one row per (trade, eligible message) pair, ordered by trade
// and then by message. Trades without eligible messages produce no rows.
func (c *Comparator) Compare(logs *domain.LogSet) []domain.ComparisonRow {
	byTrace := c.eligibleByTrace(logs.Messages)
	statuses := latestOrderStatus(logs.Orders)

	var rows []domain.ComparisonRow
	for i := range logs.Trades {
		trade := &logs.Trades[i]

		if !trade.IsFeeEvaluated {
			c.logger.Warn("fee was entered manually", zap.String("trace_id", trade.TraceID))
		}

		msgs := byTrace[trade.TraceID]
		if len(msgs) == 0 {
			continue
		}

		volume := trade.Volume()
		platformRate := FeeRate(trade.FeeAmount, volume)
		platformAsset := currency.Classify(trade.FeeAsset, trade.BaseAsset, trade.QuoteAsset)

		for _, msg := range msgs {
			fee := ExtractFee(msg.Message, trade.FeeAsset)
			if err := fee.Err(); err != nil {
				c.logger.Warn("could not extract exchange fee",
					zap.String("trace_id", trade.TraceID), zap.Error(err))
			}
			gt := ExtractGTFee(msg.Message)

			rows = append(rows, domain.ComparisonRow{
				TraceID:            trade.TraceID,
				Side:               trade.Side,
				Role:               trade.Role,
				Source:             trade.Source,
				OrderStatus:        statuses[trade.TraceID],
				IsFeeEvaluated:     trade.IsFeeEvaluated,
				PlatformFeeRate:    platformRate,
				PlatformFeeAsset:   platformAsset,
				ExchangeFeeRate:    FeeRate(fee.Amount, volume),
				ExchangeFeeAsset:   currency.Classify(fee.Currency, trade.BaseAsset, trade.QuoteAsset),
				ExchangeGTFeeRate:  FeeRate(gt.Amount, volume),
				ExchangeGTFeeAsset: currency.Classify(gt.Currency, trade.BaseAsset, trade.QuoteAsset),
			})
		}
	}
	return rows
}

func (c *Comparator) eligibleByTrace(messages []domain.TrafficMessage) map[string][]*domain.TrafficMessage {
	byTrace := make(map[string][]*domain.TrafficMessage)
	for i := range messages {
		m := &messages[i]
		if !c.filter.Eligible(m) {
			continue
		}
		byTrace[m.TraceID] = append(byTrace[m.TraceID], m)
	}
	return byTrace
}

// latestOrderStatus keeps the last status seen per trace in log order.
func latestOrderStatus(orders []domain.OrderRecord) map[string]string {
	statuses := make(map[string]string, len(orders))
	for _, o := range orders {
		if o.Status != "" {
			statuses[o.TraceID] = o.Status
		}
	}
	return statuses
}
