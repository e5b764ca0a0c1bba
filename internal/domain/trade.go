package domain

type Side string

const (
	SideBid  Side = "bid"
	SideAsk  Side = "ask"
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type Role string

const (
	RoleMaker Role = "maker"
	RoleTaker Role = "taker"
)

// TradeRecord is one row of the platform's own-trade log. Numeric fields are
// nil when the source cell was empty or not a number.
type TradeRecord struct {
	TraceID        string   `json:"trace_id"`
	FeeAmount      *float64 `json:"fee_amount,omitempty"`
	FeeAsset       string   `json:"fee_asset_name"`
	BaseAsset      string   `json:"base_asset_name"`
	QuoteAsset     string   `json:"quote_asset_name"`
	Side           Side     `json:"side"`
	Role           Role     `json:"role"`
	IsFeeEvaluated bool     `json:"is_fee_evaluated"`
	Price          *float64 `json:"price,omitempty"`
	BaseAmount     *float64 `json:"base_amount,omitempty"`
	QuoteAmount    *float64 `json:"quote_amount,omitempty"`
	Source         string   `json:"source,omitempty"`
}

// Volume returns price * base_amount, or 0 unless both are present and
// strictly positive.
func (t *TradeRecord) Volume() float64 {
	if t.Price == nil || t.BaseAmount == nil {
		return 0
	}
	if *t.Price <= 0 || *t.BaseAmount <= 0 {
		return 0
	}
	return *t.Price * *t.BaseAmount
}

// OrderRecord is one row of the order log.
type OrderRecord struct {
	TraceID string `json:"trace_id"`
	Status  string `json:"status"`
	Side    Side   `json:"side"`
}

// LogSet holds the three source logs of one reconciliation run.
type LogSet struct {
	Trades   []TradeRecord
	Messages []TrafficMessage
	Orders   []OrderRecord
}
