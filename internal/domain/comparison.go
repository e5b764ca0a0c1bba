package domain

// AssetRole classifies a fee asset relative to the traded pair. The zero
// value means the asset itself was unknown.
type AssetRole string

const (
	AssetUndefined AssetRole = ""
	AssetBase      AssetRole = "base"
	AssetQuote     AssetRole = "quote"
	AssetAux       AssetRole = "aux"
)

// ComparisonRow is produced for every (trade, eligible message) pair.
// Rates are percentages of trade volume rounded to 5 decimal places.
type ComparisonRow struct {
	TraceID            string    `json:"trace_id"`
	Side               Side      `json:"side"`
	Role               Role      `json:"role"`
	Source             string    `json:"source,omitempty"`
	OrderStatus        string    `json:"order_status,omitempty"`
	IsFeeEvaluated     bool      `json:"is_fee_evaluated"`
	PlatformFeeRate    float64   `json:"platform_fee_rate"`
	PlatformFeeAsset   AssetRole `json:"platform_fee_asset"`
	ExchangeFeeRate    float64   `json:"exchange_fee_rate"`
	ExchangeFeeAsset   AssetRole `json:"exchange_fee_asset"`
	ExchangeGTFeeRate  float64   `json:"exchange_gt_fee_rate"`
	ExchangeGTFeeAsset AssetRole `json:"exchange_gt_fee_asset"`
}

type MismatchMode string

const (
	ModeStandard MismatchMode = "standard"
	ModeGTAware  MismatchMode = "gt_aware"
)

// MismatchRow is a ComparisonRow with its evaluated flags. GT flags stay
// false in standard mode.
type MismatchRow struct {
	ComparisonRow

	FeeMismatch     bool    `json:"fee_mismatch"`
	AssetMismatch   bool    `json:"asset_mismatch"`
	Difference      float64 `json:"difference"`
	SignMismatch    bool    `json:"sign_mismatch"`
	GTFeeMismatch   bool    `json:"gt_fee_mismatch"`
	GTAssetMismatch bool    `json:"gt_asset_mismatch"`
	GTDifference    float64 `json:"gt_difference"`
	GTSignMismatch  bool    `json:"gt_sign_mismatch"`
}

// Flagged reports whether the row belongs in the mismatch table.
func (m *MismatchRow) Flagged() bool {
	return m.FeeMismatch || m.AssetMismatch || m.GTFeeMismatch || m.GTAssetMismatch
}
