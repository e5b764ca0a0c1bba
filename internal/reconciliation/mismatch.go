package reconciliation

import (
	"github.com/pkg/errors"

	"github.com/wakala/feerecon/internal/domain"
)

// ErrUnknownMode is returned for a mismatch mode other than standard or
// gt_aware.
var ErrUnknownMode = errors.New("unknown mismatch mode")

// Detector flags comparison rows on which the platform and the exchange
// disagree.
//
// Rates are compared with exact equality after rounding to RatePrecision
// places; no tolerance is applied.
type Detector struct {
	mode domain.MismatchMode
}

// NewDetector returns a detector for mode, or ErrUnknownMode.
func NewDetector(mode domain.MismatchMode) (*Detector, error) {
	switch mode {
	case domain.ModeStandard, domain.ModeGTAware:
		return &Detector{mode: mode}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%q", mode)
	}
}

// Mode returns the mode the detector flags rows in.
func (d *Detector) Mode() domain.MismatchMode {
	return d.mode
}

// Evaluate computes every flag of row without filtering it.
func (d *Detector) Evaluate(row domain.ComparisonRow) domain.MismatchRow {
	m := domain.MismatchRow{
		ComparisonRow: row,
		FeeMismatch:   row.PlatformFeeRate != row.ExchangeFeeRate,
		AssetMismatch: row.PlatformFeeAsset != row.ExchangeFeeAsset,
		Difference:    row.PlatformFeeRate - row.ExchangeFeeRate,
		SignMismatch:  oppositeSign(row.PlatformFeeRate, row.ExchangeFeeRate),
	}

	// GT flags only apply to messages that actually carried a gt_fee.
	if d.mode == domain.ModeGTAware && row.ExchangeGTFeeAsset != domain.AssetUndefined {
		m.GTFeeMismatch = row.PlatformFeeRate != row.ExchangeGTFeeRate
		m.GTAssetMismatch = row.PlatformFeeAsset != row.ExchangeGTFeeAsset
		m.GTDifference = row.PlatformFeeRate - row.ExchangeGTFeeRate
		m.GTSignMismatch = oppositeSign(row.PlatformFeeRate, row.ExchangeGTFeeRate)
	}
	return m
}

// EvaluateAll evaluates every row, flagged or not.
func (d *Detector) EvaluateAll(rows []domain.ComparisonRow) []domain.MismatchRow {
	out := make([]domain.MismatchRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, d.Evaluate(row))
	}
	return out
}

// Detect returns only the rows with at least one mismatch flag set.
func (d *Detector) Detect(rows []domain.ComparisonRow) []domain.MismatchRow {
	var out []domain.MismatchRow
	for _, row := range rows {
		m := d.Evaluate(row)
		if m.Flagged() {
			out = append(out, m)
		}
	}
	return out
}

func oppositeSign(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}
