package summary

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/wakala/feerecon/internal/domain"
)

// Column is a categorical column of the mismatch table.
type Column string

const (
	ColSide            Column = "side"
	ColRole            Column = "role"
	ColSource          Column = "source"
	ColOrderStatus     Column = "order_status"
	ColFeeEvaluated    Column = "is_fee_evaluated"
	ColPlatformAsset   Column = "platform_fee_asset"
	ColExchangeAsset   Column = "exchange_fee_asset"
	ColGTAsset         Column = "exchange_gt_fee_asset"
	ColFeeMismatch     Column = "fee_mismatch"
	ColAssetMismatch   Column = "asset_mismatch"
	ColSignMismatch    Column = "sign_mismatch"
	ColGTFeeMismatch   Column = "gt_fee_mismatch"
	ColGTAssetMismatch Column = "gt_asset_mismatch"
	ColGTSignMismatch  Column = "gt_sign_mismatch"
)

// Undefined labels rows whose asset role could not be determined.
const Undefined = "undefined"

var ErrUnknownColumn = errors.New("unknown column")

var columns = map[Column]func(*domain.MismatchRow) string{
	ColSide:            func(m *domain.MismatchRow) string { return string(m.Side) },
	ColRole:            func(m *domain.MismatchRow) string { return string(m.Role) },
	ColSource:          func(m *domain.MismatchRow) string { return m.Source },
	ColOrderStatus:     func(m *domain.MismatchRow) string { return m.OrderStatus },
	ColFeeEvaluated:    func(m *domain.MismatchRow) string { return strconv.FormatBool(m.IsFeeEvaluated) },
	ColPlatformAsset:   func(m *domain.MismatchRow) string { return assetLabel(m.PlatformFeeAsset) },
	ColExchangeAsset:   func(m *domain.MismatchRow) string { return assetLabel(m.ExchangeFeeAsset) },
	ColGTAsset:         func(m *domain.MismatchRow) string { return assetLabel(m.ExchangeGTFeeAsset) },
	ColFeeMismatch:     func(m *domain.MismatchRow) string { return strconv.FormatBool(m.FeeMismatch) },
	ColAssetMismatch:   func(m *domain.MismatchRow) string { return strconv.FormatBool(m.AssetMismatch) },
	ColSignMismatch:    func(m *domain.MismatchRow) string { return strconv.FormatBool(m.SignMismatch) },
	ColGTFeeMismatch:   func(m *domain.MismatchRow) string { return strconv.FormatBool(m.GTFeeMismatch) },
	ColGTAssetMismatch: func(m *domain.MismatchRow) string { return strconv.FormatBool(m.GTAssetMismatch) },
	ColGTSignMismatch:  func(m *domain.MismatchRow) string { return strconv.FormatBool(m.GTSignMismatch) },
}

var flagColumns = map[Column]func(*domain.MismatchRow) bool{
	ColFeeMismatch:     func(m *domain.MismatchRow) bool { return m.FeeMismatch },
	ColAssetMismatch:   func(m *domain.MismatchRow) bool { return m.AssetMismatch },
	ColSignMismatch:    func(m *domain.MismatchRow) bool { return m.SignMismatch },
	ColGTFeeMismatch:   func(m *domain.MismatchRow) bool { return m.GTFeeMismatch },
	ColGTAssetMismatch: func(m *domain.MismatchRow) bool { return m.GTAssetMismatch },
	ColGTSignMismatch:  func(m *domain.MismatchRow) bool { return m.GTSignMismatch },
}

// ParseColumn validates a column name.
func ParseColumn(name string) (Column, error) {
	c := Column(name)
	if _, ok := columns[c]; !ok {
		return "", errors.Wrapf(ErrUnknownColumn, "%q", name)
	}
	return c, nil
}

// Value returns the category of m in column c.
func (c Column) Value(m *domain.MismatchRow) string {
	if fn, ok := columns[c]; ok {
		return fn(m)
	}
	return ""
}

// IsFlag reports whether c is one of the boolean mismatch flags.
func (c Column) IsFlag() bool {
	_, ok := flagColumns[c]
	return ok
}

// FlagColumns returns the flags relevant to mode, in report order.
func FlagColumns(mode domain.MismatchMode) []Column {
	cols := []Column{ColSignMismatch, ColFeeMismatch, ColAssetMismatch}
	if mode == domain.ModeGTAware {
		cols = append(cols, ColGTSignMismatch, ColGTFeeMismatch, ColGTAssetMismatch)
	}
	return cols
}

func assetLabel(a domain.AssetRole) string {
	if a == domain.AssetUndefined {
		return Undefined
	}
	return string(a)
}
