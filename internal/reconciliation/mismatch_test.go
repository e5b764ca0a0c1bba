package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakala/feerecon/internal/domain"
)

func TestNewDetector_UnknownMode(t *testing.T) {
	_, err := NewDetector("loose")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestEvaluate_Flags(t *testing.T) {
	d, err := NewDetector(domain.ModeStandard)
	require.NoError(t, err)

	tests := []struct {
		name     string
		platform float64
		exchange float64
		wantFee  bool
		wantSign bool
	}{
		{"equal", 0.1, 0.1, false, false},
		{"differ", 0.2, 0.1, true, false},
		{"opposite sign", 0.1, -0.1, true, true},
		{"opposite sign reversed", -0.1, 0.1, true, true},
		{"platform zero", 0, -0.1, true, false},
		{"exchange zero", 0.1, 0, true, false},
		{"both negative", -0.1, -0.2, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := d.Evaluate(domain.ComparisonRow{
				PlatformFeeRate:  tt.platform,
				ExchangeFeeRate:  tt.exchange,
				PlatformFeeAsset: domain.AssetQuote,
				ExchangeFeeAsset: domain.AssetQuote,
			})
			assert.Equal(t, tt.wantFee, m.FeeMismatch)
			assert.Equal(t, tt.wantSign, m.SignMismatch)
			assert.Equal(t, tt.platform-tt.exchange, m.Difference)
			assert.False(t, m.AssetMismatch)
		})
	}
}

func TestEvaluate_AssetMismatch(t *testing.T) {
	d, err := NewDetector(domain.ModeStandard)
	require.NoError(t, err)

	m := d.Evaluate(domain.ComparisonRow{
		PlatformFeeRate:  0.1,
		ExchangeFeeRate:  0.1,
		PlatformFeeAsset: domain.AssetBase,
		ExchangeFeeAsset: domain.AssetUndefined,
	})
	assert.True(t, m.AssetMismatch)
	assert.False(t, m.FeeMismatch)
	assert.True(t, m.Flagged())
}

func TestEvaluate_GTColumns(t *testing.T) {
	row := domain.ComparisonRow{
		PlatformFeeRate:    0.1,
		PlatformFeeAsset:   domain.AssetQuote,
		ExchangeFeeRate:    0.1,
		ExchangeFeeAsset:   domain.AssetQuote,
		ExchangeGTFeeRate:  -0.05,
		ExchangeGTFeeAsset: domain.AssetAux,
	}

	standard, err := NewDetector(domain.ModeStandard)
	require.NoError(t, err)
	m := standard.Evaluate(row)
	assert.False(t, m.Flagged())
	assert.False(t, m.GTFeeMismatch)
	assert.Zero(t, m.GTDifference)

	aware, err := NewDetector(domain.ModeGTAware)
	require.NoError(t, err)
	m = aware.Evaluate(row)
	assert.True(t, m.Flagged())
	assert.True(t, m.GTFeeMismatch)
	assert.True(t, m.GTAssetMismatch)
	assert.True(t, m.GTSignMismatch)
	assert.Equal(t, 0.1-(-0.05), m.GTDifference)

	// Without a gt_fee in the message the GT flags stay down.
	row.ExchangeGTFeeRate = 0
	row.ExchangeGTFeeAsset = domain.AssetUndefined
	m = aware.Evaluate(row)
	assert.False(t, m.Flagged())
}

func TestDetect_KeepsOnlyFlaggedRows(t *testing.T) {
	d, err := NewDetector(domain.ModeGTAware)
	require.NoError(t, err)

	rows := []domain.ComparisonRow{
		{TraceID: "ok", PlatformFeeRate: 0.1, ExchangeFeeRate: 0.1, PlatformFeeAsset: domain.AssetQuote, ExchangeFeeAsset: domain.AssetQuote},
		{TraceID: "fee", PlatformFeeRate: 0.1, ExchangeFeeRate: 0.2, PlatformFeeAsset: domain.AssetQuote, ExchangeFeeAsset: domain.AssetQuote},
		{TraceID: "asset", PlatformFeeRate: 0.1, ExchangeFeeRate: 0.1, PlatformFeeAsset: domain.AssetQuote, ExchangeFeeAsset: domain.AssetBase},
	}

	got := d.Detect(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "fee", got[0].TraceID)
	assert.Equal(t, "asset", got[1].TraceID)
	for _, m := range got {
		assert.True(t, m.FeeMismatch || m.AssetMismatch)
	}

	assert.Len(t, d.EvaluateAll(rows), 3)
}
