package reconciliation

import (
	"math"
	"strconv"
)

// RatePrecision is the number of decimal places fee rates are rounded to.
const RatePrecision = 5

// FeeRate expresses fee as a percentage of volume, rounded to RatePrecision
// places. It is 0 when the fee is unknown or the volume is 0.
func FeeRate(fee *float64, volume float64) float64 {
	if fee == nil || volume == 0 {
		return 0
	}
	rate := (*fee / volume) * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return Round(rate)
}

// Round rounds the exact binary value of v to RatePrecision decimal places,
// resolving exact ties to even.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', RatePrecision, 64), 64)
	if err != nil {
		return v
	}
	return r
}
