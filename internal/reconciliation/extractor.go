package reconciliation

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/wakala/feerecon/internal/currency"
)

var (
	errNoResult    = errors.New("payload has no data.result")
	errEmptyResult = errors.New("data.result is an empty list")
)

// Extraction is the fee reported by the exchange in a single traffic
// message. A nil Amount or empty Currency means the value could not be read.
type Extraction struct {
	Amount   *float64
	Currency string

	err error
}

// Err returns the reason the payload could not be decoded, if any. It is
// diagnostic only; a failed extraction is still a valid, empty Extraction.
func (e Extraction) Err() error {
	return e.err
}

// ExtractFee reads the fee amount and currency from a raw exchange payload.
//
// data.result may be an object or a list of objects; only the first list
// element is read. When platformFeeAsset is the alternate fee token the amount
// comes from gt_fee and the currency is the token itself. ExtractFee never
// fails: any decoding problem yields an empty Extraction.
func ExtractFee(payload, platformFeeAsset string) Extraction {
	result, err := decodeResult(payload)
	if err != nil {
		return Extraction{err: err}
	}

	if currency.IsAlternateFeeToken(platformFeeAsset) {
		return Extraction{
			Amount:   truthyNumber(result["gt_fee"]),
			Currency: currency.AlternateFeeToken,
		}
	}

	return Extraction{
		Amount:   number(result["fee"]),
		Currency: text(result["fee_currency"]),
	}
}

// ExtractGTFee reads the alternate-token fee regardless of the asset the
// platform recorded. Currency is set only when gt_fee is present.
func ExtractGTFee(payload string) Extraction {
	result, err := decodeResult(payload)
	if err != nil {
		return Extraction{err: err}
	}
	amount := truthyNumber(result["gt_fee"])
	if amount == nil {
		return Extraction{}
	}
	return Extraction{Amount: amount, Currency: currency.AlternateFeeToken}
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeResult(payload string) (map[string]any, error) {
	// Keys are matched exactly; struct tags would also accept "DATA" or "Result".
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	data, ok := env["data"]
	if !ok || isNull(data) {
		return nil, errNoResult
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "decode data")
	}

	raw, ok := fields["result"]
	if !ok || isNull(raw) {
		return nil, errNoResult
	}
	raw = bytes.TrimSpace(raw)

	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errors.Wrap(err, "decode result list")
		}
		if len(list) == 0 {
			return nil, errEmptyResult
		}
		raw = list[0]
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, errors.Wrap(err, "decode result object")
	}
	if obj == nil {
		return nil, errNoResult
	}
	return obj, nil
}

// number accepts JSON numbers and numeric strings.
func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// truthyNumber is number with zero treated as absent.
func truthyNumber(v any) *float64 {
	f := number(v)
	if f == nil || *f == 0 {
		return nil
	}
	return f
}

func text(v any) string {
	s, _ := v.(string)
	return s
}
