package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wakala/feerecon/internal/currency"
	"github.com/wakala/feerecon/internal/domain"
)

type market struct {
	base, quote string
	price       float64
}

var markets = []market{
	{"BTC", "USDT", 64000},
	{"ETH", "USDT", 3200},
	{"SOL", "USDT", 145},
	{"GT", "USDT", 9.5},
	{"ETH", "BTC", 0.05},
}

var sources = []string{"spot", "margin"}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	const tradeCount = 200

	var (
		trades   [][]string
		messages [][]string
		orders   [][]string
	)

	for i := 1; i <= tradeCount; i++ {
		traceID := fmt.Sprintf("TRC-%05d", i)
		m := markets[rng.Intn(len(markets))]

		side := domain.SideBuy
		if rng.Float64() < 0.5 {
			side = domain.SideSell
		}
		role := domain.RoleTaker
		rate := 0.002
		if rng.Float64() < 0.4 {
			role = domain.RoleMaker
			rate = 0.001
		}

		price := round(m.price*(0.98+rng.Float64()*0.04), 6)
		baseAmount := round(0.01+rng.Float64()*5, 4)
		volume := price * baseAmount

		// Buyers pay in the received asset, sellers in quote; some pay in GT.
		feeAsset := m.quote
		if side == domain.SideBuy {
			feeAsset = m.base
		}
		if rng.Float64() < 0.1 {
			feeAsset = currency.AlternateFeeToken
		}

		fee := round(volume*rate, 8)

		evaluated := rng.Float64() >= 0.05

		trades = append(trades, []string{
			traceID,
			strconv.FormatFloat(fee, 'f', -1, 64),
			feeAsset,
			m.base,
			m.quote,
			string(side),
			string(role),
			strconv.FormatBool(evaluated),
			strconv.FormatFloat(price, 'f', -1, 64),
			strconv.FormatFloat(baseAmount, 'f', -1, 64),
			strconv.FormatFloat(round(volume, 8), 'f', -1, 64),
			sources[rng.Intn(len(sources))],
		})

		// Distribution: 3% no exchange message, 8% fee off, 4% fee currency off,
		// 2% malformed payload, the rest agree.
		roll := rng.Float64()
		if roll < 0.03 {
			orders = append(orders, []string{traceID, "cancelled", string(side)})
			continue
		}

		exFee := fee
		exAsset := feeAsset
		switch {
		case roll < 0.11:
			exFee = round(fee*(1.5+rng.Float64()), 8)
			if rng.Float64() < 0.2 {
				exFee = -exFee
			}
		case roll < 0.15:
			if exAsset == m.base {
				exAsset = m.quote
			} else {
				exAsset = m.base
			}
		}

		var payload string
		if roll >= 0.15 && roll < 0.17 {
			payload = `{"data": {"result": `
		} else {
			payload = encodePayload(rng, exFee, exAsset)
		}
		messages = append(messages, []string{traceID, "In", "WsPayload", "Regular", payload})

		// Noise the comparator must ignore.
		if rng.Float64() < 0.2 {
			messages = append(messages, []string{traceID, "Out", "WsPayload", "Regular", payload})
		}
		if rng.Float64() < 0.1 {
			messages = append(messages, []string{traceID, "In", "Heartbeat", "Regular", `{}`})
		}

		orders = append(orders, []string{traceID, "new", string(side)})
		orders = append(orders, []string{traceID, "filled", string(side)})
	}

	writeCSV(filepath.Join(baseDir, "own_trade_log.csv"), []string{
		"trace_id", "fee_amount", "fee_asset_name", "base_asset_name", "quote_asset_name",
		"side", "role", "is_fee_evaluated", "price", "base_amount", "quote_amount", "source",
	}, trades)
	writeCSV(filepath.Join(baseDir, "dump_log.csv"), []string{
		"trace_id", "direction", "message_name", "message_kind", "message",
	}, messages)
	writeCSV(filepath.Join(baseDir, "order_log.csv"), []string{"trace_id", "status", "side"}, orders)

	fmt.Printf("Generated %d trades, %d messages, %d orders\n", len(trades), len(messages), len(orders))
	fmt.Println("Test data generation complete.")
}

// encodePayload renders an order-update message the way the exchange does:
// decimals as strings, result sometimes wrapped in a list.
func encodePayload(rng *rand.Rand, fee float64, asset string) string {
	result := map[string]any{
		"fee":          strconv.FormatFloat(fee, 'f', -1, 64),
		"fee_currency": asset,
	}
	if asset == currency.AlternateFeeToken {
		result["gt_fee"] = strconv.FormatFloat(fee, 'f', -1, 64)
		result["fee"] = "0"
		result["fee_currency"] = "USDT"
	}

	var body any = result
	if rng.Float64() < 0.5 {
		body = []any{result}
	}
	out, err := json.Marshal(map[string]any{
		"time":    1700000000 + rng.Intn(1000000),
		"channel": "spot.usertrades",
		"data":    map[string]any{"result": body},
	})
	if err != nil {
		panic(err)
	}
	return string(out)
}

func writeCSV(path string, header []string, rows [][]string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", path, err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(header)
	for _, r := range rows {
		w.Write(r)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows -> %s\n", len(rows), path)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "./testdata"} {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
