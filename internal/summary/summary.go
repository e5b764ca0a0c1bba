// Package summary aggregates mismatch rows into grouped statistics, value
// counts and the long-format summary report.
package summary

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/reconciliation"
)

// GroupStat aggregates the rows sharing one combination of group-by values.
type GroupStat struct {
	Keys           []string `json:"keys"`
	Count          int      `json:"count"`
	AvgPlatformFee float64  `json:"avg_platform_fee"`
	SumPlatformFee float64  `json:"sum_platform_fee"`
	AvgExchangeFee float64  `json:"avg_exchange_fee"`
	SumExchangeFee float64  `json:"sum_exchange_fee"`
}

// Group groups rows by cols and returns one stat per group, sorted by keys.
// Fee aggregates are rounded to reconciliation.RatePrecision places.
func Group(rows []domain.MismatchRow, cols ...Column) ([]GroupStat, error) {
	if len(cols) == 0 {
		return nil, errors.New("group by needs at least one column")
	}
	for _, c := range cols {
		if _, err := ParseColumn(string(c)); err != nil {
			return nil, err
		}
	}

	type acc struct {
		keys          []string
		count         int
		platform, exc float64
	}
	groups := make(map[string]*acc)
	for i := range rows {
		m := &rows[i]
		keys := make([]string, len(cols))
		for j, c := range cols {
			keys[j] = c.Value(m)
		}
		id := strings.Join(keys, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &acc{keys: keys}
			groups[id] = g
		}
		g.count++
		g.platform += m.PlatformFeeRate
		g.exc += m.ExchangeFeeRate
	}

	stats := make([]GroupStat, 0, len(groups))
	for _, g := range groups {
		n := float64(g.count)
		stats = append(stats, GroupStat{
			Keys:           g.keys,
			Count:          g.count,
			AvgPlatformFee: reconciliation.Round(g.platform / n),
			SumPlatformFee: reconciliation.Round(g.platform),
			AvgExchangeFee: reconciliation.Round(g.exc / n),
			SumExchangeFee: reconciliation.Round(g.exc),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return lessKeys(stats[i].Keys, stats[j].Keys)
	})
	return stats, nil
}

// Count is one category of a value-count breakdown.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts rows per value of col, most frequent first.
func ValueCounts(rows []domain.MismatchRow, col Column) []Count {
	counts := make(map[string]int)
	for i := range rows {
		counts[col.Value(&rows[i])]++
	}

	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Breakdown is the unconditional value-count breakdown of the role and flag
// columns, in report order.
type Breakdown struct {
	Column Column  `json:"column"`
	Counts []Count `json:"counts"`
}

func BreakdownAll(rows []domain.MismatchRow, mode domain.MismatchMode) []Breakdown {
	cols := []Column{ColPlatformAsset, ColExchangeAsset}
	if mode == domain.ModeGTAware {
		cols = append(cols, ColGTAsset)
	}
	cols = append(cols, FlagColumns(mode)...)

	out := make([]Breakdown, 0, len(cols))
	for _, c := range cols {
		out = append(out, Breakdown{Column: c, Counts: ValueCounts(rows, c)})
	}
	return out
}

func lessKeys(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
