// Package output writes each reconciliation stage as a CSV file.
package output

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/summary"
)

const (
	ComparisonFile = "commission_comparison.csv"
	MismatchFile   = "mismatched_data.csv"
	ReportFile     = "summary_report.csv"
)

var comparisonHeader = []string{
	"trace_id", "side", "role", "source", "order_status", "is_fee_evaluated",
	"platform_fee_rate", "platform_fee_asset", "exchange_fee_rate", "exchange_fee_asset",
	"exchange_gt_fee_rate", "exchange_gt_fee_asset",
}

// Writer writes stage tables into one directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", dir)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *Writer) WriteComparisons(rows []domain.ComparisonRow) error {
	records := make([][]string, 0, len(rows))
	for i := range rows {
		records = append(records, comparisonRecord(&rows[i]))
	}
	return w.write(ComparisonFile, comparisonHeader, records)
}

// WriteMismatches writes the mismatch table. GT columns are only written in
// GT-aware mode.
func (w *Writer) WriteMismatches(rows []domain.MismatchRow, mode domain.MismatchMode) error {
	header := append(append([]string{}, comparisonHeader...),
		"fee_mismatch", "asset_mismatch", "difference", "sign_mismatch")
	gt := mode == domain.ModeGTAware
	if gt {
		header = append(header, "gt_fee_mismatch", "gt_asset_mismatch", "gt_difference", "gt_sign_mismatch")
	}

	records := make([][]string, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		rec := append(comparisonRecord(&m.ComparisonRow),
			formatBool(m.FeeMismatch), formatBool(m.AssetMismatch),
			formatFloat(m.Difference), formatBool(m.SignMismatch))
		if gt {
			rec = append(rec,
				formatBool(m.GTFeeMismatch), formatBool(m.GTAssetMismatch),
				formatFloat(m.GTDifference), formatBool(m.GTSignMismatch))
		}
		records = append(records, rec)
	}
	return w.write(MismatchFile, header, records)
}

// WriteGroups writes grouped statistics; cols name the key columns.
func (w *Writer) WriteGroups(name string, cols []summary.Column, stats []summary.GroupStat) error {
	header := make([]string, 0, len(cols)+5)
	for _, c := range cols {
		header = append(header, string(c))
	}
	header = append(header, "count", "avg_platform_fee", "sum_platform_fee", "avg_exchange_fee", "sum_exchange_fee")

	records := make([][]string, 0, len(stats))
	for _, s := range stats {
		rec := append([]string{}, s.Keys...)
		rec = append(rec,
			strconv.Itoa(s.Count),
			formatFloat(s.AvgPlatformFee), formatFloat(s.SumPlatformFee),
			formatFloat(s.AvgExchangeFee), formatFloat(s.SumExchangeFee))
		records = append(records, rec)
	}
	return w.write(name, header, records)
}

func (w *Writer) WriteReport(lines []summary.ReportLine) error {
	records := make([][]string, 0, len(lines))
	for _, l := range lines {
		records = append(records, []string{l.Metric, l.Category, strconv.Itoa(l.Value)})
	}
	return w.write(ReportFile, []string{"Metric", "Category", "Value"}, records)
}

// WriteInfluence writes <flag>_analysis.csv.
func (w *Writer) WriteInfluence(flag, feature summary.Column, stats []summary.InfluenceStat) error {
	records := make([][]string, 0, len(stats))
	for _, s := range stats {
		records = append(records, []string{
			s.Value, strconv.Itoa(s.Count), strconv.Itoa(s.MismatchedCount), formatFloat(s.Proportion),
		})
	}
	header := []string{string(feature), "count", "mismatched_count", "proportion"}
	return w.write(string(flag)+"_analysis.csv", header, records)
}

// write replaces name atomically through a temp file in the same dir.
func (w *Writer) write(name string, header []string, records [][]string) error {
	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s header", name)
	}
	if err := cw.WriteAll(records); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), w.Path(name)), "rename %s", name)
}

func comparisonRecord(r *domain.ComparisonRow) []string {
	return []string{
		r.TraceID, string(r.Side), string(r.Role), r.Source, r.OrderStatus,
		formatBool(r.IsFeeEvaluated),
		formatFloat(r.PlatformFeeRate), string(r.PlatformFeeAsset),
		formatFloat(r.ExchangeFeeRate), string(r.ExchangeFeeAsset),
		formatFloat(r.ExchangeGTFeeRate), string(r.ExchangeGTFeeAsset),
	}
}

// formatFloat writes the shortest decimal that round-trips v, never in
// exponent form. Negative zero is written as 0.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
