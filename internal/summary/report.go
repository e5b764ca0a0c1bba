package summary

import "github.com/wakala/feerecon/internal/domain"

const MetricTotal = "Total mismatched rows"

// ReportLine is one row of the long-format summary report.
type ReportLine struct {
	Metric   string `json:"metric"`
	Category string `json:"category"`
	Value    int    `json:"value"`
}

// Report flattens the mismatch breakdown into Metric, Category, Value lines,
// starting with the total row count.
func Report(rows []domain.MismatchRow, mode domain.MismatchMode) []ReportLine {
	lines := []ReportLine{{Metric: MetricTotal, Value: len(rows)}}
	for _, b := range BreakdownAll(rows, mode) {
		metric := "Mismatches by " + string(b.Column)
		for _, c := range b.Counts {
			lines = append(lines, ReportLine{Metric: metric, Category: c.Value, Value: c.Count})
		}
	}
	return lines
}
