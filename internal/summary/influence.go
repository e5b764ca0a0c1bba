package summary

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/wakala/feerecon/internal/domain"
	"github.com/wakala/feerecon/internal/reconciliation"
)

// InfluenceStat measures how often a flag is raised for one feature value.
type InfluenceStat struct {
	Value           string  `json:"value"`
	Count           int     `json:"count"`
	MismatchedCount int     `json:"mismatched_count"`
	Proportion      float64 `json:"proportion"`
}

// Influence groups rows by feature and reports, per value, the share of rows
// on which flag is set. Stats are ordered by mismatched count, highest first.
// Pass all evaluated rows, not only the flagged ones, for a meaningful ratio.
func Influence(rows []domain.MismatchRow, flag, feature Column) ([]InfluenceStat, error) {
	isSet, ok := flagColumns[flag]
	if !ok {
		return nil, errors.Errorf("%q is not a mismatch flag", flag)
	}
	if _, err := ParseColumn(string(feature)); err != nil {
		return nil, err
	}

	byValue := make(map[string]*InfluenceStat)
	for i := range rows {
		m := &rows[i]
		v := feature.Value(m)
		s, ok := byValue[v]
		if !ok {
			s = &InfluenceStat{Value: v}
			byValue[v] = s
		}
		s.Count++
		if isSet(m) {
			s.MismatchedCount++
		}
	}

	out := make([]InfluenceStat, 0, len(byValue))
	for _, s := range byValue {
		s.Proportion = reconciliation.Round(float64(s.MismatchedCount) / float64(s.Count))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MismatchedCount != out[j].MismatchedCount {
			return out[i].MismatchedCount > out[j].MismatchedCount
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}
