package transform

import (
	"sort"
	"strings"
	"unicode"

	"orderetl/pkg/records"
)

// NormalizeText canonicalizes a series of free-text values: trim leading and
// trailing whitespace, fold to lower case, and collapse internal whitespace
// runs (including NBSP) to a single ASCII space. Missing values stay missing,
// non-string values pass through unchanged, and a whitespace-only string
// collapses to missing (nil) since nothing of the value survives trimming.
//
// The operation is idempotent: normalizing an already-normalized series yields
// the same series.
func NormalizeText(series []any) []any {
	out := make([]any, len(series))
	for i, v := range series {
		if records.IsMissing(v) {
			out[i] = nil
			continue
		}
		s, ok := v.(string)
		if !ok {
			out[i] = v
			continue
		}
		out[i] = normalizeString(s)
	}
	return out
}

func normalizeString(s string) any {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0 // leading whitespace is dropped outright
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return nil
	}
	return b.String()
}

// ApplyMapping rewrites every value that is an exact key of mapping and leaves
// all other values untouched, missing included. It never introduces new
// missingness; keys are matched on the normalized string form, so callers
// normalize before mapping.
func ApplyMapping(series []any, mapping map[string]string) []any {
	out := make([]any, len(series))
	for i, v := range series {
		out[i] = v
		if s, ok := v.(string); ok {
			if mapped, hit := mapping[s]; hit {
				out[i] = mapped
			}
		}
	}
	return out
}

// ColumnMissingness is one row of the missingness report.
type ColumnMissingness struct {
	Column   string
	Missing  int
	Fraction float64
}

// MissingnessReport computes the count and fraction of missing values per
// column, ordered by descending fraction with ties broken by original column
// order. A diagnostic projection only; it does not transform the table.
func MissingnessReport(t records.Table) []ColumnMissingness {
	n := t.Len()
	out := make([]ColumnMissingness, 0, len(t.Columns))
	for _, c := range t.Columns {
		miss := 0
		for _, r := range t.Rows {
			if records.IsMissing(r[c]) {
				miss++
			}
		}
		frac := 0.0
		if n > 0 {
			frac = float64(miss) / float64(n)
		}
		out = append(out, ColumnMissingness{Column: c, Missing: miss, Fraction: frac})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Fraction > out[j].Fraction })
	return out
}

// AddMissingFlags adds a boolean column "{name}_missing" for each named column
// present in the table, true exactly where the source value is missing.
// Columns absent from the table are silently skipped.
func AddMissingFlags(t records.Table, columns []string) records.Table {
	out := t.Clone()
	for _, c := range columns {
		if !out.HasColumn(c) {
			continue
		}
		flag := c + "_missing"
		if !out.HasColumn(flag) {
			out.Columns = append(out.Columns, flag)
		}
		for _, r := range out.Rows {
			r[flag] = records.IsMissing(r[c])
		}
	}
	return out
}
