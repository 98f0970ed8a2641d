package transform

import (
	"sort"
	"strings"
	"time"

	"orderetl/pkg/records"
)

// DedupeKeepLatest collapses repeated records by key: rows are stably sorted by
// the timestamp column ascending, then for each distinct combination of key
// column values only the latest row survives (ties break by original row
// order, last wins). Rows are returned re-indexed in the deduped sort order.
//
// Missing timestamps sort first, so a dated duplicate always wins over an
// undated one. Intended for idempotent reconciliation of repeated input
// batches; the default pipeline run does not exercise it.
func DedupeKeepLatest(t records.Table, keyColumns []string, timestampColumn string) records.Table {
	if t.Len() == 0 || len(keyColumns) == 0 {
		return t.Clone()
	}

	sorted := t.Clone()
	sort.SliceStable(sorted.Rows, func(i, j int) bool {
		return tsLess(sorted.Rows[i][timestampColumn], sorted.Rows[j][timestampColumn])
	})

	// Last occurrence per key wins after the ascending sort.
	lastIdx := make(map[string]int, len(sorted.Rows))
	for i, r := range sorted.Rows {
		lastIdx[dedupeKey(r, keyColumns)] = i
	}

	out := records.Table{Columns: sorted.Columns, Rows: make([]records.Record, 0, len(lastIdx))}
	for i, r := range sorted.Rows {
		if lastIdx[dedupeKey(r, keyColumns)] == i {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// dedupeKey concatenates the key fields with an unlikely separator; nil maps
// to \x00 so a missing value is still a stable key component.
func dedupeKey(r records.Record, keys []string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v := r[k]
		if v == nil {
			b.WriteByte('\x00')
			continue
		}
		b.WriteString(asString(v))
	}
	return b.String()
}

// tsLess orders timestamp values ascending with missing first. time.Time
// values compare chronologically; anything else falls back to its string form.
func tsLess(a, b any) bool {
	am, bm := records.IsMissing(a), records.IsMissing(b)
	if am || bm {
		return am && !bm
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Before(bt)
	}
	return asString(a) < asString(b)
}
