// Package storage defines the sink abstraction used to persist the analytics
// table, plus the dialect-neutral column model shared by the concrete
// backends in subpackages.
package storage

import (
	"context"
	"time"

	"orderetl/pkg/records"
)

// Kind is a dialect-neutral column type; each backend maps it to its own SQL
// type.
type Kind string

const (
	KindText      Kind = "text"
	KindInteger   Kind = "integer"
	KindReal      Kind = "real"
	KindBool      Kind = "bool"
	KindTimestamp Kind = "timestamp"
)

// Column describes one destination column.
type Column struct {
	Name string
	Kind Kind
}

// Repository is the minimal sink contract: create the destination table if
// needed, then bulk-insert ordered rows.
type Repository interface {
	EnsureTable(ctx context.Context, columns []Column) error
	InsertRows(ctx context.Context, columns []string, rows [][]any) (int64, error)
}

// InferColumns derives the destination schema from the table content: the
// first non-missing value of each column decides its kind, and columns that
// are entirely missing fall back to text.
func InferColumns(t records.Table) []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, name := range t.Columns {
		kind := KindText
		for _, r := range t.Rows {
			v := r[name]
			if v == nil {
				continue
			}
			switch v.(type) {
			case int64, int:
				kind = KindInteger
			case float64:
				kind = KindReal
			case bool:
				kind = KindBool
			case time.Time:
				kind = KindTimestamp
			default:
				kind = KindText
			}
			break
		}
		out = append(out, Column{Name: name, Kind: kind})
	}
	return out
}

// BuildRows flattens the table into the positional form repositories insert:
// the ordered column names and one []any per row, aligned with the columns.
func BuildRows(t records.Table) ([]string, [][]any) {
	cols := append([]string(nil), t.Columns...)
	rows := make([][]any, t.Len())
	for i, r := range t.Rows {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = r[c]
		}
		rows[i] = row
	}
	return cols, rows
}
