// Package records defines the in-memory tabular representation shared by every
// pipeline stage: a Record is one row keyed by column name, and a Table couples
// a batch of records with an explicit column order.
//
// Missing values are represented as nil (or an absent key); the parser maps
// recognized NA tokens to nil on read, and transforms preserve nil rather than
// inventing zero values. Column order matters for reports and for the persisted
// output, so it is carried alongside the rows instead of being re-derived from
// map iteration.
package records

// Record is a single row. Values are raw strings straight from the parser until
// coercion assigns canonical types (string, float64, int64, bool, time.Time).
// nil means missing.
type Record map[string]any

// Table is an ordered batch of records. Columns lists every column in output
// order; Rows may omit keys, which reads as missing.
type Table struct {
	Columns []string
	Rows    []Record
}

// New builds an empty table with the given column order.
func New(columns ...string) Table {
	return Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is a declared column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone deep-copies the table: the column slice, the row slice, and every
// record map. Values themselves are not copied; they are treated as immutable
// by all transforms.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		nr := make(Record, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}

// Column extracts the named column as a slice aligned with Rows. Absent keys
// yield nil entries.
func (t Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// WithColumn returns a copy of the table with values assigned to the named
// column; the column is appended to the order if not already declared.
// len(values) must equal t.Len().
func (t Table) WithColumn(name string, values []any) Table {
	out := t.Clone()
	if !out.HasColumn(name) {
		out.Columns = append(out.Columns, name)
	}
	for i := range out.Rows {
		out.Rows[i][name] = values[i]
	}
	return out
}

// IsMissing reports whether a value counts as missing: nil, or an empty string.
// Coercion and parsing normalize empties to nil, but raw tables assembled in
// tests may still carry "".
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}
