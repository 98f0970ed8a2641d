// Package join implements a left outer join over records.Table with an
// explicit cardinality contract.
//
// The caller declares the expected key relationship up front; the join checks
// the actual key multiplicities on both tables before producing any output and
// fails with a CardinalityError on violation. Checking multiplicities directly
// (rather than comparing row counts afterwards) is deliberate: a many-to-many
// collapse can coincidentally preserve the row count and would slip past a
// post-hoc check.
package join

import (
	"fmt"

	"orderetl/pkg/records"
)

// Cardinality declares the expected key relationship between the left and
// right tables.
type Cardinality string

const (
	OneToOne   Cardinality = "one_to_one"
	ManyToOne  Cardinality = "many_to_one"
	OneToMany  Cardinality = "one_to_many"
	ManyToMany Cardinality = "many_to_many"
)

// CardinalityError reports a declared cardinality violated by the actual key
// multiplicities. Side names the table whose key was required to be unique.
type CardinalityError struct {
	On         string
	Declared   Cardinality
	Side       string // "left" or "right"
	Duplicates int    // rows participating in duplicated key values
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("join on %q declared %s but %s key has %d duplicate rows",
		e.On, e.Declared, e.Side, e.Duplicates)
}

// LeftJoin performs a left outer join of right onto left on the named key
// column. Every left row is preserved; rows without a match get nil for every
// right-contributed column. Missing key values never match.
//
// Name collisions between non-key columns resolve deterministically: left
// keeps its name, the right column gains suffix.
func LeftJoin(left, right records.Table, on string, cardinality Cardinality, suffix string) (records.Table, error) {
	if err := checkCardinality(left, right, on, cardinality); err != nil {
		return records.Table{}, err
	}

	// Resolve output names for the right table's non-key columns.
	rightCols := make([]string, 0, len(right.Columns))
	rightName := make(map[string]string, len(right.Columns))
	for _, c := range right.Columns {
		if c == on {
			continue
		}
		name := c
		if left.HasColumn(c) {
			name = c + suffix
		}
		rightCols = append(rightCols, c)
		rightName[c] = name
	}

	// Index the right table by key; missing keys are excluded from the index.
	index := make(map[string][]records.Record, right.Len())
	for _, r := range right.Rows {
		v := r[on]
		if records.IsMissing(v) {
			continue
		}
		k := fmt.Sprint(v)
		index[k] = append(index[k], r)
	}

	out := records.Table{
		Columns: append([]string(nil), left.Columns...),
		Rows:    make([]records.Record, 0, left.Len()),
	}
	for _, c := range rightCols {
		out.Columns = append(out.Columns, rightName[c])
	}

	for _, lr := range left.Rows {
		var matches []records.Record
		if v := lr[on]; !records.IsMissing(v) {
			matches = index[fmt.Sprint(v)]
		}
		if len(matches) == 0 {
			row := cloneRecord(lr)
			for _, c := range rightCols {
				row[rightName[c]] = nil
			}
			out.Rows = append(out.Rows, row)
			continue
		}
		for _, rr := range matches {
			row := cloneRecord(lr)
			for _, c := range rightCols {
				row[rightName[c]] = rr[c]
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// checkCardinality verifies the declared contract against actual key
// multiplicities before any output row is built.
func checkCardinality(left, right records.Table, on string, cardinality Cardinality) error {
	switch cardinality {
	case OneToOne, ManyToOne:
		if dup := duplicateRows(right, on); dup > 0 {
			return &CardinalityError{On: on, Declared: cardinality, Side: "right", Duplicates: dup}
		}
	}
	switch cardinality {
	case OneToOne, OneToMany:
		if dup := duplicateRows(left, on); dup > 0 {
			return &CardinalityError{On: on, Declared: cardinality, Side: "left", Duplicates: dup}
		}
	}
	return nil
}

// duplicateRows counts rows whose non-missing key value occurs more than once.
func duplicateRows(t records.Table, key string) int {
	seen := make(map[string]int, t.Len())
	for _, r := range t.Rows {
		v := r[key]
		if records.IsMissing(v) {
			continue
		}
		seen[fmt.Sprint(v)]++
	}
	dup := 0
	for _, n := range seen {
		if n > 1 {
			dup += n
		}
	}
	return dup
}

func cloneRecord(r records.Record) records.Record {
	out := make(records.Record, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}
