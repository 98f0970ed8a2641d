// Package quality implements the data-quality gates that guard each pipeline
// stage: column presence, non-emptiness, key uniqueness, and numeric range.
//
// Every check is a pure function over a records.Table; the only side effect is
// the returned error. Failures are structural contract violations and are fatal
// to the run. Per-value parse anomalies are not raised here; they become
// missing values handled by the missingness report instead.
//
// Each error type carries the offending column names and counts so a failed run
// can be diagnosed from the message alone.
package quality

import (
	"fmt"
	"sort"
	"strings"

	"orderetl/pkg/records"
)

// SchemaError reports required columns absent from a table.
type SchemaError struct {
	Table   string
	Missing []string // sorted
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: required columns missing: [%s]", e.Table, strings.Join(e.Missing, ", "))
}

// EmptyDatasetError reports a zero-row input.
type EmptyDatasetError struct {
	Table string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s is empty (0 rows)", e.Table)
}

// KeyConstraintError reports a missing key column, missing key values, or
// duplicated non-missing key values.
type KeyConstraintError struct {
	Key        string
	Reason     string // "column absent" | "missing values" | "duplicates"
	Missing    int    // rows with a missing key value
	Duplicates int    // rows participating in a duplicated key value
}

func (e *KeyConstraintError) Error() string {
	switch e.Reason {
	case "column absent":
		return fmt.Sprintf("key column not found: %s", e.Key)
	case "missing values":
		return fmt.Sprintf("%s contains %d missing values", e.Key, e.Missing)
	default:
		return fmt.Sprintf("%s must be unique; found %d duplicate rows", e.Key, e.Duplicates)
	}
}

// RangeError reports non-missing values outside [Low, High].
type RangeError struct {
	Name     string
	Low      *float64
	High     *float64
	BelowLow int
	AboveHi  int
}

func (e *RangeError) Error() string {
	if e.BelowLow > 0 {
		return fmt.Sprintf("%s has %d values below %v", e.Name, e.BelowLow, *e.Low)
	}
	return fmt.Sprintf("%s has %d values above %v", e.Name, e.AboveHi, *e.High)
}

// RequireColumns fails with a SchemaError listing every absent required column,
// sorted for deterministic messages. Types are not checked.
func RequireColumns(t records.Table, tableName string, required []string) error {
	present := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &SchemaError{Table: tableName, Missing: missing}
}

// AssertNonEmpty fails with an EmptyDatasetError when the table has no rows.
func AssertNonEmpty(t records.Table, tableName string) error {
	if t.Len() > 0 {
		return nil
	}
	return &EmptyDatasetError{Table: tableName}
}

// AssertUniqueKey enforces the key contract on a table: the key column must
// exist; unless allowMissing is set, no key value may be missing; and no
// non-missing key value may appear more than once. Missing values never count
// toward duplication.
func AssertUniqueKey(t records.Table, key string, allowMissing bool) error {
	if !t.HasColumn(key) {
		return &KeyConstraintError{Key: key, Reason: "column absent"}
	}

	var missing int
	seen := make(map[string]int, t.Len())
	for _, r := range t.Rows {
		v := r[key]
		if records.IsMissing(v) {
			missing++
			continue
		}
		seen[fmt.Sprint(v)]++
	}

	if !allowMissing && missing > 0 {
		return &KeyConstraintError{Key: key, Reason: "missing values", Missing: missing}
	}

	var dup int
	for _, n := range seen {
		if n > 1 {
			dup += n
		}
	}
	if dup > 0 {
		return &KeyConstraintError{Key: key, Reason: "duplicates", Duplicates: dup}
	}
	return nil
}

// AssertInRange checks every non-missing value of the series against the
// optional bounds. Missing values are ignored. Values that are not numeric
// after coercion are ignored as well; coercion is responsible for typing.
func AssertInRange(series []any, low, high *float64, name string) error {
	var below, above int
	for _, v := range series {
		f, ok := AsFloat(v)
		if !ok {
			continue
		}
		if low != nil && f < *low {
			below++
		}
		if high != nil && f > *high {
			above++
		}
	}
	if below > 0 || above > 0 {
		return &RangeError{Name: name, Low: low, High: high, BelowLow: below, AboveHi: above}
	}
	return nil
}

// AsFloat converts coerced numeric values to float64. Missing or non-numeric
// values report ok=false.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
