// Package transform contains the reusable, side-effect-free table transforms
// that make up the cleaning stage of the pipeline: schema coercion, text and
// category normalization, missingness flags, de-duplication, timestamp
// decomposition, and the winsorization/outlier statistics.
//
// Every transform returns a new records.Table and leaves its input untouched,
// so stages can be sequenced without aliasing hazards.
package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"orderetl/pkg/records"
)

// EnforceSchema coerces the raw order columns to canonical types: order_id and
// user_id become strings, amount a nullable float64, quantity a nullable int64.
//
// Coercion is lossy but total: a value that does not parse becomes nil instead
// of failing the row, so every row survives and malformed values show up in the
// missingness report rather than as errors.
func EnforceSchema(t records.Table) records.Table {
	out := t.Clone()
	for _, r := range out.Rows {
		coerceString(r, "order_id")
		coerceString(r, "user_id")
		coerceFloat(r, "amount")
		coerceInt(r, "quantity")
	}
	return out
}

func coerceString(r records.Record, field string) {
	v, ok := r[field]
	if !ok || v == nil {
		r[field] = nil
		return
	}
	if s, isStr := v.(string); isStr {
		if s == "" {
			r[field] = nil
		}
		return
	}
	r[field] = asString(v)
}

func coerceFloat(r records.Record, field string) {
	v, ok := r[field]
	if !ok || v == nil {
		r[field] = nil
		return
	}
	switch n := v.(type) {
	case float64:
		if !isFinite(n) {
			r[field] = nil
		}
	case int64:
		r[field] = float64(n)
	case int:
		r[field] = float64(n)
	case string:
		// ParseFloat accepts "nan" and "inf" spellings; neither is a usable
		// amount, so non-finite parses become missing like any other
		// unparseable value.
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil && isFinite(f) {
			r[field] = f
		} else {
			r[field] = nil
		}
	default:
		r[field] = nil
	}
}

// isFinite reports whether f is a real number (not NaN or an infinity).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func coerceInt(r records.Record, field string) {
	v, ok := r[field]
	if !ok || v == nil {
		r[field] = nil
		return
	}
	switch n := v.(type) {
	case int64:
		return
	case int:
		r[field] = int64(n)
	case float64:
		if isFinite(n) {
			r[field] = int64(n)
		} else {
			r[field] = nil
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			r[field] = i
		} else {
			r[field] = nil
		}
	default:
		r[field] = nil
	}
}

// asString converts common coerced types to string without fmt overhead.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}
