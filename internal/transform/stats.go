package transform

import (
	"fmt"
	"math"
	"sort"

	"orderetl/internal/quality"
	"orderetl/pkg/records"
)

// Quantile computes the q-th quantile (0 <= q <= 1) of the non-missing numeric
// values of the series using linear interpolation between order statistics:
// for n sorted values the rank is q*(n-1) and the result interpolates between
// the two neighboring values. The method is fixed because it determines bound
// reproducibility across runs.
//
// ok is false when the series has no non-missing numeric values.
func Quantile(series []any, q float64) (float64, bool) {
	xs := numericValues(series)
	if len(xs) == 0 {
		return 0, false
	}
	sort.Float64s(xs)
	if q <= 0 {
		return xs[0], true
	}
	if q >= 1 {
		return xs[len(xs)-1], true
	}
	rank := q * float64(len(xs)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return xs[lo], true
	}
	frac := rank - float64(lo)
	return xs[lo] + frac*(xs[hi]-xs[lo]), true
}

// IQRBounds returns the IQR outlier bounds (Q1 - k*IQR, Q3 + k*IQR) over the
// non-missing values of the series. An error is returned when the bounds are
// undefined (no non-missing values) so NaN never leaks downstream.
func IQRBounds(series []any, k float64) (lower, upper float64, err error) {
	q1, ok := Quantile(series, 0.25)
	if !ok {
		return 0, 0, fmt.Errorf("iqr bounds undefined: no non-missing values")
	}
	q3, _ := Quantile(series, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr, nil
}

// Winsorize clips every non-missing value of the series into the
// [quantile(lowPct), quantile(highPct)] band computed over the same series.
// Missing values remain missing, and non-finite numeric values (NaN,
// infinities) become missing rather than escaping the band. When the
// quantiles are undefined the series is returned unchanged (all values are
// missing anyway).
func Winsorize(series []any, lowPct, highPct float64) []any {
	lo, ok := Quantile(series, lowPct)
	out := make([]any, len(series))
	if !ok {
		copy(out, series)
		return out
	}
	hi, _ := Quantile(series, highPct)
	for i, v := range series {
		f, num := quality.AsFloat(v)
		if !num || !isFinite(f) {
			if records.IsMissing(v) || num {
				out[i] = nil
			} else {
				out[i] = v
			}
			continue
		}
		out[i] = math.Min(math.Max(f, lo), hi)
	}
	return out
}

// AddOutlierFlag computes IQR bounds on the named column and adds a boolean
// column "{column}_is_outlier": true where the value falls strictly outside
// [lower, upper], false for in-band and for missing values.
func AddOutlierFlag(t records.Table, column string, k float64) (records.Table, error) {
	lower, upper, err := IQRBounds(t.Column(column), k)
	if err != nil {
		return records.Table{}, fmt.Errorf("outlier flag for %s: %w", column, err)
	}
	out := t.Clone()
	flag := column + "_is_outlier"
	if !out.HasColumn(flag) {
		out.Columns = append(out.Columns, flag)
	}
	for _, r := range out.Rows {
		f, num := quality.AsFloat(r[column])
		r[flag] = num && (f < lower || f > upper)
	}
	return out, nil
}

// numericValues extracts the finite numeric values of the series. NaN and
// infinities are excluded along with missing values; one such value in a
// quantile input would otherwise poison every bound computed from it.
func numericValues(series []any) []float64 {
	xs := make([]float64, 0, len(series))
	for _, v := range series {
		if f, ok := quality.AsFloat(v); ok && isFinite(f) {
			xs = append(xs, f)
		}
	}
	return xs
}
