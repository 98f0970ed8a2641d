package transform

import (
	"math"
	"testing"

	"orderetl/pkg/records"
)

func floats(xs ...float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

/*
TestQuantile pins the interpolation method: the q-th quantile of n sorted
values sits at rank q*(n-1) with linear interpolation between the two
neighboring order statistics. Changing the method silently would change every
winsor band and outlier bound between runs.
*/
func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		series []any
		q      float64
		want   float64
	}{
		{"median_odd", floats(1, 2, 3, 4, 100), 0.5, 3},
		{"median_even_interpolates", floats(1, 2, 3, 4), 0.5, 2.5},
		{"q1_exact_rank", floats(1, 2, 3, 4, 100), 0.25, 2},
		{"q3_exact_rank", floats(1, 2, 3, 4, 100), 0.75, 4},
		{"interpolated_rank", floats(10, 20), 0.25, 12.5},
		{"zero_is_min", floats(5, 1, 9), 0, 1},
		{"one_is_max", floats(5, 1, 9), 1, 9},
		{"missing_ignored", []any{nil, 1.0, nil, 3.0}, 0.5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Quantile(tt.series, tt.q)
			if !ok {
				t.Fatalf("Quantile() not ok")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Quantile(%v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}

	if _, ok := Quantile([]any{nil, nil}, 0.5); ok {
		t.Errorf("Quantile over all-missing series must not be ok")
	}
}

/*
TestStatsIgnoreNonFinite verifies that NaN and infinite values never reach the
order statistics: quantiles skip them like missing values, and Winsorize maps
them to missing instead of letting a single NaN spread through the clip band
into every output value.
*/
func TestStatsIgnoreNonFinite(t *testing.T) {
	in := []any{math.NaN(), 10.0, 20.0, math.Inf(1), nil}

	got, ok := Quantile(in, 0.5)
	if !ok || math.Abs(got-15) > 1e-9 {
		t.Errorf("Quantile = %v ok=%v, want 15 over the finite values", got, ok)
	}

	wins := Winsorize(in, 0.01, 0.99)
	if wins[0] != nil || wins[3] != nil {
		t.Errorf("non-finite positions = %v, %v, want missing", wins[0], wins[3])
	}
	for i, v := range wins {
		if f, isF := v.(float64); isF && (math.IsNaN(f) || math.IsInf(f, 0)) {
			t.Errorf("non-finite value leaked at %d: %v", i, f)
		}
	}

	if _, ok := Quantile([]any{math.NaN(), math.Inf(-1)}, 0.5); ok {
		t.Errorf("series with only non-finite values must not produce a quantile")
	}
}

func TestIQRBounds(t *testing.T) {
	lower, upper, err := IQRBounds(floats(1, 2, 3, 4, 100), 1.5)
	if err != nil {
		t.Fatalf("IQRBounds: %v", err)
	}
	if lower >= 1 {
		t.Errorf("lower = %v, want < 1", lower)
	}
	if upper <= 4 || upper >= 100 {
		t.Errorf("upper = %v, want in (4, 100) so 100 is flagged", upper)
	}

	if _, _, err := IQRBounds([]any{nil, nil}, 1.5); err == nil {
		t.Errorf("IQRBounds over all-missing series must fail, not produce NaN bounds")
	}
}

/*
TestWinsorize verifies the clipping contract: every non-missing output value
lies within the [low, high] quantile band of the input, values inside the band
are untouched, and missing positions stay missing.
*/
func TestWinsorize(t *testing.T) {
	in := []any{1.0, 2.0, 3.0, 4.0, 1000.0, nil}

	got := Winsorize(in, 0.01, 0.99)

	lo, _ := Quantile(in, 0.01)
	hi, _ := Quantile(in, 0.99)
	for i, v := range got {
		if v == nil {
			if in[i] != nil {
				t.Errorf("position %d became missing", i)
			}
			continue
		}
		f := v.(float64)
		if f < lo || f > hi {
			t.Errorf("value %v at %d outside [%v, %v]", f, i, lo, hi)
		}
	}
	if got[5] != nil {
		t.Errorf("missing position must remain missing")
	}
	if got[1] != 2.0 || got[2] != 3.0 {
		t.Errorf("in-band values changed: %v, %v", got[1], got[2])
	}

	allMissing := Winsorize([]any{nil, nil}, 0.01, 0.99)
	if allMissing[0] != nil || allMissing[1] != nil {
		t.Errorf("all-missing series must pass through unchanged")
	}
}

func TestAddOutlierFlag(t *testing.T) {
	tbl := records.Table{
		Columns: []string{"amount"},
		Rows: []records.Record{
			{"amount": 1.0},
			{"amount": 2.0},
			{"amount": 3.0},
			{"amount": 4.0},
			{"amount": 100.0},
			{"amount": nil},
		},
	}

	got, err := AddOutlierFlag(tbl, "amount", 1.5)
	if err != nil {
		t.Fatalf("AddOutlierFlag: %v", err)
	}
	if !got.HasColumn("amount_is_outlier") {
		t.Fatalf("flag column missing")
	}

	wantFlags := []bool{false, false, false, false, true, false}
	for i, w := range wantFlags {
		if got.Rows[i]["amount_is_outlier"] != w {
			t.Errorf("row %d flag = %v, want %v", i, got.Rows[i]["amount_is_outlier"], w)
		}
	}

	empty := records.Table{Columns: []string{"amount"}, Rows: []records.Record{{"amount": nil}}}
	if _, err := AddOutlierFlag(empty, "amount", 1.5); err == nil {
		t.Errorf("undefined bounds must be an error")
	}
}
