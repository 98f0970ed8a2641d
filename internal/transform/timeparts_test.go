package transform

import (
	"testing"
	"time"

	"orderetl/pkg/records"
)

/*
TestParseDatetime verifies the tolerant timestamp parse: RFC3339 and common
fallback layouts succeed, unparseable and missing values become nil without
error, and with assumeUTC everything lands in UTC.
*/
func TestParseDatetime(t *testing.T) {
	tbl := records.Table{
		Columns: []string{"created_at"},
		Rows: []records.Record{
			{"created_at": "2024-01-01T00:00:00Z"},
			{"created_at": "2024-03-15 13:45:00"},
			{"created_at": "2024-07-04"},
			{"created_at": "not a date"},
			{"created_at": nil},
			{"created_at": "2024-01-01T02:00:00+02:00"},
		},
	}

	got := ParseDatetime(tbl, "created_at", true)

	want := []any{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC),
		time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
		nil,
		nil,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), // offset converted to UTC
	}
	for i, w := range want {
		v := got.Rows[i]["created_at"]
		if w == nil {
			if v != nil {
				t.Errorf("row %d = %v, want nil", i, v)
			}
			continue
		}
		ts, ok := v.(time.Time)
		if !ok || !ts.Equal(w.(time.Time)) {
			t.Errorf("row %d = %v, want %v", i, v, w)
		}
	}

	if _, isTime := tbl.Rows[0]["created_at"].(time.Time); isTime {
		t.Errorf("input mutated")
	}
}

func TestAddTimeParts(t *testing.T) {
	tbl := records.Table{
		Columns: []string{"created_at"},
		Rows: []records.Record{
			{"created_at": time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
			{"created_at": nil},
		},
	}

	got := AddTimeParts(tbl, "created_at")

	r := got.Rows[0]
	if r["year"] != int64(2024) || r["month"] != int64(1) || r["day"] != int64(15) || r["hour"] != int64(9) {
		t.Errorf("time parts = %v/%v/%v %v, want 2024/1/15 9", r["year"], r["month"], r["day"], r["hour"])
	}
	if r["dow"] != "Monday" {
		t.Errorf("dow = %v, want Monday", r["dow"])
	}

	for _, part := range []string{"year", "month", "day", "hour", "dow"} {
		if got.Rows[1][part] != nil {
			t.Errorf("missing timestamp: %s = %v, want nil", part, got.Rows[1][part])
		}
	}
}
