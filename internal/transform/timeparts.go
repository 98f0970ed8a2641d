package transform

import (
	"strings"
	"time"

	"orderetl/pkg/records"
)

// datetimeLayouts are tried in order when parsing timestamp text. RFC3339
// covers the canonical input form; the rest tolerate common spreadsheet
// exports.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDatetime parses the textual values of the named column into time.Time.
// Unparseable or empty values become nil rather than an error; timestamp
// missingness is surfaced through the quality report and the run manifest, not
// as a failure. When assumeUTC is set, layouts without an offset are
// interpreted as UTC and offset-carrying values are converted to UTC.
func ParseDatetime(t records.Table, column string, assumeUTC bool) records.Table {
	out := t.Clone()
	loc := time.Local
	if assumeUTC {
		loc = time.UTC
	}
	for _, r := range out.Rows {
		v := r[column]
		if records.IsMissing(v) {
			r[column] = nil
			continue
		}
		if _, already := v.(time.Time); already {
			continue
		}
		s, ok := v.(string)
		if !ok {
			r[column] = nil
			continue
		}
		s = strings.TrimSpace(s)
		parsed := false
		for _, layout := range datetimeLayouts {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				if assumeUTC {
					ts = ts.UTC()
				}
				r[column] = ts
				parsed = true
				break
			}
		}
		if !parsed {
			r[column] = nil
		}
	}
	return out
}

// AddTimeParts derives calendar parts from the named timestamp column:
// integer year, month, day, hour and the textual day-of-week name. Every part
// is nil wherever the timestamp is nil. Derivation is purely a function of the
// timestamp value.
func AddTimeParts(t records.Table, timestampColumn string) records.Table {
	out := t.Clone()
	parts := []string{"year", "month", "day", "hour", "dow"}
	for _, p := range parts {
		if !out.HasColumn(p) {
			out.Columns = append(out.Columns, p)
		}
	}
	for _, r := range out.Rows {
		ts, ok := r[timestampColumn].(time.Time)
		if !ok {
			for _, p := range parts {
				r[p] = nil
			}
			continue
		}
		r["year"] = int64(ts.Year())
		r["month"] = int64(ts.Month())
		r["day"] = int64(ts.Day())
		r["hour"] = int64(ts.Hour())
		r["dow"] = ts.Weekday().String()
	}
	return out
}

// MissingCount returns how many rows have a missing value in the named column.
func MissingCount(t records.Table, column string) int {
	n := 0
	for _, r := range t.Rows {
		if records.IsMissing(r[column]) {
			n++
		}
	}
	return n
}
