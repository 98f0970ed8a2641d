package records

import (
	"reflect"
	"testing"
)

func TestCloneIsDeep(t *testing.T) {
	orig := Table{
		Columns: []string{"a", "b"},
		Rows:    []Record{{"a": "x", "b": 1.0}},
	}

	c := orig.Clone()
	c.Columns[0] = "mutated"
	c.Rows[0]["a"] = "changed"

	if orig.Columns[0] != "a" {
		t.Errorf("clone shares the column slice")
	}
	if orig.Rows[0]["a"] != "x" {
		t.Errorf("clone shares row maps")
	}
}

func TestWithColumn(t *testing.T) {
	orig := Table{
		Columns: []string{"a"},
		Rows:    []Record{{"a": "x"}, {"a": "y"}},
	}

	got := orig.WithColumn("b", []any{1.0, nil})
	if !reflect.DeepEqual(got.Columns, []string{"a", "b"}) {
		t.Errorf("columns = %v", got.Columns)
	}
	if got.Rows[0]["b"] != 1.0 || got.Rows[1]["b"] != nil {
		t.Errorf("values = %v, %v", got.Rows[0]["b"], got.Rows[1]["b"])
	}
	if orig.HasColumn("b") {
		t.Errorf("WithColumn mutated its receiver")
	}

	// Reassigning an existing column must not duplicate it in the order.
	again := got.WithColumn("b", []any{2.0, 3.0})
	if len(again.Columns) != 2 {
		t.Errorf("columns duplicated: %v", again.Columns)
	}
	if again.Rows[0]["b"] != 2.0 {
		t.Errorf("value not replaced: %v", again.Rows[0]["b"])
	}
}

func TestColumnAlignsWithRows(t *testing.T) {
	tab := Table{
		Columns: []string{"a"},
		Rows:    []Record{{"a": "x"}, {}, {"a": nil}},
	}
	got := tab.Column("a")
	want := []any{"x", nil, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Column = %v, want %v", got, want)
	}
}

func TestIsMissing(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, true},
		{"", true},
		{" ", false},
		{0.0, false},
		{false, false},
		{"na", false}, // token mapping is the parser's job
	}
	for _, tt := range tests {
		if got := IsMissing(tt.in); got != tt.want {
			t.Errorf("IsMissing(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
