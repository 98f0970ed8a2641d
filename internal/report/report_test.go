package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"orderetl/internal/transform"
	"orderetl/pkg/records"
)

/*
TestRevenueByCountry checks the grouping and ordering rules: missing countries
form their own group, missing amounts contribute zero revenue, and the output
sorts by revenue descending with country-name tie-breaks.
*/
func TestRevenueByCountry(t *testing.T) {
	in := records.Table{
		Columns: []string{"order_id", "country", "amount"},
		Rows: []records.Record{
			{"order_id": "o1", "country": "US", "amount": 10.0},
			{"order_id": "o2", "country": "US", "amount": 5.0},
			{"order_id": "o3", "country": "CA", "amount": 15.0},
			{"order_id": "o4", "country": nil, "amount": 3.0},
			{"order_id": "o5", "country": "DE", "amount": nil},
		},
	}

	got := RevenueByCountry(in)
	want := []CountryRevenue{
		{Country: "CA", Orders: 1, Revenue: 15.0},
		{Country: "US", Orders: 2, Revenue: 15.0},
		{Country: "", Orders: 1, Revenue: 3.0},
		{Country: "DE", Orders: 1, Revenue: 0.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RevenueByCountry:\n got %+v\nwant %+v", got, want)
	}
}

func TestWriteRevenueByCountry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "revenue_by_country.csv")
	rows := []CountryRevenue{
		{Country: "US", Orders: 2, Revenue: 15.5},
		{Country: "", Orders: 1, Revenue: 3.0},
	}
	if err := WriteRevenueByCountry(path, rows); err != nil {
		t.Fatalf("WriteRevenueByCountry: %v", err)
	}

	got := readCSV(t, path)
	want := [][]string{
		{"country", "n_orders", "revenue"},
		{"US", "2", "15.5"},
		{"", "1", "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("csv content:\n got %v\nwant %v", got, want)
	}
}

func TestWriteMissingness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missingness.csv")
	rep := []transform.ColumnMissingness{
		{Column: "amount", Missing: 2, Fraction: 0.5},
		{Column: "order_id", Missing: 0, Fraction: 0},
	}
	if err := WriteMissingness(path, rep); err != nil {
		t.Fatalf("WriteMissingness: %v", err)
	}

	got := readCSV(t, path)
	want := [][]string{
		{"column", "n_missing", "fraction"},
		{"amount", "2", "0.5"},
		{"order_id", "0", "0"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("csv content:\n got %v\nwant %v", got, want)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}
