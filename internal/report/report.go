// Package report writes the diagnostic CSV reports that accompany a run: the
// per-column missingness report and the revenue-by-country summary. Reports
// are projections of already-computed tables; they never feed back into the
// pipeline.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"orderetl/internal/quality"
	"orderetl/internal/transform"
	"orderetl/pkg/records"
)

// CountryRevenue is one row of the revenue summary.
type CountryRevenue struct {
	Country string // empty string renders a missing country group
	Orders  int
	Revenue float64
}

// RevenueByCountry groups the analytics table by country (missing included as
// its own group), counting orders and summing non-missing amounts, sorted by
// revenue descending with ties broken by country name.
func RevenueByCountry(t records.Table) []CountryRevenue {
	type agg struct {
		orders  int
		revenue float64
	}
	groups := make(map[string]*agg)
	for _, r := range t.Rows {
		country := ""
		if v := r["country"]; !records.IsMissing(v) {
			country = fmt.Sprint(v)
		}
		g := groups[country]
		if g == nil {
			g = &agg{}
			groups[country] = g
		}
		g.orders++
		if f, ok := quality.AsFloat(r["amount"]); ok {
			g.revenue += f
		}
	}

	out := make([]CountryRevenue, 0, len(groups))
	for c, g := range groups {
		out = append(out, CountryRevenue{Country: c, Orders: g.orders, Revenue: g.revenue})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// WriteMissingness writes the missingness report as CSV with a header row.
func WriteMissingness(path string, rep []transform.ColumnMissingness) error {
	return writeCSV(path, [][]string{{"column", "n_missing", "fraction"}}, func(w *csv.Writer) error {
		for _, row := range rep {
			if err := w.Write([]string{
				row.Column,
				strconv.Itoa(row.Missing),
				strconv.FormatFloat(row.Fraction, 'g', -1, 64),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteRevenueByCountry writes the revenue summary as CSV with a header row.
func WriteRevenueByCountry(path string, rows []CountryRevenue) error {
	return writeCSV(path, [][]string{{"country", "n_orders", "revenue"}}, func(w *csv.Writer) error {
		for _, row := range rows {
			if err := w.Write([]string{
				row.Country,
				strconv.Itoa(row.Orders),
				strconv.FormatFloat(row.Revenue, 'g', -1, 64),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, header [][]string, body func(*csv.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, h := range header {
		if err := w.Write(h); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if err := body(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}
