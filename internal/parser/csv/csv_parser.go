// Package csv implements the delimited-text reader for the pipeline. It wraps
// encoding/csv with the conventions the rest of the pipeline relies on:
// recognized NA tokens become nil (missing), headers are canonicalized to
// ASCII snake_case, and ragged rows are soft-failed (skipped and counted)
// rather than aborting the whole file.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"orderetl/pkg/records"
)

// Options configures the parser. All fields are optional; sensible defaults
// are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// NAMarkers lists tokens mapped to missing, matched case-insensitively
	// after trimming. When nil, DefaultNAMarkers is used. The empty string is
	// always treated as missing.
	NAMarkers []string

	// HeaderMap maps source header names to canonical keys before the default
	// snake_case folding is applied to unmapped headers.
	HeaderMap map[string]string
}

// DefaultNAMarkers are the recognized missing-value tokens, compared
// case-insensitively.
var DefaultNAMarkers = []string{"", "na", "n/a", "null", "none"}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct {
	opt Options
	na  map[string]struct{}
}

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	markers := opt.NAMarkers
	if markers == nil {
		markers = DefaultNAMarkers
	}
	na := make(map[string]struct{}, len(markers)+1)
	na[""] = struct{}{}
	for _, m := range markers {
		na[strings.ToLower(m)] = struct{}{}
	}
	return &Parser{opt: opt, na: na}
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\xef\xbb\xbf"

// Parse consumes CSV records from r and returns the parsed table along with
// the number of rows skipped due to parse errors or field-count mismatches.
// The table's column order follows the header order.
func (p *Parser) Parse(r io.Reader) (records.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1 // width enforced against the header after read

	var headers []string
	var skipped int

	if p.opt.HasHeader {
		h, err := cr.Read()
		if err != nil {
			return records.Table{}, 0, fmt.Errorf("read csv header: %w", err)
		}
		headers = normalizeHeaders(h, p.opt)
	}

	out := records.Table{Columns: append([]string(nil), headers...)}

	// Skip messages report 1-based file lines, so a headered file starts its
	// data rows at line 2.
	line := 1
	if p.opt.HasHeader {
		line = 2
	}

	const logLimit = 400
	for ; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < logLimit {
				log.Printf("Skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}

		if len(headers) == 0 {
			headers = make([]string, len(row))
			for i := range headers {
				headers[i] = fmt.Sprintf("col_%d", i)
			}
			out.Columns = append([]string(nil), headers...)
		}
		if len(row) != len(headers) {
			if skipped < logLimit {
				log.Printf("Skipping row %d: incorrect number of fields (expected %d, got %d)", line, len(headers), len(row))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = p.naToNil(val)
		}
		out.Rows = append(out.Rows, rec)
	}

	return out, skipped, nil
}

// naToNil converts recognized NA tokens to nil; all other values are returned
// as-is. Matching trims and lowercases a copy, the stored value keeps its
// original spacing when TrimSpace is off.
func (p *Parser) naToNil(s string) any {
	if _, ok := p.na[strings.ToLower(strings.TrimSpace(s))]; ok {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys using HeaderMap (when
// provided) and canonicalName folding for the rest. A UTF-8 BOM on the first
// cell is stripped.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if opt.HeaderMap != nil {
			if m, ok := opt.HeaderMap[c]; ok {
				res[i] = m
				continue
			}
		}
		res[i] = canonicalName(c)
	}
	return res
}

// canonicalName folds a header to ASCII snake_case: diacritics are
// decomposed and stripped, letters lowercased, separator runs collapsed to
// a single underscore, anything else dropped.
func canonicalName(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, strings.ToLower(s))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
