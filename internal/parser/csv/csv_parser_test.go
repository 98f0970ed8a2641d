package csv

import (
	"bytes"
	"log"
	"os"
	"reflect"
	"strings"
	"testing"
)

/*
TestParse covers the parser conventions the pipeline relies on: header
canonicalization, NA tokens becoming nil, soft-failed ragged rows, and the
headerless fallback column names.
*/
func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		opt         Options
		input       string
		wantCols    []string
		wantRows    int
		wantSkipped int
	}{
		{
			name:     "basic_with_header",
			opt:      Options{HasHeader: true},
			input:    "order_id,amount\no1,10\no2,20\n",
			wantCols: []string{"order_id", "amount"},
			wantRows: 2,
		},
		{
			name:     "headers_folded_to_snake_case",
			opt:      Options{HasHeader: true},
			input:    "Order ID,Montant Payé\no1,10\n",
			wantCols: []string{"order_id", "montant_paye"},
			wantRows: 1,
		},
		{
			name:     "bom_stripped_from_first_header",
			opt:      Options{HasHeader: true},
			input:    "\xef\xbb\xbfid,amount\no1,10\n",
			wantCols: []string{"id", "amount"},
			wantRows: 1,
		},
		{
			name:        "ragged_row_skipped",
			opt:         Options{HasHeader: true},
			input:       "id,amount\no1,10\no2\no3,30\n",
			wantCols:    []string{"id", "amount"},
			wantRows:    2,
			wantSkipped: 1,
		},
		{
			name:     "no_header_synthesizes_names",
			opt:      Options{},
			input:    "o1,10\no2,20\n",
			wantCols: []string{"col_0", "col_1"},
			wantRows: 2,
		},
		{
			name:     "semicolon_delimiter",
			opt:      Options{HasHeader: true, Comma: ';'},
			input:    "id;amount\no1;10\n",
			wantCols: []string{"id", "amount"},
			wantRows: 1,
		},
		{
			name:     "header_map_wins_over_folding",
			opt:      Options{HasHeader: true, HeaderMap: map[string]string{"OID": "order_id"}},
			input:    "OID,amount\no1,10\n",
			wantCols: []string{"order_id", "amount"},
			wantRows: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, err := NewParser(tt.opt).Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(got.Columns, tt.wantCols) {
				t.Errorf("columns = %v, want %v", got.Columns, tt.wantCols)
			}
			if got.Len() != tt.wantRows {
				t.Errorf("rows = %d, want %d", got.Len(), tt.wantRows)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}

/*
TestParseNATokens checks that the recognized missing-value markers map to nil
case-insensitively and that unrecognized tokens pass through unchanged.
*/
func TestParseNATokens(t *testing.T) {
	input := "id,status\no1,NA\no2,n/a\no3,NULL\no4,none\no5,\no6,pending\n"
	got, _, err := NewParser(Options{HasHeader: true}).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i := 0; i < 5; i++ {
		if got.Rows[i]["status"] != nil {
			t.Errorf("row %d status = %v, want nil", i, got.Rows[i]["status"])
		}
	}
	if got.Rows[5]["status"] != "pending" {
		t.Errorf("row 5 status = %v, want pending", got.Rows[5]["status"])
	}
}

func TestParseCustomNAMarkers(t *testing.T) {
	p := NewParser(Options{HasHeader: true, NAMarkers: []string{"-"}})
	got, _, err := p.Parse(strings.NewReader("id,v\no1,-\no2,na\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Rows[0]["v"] != nil {
		t.Errorf("custom marker not mapped: %v", got.Rows[0]["v"])
	}
	// Custom markers replace the default list ("" excepted).
	if got.Rows[1]["v"] != "na" {
		t.Errorf("default marker still active: %v", got.Rows[1]["v"])
	}
}

func TestParseTrimSpace(t *testing.T) {
	got, _, err := NewParser(Options{HasHeader: true, TrimSpace: true}).
		Parse(strings.NewReader("id,v\no1,  padded  \n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Rows[0]["v"] != "padded" {
		t.Errorf("v = %q, want trimmed value", got.Rows[0]["v"])
	}
}

/*
TestParseSkipLogReportsFileLine checks that a skipped row is logged with its
1-based line number in the file, header included, so the message points at
the exact line a reader would open in an editor.
*/
func TestParseSkipLogReportsFileLine(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	// The ragged row sits on file line 4.
	input := "id,amount\no1,10\no2,20\no3\n"
	_, skipped, err := NewParser(Options{HasHeader: true}).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if !strings.Contains(buf.String(), "Skipping row 4") {
		t.Errorf("log = %q, want a reference to file line 4", buf.String())
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Order ID", "order_id"},
		{"créé_le", "cree_le"},
		{"Amount (USD)", "amount_usd"},
		{"a--b..c", "a_b_c"},
		{"trailing ", "trailing"},
	}
	for _, tt := range tests {
		if got := canonicalName(tt.in); got != tt.want {
			t.Errorf("canonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
