// Package manifest defines the JSON run manifest written after a successful
// build and its filesystem writer.
//
// The key names and nesting are an external contract: downstream consumers
// read rows_in, rows_out, missing_created_at, country_match_rate, and config.
// The analytics fingerprint is supplemental and may be used to detect whether
// two runs produced identical output.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	"orderetl/pkg/records"
)

// Manifest is the run record persisted next to the analytics output.
type Manifest struct {
	RowsIn               RowsIn            `json:"rows_in"`
	RowsOut              RowsOut           `json:"rows_out"`
	MissingCreatedAt     *int              `json:"missing_created_at"`
	CountryMatchRate     *float64          `json:"country_match_rate"`
	Config               map[string]string `json:"config"`
	AnalyticsFingerprint string            `json:"analytics_fingerprint,omitempty"`
}

// RowsIn records input row counts per table.
type RowsIn struct {
	Orders int `json:"orders"`
	Users  int `json:"users"`
}

// RowsOut records output row counts per artifact.
type RowsOut struct {
	Analytics int `json:"analytics"`
}

// Write persists the manifest as indented JSON, creating parent directories as
// needed. The file is written only after the caller has finished every
// validated stage; a failed run leaves no manifest behind.
func Write(path string, m Manifest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// Read loads a previously written manifest.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// Fingerprint hashes the table content (column order, then every row in
// order) with xxh3 and returns a hex digest. Two runs over the same input
// with the same config produce the same fingerprint.
func Fingerprint(t records.Table) string {
	h := xxh3.New()
	for _, c := range t.Columns {
		h.WriteString(c)
		h.WriteString("\x1f")
	}
	h.WriteString("\x1e")
	for _, r := range t.Rows {
		for _, c := range t.Columns {
			v := r[c]
			if v == nil {
				h.WriteString("\x00")
			} else {
				h.WriteString(fmt.Sprint(v))
			}
			h.WriteString("\x1f")
		}
		h.WriteString("\x1e")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
