// Package config defines the canonical, JSON-serializable configuration model
// for an analytics build run. It is intentionally small and explicit so run
// files can be loaded from disk and passed through the program without glue
// code.
//
// Decoding is performed by the standard library; parser-specific knobs use a
// light Options helper for typed access instead of a third-party config
// library. Changes to this package should stay additive and backwards
// compatible.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Run is the top-level object decoded from a run config file.
type Run struct {
	// Job names the run for logs, metrics labels, and the manifest.
	Job string `json:"job"`

	// Inputs locates the two raw delimited-text tables.
	Inputs Inputs `json:"inputs"`

	// Parser carries free-form CSV parser options (comma, has_header, ...).
	Parser Parser `json:"parser"`

	// Cleaning configures text/category normalization of the order table.
	Cleaning Cleaning `json:"cleaning"`

	// Stats configures winsorization and the IQR outlier flag.
	Stats Stats `json:"stats"`

	// Storage selects the sink for the analytics table.
	Storage Storage `json:"storage"`

	// ReportsDir is where diagnostic CSV reports are written. Empty disables
	// report output.
	ReportsDir string `json:"reports_dir"`

	// ManifestPath is where the JSON run manifest is written.
	ManifestPath string `json:"manifest_path"`
}

// Inputs locates the raw input files.
type Inputs struct {
	Orders string `json:"orders"`
	Users  string `json:"users"`
}

// Parser selects how raw bytes become records. Only CSV is implemented; the
// kind field exists so other formats can be added without breaking run files.
type Parser struct {
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// Cleaning holds the normalization knobs for the orders table.
type Cleaning struct {
	// StatusMapping maps normalized status variants to canonical categories.
	// Empty means the built-in default mapping.
	StatusMapping map[string]string `json:"status_mapping,omitempty"`

	// MissingFlagColumns lists columns that receive a "{col}_missing" flag.
	MissingFlagColumns []string `json:"missing_flag_columns,omitempty"`
}

// Stats holds the statistical transform knobs.
type Stats struct {
	WinsorLow  float64 `json:"winsor_low"`
	WinsorHigh float64 `json:"winsor_high"`
	IQRK       float64 `json:"iqr_k"`

	// EnableOutlierFlag gates the amount_is_outlier column. Modeled as an
	// explicit capability flag rather than a runtime existence probe.
	EnableOutlierFlag bool `json:"enable_outlier_flag"`
}

// Storage selects the sink used to persist the analytics table.
type Storage struct {
	// Kind is "sqlite", "postgres", or "none".
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the connection string (file path for sqlite; pgx URL for postgres).
	DSN string `json:"dsn"`

	// Table is the destination table name for the analytics rows.
	Table string `json:"table"`
}

// Defaults applied when the corresponding config fields are zero.
var (
	DefaultStatusMapping = map[string]string{
		"paid":             "paid",
		"payment complete": "paid",
		"refund":           "refund",
		"refunded":         "refund",
	}
	DefaultMissingFlagColumns = []string{"amount", "quantity"}
)

// Load reads and decodes a run config file, then applies defaults.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var r Run
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return Run{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	r.ApplyDefaults()
	return r, nil
}

// ApplyDefaults fills zero-valued knobs with the documented defaults.
func (r *Run) ApplyDefaults() {
	if r.Job == "" {
		r.Job = "analytics_build"
	}
	if r.Parser.Kind == "" {
		r.Parser.Kind = "csv"
	}
	if r.Parser.Options == nil {
		r.Parser.Options = Options{}
	}
	if len(r.Cleaning.StatusMapping) == 0 {
		r.Cleaning.StatusMapping = DefaultStatusMapping
	}
	if len(r.Cleaning.MissingFlagColumns) == 0 {
		r.Cleaning.MissingFlagColumns = append([]string(nil), DefaultMissingFlagColumns...)
	}
	if r.Stats.WinsorLow == 0 && r.Stats.WinsorHigh == 0 {
		r.Stats.WinsorLow, r.Stats.WinsorHigh = 0.01, 0.99
	}
	if r.Stats.IQRK == 0 {
		r.Stats.IQRK = 1.5
	}
	if r.Storage.Kind == "" {
		r.Storage.Kind = "none"
	}
	if r.ManifestPath == "" {
		r.ManifestPath = "_run_meta.json"
	}
}

// Snapshot renders the configuration as a flat string map for the run
// manifest, so downstream consumers need no type knowledge.
func (r Run) Snapshot() map[string]string {
	snap := map[string]string{
		"job":                       r.Job,
		"inputs.orders":             r.Inputs.Orders,
		"inputs.users":              r.Inputs.Users,
		"parser.kind":               r.Parser.Kind,
		"stats.winsor_low":          fmt.Sprint(r.Stats.WinsorLow),
		"stats.winsor_high":         fmt.Sprint(r.Stats.WinsorHigh),
		"stats.iqr_k":               fmt.Sprint(r.Stats.IQRK),
		"stats.enable_outlier_flag": fmt.Sprint(r.Stats.EnableOutlierFlag),
		"storage.kind":              r.Storage.Kind,
		"storage.table":             r.Storage.DB.Table,
		"reports_dir":               r.ReportsDir,
		"manifest_path":             r.ManifestPath,
	}
	keys := make([]string, 0, len(r.Cleaning.StatusMapping))
	for k := range r.Cleaning.StatusMapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		snap["cleaning.status_mapping."+k] = r.Cleaning.StatusMapping[k]
	}
	return snap
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without a third-party configuration library. It performs only minimal type
// coercion and returns the provided default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def when missing
// or empty. Useful for single-character parser settings such as the CSV
// delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings; nil otherwise.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null options object to a non-nil, empty
// Options map so call sites need no nil checks.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
