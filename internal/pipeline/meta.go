package pipeline

import (
	"orderetl/internal/config"
	"orderetl/internal/manifest"
)

// BuildRunMeta projects an already-computed transform Result into the run
// manifest. It is purely a projection: statistics are taken from the Result,
// never recomputed from the table, so the manifest cannot diverge from what
// the transform produced.
func BuildRunMeta(cfg config.Run, res Result) manifest.Manifest {
	return manifest.Manifest{
		RowsIn: manifest.RowsIn{
			Orders: res.OrdersIn,
			Users:  res.UsersIn,
		},
		RowsOut: manifest.RowsOut{
			Analytics: res.Analytics.Len(),
		},
		MissingCreatedAt:     res.MissingCreatedAt,
		CountryMatchRate:     res.CountryMatchRate,
		Config:               cfg.Snapshot(),
		AnalyticsFingerprint: manifest.Fingerprint(res.Analytics),
	}
}
