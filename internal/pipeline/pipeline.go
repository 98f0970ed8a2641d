// Package pipeline sequences the transform-and-validate stages that turn the
// two raw input tables into the analytics table: quality gates, schema
// coercion, status normalization and mapping, missingness flags, timestamp
// decomposition, the guarded left join, and the winsorization/outlier
// statistics.
//
// The pipeline fails fast on the first violated contract and attempts no
// partial recovery; per-value parse anomalies are tolerated and surfaced as
// missingness instead. Every stage consumes and produces fresh tables, so a
// run owns its intermediates end to end.
package pipeline

import (
	"fmt"
	"io"
	"log"
	"time"

	"orderetl/internal/config"
	"orderetl/internal/join"
	"orderetl/internal/metrics"
	"orderetl/internal/quality"
	"orderetl/internal/transform"
	"orderetl/pkg/records"
)

// OrderColumns and UserColumns are the contract the raw inputs must satisfy.
var (
	OrderColumns = []string{"order_id", "user_id", "amount", "quantity", "created_at", "status"}
	UserColumns  = []string{"user_id", "country", "signup_date"}
)

// Result bundles the analytics table with the run statistics computed while
// transforming. The manifest is a projection of this value; nothing is ever
// recomputed from the table afterwards, so the two cannot diverge.
type Result struct {
	Analytics records.Table

	OrdersIn int
	UsersIn  int

	// MissingCreatedAt counts rows whose created_at failed to parse or was
	// absent. Nil when the column is not part of the output.
	MissingCreatedAt *int

	// CountryMatchRate is 1 - fraction of analytics rows with a missing
	// country, i.e. the share of orders that found their user. Nil when the
	// column is not part of the output.
	CountryMatchRate *float64

	// Missingness is the per-column diagnostic captured right after coercion.
	Missingness []transform.ColumnMissingness
}

// Pipeline runs the transform over in-memory tables. The logger is a
// passed-in collaborator rather than process-global state so the core stays
// testable without capturing output streams.
type Pipeline struct {
	cfg config.Run
	log *log.Logger
}

// New builds a Pipeline. A nil logger silences stage logging.
func New(cfg config.Run, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{cfg: cfg, log: logger}
}

// Transform runs the full sequence over the raw orders and users tables and
// returns the analytics table plus run statistics. It returns the first
// violated invariant as a typed error from the quality or join packages.
func (p *Pipeline) Transform(ordersRaw, usersRaw records.Table) (Result, error) {
	start := time.Now()
	res, err := p.transform(ordersRaw, usersRaw)
	metrics.RecordStep(p.cfg.Job, "transform", err, time.Since(start))
	if err == nil {
		metrics.RecordRows(p.cfg.Job, "analytics", int64(res.Analytics.Len()))
	}
	return res, err
}

func (p *Pipeline) transform(ordersRaw, usersRaw records.Table) (Result, error) {
	// Quality gates on both inputs.
	if err := quality.RequireColumns(ordersRaw, "orders_raw", OrderColumns); err != nil {
		return Result{}, err
	}
	if err := quality.RequireColumns(usersRaw, "users_raw", UserColumns); err != nil {
		return Result{}, err
	}
	if err := quality.AssertNonEmpty(ordersRaw, "orders_raw"); err != nil {
		return Result{}, err
	}
	if err := quality.AssertNonEmpty(usersRaw, "users_raw"); err != nil {
		return Result{}, err
	}
	if err := quality.AssertUniqueKey(usersRaw, "user_id", false); err != nil {
		return Result{}, err
	}

	orders := transform.EnforceSchema(ordersRaw)
	missingness := transform.MissingnessReport(orders)

	// Status: normalize free text, then map known variants onto the closed
	// category set. Unmapped values keep their normalized form.
	statusClean := transform.ApplyMapping(
		transform.NormalizeText(orders.Column("status")),
		p.cfg.Cleaning.StatusMapping,
	)
	orders = orders.WithColumn("status_clean", statusClean)

	orders = transform.AddMissingFlags(orders, p.cfg.Cleaning.MissingFlagColumns)

	// Validation-time range contract: coerced amounts and quantities are
	// never negative.
	zero := 0.0
	if err := quality.AssertInRange(orders.Column("amount"), &zero, nil, "amount"); err != nil {
		return Result{}, err
	}
	if err := quality.AssertInRange(orders.Column("quantity"), &zero, nil, "quantity"); err != nil {
		return Result{}, err
	}

	orders = transform.ParseDatetime(orders, "created_at", true)
	missingTS := transform.MissingCount(orders, "created_at")
	p.log.Printf("missing created_at after parse: %d / %d", missingTS, orders.Len())
	orders = transform.AddTimeParts(orders, "created_at")

	preJoin := orders.Len()
	joined, err := join.LeftJoin(orders, usersRaw, "user_id", join.ManyToOne, "_user")
	if err != nil {
		return Result{}, err
	}
	// A many_to_one left join must preserve the left row count.
	if joined.Len() != preJoin {
		return Result{}, fmt.Errorf("row count changed after join: %d -> %d", preJoin, joined.Len())
	}

	joined = joined.WithColumn("amount_winsor",
		transform.Winsorize(joined.Column("amount"), p.cfg.Stats.WinsorLow, p.cfg.Stats.WinsorHigh))

	if p.cfg.Stats.EnableOutlierFlag {
		joined, err = transform.AddOutlierFlag(joined, "amount", p.cfg.Stats.IQRK)
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Analytics:   joined,
		OrdersIn:    ordersRaw.Len(),
		UsersIn:     usersRaw.Len(),
		Missingness: missingness,
	}
	if joined.HasColumn("created_at") {
		res.MissingCreatedAt = &missingTS
	}
	if joined.HasColumn("country") {
		rate := 1.0
		if joined.Len() > 0 {
			rate = 1.0 - float64(transform.MissingCount(joined, "country"))/float64(joined.Len())
		}
		res.CountryMatchRate = &rate
	}

	p.log.Printf("rows before join: %d after join: %d", preJoin, joined.Len())
	return res, nil
}
