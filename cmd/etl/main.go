// Command etl builds the orders analytics table from the raw orders and users
// CSV files: it loads both inputs, runs the transform-and-validate pipeline,
// persists the result to the configured sink, and writes the diagnostic
// reports and the JSON run manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"orderetl/internal/config"
	"orderetl/internal/manifest"
	"orderetl/internal/metrics"
	"orderetl/internal/metrics/datadog"
	"orderetl/internal/metrics/prompush"
	"orderetl/internal/parser/csv"
	"orderetl/internal/pipeline"
	"orderetl/internal/report"
	"orderetl/internal/storage"
	"orderetl/internal/storage/postgres"
	"orderetl/internal/storage/sqlite"
	"orderetl/pkg/records"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/run.json", "run config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	initMetrics(cfg.Job, metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	start := time.Now()
	if err := run(context.Background(), cfg, *verbose); err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// initMetrics installs a metrics backend: flag -> env -> nop default.
func initMetrics(job, backendName, gwURL, ddAddr string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%v job=%v", gwURL, job)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DOGSTATSD_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: ddAddr, Namespace: "orderetl."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%v job=%v", ddAddr, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

// run executes one full build: load, transform, persist, report, manifest.
// Outputs are written only after every validation has passed, so a failed run
// leaves nothing that looks complete.
func run(ctx context.Context, cfg config.Run, verbose bool) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	logger.Printf("Loading inputs")
	orders, users, err := loadInputs(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Printf("Rows in: orders=%d users=%d", orders.Len(), users.Len())
	metrics.RecordRows(cfg.Job, "orders_in", int64(orders.Len()))
	metrics.RecordRows(cfg.Job, "users_in", int64(users.Len()))

	logger.Printf("Transforming")
	p := pipeline.New(cfg, logger)
	res, err := p.Transform(orders, users)
	if err != nil {
		return err
	}
	logger.Printf("Rows out: analytics=%d", res.Analytics.Len())

	if err := persist(ctx, cfg, res.Analytics); err != nil {
		return err
	}

	if cfg.ReportsDir != "" {
		if err := report.WriteMissingness(filepath.Join(cfg.ReportsDir, "missingness_orders.csv"), res.Missingness); err != nil {
			return err
		}
		if err := report.WriteRevenueByCountry(filepath.Join(cfg.ReportsDir, "revenue_by_country.csv"), report.RevenueByCountry(res.Analytics)); err != nil {
			return err
		}
		logger.Printf("Wrote reports: %s", cfg.ReportsDir)
	}

	logger.Printf("Writing run metadata: %s", cfg.ManifestPath)
	return manifest.Write(cfg.ManifestPath, pipeline.BuildRunMeta(cfg, res))
}

// loadInputs parses the two raw CSVs concurrently. Both tables are fully
// materialized before the transform starts.
func loadInputs(ctx context.Context, cfg config.Run) (records.Table, records.Table, error) {
	opt := csv.Options{
		HasHeader: cfg.Parser.Options.Bool("has_header", true),
		Comma:     cfg.Parser.Options.Rune("comma", ','),
		TrimSpace: cfg.Parser.Options.Bool("trim_space", false),
		NAMarkers: cfg.Parser.Options.StringSlice("na_markers"),
	}

	var orders, users records.Table
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = parseFile(cfg.Inputs.Orders, opt, cfg.Job)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = parseFile(cfg.Inputs.Users, opt, cfg.Job)
		return err
	})
	if err := g.Wait(); err != nil {
		return records.Table{}, records.Table{}, err
	}
	return orders, users, nil
}

func parseFile(path string, opt csv.Options, job string) (records.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return records.Table{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	t, skipped, err := csv.NewParser(opt).Parse(f)
	if err != nil {
		return records.Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	metrics.RecordRows(job, "parse_skipped", int64(skipped))
	return t, nil
}

// persist writes the analytics table to the configured sink.
func persist(ctx context.Context, cfg config.Run, analytics records.Table) error {
	var (
		repo    storage.Repository
		closeFn func()
		err     error
	)
	switch cfg.Storage.Kind {
	case "none":
		return nil
	case "sqlite":
		repo, closeFn, err = sqlite.NewRepository(ctx, sqlite.Config{DSN: cfg.Storage.DB.DSN, Table: cfg.Storage.DB.Table})
	case "postgres":
		repo, closeFn, err = postgres.NewRepository(ctx, postgres.Config{DSN: cfg.Storage.DB.DSN, Table: cfg.Storage.DB.Table})
	default:
		return fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
	}
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	err = func() error {
		if err := repo.EnsureTable(ctx, storage.InferColumns(analytics)); err != nil {
			return err
		}
		cols, rows := storage.BuildRows(analytics)
		n, err := repo.InsertRows(ctx, cols, rows)
		if err != nil {
			return err
		}
		metrics.RecordRows(cfg.Job, "inserted", n)
		return nil
	}()
	metrics.RecordStep(cfg.Job, "load", err, time.Since(start))
	return err
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
