// This file adds a lightweight linter/validator for Run values. It performs
// static checks over a decoded Run and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "storage.db.dsn"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error where that is convenient.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Run. It does not mutate the config;
// callers decide whether warnings are fatal.
func Validate(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{SeverityError, "job", "job must not be empty; it labels metrics and identifies runs"})
	}
	if strings.TrimSpace(r.Inputs.Orders) == "" {
		issues = append(issues, Issue{SeverityError, "inputs.orders", "orders input path is required"})
	}
	if strings.TrimSpace(r.Inputs.Users) == "" {
		issues = append(issues, Issue{SeverityError, "inputs.users", "users input path is required"})
	}
	if r.Parser.Kind != "csv" {
		issues = append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unsupported parser kind %q; only \"csv\" is implemented", r.Parser.Kind)})
	}

	issues = append(issues, validateStats(r.Stats)...)
	issues = append(issues, validateStorage(r.Storage)...)

	if r.ReportsDir == "" {
		issues = append(issues, Issue{SeverityWarning, "reports_dir", "reports disabled; missingness and revenue reports will not be written"})
	}
	return issues
}

func validateStats(s Stats) []Issue {
	var issues []Issue
	if s.WinsorLow < 0 || s.WinsorLow > 1 {
		issues = append(issues, Issue{SeverityError, "stats.winsor_low", "must be within [0, 1]"})
	}
	if s.WinsorHigh < 0 || s.WinsorHigh > 1 {
		issues = append(issues, Issue{SeverityError, "stats.winsor_high", "must be within [0, 1]"})
	}
	if s.WinsorLow >= s.WinsorHigh {
		issues = append(issues, Issue{SeverityError, "stats.winsor_low", "must be strictly below stats.winsor_high"})
	}
	if s.IQRK <= 0 {
		issues = append(issues, Issue{SeverityError, "stats.iqr_k", "must be positive"})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	switch s.Kind {
	case "none":
		issues = append(issues, Issue{SeverityWarning, "storage.kind", "no sink configured; the analytics table will not be persisted"})
	case "sqlite", "postgres":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "storage.db.dsn", "DSN is required for kind " + s.Kind})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{SeverityError, "storage.db.table", "table is required for kind " + s.Kind})
		}
	default:
		issues = append(issues, Issue{SeverityError, "storage.kind", fmt.Sprintf("unknown storage kind %q (expected sqlite, postgres, or none)", s.Kind)})
	}
	return issues
}
