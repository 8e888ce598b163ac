package drift

import (
	"time"

	"driftwatch/chunk"
	dwerrors "driftwatch/errors"
	"driftwatch/methods"
	"driftwatch/thresholds"
)

// Result is one scored (chunk, feature, method) triple. Results are
// immutable once assembled.
type Result struct {
	Chunk   chunk.Chunk       `json:"chunk"`
	Feature string            `json:"feature"`
	Method  string            `json:"method"`
	Score   methods.Score     `json:"score"`
	Bounds  thresholds.Bounds `json:"bounds"`

	// Alert is true when the statistic crossed an enabled threshold bound.
	Alert bool `json:"alert"`

	// Warnings flags low-confidence rows: chunks below the method's minimum
	// viable sample size, or chunks whose statistic could not be computed.
	Warnings dwerrors.Warnings `json:"warnings,omitempty"`
}

// LowConfidence reports whether the row carries a data-quality warning.
func (r Result) LowConfidence() bool {
	return r.Warnings.HasKind(dwerrors.WarningDataQuality)
}

// ResultSet is the ordered outcome of one Calculate run. Rows are ordered by
// chunk sequence first, then by feature and method in configuration order,
// so downstream consumers can assume chronological ordering.
type ResultSet struct {
	// RunID identifies the fitted calculator that produced this set.
	RunID string `json:"run_id"`

	CreatedAt time.Time `json:"created_at"`
	Results   []Result  `json:"results"`

	// Warnings carries run-level conditions: chunker ordering warnings and
	// domain clips recorded at fit time.
	Warnings dwerrors.Warnings `json:"warnings,omitempty"`
}

// Alerts returns the rows whose alert flag is raised.
func (rs *ResultSet) Alerts() []Result {
	var out []Result
	for _, r := range rs.Results {
		if r.Alert {
			out = append(out, r)
		}
	}
	return out
}

// ForFeature returns the rows for one feature, in chunk order.
func (rs *ResultSet) ForFeature(name string) []Result {
	var out []Result
	for _, r := range rs.Results {
		if r.Feature == name {
			out = append(out, r)
		}
	}
	return out
}

// ForMethod returns the rows for one method, in chunk order.
func (rs *ResultSet) ForMethod(name string) []Result {
	var out []Result
	for _, r := range rs.Results {
		if r.Method == name {
			out = append(out, r)
		}
	}
	return out
}
