// Package quality monitors data quality alongside drift: it tracks the
// per-chunk rate of missing values (NaN for continuous columns, the empty
// string for categorical ones) and alerts when a chunk's rate leaves the
// band fitted on reference data. It follows the same two-phase contract as
// the drift calculator: fit once on reference, then calculate on anything.
package quality

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"driftwatch/chunk"
	dwerrors "driftwatch/errors"
	"driftwatch/table"
	"driftwatch/thresholds"
)

// Result is the missing-value rate of one feature within one chunk.
type Result struct {
	Chunk   chunk.Chunk `json:"chunk"`
	Feature string      `json:"feature"`

	// Rate is missing rows divided by chunk rows, in [0, 1].
	Rate   float64           `json:"rate"`
	Bounds thresholds.Bounds `json:"bounds"`
	Alert  bool              `json:"alert"`
}

// ResultSet is the outcome of one missing-values run, chunk-ordered.
type ResultSet struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Results   []Result          `json:"results"`
	Warnings  dwerrors.Warnings `json:"warnings,omitempty"`
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

// Calculator is the unfitted missing-values monitor configuration.
type Calculator struct {
	features  []string
	chunker   chunk.Chunker
	threshold thresholds.Strategy
	logger    *slog.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithChunker selects the chunking strategy; the default matches the drift
// calculator's count-based default.
func WithChunker(c chunk.Chunker) Option {
	return func(calc *Calculator) { calc.chunker = c }
}

// WithThreshold sets the threshold strategy applied to the per-chunk rates.
func WithThreshold(s thresholds.Strategy) Option {
	return func(calc *Calculator) { calc.threshold = s }
}

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(calc *Calculator) {
		if l != nil {
			calc.logger = l
		}
	}
}

// NewCalculator builds a monitor for the named feature columns.
func NewCalculator(features []string, opts ...Option) (*Calculator, error) {
	if len(features) == 0 {
		return nil, dwerrors.NewConfiguration("quality.new", "at least one feature is required")
	}
	calc := &Calculator{
		features:  features,
		chunker:   chunk.NewCountChunker(chunk.DefaultCount),
		threshold: thresholds.NewStandardDeviation(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(calc)
	}
	return calc, nil
}

// FittedCalculator holds the per-feature bounds fitted on reference chunks.
type FittedCalculator struct {
	runID   string
	chunker chunk.Chunker
	bounds  map[string]thresholds.Bounds
	logger  *slog.Logger

	referenceResults *ResultSet
}

// RunID identifies this fitted monitor.
func (f *FittedCalculator) RunID() string { return f.runID }

// ReferenceResults returns the reference chunks scored during fitting.
func (f *FittedCalculator) ReferenceResults() *ResultSet { return f.referenceResults }

// Bounds returns the fitted band for one feature.
func (f *FittedCalculator) Bounds(feature string) (thresholds.Bounds, bool) {
	b, ok := f.bounds[feature]
	return b, ok
}

// Fit computes per-chunk missing rates over the reference table and fits a
// band per feature, clipped to the rate's [0, 1] domain.
func (c *Calculator) Fit(ctx context.Context, reference *table.Table) (*FittedCalculator, error) {
	if reference == nil || reference.Len() == 0 {
		return nil, dwerrors.NewPrecondition("quality.fit", "reference table is empty")
	}
	chunks, runWarnings, err := c.chunker.Split(reference)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "fitting missing-values monitor",
		"features", len(c.features),
		"reference_chunks", len(chunks),
	)

	fc := &FittedCalculator{
		runID:   uuid.NewString(),
		chunker: c.chunker,
		bounds:  make(map[string]thresholds.Bounds, len(c.features)),
		logger:  c.logger,
	}

	rates := make(map[string][]float64, len(c.features))
	for _, feature := range c.features {
		if _, ok := reference.Column(feature); !ok {
			return nil, dwerrors.NewPrecondition("quality.fit",
				"feature %q not present in reference table", feature)
		}
		series := make([]float64, len(chunks))
		for j, ch := range chunks {
			n, err := ch.Data.MissingCount(feature)
			if err != nil {
				return nil, err
			}
			series[j] = float64(n) / float64(ch.Len())
		}
		rates[feature] = series

		bounds, warns, err := c.threshold.Fit(series)
		if err != nil {
			return nil, err
		}
		for _, w := range warns {
			w.Feature = feature
			runWarnings = append(runWarnings, w)
		}
		bounds, clipped := bounds.Clip(0, 1)
		if clipped {
			w := dwerrors.NewWarning(dwerrors.WarningDomainClip,
				"fitted bound outside rate domain [0, 1], clipped")
			w.Feature = feature
			runWarnings = append(runWarnings, w)
		}
		fc.bounds[feature] = bounds
	}

	fc.referenceResults = assemble(fc, chunks, rates, runWarnings)
	return fc, nil
}

// Calculate computes per-chunk missing rates over new data and flags rates
// outside the fitted bands.
func (f *FittedCalculator) Calculate(ctx context.Context, data *table.Table) (*ResultSet, error) {
	if f == nil || len(f.bounds) == 0 {
		return nil, dwerrors.NewPrecondition("quality.calculate",
			"calculate called on an unfitted monitor; call Fit first")
	}
	if data == nil {
		return nil, dwerrors.NewPrecondition("quality.calculate", "data table is nil")
	}
	chunks, runWarnings, err := f.chunker.Split(data)
	if err != nil {
		return nil, err
	}

	rates := make(map[string][]float64, len(f.bounds))
	for feature := range f.bounds {
		if _, ok := data.Column(feature); !ok {
			return nil, dwerrors.NewPrecondition("quality.calculate",
				"feature %q not present in data table", feature)
		}
		series := make([]float64, len(chunks))
		for j, ch := range chunks {
			n, err := ch.Data.MissingCount(feature)
			if err != nil {
				return nil, err
			}
			series[j] = float64(n) / float64(ch.Len())
		}
		rates[feature] = series
	}

	rs := assemble(f, chunks, rates, runWarnings)
	f.logger.InfoContext(ctx, "missing-values calculated",
		"run_id", f.runID,
		"rows", len(rs.Results),
		"alerts", len(rs.Alerts()),
	)
	return rs, nil
}

// assemble orders rows chunk-first, then by feature in fitted order.
func assemble(f *FittedCalculator, chunks []chunk.Chunk, rates map[string][]float64, warnings dwerrors.Warnings) *ResultSet {
	features := make([]string, 0, len(rates))
	for feature := range rates {
		features = append(features, feature)
	}
	// map iteration order is random; fix a stable feature order
	sort.Strings(features)

	rs := &ResultSet{
		RunID:     f.runID,
		CreatedAt: time.Now().UTC(),
		Warnings:  warnings,
	}
	rs.Results = make([]Result, 0, len(chunks)*len(features))
	for j, ch := range chunks {
		for _, feature := range features {
			rate := rates[feature][j]
			bounds := f.bounds[feature]
			rs.Results = append(rs.Results, Result{
				Chunk:   ch,
				Feature: feature,
				Rate:    rate,
				Bounds:  bounds,
				Alert:   bounds.Alert(rate),
			})
		}
	}
	return rs
}
