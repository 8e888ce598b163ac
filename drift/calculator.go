package drift

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"driftwatch/chunk"
	dwerrors "driftwatch/errors"
	"driftwatch/methods"
	"driftwatch/table"
	"driftwatch/thresholds"
)

// DefaultWorkers bounds the scoring fan-out when not configured.
const DefaultWorkers = 4

// FeatureSpec selects the methods to run for one feature column.
type FeatureSpec struct {
	Name    string            `json:"name"`
	Kind    table.FeatureKind `json:"kind"`
	Methods []string          `json:"methods"`
}

// Calculator is the unfitted pipeline configuration. It is inert until Fit
// is called and may be reused to fit several independent pipelines.
type Calculator struct {
	pairs            []pair
	chunker          chunk.Chunker
	defaultThreshold thresholds.Strategy
	methodThresholds map[string]thresholds.Strategy
	workers          int
	logger           *slog.Logger
	tracer           *Tracer
}

// pair is one (feature, method) combination with its threshold strategy.
type pair struct {
	feature   FeatureSpec
	method    methods.Method
	threshold thresholds.Strategy
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithChunker selects the chunking strategy; the default is a count-based
// chunker producing chunk.DefaultCount chunks.
func WithChunker(c chunk.Chunker) Option {
	return func(calc *Calculator) { calc.chunker = c }
}

// WithThreshold sets the default threshold strategy for every method; the
// default is standard-deviation bands with multiplier 3.
func WithThreshold(s thresholds.Strategy) Option {
	return func(calc *Calculator) { calc.defaultThreshold = s }
}

// WithMethodThreshold overrides the threshold strategy for a single method.
func WithMethodThreshold(method string, s thresholds.Strategy) Option {
	return func(calc *Calculator) { calc.methodThresholds[method] = s }
}

// WithWorkers bounds the concurrent (feature, method) scoring fan-out.
func WithWorkers(n int) Option {
	return func(calc *Calculator) {
		if n > 0 {
			calc.workers = n
		}
	}
}

// WithLogger injects a structured logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(calc *Calculator) {
		if l != nil {
			calc.logger = l
		}
	}
}

// WithTracer attaches OpenTelemetry instrumentation to fit and calculate
// runs. Without it the calculator records nothing.
func WithTracer(t *Tracer) Option {
	return func(calc *Calculator) { calc.tracer = t }
}

// NewCalculator builds a pipeline configuration for the given features.
// Unknown method names surface as configuration errors here, and a method
// that does not support a feature's kind is a precondition error.
func NewCalculator(features []FeatureSpec, opts ...Option) (*Calculator, error) {
	if len(features) == 0 {
		return nil, dwerrors.NewConfiguration("drift.new", "at least one feature is required")
	}

	calc := &Calculator{
		chunker:          chunk.NewCountChunker(chunk.DefaultCount),
		defaultThreshold: thresholds.NewStandardDeviation(),
		methodThresholds: make(map[string]thresholds.Strategy),
		workers:          DefaultWorkers,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(calc)
	}

	for _, f := range features {
		if f.Name == "" {
			return nil, dwerrors.NewConfiguration("drift.new", "feature name cannot be empty")
		}
		if f.Kind != table.Continuous && f.Kind != table.Categorical {
			return nil, dwerrors.NewConfiguration("drift.new",
				"feature %q has unknown kind %q", f.Name, f.Kind)
		}
		if len(f.Methods) == 0 {
			return nil, dwerrors.NewConfiguration("drift.new",
				"feature %q selects no methods", f.Name)
		}
		for _, name := range f.Methods {
			m, err := methods.Create(name, f.Kind)
			if err != nil {
				return nil, err
			}
			threshold := calc.defaultThreshold
			if override, ok := calc.methodThresholds[name]; ok {
				threshold = override
			}
			calc.pairs = append(calc.pairs, pair{feature: f, method: m, threshold: threshold})
		}
	}
	return calc, nil
}

// FittedCalculator is the immutable result of fitting a Calculator on
// reference data. All state is read-only after Fit returns, so a fitted
// calculator is safe for concurrent Calculate calls.
type FittedCalculator struct {
	runID   string
	pairs   []fittedPair
	chunker chunk.Chunker
	workers int
	logger  *slog.Logger
	tracer  *Tracer

	referenceResults *ResultSet
}

// fittedPair is the frozen per-(feature, method) state.
type fittedPair struct {
	pair
	fitted methods.Fitted
	bounds thresholds.Bounds
}

// RunID identifies this fitted pipeline.
func (f *FittedCalculator) RunID() string { return f.runID }

// ReferenceResults returns the rows scored over the reference chunks during
// fitting, with alerts evaluated against the final bounds.
func (f *FittedCalculator) ReferenceResults() *ResultSet { return f.referenceResults }

// Bounds returns the fitted threshold pair for a (feature, method) pair.
func (f *FittedCalculator) Bounds(feature, method string) (thresholds.Bounds, bool) {
	for _, fp := range f.pairs {
		if fp.feature.Name == feature && fp.method.Name() == method {
			return fp.bounds, true
		}
	}
	return thresholds.Bounds{}, false
}

// Fit chunks the reference table, fits every method on the full reference
// sample, scores each reference chunk, and derives threshold bounds from the
// per-chunk statistic series. Configuration and precondition failures abort;
// degenerate chunks and clipped bounds are reported as warnings on the
// fitted calculator's reference results.
func (c *Calculator) Fit(ctx context.Context, reference *table.Table) (*FittedCalculator, error) {
	start := time.Now()
	if reference == nil || reference.Len() == 0 {
		return nil, dwerrors.NewPrecondition("drift.fit", "reference table is empty")
	}

	ctx, span := c.tracer.startRun(ctx, "fit", len(c.pairs))

	chunks, runWarnings, err := c.chunker.Split(reference)
	if err != nil {
		c.tracer.endRun(ctx, span, start, 0, 0, err)
		return nil, err
	}

	c.logger.InfoContext(ctx, "fitting drift calculator",
		"pairs", len(c.pairs),
		"reference_rows", reference.Len(),
		"reference_chunks", len(chunks),
		"chunker", c.chunker.Name(),
	)

	fittedPairs := make([]fittedPair, len(c.pairs))
	pairScores := make([][]Result, len(c.pairs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range c.pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := c.pairs[i]

			col, ok := reference.Column(p.feature.Name)
			if !ok {
				return dwerrors.NewPrecondition("drift.fit",
					"feature %q not present in reference table", p.feature.Name)
			}
			if col.Kind != p.feature.Kind {
				return dwerrors.NewPrecondition("drift.fit",
					"feature %q declared %s but reference column is %s",
					p.feature.Name, p.feature.Kind, col.Kind)
			}

			fitted, err := p.method.Fit(methods.SampleFromColumn(col))
			if err != nil {
				return err
			}

			rows := make([]Result, len(chunks))
			values := make([]float64, 0, len(chunks))
			for j, ch := range chunks {
				rows[j] = scoreChunk(fitted, p, ch)
				if !math.IsNaN(rows[j].Score.Value) {
					values = append(values, rows[j].Score.Value)
				}
			}
			if len(values) == 0 {
				return dwerrors.NewPrecondition("drift.fit",
					"no reference chunk produced a usable %s value for feature %q",
					p.method.Name(), p.feature.Name)
			}

			bounds, thresholdWarnings, err := p.threshold.Fit(values)
			if err != nil {
				return err
			}
			min, max := p.method.ValueRange()
			bounds, clipped := bounds.Clip(min, max)

			mu.Lock()
			for _, w := range thresholdWarnings {
				w.Feature, w.Method = p.feature.Name, p.method.Name()
				runWarnings = append(runWarnings, w)
			}
			if clipped {
				w := dwerrors.NewWarning(dwerrors.WarningDomainClip,
					"fitted bound outside theoretical domain [%g, %g], clipped", min, max)
				w.Feature, w.Method = p.feature.Name, p.method.Name()
				runWarnings = append(runWarnings, w)
			}
			mu.Unlock()

			for j := range rows {
				rows[j].Bounds = bounds
				rows[j].Alert = bounds.Alert(rows[j].Score.Value)
			}
			fittedPairs[i] = fittedPair{pair: p, fitted: fitted, bounds: bounds}
			pairScores[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.tracer.endRun(ctx, span, start, len(chunks), 0, err)
		return nil, err
	}

	fc := &FittedCalculator{
		runID:   uuid.NewString(),
		pairs:   fittedPairs,
		chunker: c.chunker,
		workers: c.workers,
		logger:  c.logger,
		tracer:  c.tracer,
	}
	fc.referenceResults = assembleResults(fc.runID, chunks, pairScores, runWarnings)

	for _, w := range runWarnings {
		c.logger.WarnContext(ctx, "fit warning", "warning", w.String())
	}

	alerts := len(fc.referenceResults.Alerts())
	c.tracer.endRun(ctx, span, start, len(chunks), alerts, nil)
	c.logger.InfoContext(ctx, "drift calculator fitted",
		"run_id", fc.runID,
		"duration", time.Since(start),
		"warnings", len(runWarnings),
	)
	return fc, nil
}

// Calculate re-chunks the input, scores every chunk against the fitted
// method states and compares against the fitted bounds. The input may be
// analysis data, reference data, or both concatenated. Degenerate chunks
// yield flagged rows rather than aborting the run.
func (f *FittedCalculator) Calculate(ctx context.Context, data *table.Table) (*ResultSet, error) {
	start := time.Now()
	if f == nil || len(f.pairs) == 0 {
		return nil, dwerrors.NewPrecondition("drift.calculate",
			"calculate called on an unfitted pipeline; call Fit first")
	}
	if data == nil {
		return nil, dwerrors.NewPrecondition("drift.calculate", "data table is nil")
	}

	ctx, span := f.tracer.startRun(ctx, "calculate", len(f.pairs))

	chunks, runWarnings, err := f.chunker.Split(data)
	if err != nil {
		f.tracer.endRun(ctx, span, start, 0, 0, err)
		return nil, err
	}

	f.logger.InfoContext(ctx, "calculating drift",
		"run_id", f.runID,
		"rows", data.Len(),
		"chunks", len(chunks),
	)

	pairScores := make([][]Result, len(f.pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i := range f.pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp := f.pairs[i]
			rows := make([]Result, len(chunks))
			for j, ch := range chunks {
				rows[j] = scoreChunk(fp.fitted, fp.pair, ch)
				rows[j].Bounds = fp.bounds
				rows[j].Alert = fp.bounds.Alert(rows[j].Score.Value)
			}
			pairScores[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.tracer.endRun(ctx, span, start, len(chunks), 0, err)
		return nil, err
	}

	rs := assembleResults(f.runID, chunks, pairScores, runWarnings)
	f.tracer.endRun(ctx, span, start, len(chunks), len(rs.Alerts()), nil)
	f.logger.InfoContext(ctx, "drift calculated",
		"run_id", f.runID,
		"rows", len(rs.Results),
		"alerts", len(rs.Alerts()),
		"duration", time.Since(start),
	)
	return rs, nil
}

// scoreChunk computes one (feature, method, chunk) statistic. Failures to
// compute (an empty or fully missing column in the chunk) degrade to a NaN
// score with a data-quality warning; undersized chunks keep their score but
// are flagged low-confidence.
func scoreChunk(fitted methods.Fitted, p pair, ch chunk.Chunk) Result {
	res := Result{
		Chunk:   ch,
		Feature: p.feature.Name,
		Method:  p.method.Name(),
	}
	warn := func(w dwerrors.Warning) {
		w.Feature, w.Method, w.Chunk = p.feature.Name, p.method.Name(), ch.Key
		res.Warnings = append(res.Warnings, w)
	}

	col, ok := ch.Data.Column(p.feature.Name)
	if !ok {
		res.Score = methods.Score{Value: math.NaN(), PValue: math.NaN()}
		warn(dwerrors.NewWarning(dwerrors.WarningDataQuality, "feature missing from chunk"))
		return res
	}
	score, err := fitted.Calculate(methods.SampleFromColumn(col))
	if err != nil {
		res.Score = methods.Score{Value: math.NaN(), PValue: math.NaN()}
		warn(dwerrors.NewWarning(dwerrors.WarningDataQuality, "statistic not computable: %v", err))
		return res
	}
	res.Score = score
	if ch.Len() < p.method.MinSampleSize() {
		warn(dwerrors.NewWarning(dwerrors.WarningDataQuality,
			"chunk holds %d rows, below the method minimum of %d; result is low-confidence",
			ch.Len(), p.method.MinSampleSize()))
	}
	return res
}

// assembleResults flattens per-pair row slices into chunk-sequence order:
// all pairs for chunk 0, then all pairs for chunk 1, and so on. Parallel
// scoring never changes this ordering.
func assembleResults(runID string, chunks []chunk.Chunk, pairScores [][]Result, warnings dwerrors.Warnings) *ResultSet {
	rs := &ResultSet{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Warnings:  warnings,
	}
	rs.Results = make([]Result, 0, len(chunks)*len(pairScores))
	for j := range chunks {
		for i := range pairScores {
			rs.Results = append(rs.Results, pairScores[i][j])
		}
	}
	return rs
}
