// Package thresholds converts a series of per-chunk statistic values,
// computed over reference chunks, into a lower/upper alerting bound pair.
// Two interchangeable strategies are provided: caller-supplied constant
// bounds and standard-deviation bands around a pluggable baseline. Bounds
// are fitted once, clipped once to the statistic's theoretical domain, and
// never recomputed from analysis data.
package thresholds

import (
	"math"

	"gonum.org/v1/gonum/stat"

	dwerrors "driftwatch/errors"
)

// DefaultMultiplier is the standard-deviation band width used when a
// multiplier is not configured.
const DefaultMultiplier = 3.0

// Bounds is a fitted threshold pair. A nil side is disabled: no value,
// however extreme, alerts on that side.
type Bounds struct {
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Alert reports whether v crosses either enabled bound.
func (b Bounds) Alert(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if b.Lower != nil && v < *b.Lower {
		return true
	}
	if b.Upper != nil && v > *b.Upper {
		return true
	}
	return false
}

// Clip constrains both enabled bounds to the statistic's theoretical domain
// [min, max] and reports whether any bound moved. Clipping happens once,
// after fitting, never during comparison.
func (b Bounds) Clip(min, max float64) (Bounds, bool) {
	clipped := false
	out := b
	if b.Lower != nil {
		v := *b.Lower
		if v < min {
			v, clipped = min, true
		} else if v > max {
			v, clipped = max, true
		}
		out.Lower = &v
	}
	if b.Upper != nil {
		v := *b.Upper
		if v < min {
			v, clipped = min, true
		} else if v > max {
			v, clipped = max, true
		}
		out.Upper = &v
	}
	return out, clipped
}

// Strategy derives Bounds from the reference statistic series. Fitting may
// surface data-quality warnings (degenerate series) without failing.
type Strategy interface {
	// Name returns the strategy name used in configuration.
	Name() string

	// Fit computes the bound pair over the reference statistic values.
	Fit(values []float64) (Bounds, dwerrors.Warnings, error)
}

// Constant returns caller-supplied literal bounds, independent of any data.
// A nil side disables that bound.
type Constant struct {
	Lower *float64
	Upper *float64
}

// NewConstant creates a constant strategy.
func NewConstant(lower, upper *float64) *Constant {
	return &Constant{Lower: lower, Upper: upper}
}

// Name implements Strategy.
func (c *Constant) Name() string { return "constant" }

// Fit implements Strategy. The input values are ignored.
func (c *Constant) Fit([]float64) (Bounds, dwerrors.Warnings, error) {
	if c.Lower != nil && c.Upper != nil && *c.Lower > *c.Upper {
		return Bounds{}, nil, dwerrors.NewConfiguration("thresholds.constant",
			"lower bound %g exceeds upper bound %g", *c.Lower, *c.Upper)
	}
	return Bounds{Lower: c.Lower, Upper: c.Upper}, nil, nil
}

// StandardDeviation fits bounds at baseline +/- multiplier * spread, where
// the baseline aggregates the reference statistic series (arithmetic mean by
// default) and the spread is the population standard deviation. Setting a
// multiplier to nil disables that side entirely.
type StandardDeviation struct {
	LowerMultiplier *float64
	UpperMultiplier *float64

	// Baseline aggregates the statistic series; defaults to the mean.
	Baseline func([]float64) float64
}

// NewStandardDeviation creates a standard-deviation strategy with both
// multipliers at DefaultMultiplier and the mean baseline.
func NewStandardDeviation() *StandardDeviation {
	lower, upper := DefaultMultiplier, DefaultMultiplier
	return &StandardDeviation{LowerMultiplier: &lower, UpperMultiplier: &upper}
}

// Name implements Strategy.
func (s *StandardDeviation) Name() string { return "standard_deviation" }

// Fit implements Strategy. A zero-variance series degrades both enabled
// bounds to the baseline value and reports a data-quality warning instead of
// failing.
func (s *StandardDeviation) Fit(values []float64) (Bounds, dwerrors.Warnings, error) {
	if s.LowerMultiplier != nil && *s.LowerMultiplier < 0 {
		return Bounds{}, nil, dwerrors.NewConfiguration("thresholds.standard_deviation",
			"lower multiplier must be non-negative, got %g", *s.LowerMultiplier)
	}
	if s.UpperMultiplier != nil && *s.UpperMultiplier < 0 {
		return Bounds{}, nil, dwerrors.NewConfiguration("thresholds.standard_deviation",
			"upper multiplier must be non-negative, got %g", *s.UpperMultiplier)
	}
	if len(values) == 0 {
		return Bounds{}, nil, dwerrors.NewPrecondition("thresholds.standard_deviation",
			"cannot fit on an empty statistic series")
	}

	baselineFn := s.Baseline
	if baselineFn == nil {
		baselineFn = func(v []float64) float64 { return stat.Mean(v, nil) }
	}
	baseline := baselineFn(values)
	spread := popStdDev(values)

	var warnings dwerrors.Warnings
	if spread == 0 {
		warnings = append(warnings, dwerrors.NewWarning(dwerrors.WarningDataQuality,
			"reference statistic series has zero variance; both bounds degenerate to baseline %g", baseline))
	}

	var bounds Bounds
	if s.LowerMultiplier != nil {
		v := baseline - *s.LowerMultiplier*spread
		bounds.Lower = &v
	}
	if s.UpperMultiplier != nil {
		v := baseline + *s.UpperMultiplier*spread
		bounds.Upper = &v
	}
	return bounds, warnings, nil
}

// popStdDev is the population standard deviation (no Bessel correction).
func popStdDev(values []float64) float64 {
	mean := stat.Mean(values, nil)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Ptr is a convenience for building bound and multiplier literals.
func Ptr(v float64) *float64 { return &v }

// Spec selects and parameterizes a strategy from configuration.
type Spec struct {
	Type            string   `yaml:"type" json:"type"`
	Lower           *float64 `yaml:"lower" json:"lower,omitempty"`
	Upper           *float64 `yaml:"upper" json:"upper,omitempty"`
	LowerMultiplier *float64 `yaml:"lower_multiplier" json:"lower_multiplier,omitempty"`
	UpperMultiplier *float64 `yaml:"upper_multiplier" json:"upper_multiplier,omitempty"`

	// DisableLower and DisableUpper turn a side off entirely. Needed because
	// an absent multiplier in YAML means "use the default", not "disable".
	DisableLower bool `yaml:"disable_lower" json:"disable_lower,omitempty"`
	DisableUpper bool `yaml:"disable_upper" json:"disable_upper,omitempty"`
}

// New instantiates the strategy a Spec names. Unknown types are
// configuration errors. An empty type selects the standard-deviation
// default.
func New(spec Spec) (Strategy, error) {
	switch spec.Type {
	case "constant":
		return NewConstant(spec.Lower, spec.Upper), nil
	case "standard_deviation", "":
		s := NewStandardDeviation()
		if spec.LowerMultiplier != nil {
			s.LowerMultiplier = spec.LowerMultiplier
		}
		if spec.UpperMultiplier != nil {
			s.UpperMultiplier = spec.UpperMultiplier
		}
		if spec.DisableLower {
			s.LowerMultiplier = nil
		}
		if spec.DisableUpper {
			s.UpperMultiplier = nil
		}
		return s, nil
	default:
		return nil, dwerrors.NewConfiguration("thresholds.new",
			"unknown threshold strategy %q, known strategies: [constant standard_deviation]", spec.Type)
	}
}
