package thresholds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwerrors "driftwatch/errors"
)

func TestBounds_Alert(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
		value  float64
		want   bool
	}{
		{name: "inside band", bounds: Bounds{Lower: Ptr(0.0), Upper: Ptr(1.0)}, value: 0.5, want: false},
		{name: "on lower bound", bounds: Bounds{Lower: Ptr(0.0), Upper: Ptr(1.0)}, value: 0.0, want: false},
		{name: "on upper bound", bounds: Bounds{Lower: Ptr(0.0), Upper: Ptr(1.0)}, value: 1.0, want: false},
		{name: "below lower", bounds: Bounds{Lower: Ptr(0.0), Upper: Ptr(1.0)}, value: -0.1, want: true},
		{name: "above upper", bounds: Bounds{Lower: Ptr(0.0), Upper: Ptr(1.0)}, value: 1.1, want: true},
		{name: "disabled lower never alerts low", bounds: Bounds{Upper: Ptr(1.0)}, value: -100, want: false},
		{name: "disabled upper never alerts high", bounds: Bounds{Lower: Ptr(0.0)}, value: 100, want: false},
		{name: "both disabled", bounds: Bounds{}, value: 1e9, want: false},
		{name: "NaN never alerts", bounds: Bounds{Lower: Ptr(0.0), Upper: Ptr(1.0)}, value: math.NaN(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bounds.Alert(tt.value))
		})
	}
}

func TestBounds_Clip(t *testing.T) {
	t.Run("bounds inside the domain are untouched", func(t *testing.T) {
		b := Bounds{Lower: Ptr(0.2), Upper: Ptr(0.8)}
		out, clipped := b.Clip(0, 1)
		assert.False(t, clipped)
		assert.Equal(t, 0.2, *out.Lower)
		assert.Equal(t, 0.8, *out.Upper)
	})

	t.Run("bounds outside the domain are clipped", func(t *testing.T) {
		b := Bounds{Lower: Ptr(-0.5), Upper: Ptr(1.5)}
		out, clipped := b.Clip(0, 1)
		assert.True(t, clipped)
		assert.Equal(t, 0.0, *out.Lower)
		assert.Equal(t, 1.0, *out.Upper)
	})

	t.Run("disabled sides stay disabled", func(t *testing.T) {
		b := Bounds{Upper: Ptr(2.0)}
		out, clipped := b.Clip(0, 1)
		assert.True(t, clipped)
		assert.Nil(t, out.Lower)
		assert.Equal(t, 1.0, *out.Upper)
	})
}

func TestConstant_Fit(t *testing.T) {
	t.Run("returns the configured bounds", func(t *testing.T) {
		s := NewConstant(Ptr(0.1), Ptr(0.9))
		bounds, warnings, err := s.Fit([]float64{1, 2, 3})
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, 0.1, *bounds.Lower)
		assert.Equal(t, 0.9, *bounds.Upper)
	})

	t.Run("inverted bounds are a configuration error", func(t *testing.T) {
		s := NewConstant(Ptr(0.9), Ptr(0.1))
		_, _, err := s.Fit(nil)
		require.Error(t, err)
		assert.True(t, dwerrors.IsConfiguration(err))
	})
}

func TestStandardDeviation_Fit(t *testing.T) {
	// mean 3, population stddev sqrt(2)
	values := []float64{1, 2, 3, 4, 5}
	spread := math.Sqrt(2)

	t.Run("default three-sigma band", func(t *testing.T) {
		bounds, warnings, err := NewStandardDeviation().Fit(values)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.InDelta(t, 3-3*spread, *bounds.Lower, 1e-12)
		assert.InDelta(t, 3+3*spread, *bounds.Upper, 1e-12)
	})

	t.Run("asymmetric multipliers", func(t *testing.T) {
		s := NewStandardDeviation()
		s.LowerMultiplier = Ptr(1.0)
		s.UpperMultiplier = Ptr(2.0)
		bounds, _, err := s.Fit(values)
		require.NoError(t, err)
		assert.InDelta(t, 3-spread, *bounds.Lower, 1e-12)
		assert.InDelta(t, 3+2*spread, *bounds.Upper, 1e-12)
	})

	t.Run("nil multiplier disables the side", func(t *testing.T) {
		s := NewStandardDeviation()
		s.LowerMultiplier = nil
		bounds, _, err := s.Fit(values)
		require.NoError(t, err)
		assert.Nil(t, bounds.Lower)
		require.NotNil(t, bounds.Upper)
	})

	t.Run("zero variance degrades to baseline with a warning", func(t *testing.T) {
		bounds, warnings, err := NewStandardDeviation().Fit([]float64{2, 2, 2, 2})
		require.NoError(t, err)
		assert.True(t, warnings.HasKind(dwerrors.WarningDataQuality))
		assert.Equal(t, 2.0, *bounds.Lower)
		assert.Equal(t, 2.0, *bounds.Upper)
	})

	t.Run("empty series is a precondition error", func(t *testing.T) {
		_, _, err := NewStandardDeviation().Fit(nil)
		require.Error(t, err)
		assert.True(t, dwerrors.IsPrecondition(err))
	})

	t.Run("negative multiplier is a configuration error", func(t *testing.T) {
		s := NewStandardDeviation()
		s.UpperMultiplier = Ptr(-1.0)
		_, _, err := s.Fit(values)
		require.Error(t, err)
		assert.True(t, dwerrors.IsConfiguration(err))
	})

	t.Run("custom baseline", func(t *testing.T) {
		s := NewStandardDeviation()
		s.Baseline = func([]float64) float64 { return 10 }
		bounds, _, err := s.Fit(values)
		require.NoError(t, err)
		assert.InDelta(t, 10-3*spread, *bounds.Lower, 1e-12)
		assert.InDelta(t, 10+3*spread, *bounds.Upper, 1e-12)
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		wantName string
		wantErr  bool
	}{
		{name: "constant", spec: Spec{Type: "constant", Upper: Ptr(0.5)}, wantName: "constant"},
		{name: "standard deviation", spec: Spec{Type: "standard_deviation"}, wantName: "standard_deviation"},
		{name: "empty type defaults to standard deviation", spec: Spec{}, wantName: "standard_deviation"},
		{name: "unknown type", spec: Spec{Type: "quantile"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dwerrors.IsConfiguration(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, s.Name())
		})
	}

	t.Run("disable flags turn sides off", func(t *testing.T) {
		s, err := New(Spec{Type: "standard_deviation", DisableLower: true})
		require.NoError(t, err)
		bounds, _, err := s.Fit([]float64{1, 2, 3})
		require.NoError(t, err)
		assert.Nil(t, bounds.Lower)
		assert.NotNil(t, bounds.Upper)
	})

	t.Run("multiplier overrides apply", func(t *testing.T) {
		s, err := New(Spec{Type: "standard_deviation", UpperMultiplier: Ptr(2.0)})
		require.NoError(t, err)
		sd, ok := s.(*StandardDeviation)
		require.True(t, ok)
		assert.Equal(t, 2.0, *sd.UpperMultiplier)
		assert.Equal(t, DefaultMultiplier, *sd.LowerMultiplier)
	})
}
