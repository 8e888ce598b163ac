package methods

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/floats"
)

func TestFitHistogram_DistinctValueMode(t *testing.T) {
	// 3 distinct values over 300 rows: well under the distinct-value limit
	// and under 10% of the sample, so every value gets its own bin.
	ref := make([]float64, 0, 300)
	for i := 0; i < 100; i++ {
		ref = append(ref, 1, 2, 5)
	}
	h := fitHistogram(ref)

	require.Nil(t, h.edges)
	assert.Equal(t, []float64{1, 2, 5}, h.values)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, h.refProbs, 1e-12)
}

func TestFitHistogram_DoaneMode(t *testing.T) {
	// 60 distinct values exceeds the limit, forcing Doane edges.
	ref := make([]float64, 60)
	for i := range ref {
		ref[i] = float64(i)
	}
	h := fitHistogram(ref)

	require.NotNil(t, h.edges)
	assert.Nil(t, h.values)
	assert.Equal(t, 0.0, h.edges[0])
	assert.Equal(t, 59.0, h.edges[len(h.edges)-1])
	assert.InDelta(t, 1.0, floats.Sum(h.refProbs), 1e-12)
}

func TestAlignedProbs_OverflowBin(t *testing.T) {
	ref := make([]float64, 0, 300)
	for i := 0; i < 100; i++ {
		ref = append(ref, 1, 2, 5)
	}
	h := fitHistogram(ref)

	t.Run("in-range sample keeps original bin count", func(t *testing.T) {
		p, q := h.alignedProbs([]float64{1, 1, 2, 5})
		assert.Len(t, p, 3)
		assert.Len(t, q, 3)
		assert.InDelta(t, 1.0, floats.Sum(q), 1e-12)
	})

	t.Run("unseen values collect in one overflow bin", func(t *testing.T) {
		p, q := h.alignedProbs([]float64{1, 2, 99, 100})
		require.Len(t, p, 4)
		require.Len(t, q, 4)
		assert.Equal(t, 0.0, p[3], "reference holds no mass in the overflow bin")
		assert.InDelta(t, 0.5, q[3], 1e-12)
		assert.InDelta(t, 1.0, floats.Sum(q), 1e-12)
	})
}

func TestBinIndex(t *testing.T) {
	edges := []float64{0, 1, 2, 3}

	tests := []struct {
		name string
		v    float64
		want int
	}{
		{name: "first bin lower edge", v: 0, want: 0},
		{name: "interior", v: 1.5, want: 1},
		{name: "bin boundary belongs to the right bin", v: 2, want: 2},
		{name: "last edge belongs to the last bin", v: 3, want: 2},
		{name: "below range", v: -0.1, want: -1},
		{name: "above range", v: 3.1, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, binIndex(edges, tt.v))
		})
	}
}

func TestDoaneEdges_DegenerateSpread(t *testing.T) {
	edges := doaneEdges([]float64{7, 7, 7, 7})
	assert.Equal(t, []float64{6.5, 7.5}, edges)
}

func TestDistances_Symmetry(t *testing.T) {
	p := []float64{0.5, 0.3, 0.2}
	q := []float64{0.2, 0.3, 0.5}

	assert.InDelta(t, jensenShannonDistance(p, q), jensenShannonDistance(q, p), 1e-15)
	assert.InDelta(t, hellingerDistance(p, q), hellingerDistance(q, p), 1e-15)
	assert.Equal(t, 0.0, jensenShannonDistance(p, p))
	assert.Equal(t, 0.0, hellingerDistance(p, p))
}

func TestKolmogorovSurvival(t *testing.T) {
	// limiting values of the Kolmogorov distribution
	assert.Equal(t, 1.0, kolmogorovSurvival(0))
	assert.InDelta(t, 0.0, kolmogorovSurvival(10), 1e-12)
	// K(1.36) ~ 0.049, the classic 5% critical value
	assert.InDelta(t, 0.049, kolmogorovSurvival(1.36), 0.002)
}
