package methods

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// distinctValueLimit caps the distinct-value fallback: a reference sample
// with more than this many distinct values is always binned with Doane
// edges.
const distinctValueLimit = 50

// histogram is the binning state shared by the binned continuous methods.
// Exactly one of edges or values is set. It is fixed at fit time and
// read-only afterwards.
type histogram struct {
	edges    []float64 // Doane bin edges, len = bins+1
	values   []float64 // sorted distinct reference values, one bin each
	refProbs []float64 // reference relative frequency per bin, sums to 1
}

// fitHistogram derives bin edges and reference frequencies from the cleaned
// reference sample. Binning uses Doane's skewness-corrected rule unless the
// reference has few distinct values (at most distinctValueLimit and at most
// 10% of the sample size), in which case each distinct value becomes its own
// bin.
func fitHistogram(ref []float64) histogram {
	distinct := distinctSorted(ref)
	n := len(ref)

	if len(distinct) <= distinctValueLimit && float64(len(distinct)) <= 0.1*float64(n) {
		probs := make([]float64, len(distinct))
		for _, v := range ref {
			probs[searchExact(distinct, v)]++
		}
		floats.Scale(1/float64(n), probs)
		return histogram{values: distinct, refProbs: probs}
	}

	edges := doaneEdges(ref)
	probs := make([]float64, len(edges)-1)
	for _, v := range ref {
		if idx := binIndex(edges, v); idx >= 0 {
			probs[idx]++
		}
	}
	floats.Scale(1/float64(n), probs)
	return histogram{edges: edges, refProbs: probs}
}

// alignedProbs bins the cleaned sample on the fitted grid and returns the
// reference and sample frequency vectors, aligned in length. Sample mass
// outside the fitted bins (out-of-range values) collects in one extra
// overflow bin; the reference vector gains a matching zero entry. Both
// vectors sum to 1.
func (h histogram) alignedProbs(sample []float64) (refProbs, sampleProbs []float64) {
	n := float64(len(sample))
	var counts []float64
	if h.edges != nil {
		counts = make([]float64, len(h.edges)-1)
		for _, v := range sample {
			if idx := binIndex(h.edges, v); idx >= 0 {
				counts[idx]++
			}
		}
	} else {
		counts = make([]float64, len(h.values))
		for _, v := range sample {
			if idx := searchExact(h.values, v); idx >= 0 {
				counts[idx]++
			}
		}
	}
	floats.Scale(1/n, counts)

	refProbs = h.refProbs
	leftover := 1 - floats.Sum(counts)
	if leftover > 1e-12 {
		counts = append(counts, leftover)
		withOverflow := make([]float64, len(h.refProbs)+1)
		copy(withOverflow, h.refProbs)
		refProbs = withOverflow
	}
	return refProbs, counts
}

// doaneEdges computes equal-width bin edges with the bin count from Doane's
// rule: 1 + log2(n) + log2(1 + |g1|/sigma_g1), where g1 is the sample
// skewness. The skewness correction widens the count for asymmetric data.
func doaneEdges(ref []float64) []float64 {
	n := len(ref)
	lo, hi := floats.Min(ref), floats.Max(ref)
	if lo == hi {
		// Degenerate spread; one bin around the single value.
		return []float64{lo - 0.5, hi + 0.5}
	}

	bins := 1
	if n > 2 {
		g1 := populationSkewness(ref)
		sigmaG1 := math.Sqrt(6 * float64(n-2) / (float64(n+1) * float64(n+3)))
		bins = int(math.Ceil(1 + math.Log2(float64(n)) + math.Log2(1+math.Abs(g1)/sigmaG1)))
	}
	if bins < 1 {
		bins = 1
	}

	edges := make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi
	return edges
}

// populationSkewness is the uncorrected third standardized moment.
func populationSkewness(v []float64) float64 {
	n := float64(len(v))
	mean := floats.Sum(v) / n
	var m2, m3 float64
	for _, x := range v {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// binIndex locates v on the edge grid: bins are left-closed, the last bin is
// closed on both sides. Values outside the grid return -1.
func binIndex(edges []float64, v float64) int {
	last := len(edges) - 1
	if v < edges[0] || v > edges[last] {
		return -1
	}
	if v == edges[last] {
		return last - 1
	}
	// Smallest i with edges[i] > v; v falls in bin i-1.
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > v })
	return i - 1
}

// searchExact finds v in the sorted slice, or -1.
func searchExact(sorted []float64, v float64) int {
	i := sort.SearchFloat64s(sorted, v)
	if i < len(sorted) && sorted[i] == v {
		return i
	}
	return -1
}

// distinctSorted returns the sorted distinct values of v.
func distinctSorted(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	sort.Float64s(out)
	j := 0
	for i := 0; i < len(out); i++ {
		if i == 0 || out[i] != out[i-1] {
			out[j] = out[i]
			j++
		}
	}
	return out[:j]
}

// jensenShannonDistance is the square root of the Jensen-Shannon divergence
// between two aligned probability vectors, using the base-2 logarithm so the
// distance lies in [0,1]. It is symmetric in its arguments.
func jensenShannonDistance(p, q []float64) float64 {
	var div float64
	for i := range p {
		m := 0.5 * (p[i] + q[i])
		if p[i] > 0 {
			div += 0.5 * p[i] * math.Log2(p[i]/m)
		}
		if q[i] > 0 {
			div += 0.5 * q[i] * math.Log2(q[i]/m)
		}
	}
	return clamp01(math.Sqrt(math.Max(div, 0)))
}

// hellingerDistance is (1/sqrt(2)) * sqrt(sum((sqrt(p)-sqrt(q))^2)) over two
// aligned probability vectors, in [0,1]. Symmetric.
func hellingerDistance(p, q []float64) float64 {
	var sum float64
	for i := range p {
		d := math.Sqrt(p[i]) - math.Sqrt(q[i])
		sum += d * d
	}
	return clamp01(math.Sqrt(0.5 * sum))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
