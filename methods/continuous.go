package methods

import (
	"math"
	"sort"

	"driftwatch/table"
)

func init() {
	Register(NameKolmogorovSmirnov, table.Continuous, func() Method { return kolmogorovSmirnov{} })
	Register(NameWasserstein, table.Continuous, func() Method { return wasserstein{} })
	Register(NameJensenShannon, table.Continuous, func() Method { return jensenShannonContinuous{} })
	Register(NameHellinger, table.Continuous, func() Method { return hellingerContinuous{} })
}

// sortedCopy returns v sorted without mutating the input.
func sortedCopy(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	sort.Float64s(out)
	return out
}

// upperBound returns the number of elements in sorted that are <= v.
func upperBound(sorted []float64, v float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
}

// ---- Kolmogorov-Smirnov ----

// kolmogorovSmirnov compares empirical CDFs. The statistic is the supremum
// of their absolute difference; the p-value uses the two-sample asymptotic
// null distribution.
type kolmogorovSmirnov struct{}

func (kolmogorovSmirnov) Name() string { return NameKolmogorovSmirnov }
func (kolmogorovSmirnov) DisplayName() string { return "Kolmogorov-Smirnov statistic" }
func (kolmogorovSmirnov) Kind() table.FeatureKind { return table.Continuous }
func (kolmogorovSmirnov) ValueRange() (float64, float64) { return 0, 1 }
func (kolmogorovSmirnov) MinSampleSize() int { return MinContinuousSample }

func (m kolmogorovSmirnov) Fit(reference Sample) (Fitted, error) {
	ref, err := continuousInput("methods.kolmogorov_smirnov.fit", reference)
	if err != nil {
		return nil, err
	}
	return &fittedKS{ref: sortedCopy(ref)}, nil
}

type fittedKS struct {
	ref []float64 // sorted
}

func (f *fittedKS) Calculate(sample Sample) (Score, error) {
	smp, err := continuousInput("methods.kolmogorov_smirnov.calculate", sample)
	if err != nil {
		return Score{}, err
	}
	smp = sortedCopy(smp)

	n := float64(len(f.ref))
	m := float64(len(smp))

	// Evaluate both CDFs at every observed value; the supremum is attained
	// at one of them.
	var stat float64
	for _, v := range f.ref {
		d := math.Abs(float64(upperBound(f.ref, v))/n - float64(upperBound(smp, v))/m)
		if d > stat {
			stat = d
		}
	}
	for _, v := range smp {
		d := math.Abs(float64(upperBound(f.ref, v))/n - float64(upperBound(smp, v))/m)
		if d > stat {
			stat = d
		}
	}

	en := math.Sqrt(n * m / (n + m))
	p := kolmogorovSurvival((en + 0.12 + 0.11/en) * stat)
	return Score{Value: clamp01(stat), PValue: p}, nil
}

// kolmogorovSurvival is the survival function of the Kolmogorov distribution,
// Q(t) = 2 * sum_{k>=1} (-1)^{k-1} exp(-2 k^2 t^2). Not available in gonum's
// distuv, so the alternating series is evaluated directly; it converges in a
// handful of terms for any t of practical size.
func kolmogorovSurvival(t float64) float64 {
	if t < 1e-8 {
		return 1
	}
	var sum float64
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k*k)*t*t)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return clamp01(2 * sum)
}

// ---- Wasserstein ----

// wasserstein is the first-order Wasserstein distance in one dimension: the
// integral of the absolute difference between the two empirical CDFs, i.e.
// the area between their step functions.
type wasserstein struct{}

func (wasserstein) Name() string { return NameWasserstein }
func (wasserstein) DisplayName() string { return "Wasserstein distance" }
func (wasserstein) Kind() table.FeatureKind { return table.Continuous }
func (wasserstein) ValueRange() (float64, float64) { return 0, math.Inf(1) }
func (wasserstein) MinSampleSize() int { return MinContinuousSample }

func (m wasserstein) Fit(reference Sample) (Fitted, error) {
	ref, err := continuousInput("methods.wasserstein.fit", reference)
	if err != nil {
		return nil, err
	}
	return &fittedWasserstein{ref: sortedCopy(ref)}, nil
}

type fittedWasserstein struct {
	ref []float64 // sorted
}

func (f *fittedWasserstein) Calculate(sample Sample) (Score, error) {
	smp, err := continuousInput("methods.wasserstein.calculate", sample)
	if err != nil {
		return Score{}, err
	}
	smp = sortedCopy(smp)

	n := float64(len(f.ref))
	m := float64(len(smp))

	// Walk the merged value sequence, accumulating |F_ref - F_smp| over each
	// interval between consecutive observed values.
	var dist float64
	i, j := 0, 0
	var prev float64
	first := true
	for i < len(f.ref) || j < len(smp) {
		var x float64
		switch {
		case i >= len(f.ref):
			x = smp[j]
		case j >= len(smp):
			x = f.ref[i]
		default:
			x = math.Min(f.ref[i], smp[j])
		}
		if !first {
			dist += math.Abs(float64(i)/n-float64(j)/m) * (x - prev)
		}
		for i < len(f.ref) && f.ref[i] == x {
			i++
		}
		for j < len(smp) && smp[j] == x {
			j++
		}
		prev = x
		first = false
	}
	return Score{Value: dist, PValue: math.NaN()}, nil
}

// ---- Jensen-Shannon (continuous) ----

type jensenShannonContinuous struct{}

func (jensenShannonContinuous) Name() string { return NameJensenShannon }
func (jensenShannonContinuous) DisplayName() string { return "Jensen-Shannon distance" }
func (jensenShannonContinuous) Kind() table.FeatureKind { return table.Continuous }
func (jensenShannonContinuous) ValueRange() (float64, float64) { return 0, 1 }
func (jensenShannonContinuous) MinSampleSize() int { return MinContinuousSample }

func (m jensenShannonContinuous) Fit(reference Sample) (Fitted, error) {
	ref, err := continuousInput("methods.jensen_shannon.fit", reference)
	if err != nil {
		return nil, err
	}
	return &fittedBinnedContinuous{hist: fitHistogram(ref), distance: jensenShannonDistance}, nil
}

// ---- Hellinger (continuous) ----

type hellingerContinuous struct{}

func (hellingerContinuous) Name() string { return NameHellinger }
func (hellingerContinuous) DisplayName() string { return "Hellinger distance" }
func (hellingerContinuous) Kind() table.FeatureKind { return table.Continuous }
func (hellingerContinuous) ValueRange() (float64, float64) { return 0, 1 }
func (hellingerContinuous) MinSampleSize() int { return MinContinuousSample }

func (m hellingerContinuous) Fit(reference Sample) (Fitted, error) {
	ref, err := continuousInput("methods.hellinger.fit", reference)
	if err != nil {
		return nil, err
	}
	return &fittedBinnedContinuous{hist: fitHistogram(ref), distance: hellingerDistance}, nil
}

// fittedBinnedContinuous shares the fitted histogram between the two binned
// distance methods; only the distance formula differs.
type fittedBinnedContinuous struct {
	hist     histogram
	distance func(p, q []float64) float64
}

func (f *fittedBinnedContinuous) Calculate(sample Sample) (Score, error) {
	smp, err := continuousInput("methods.binned.calculate", sample)
	if err != nil {
		return Score{}, err
	}
	refProbs, sampleProbs := f.hist.alignedProbs(smp)
	return Score{Value: f.distance(refProbs, sampleProbs), PValue: math.NaN()}, nil
}
