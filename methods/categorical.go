package methods

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"driftwatch/table"
)

func init() {
	Register(NameChi2, table.Categorical, func() Method { return chi2{} })
	Register(NameJensenShannon, table.Categorical, func() Method { return jensenShannonCategorical{} })
	Register(NameHellinger, table.Categorical, func() Method { return hellingerCategorical{} })
	Register(NameLInfinity, table.Categorical, func() Method { return lInfinity{} })
}

// categoryCounts tallies values into a count map and an ordered category
// list.
func categoryCounts(values []string) (map[string]float64, []string) {
	counts := make(map[string]float64)
	for _, v := range values {
		counts[v]++
	}
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return counts, cats
}

// unionCategories returns the fitted reference categories followed by novel
// sample categories, each group sorted.
func unionCategories(refCats []string, sampleCounts map[string]float64) []string {
	known := make(map[string]bool, len(refCats))
	for _, c := range refCats {
		known[c] = true
	}
	var novel []string
	for c := range sampleCounts {
		if !known[c] {
			novel = append(novel, c)
		}
	}
	sort.Strings(novel)
	return append(append([]string{}, refCats...), novel...)
}

// ---- Chi-squared ----

// chi2 runs the chi-squared test of homogeneity over the category-by-period
// contingency table. Expected counts come from the table's marginal sums.
type chi2 struct{}

func (chi2) Name() string { return NameChi2 }
func (chi2) DisplayName() string { return "Chi2 statistic" }
func (chi2) Kind() table.FeatureKind { return table.Categorical }
func (chi2) ValueRange() (float64, float64) { return 0, math.Inf(1) }
func (chi2) MinSampleSize() int { return MinCategoricalSample }

func (m chi2) Fit(reference Sample) (Fitted, error) {
	ref, err := categoricalInput("methods.chi2.fit", reference)
	if err != nil {
		return nil, err
	}
	counts, cats := categoryCounts(ref)
	return &fittedChi2{refCounts: counts, refCats: cats, refTotal: float64(len(ref))}, nil
}

type fittedChi2 struct {
	refCounts map[string]float64
	refCats   []string
	refTotal  float64
}

func (f *fittedChi2) Calculate(sample Sample) (Score, error) {
	smp, err := categoricalInput("methods.chi2.calculate", sample)
	if err != nil {
		return Score{}, err
	}
	smpCounts, _ := categoryCounts(smp)
	cats := unionCategories(f.refCats, smpCounts)
	smpTotal := float64(len(smp))
	grand := f.refTotal + smpTotal

	var stat float64
	for _, c := range cats {
		colTotal := f.refCounts[c] + smpCounts[c]
		expRef := colTotal * f.refTotal / grand
		expSmp := colTotal * smpTotal / grand
		if expRef > 0 {
			d := f.refCounts[c] - expRef
			stat += d * d / expRef
		}
		if expSmp > 0 {
			d := smpCounts[c] - expSmp
			stat += d * d / expSmp
		}
	}

	dof := len(cats) - 1
	p := 1.0
	if dof > 0 {
		p = clamp01(distuv.ChiSquared{K: float64(dof)}.Survival(stat))
	}
	return Score{Value: stat, PValue: p}, nil
}

// ---- Jensen-Shannon (categorical) ----

type jensenShannonCategorical struct{}

func (jensenShannonCategorical) Name() string { return NameJensenShannon }
func (jensenShannonCategorical) DisplayName() string { return "Jensen-Shannon distance" }
func (jensenShannonCategorical) Kind() table.FeatureKind { return table.Categorical }
func (jensenShannonCategorical) ValueRange() (float64, float64) { return 0, 1 }
func (jensenShannonCategorical) MinSampleSize() int { return MinCategoricalSample }

func (m jensenShannonCategorical) Fit(reference Sample) (Fitted, error) {
	fc, err := fitCategoricalFrequencies("methods.jensen_shannon.fit", reference)
	if err != nil {
		return nil, err
	}
	fc.distance = jensenShannonDistance
	return fc, nil
}

// ---- Hellinger (categorical) ----

type hellingerCategorical struct{}

func (hellingerCategorical) Name() string { return NameHellinger }
func (hellingerCategorical) DisplayName() string { return "Hellinger distance" }
func (hellingerCategorical) Kind() table.FeatureKind { return table.Categorical }
func (hellingerCategorical) ValueRange() (float64, float64) { return 0, 1 }
func (hellingerCategorical) MinSampleSize() int { return MinCategoricalSample }

func (m hellingerCategorical) Fit(reference Sample) (Fitted, error) {
	fc, err := fitCategoricalFrequencies("methods.hellinger.fit", reference)
	if err != nil {
		return nil, err
	}
	fc.distance = hellingerDistance
	return fc, nil
}

// fittedCategoricalFrequencies treats each reference category as one bin.
// Categories seen only in the sample collect in an overflow bin appended at
// calculate time, with a matching zero-probability reference entry.
type fittedCategoricalFrequencies struct {
	refCats  []string
	refProbs []float64
	distance func(p, q []float64) float64
}

func fitCategoricalFrequencies(op string, reference Sample) (*fittedCategoricalFrequencies, error) {
	ref, err := categoricalInput(op, reference)
	if err != nil {
		return nil, err
	}
	counts, cats := categoryCounts(ref)
	probs := make([]float64, len(cats))
	for i, c := range cats {
		probs[i] = counts[c] / float64(len(ref))
	}
	return &fittedCategoricalFrequencies{refCats: cats, refProbs: probs}, nil
}

func (f *fittedCategoricalFrequencies) Calculate(sample Sample) (Score, error) {
	smp, err := categoricalInput("methods.categorical.calculate", sample)
	if err != nil {
		return Score{}, err
	}
	smpCounts, _ := categoryCounts(smp)
	n := float64(len(smp))

	refProbs := f.refProbs
	smpProbs := make([]float64, len(f.refCats))
	var covered float64
	for i, c := range f.refCats {
		smpProbs[i] = smpCounts[c] / n
		covered += smpProbs[i]
	}
	if leftover := 1 - covered; leftover > 1e-12 {
		smpProbs = append(smpProbs, leftover)
		withOverflow := make([]float64, len(f.refProbs)+1)
		copy(withOverflow, f.refProbs)
		refProbs = withOverflow
	}
	return Score{Value: f.distance(refProbs, smpProbs), PValue: math.NaN()}, nil
}

// ---- L-infinity ----

// lInfinity is the maximum absolute difference between per-category relative
// frequencies. Categories unseen in the reference count with zero reference
// frequency.
type lInfinity struct{}

func (lInfinity) Name() string { return NameLInfinity }
func (lInfinity) DisplayName() string { return "L-infinity distance" }
func (lInfinity) Kind() table.FeatureKind { return table.Categorical }
func (lInfinity) ValueRange() (float64, float64) { return 0, 1 }
func (lInfinity) MinSampleSize() int { return MinCategoricalSample }

func (m lInfinity) Fit(reference Sample) (Fitted, error) {
	ref, err := categoricalInput("methods.l_infinity.fit", reference)
	if err != nil {
		return nil, err
	}
	counts, cats := categoryCounts(ref)
	probs := make(map[string]float64, len(cats))
	for c, cnt := range counts {
		probs[c] = cnt / float64(len(ref))
	}
	return &fittedLInfinity{refProbs: probs, refCats: cats}, nil
}

type fittedLInfinity struct {
	refProbs map[string]float64
	refCats  []string
}

func (f *fittedLInfinity) Calculate(sample Sample) (Score, error) {
	smp, err := categoricalInput("methods.l_infinity.calculate", sample)
	if err != nil {
		return Score{}, err
	}
	smpCounts, _ := categoryCounts(smp)
	n := float64(len(smp))

	var max float64
	for _, c := range unionCategories(f.refCats, smpCounts) {
		d := math.Abs(f.refProbs[c] - smpCounts[c]/n)
		if d > max {
			max = d
		}
	}
	return Score{Value: clamp01(max), PValue: math.NaN()}, nil
}
