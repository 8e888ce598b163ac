package methods

import (
	"math"
	"sort"
	"sync"

	dwerrors "driftwatch/errors"
	"driftwatch/table"
)

// Method names accepted by the registry.
const (
	NameKolmogorovSmirnov = "kolmogorov_smirnov"
	NameJensenShannon     = "jensen_shannon"
	NameWasserstein       = "wasserstein"
	NameHellinger         = "hellinger"
	NameChi2              = "chi2"
	NameLInfinity         = "l_infinity"
)

// Minimum viable sample sizes per method family. Chunks below these sizes
// still produce a statistic but are flagged low-confidence by the caller.
const (
	MinContinuousSample  = 50
	MinCategoricalSample = 25
)

// Sample holds one feature column's values for one chunk or one full period.
// Exactly one of the value slices is populated, matching Kind.
type Sample struct {
	Kind        table.FeatureKind
	Continuous  []float64
	Categorical []string
}

// ContinuousSample wraps continuous values.
func ContinuousSample(values []float64) Sample {
	return Sample{Kind: table.Continuous, Continuous: values}
}

// CategoricalSample wraps categorical values.
func CategoricalSample(values []string) Sample {
	return Sample{Kind: table.Categorical, Categorical: values}
}

// SampleFromColumn wraps a table column.
func SampleFromColumn(col table.Column) Sample {
	if col.Kind == table.Continuous {
		return ContinuousSample(col.Continuous)
	}
	return CategoricalSample(col.Categorical)
}

// Len returns the number of values, including missing ones.
func (s Sample) Len() int {
	if s.Kind == table.Continuous {
		return len(s.Continuous)
	}
	return len(s.Categorical)
}

// Score is the outcome of one method over one sample.
type Score struct {
	// Value is the statistic. NaN when the sample was empty.
	Value float64 `json:"value"`

	// PValue accompanies the statistical tests (kolmogorov_smirnov, chi2)
	// and is NaN for the distance methods.
	PValue float64 `json:"p_value"`
}

// Method is an unfitted distribution-comparison statistic.
type Method interface {
	// Name returns the registry key.
	Name() string

	// DisplayName returns the human-readable name.
	DisplayName() string

	// Kind returns the feature kind this instance operates on.
	Kind() table.FeatureKind

	// ValueRange returns the statistic's theoretical domain. Unbounded sides
	// are +Inf. Thresholds fitted over this method's values are clipped to
	// this range.
	ValueRange() (min, max float64)

	// MinSampleSize returns the smallest sample size the statistic is
	// considered reliable on.
	MinSampleSize() int

	// Fit derives the method's internal state from the full reference
	// sample. The returned state is immutable and safe for concurrent use.
	Fit(reference Sample) (Fitted, error)
}

// Fitted is the immutable state produced by Method.Fit.
type Fitted interface {
	// Calculate computes the statistic of sample against the fitted
	// reference state. An empty sample (after dropping missing values) is an
	// error; callers decide whether that aborts or degrades.
	Calculate(sample Sample) (Score, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]map[table.FeatureKind]func() Method{}
)

// Register adds a method constructor for a (name, feature kind) pair.
// Registering the same pair twice panics; it indicates a programming error.
func Register(name string, kind table.FeatureKind, ctor func() Method) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kinds, ok := registry[name]
	if !ok {
		kinds = make(map[table.FeatureKind]func() Method)
		registry[name] = kinds
	}
	if _, dup := kinds[kind]; dup {
		panic("methods: duplicate registration for " + name + "/" + string(kind))
	}
	kinds[kind] = ctor
}

// Create instantiates a method by registry key and feature kind. An unknown
// name is a configuration error; a known name that does not support the
// requested feature kind is a precondition error.
func Create(name string, kind table.FeatureKind) (Method, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds, ok := registry[name]
	if !ok {
		return nil, dwerrors.NewConfiguration("methods.create",
			"unknown method %q, known methods: %v", name, Names())
	}
	ctor, ok := kinds[kind]
	if !ok {
		return nil, dwerrors.NewPrecondition("methods.create",
			"method %q does not support %s features", name, kind)
	}
	return ctor(), nil
}

// Names returns the registered method names, sorted. Callers must not hold
// the registry lock.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether a (name, kind) pair is registered.
func Supports(name string, kind table.FeatureKind) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds, ok := registry[name]
	if !ok {
		return false
	}
	_, ok = kinds[kind]
	return ok
}

// dropNaN returns the non-NaN values of v, reusing no storage.
func dropNaN(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// dropEmpty returns the non-empty values of v. The empty string marks a
// missing categorical observation.
func dropEmpty(v []string) []string {
	out := make([]string, 0, len(v))
	for _, x := range v {
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

// continuousInput validates and cleans a continuous sample.
func continuousInput(op string, s Sample) ([]float64, error) {
	if s.Kind != table.Continuous {
		return nil, dwerrors.NewPrecondition(op, "continuous values required, got %s", s.Kind)
	}
	clean := dropNaN(s.Continuous)
	if len(clean) == 0 {
		return nil, dwerrors.NewPrecondition(op, "sample holds no non-missing values")
	}
	return clean, nil
}

// categoricalInput validates and cleans a categorical sample.
func categoricalInput(op string, s Sample) ([]string, error) {
	if s.Kind != table.Categorical {
		return nil, dwerrors.NewPrecondition(op, "categorical values required, got %s", s.Kind)
	}
	clean := dropEmpty(s.Categorical)
	if len(clean) == 0 {
		return nil, dwerrors.NewPrecondition(op, "sample holds no non-missing values")
	}
	return clean, nil
}
