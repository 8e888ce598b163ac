// Package methods implements the library of distribution-comparison
// statistics used for univariate drift detection.
//
// A Method quantifies the difference between a fitted reference distribution
// and a comparison sample as a single scalar, with a p-value where the
// underlying test defines one. Methods follow a strict two-phase contract:
// Fit consumes the full reference sample exactly once and returns an
// immutable Fitted value; Calculate may then be called any number of times,
// concurrently, against that fitted state.
//
// # Continuous methods
//
//   - kolmogorov_smirnov: supremum distance between empirical CDFs, in [0,1],
//     with the two-sample asymptotic p-value.
//   - jensen_shannon: square root of the Jensen-Shannon divergence between
//     identically binned relative frequencies, base-2 logarithm, in [0,1].
//   - wasserstein: first-order Wasserstein distance, the area between the
//     two empirical CDF step functions, non-negative and unbounded.
//   - hellinger: Hellinger distance between binned relative frequencies,
//     in [0,1].
//
// # Categorical methods
//
//   - chi2: chi-squared statistic over the category-by-period contingency
//     table, non-negative and unbounded, with the chi-squared p-value.
//     Oversensitive to low-frequency categories; prefer a distance method
//     when rare categories dominate.
//   - jensen_shannon and hellinger: the same formulas with each category's
//     relative frequency as a bin probability.
//   - l_infinity: maximum absolute difference between per-category relative
//     frequencies, in [0,1].
//
// # Binning and overflow
//
// The binned continuous methods fix their bin edges at fit time using
// Doane's skewness-corrected rule, falling back to one bin per distinct
// value when the reference has few distinct values. Sample values outside
// the fitted edges (or categories unseen in the reference) collect in a
// single overflow bin appended at calculate time; the reference vector is
// extended with a matching zero-probability entry so the two frequency
// vectors always have equal length and each sums to 1.
package methods
