// Package drift implements the univariate drift calculator: the pipeline
// that composes chunking, distribution-comparison methods and threshold
// strategies into per-chunk, per-feature, per-method drift results.
//
// The calculator follows an explicit two-phase contract. A Calculator is
// pure configuration; Fit consumes a reference observation table exactly
// once and returns an immutable FittedCalculator holding, per (feature,
// method) pair, the fitted method state and the threshold bounds derived
// from the reference chunks' statistic values. Calculate may then be applied
// to any observation table (analysis data, reference data, or a
// concatenation of both) and assembles ordered Result rows with alert
// flags. Re-fitting is not supported; construct a fresh Calculator instead.
//
// Scoring independent (feature, method, chunk) triples has no shared mutable
// state, so Calculate fans out across a bounded worker group and reassembles
// rows in chunk-sequence order before returning.
//
// Degenerate conditions never abort a run: undersized or empty chunks yield
// rows flagged with data-quality warnings, and threshold bounds clipped to a
// statistic's theoretical domain are reported as domain warnings.
package drift
