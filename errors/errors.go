// Package errors defines the typed errors and warnings shared by the
// driftwatch calculators. Fatal conditions (bad configuration, contract
// misuse) are modelled as *Error values that abort the operation; recoverable
// conditions (undersized chunks, degenerate distributions, clipped
// thresholds) are modelled as Warning values that travel alongside results
// and never abort a run.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a fatal error.
type Kind string

const (
	// KindConfiguration marks an invalid configuration: non-positive chunk
	// counts or sizes, unknown method or threshold names, malformed specs.
	KindConfiguration Kind = "configuration"

	// KindPrecondition marks a contract violation by the caller: calculating
	// on an unfitted pipeline, or requesting a categorical method for a
	// continuous feature (and vice versa).
	KindPrecondition Kind = "precondition"
)

// Error is a classified, wrappable error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op,omitempty"` // component that raised it, e.g. "chunk.split"
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "unknown error"
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewConfiguration creates a configuration error.
func NewConfiguration(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewPrecondition creates a precondition error.
func NewPrecondition(op, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and operation context to an existing error. A nil err
// yields nil.
func Wrap(err error, kind Kind, op, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// IsConfiguration reports whether err is (or wraps) a configuration error.
func IsConfiguration(err error) bool { return hasKind(err, KindConfiguration) }

// IsPrecondition reports whether err is (or wraps) a precondition error.
func IsPrecondition(err error) bool { return hasKind(err, KindPrecondition) }

func hasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// WarningKind classifies a non-fatal condition.
type WarningKind string

const (
	// WarningDataQuality marks results computed on degenerate input: a chunk
	// below a method's minimum viable sample size, an empty partition within
	// a chunk, or a zero-variance reference statistic series.
	WarningDataQuality WarningKind = "data_quality"

	// WarningDomainClip marks a fitted threshold bound that fell outside a
	// statistic's theoretical domain and was clipped to the domain boundary.
	WarningDomainClip WarningKind = "domain_clip"

	// WarningOrdering marks observation rows whose timestamps were not
	// non-decreasing at chunking time.
	WarningOrdering WarningKind = "ordering"
)

// Warning is a recoverable condition reported alongside results.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Feature string      `json:"feature,omitempty"`
	Method  string      `json:"method,omitempty"`
	Chunk   string      `json:"chunk,omitempty"`
}

// String renders the warning for logs.
func (w Warning) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", w.Kind)
	if w.Feature != "" {
		fmt.Fprintf(&b, " feature=%s", w.Feature)
	}
	if w.Method != "" {
		fmt.Fprintf(&b, " method=%s", w.Method)
	}
	if w.Chunk != "" {
		fmt.Fprintf(&b, " chunk=%s", w.Chunk)
	}
	fmt.Fprintf(&b, " %s", w.Message)
	return b.String()
}

// NewWarning creates a warning with a formatted message.
func NewWarning(kind WarningKind, format string, args ...any) Warning {
	return Warning{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Warnings is a list of warnings with query helpers.
type Warnings []Warning

// HasKind reports whether any warning of the given kind is present.
func (ws Warnings) HasKind(kind WarningKind) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Filter returns the warnings of the given kind.
func (ws Warnings) Filter(kind WarningKind) Warnings {
	var out Warnings
	for _, w := range ws {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
