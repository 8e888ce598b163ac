// Package table holds the in-memory observation table consumed by the
// driftwatch calculators: an ordered set of rows with named continuous or
// categorical feature columns, optional timestamps and an optional
// reference/analysis partition label. Tables are columnar and views share
// backing storage, so slicing a chunk out of a table is cheap and never
// copies observation data.
package table

import (
	"math"
	"time"

	dwerrors "driftwatch/errors"
)

// FeatureKind distinguishes numeric from discrete feature columns.
type FeatureKind string

const (
	Continuous  FeatureKind = "continuous"
	Categorical FeatureKind = "categorical"
)

// Partition labels the data period a row belongs to.
type Partition string

const (
	PartitionReference Partition = "reference"
	PartitionAnalysis  Partition = "analysis"
)

// Column is a single named feature column. Exactly one of the value slices
// is populated, matching Kind.
type Column struct {
	Name        string      `json:"name"`
	Kind        FeatureKind `json:"kind"`
	Continuous  []float64   `json:"-"`
	Categorical []string    `json:"-"`
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	if c.Kind == Continuous {
		return len(c.Continuous)
	}
	return len(c.Categorical)
}

// Table is an ordered observation table. Row order is significant: chunkers
// split on positional index, and timestamps (when present) are expected to
// be non-decreasing.
type Table struct {
	columns    []Column
	byName     map[string]int
	timestamps []time.Time // len 0 or Len()
	partitions []Partition // len 0 or Len()
	length     int
}

// New creates an empty table expecting rowCount rows per column.
func New(rowCount int) *Table {
	return &Table{byName: make(map[string]int), length: rowCount}
}

// AddContinuous adds a continuous feature column. The column length must
// match the table's row count.
func (t *Table) AddContinuous(name string, values []float64) error {
	return t.addColumn(Column{Name: name, Kind: Continuous, Continuous: values})
}

// AddCategorical adds a categorical feature column.
func (t *Table) AddCategorical(name string, values []string) error {
	return t.addColumn(Column{Name: name, Kind: Categorical, Categorical: values})
}

func (t *Table) addColumn(col Column) error {
	if col.Name == "" {
		return dwerrors.NewConfiguration("table.add_column", "column name cannot be empty")
	}
	if _, exists := t.byName[col.Name]; exists {
		return dwerrors.NewConfiguration("table.add_column", "column %q already present", col.Name)
	}
	if col.Len() != t.length {
		return dwerrors.NewConfiguration("table.add_column",
			"column %q has %d values, table has %d rows", col.Name, col.Len(), t.length)
	}
	t.byName[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// SetTimestamps attaches per-row timestamps.
func (t *Table) SetTimestamps(ts []time.Time) error {
	if len(ts) != t.length {
		return dwerrors.NewConfiguration("table.set_timestamps",
			"got %d timestamps for %d rows", len(ts), t.length)
	}
	t.timestamps = ts
	return nil
}

// SetPartitions attaches per-row partition labels.
func (t *Table) SetPartitions(ps []Partition) error {
	if len(ps) != t.length {
		return dwerrors.NewConfiguration("table.set_partitions",
			"got %d partition labels for %d rows", len(ps), t.length)
	}
	t.partitions = ps
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.length }

// HasTimestamps reports whether per-row timestamps are attached.
func (t *Table) HasTimestamps() bool { return len(t.timestamps) > 0 }

// Timestamps returns the per-row timestamps, or nil.
func (t *Table) Timestamps() []time.Time { return t.timestamps }

// Columns returns the feature columns in insertion order.
func (t *Table) Columns() []Column { return t.columns }

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[idx], true
}

// ContinuousValues returns the values of a continuous column. Requesting a
// categorical column (or a missing one) is a precondition error.
func (t *Table) ContinuousValues(name string) ([]float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, dwerrors.NewPrecondition("table.values", "column %q not present", name)
	}
	if col.Kind != Continuous {
		return nil, dwerrors.NewPrecondition("table.values",
			"column %q is %s, continuous values requested", name, col.Kind)
	}
	return col.Continuous, nil
}

// CategoricalValues returns the values of a categorical column.
func (t *Table) CategoricalValues(name string) ([]string, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, dwerrors.NewPrecondition("table.values", "column %q not present", name)
	}
	if col.Kind != Categorical {
		return nil, dwerrors.NewPrecondition("table.values",
			"column %q is %s, categorical values requested", name, col.Kind)
	}
	return col.Categorical, nil
}

// Slice returns a view of rows [start, end) sharing this table's storage.
// The view is not extendable; mutating it is not supported.
func (t *Table) Slice(start, end int) *Table {
	view := &Table{byName: make(map[string]int, len(t.columns)), length: end - start}
	for _, col := range t.columns {
		sliced := Column{Name: col.Name, Kind: col.Kind}
		if col.Kind == Continuous {
			sliced.Continuous = col.Continuous[start:end]
		} else {
			sliced.Categorical = col.Categorical[start:end]
		}
		view.byName[sliced.Name] = len(view.columns)
		view.columns = append(view.columns, sliced)
	}
	if len(t.timestamps) > 0 {
		view.timestamps = t.timestamps[start:end]
	}
	if len(t.partitions) > 0 {
		view.partitions = t.partitions[start:end]
	}
	return view
}

// Partition returns the partition covering the rows of this table. Rows in a
// chunk are assumed homogeneous; when labels are mixed or absent the rows
// are treated as analysis data, matching how transition chunks are handled.
func (t *Table) Partition() Partition {
	if len(t.partitions) == 0 {
		return PartitionAnalysis
	}
	for _, p := range t.partitions {
		if p != PartitionReference {
			return PartitionAnalysis
		}
	}
	return PartitionReference
}

// TimestampsSorted reports whether the attached timestamps are
// non-decreasing. Tables without timestamps are trivially sorted.
func (t *Table) TimestampsSorted() bool {
	for i := 1; i < len(t.timestamps); i++ {
		if t.timestamps[i].Before(t.timestamps[i-1]) {
			return false
		}
	}
	return true
}

// MissingCount returns the number of missing values in the named column:
// NaN for continuous columns, the empty string for categorical ones.
func (t *Table) MissingCount(name string) (int, error) {
	col, ok := t.Column(name)
	if !ok {
		return 0, dwerrors.NewPrecondition("table.missing", "column %q not present", name)
	}
	missing := 0
	switch col.Kind {
	case Continuous:
		for _, v := range col.Continuous {
			if math.IsNaN(v) {
				missing++
			}
		}
	case Categorical:
		for _, v := range col.Categorical {
			if v == "" {
				missing++
			}
		}
	}
	return missing, nil
}

// Concat appends the rows of other to t and returns a new table. Column
// sets must match by name and kind; timestamps and partitions are carried
// when both sides have them.
func Concat(a, b *Table) (*Table, error) {
	if len(a.columns) != len(b.columns) {
		return nil, dwerrors.NewPrecondition("table.concat",
			"column count mismatch: %d vs %d", len(a.columns), len(b.columns))
	}
	out := New(a.length + b.length)
	for _, col := range a.columns {
		other, ok := b.Column(col.Name)
		if !ok || other.Kind != col.Kind {
			return nil, dwerrors.NewPrecondition("table.concat", "column %q missing or kind mismatch", col.Name)
		}
		var err error
		if col.Kind == Continuous {
			joined := make([]float64, 0, out.length)
			joined = append(joined, col.Continuous...)
			joined = append(joined, other.Continuous...)
			err = out.AddContinuous(col.Name, joined)
		} else {
			joined := make([]string, 0, out.length)
			joined = append(joined, col.Categorical...)
			joined = append(joined, other.Categorical...)
			err = out.AddCategorical(col.Name, joined)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(a.timestamps) > 0 && len(b.timestamps) > 0 {
		joined := make([]time.Time, 0, out.length)
		joined = append(joined, a.timestamps...)
		joined = append(joined, b.timestamps...)
		if err := out.SetTimestamps(joined); err != nil {
			return nil, err
		}
	}
	if len(a.partitions) > 0 && len(b.partitions) > 0 {
		joined := make([]Partition, 0, out.length)
		joined = append(joined, a.partitions...)
		joined = append(joined, b.partitions...)
		if err := out.SetPartitions(joined); err != nil {
			return nil, err
		}
	}
	return out, nil
}
