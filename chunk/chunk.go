// Package chunk splits an ordered observation table into contiguous,
// comparably-sized analysis windows. Three interchangeable strategies are
// provided: a fixed number of chunks, a fixed number of rows per chunk, and
// calendar periods. Chunks carry stable identity (key, index bounds) and a
// monotonically increasing sequence index so downstream consumers can align
// them chronologically.
package chunk

import (
	"fmt"
	"time"

	dwerrors "driftwatch/errors"
	"driftwatch/table"
)

// DefaultCount is the number of chunks produced by a CountChunker when none
// is configured.
const DefaultCount = 10

// Chunk is an immutable contiguous slice of an observation table.
type Chunk struct {
	// Key identifies the chunk: an index range like "[0:499]" for index
	// based chunkers, a period label like "2024-01-02" for period chunkers.
	Key string `json:"key"`

	// Index is the chunk's position in the split sequence, starting at 0.
	Index int `json:"index"`

	// StartIndex and EndIndex are the inclusive row bounds in the source
	// table.
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`

	// StartTime and EndTime bound the chunk in time when the source table
	// carries timestamps. For period chunkers they come from the theoretical
	// period grid (midnight to midnight), not from observed extrema, so they
	// are stable regardless of sparsity within the period. EndTime is
	// exclusive. Both are zero for tables without timestamps.
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`

	// Partition is the data period of the underlying rows.
	Partition table.Partition `json:"partition"`

	// Data is the backing view into the source table.
	Data *table.Table `json:"-"`
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int {
	return c.EndIndex - c.StartIndex + 1
}

// Chunker splits a table into an ordered chunk sequence. Splitting an empty
// table yields an empty sequence and no error. Recoverable conditions
// (out-of-order timestamps for index-based strategies) are returned as
// warnings next to the chunks.
type Chunker interface {
	// Name returns the strategy name used in configuration.
	Name() string

	// Split partitions t into contiguous chunks covering every row exactly
	// once.
	Split(t *table.Table) ([]Chunk, dwerrors.Warnings, error)
}

// indexKey formats the key for an index-bounded chunk.
func indexKey(start, end int) string {
	return fmt.Sprintf("[%d:%d]", start, end)
}

// buildChunk assembles a chunk over rows [start, end] of t.
func buildChunk(t *table.Table, seq, start, end int) Chunk {
	data := t.Slice(start, end+1)
	c := Chunk{
		Key:        indexKey(start, end),
		Index:      seq,
		StartIndex: start,
		EndIndex:   end,
		Partition:  data.Partition(),
		Data:       data,
	}
	if ts := data.Timestamps(); len(ts) > 0 {
		c.StartTime = ts[0]
		c.EndTime = ts[len(ts)-1]
	}
	return c
}

// orderingWarnings checks the explicit ordering precondition for index-based
// chunkers: timestamps, when present, must be non-decreasing. Rows are never
// reordered; the caller is warned instead.
func orderingWarnings(t *table.Table) dwerrors.Warnings {
	if t.HasTimestamps() && !t.TimestampsSorted() {
		return dwerrors.Warnings{dwerrors.NewWarning(dwerrors.WarningOrdering,
			"timestamps are not non-decreasing; index-based chunk boundaries ignore time order")}
	}
	return nil
}
