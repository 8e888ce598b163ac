package chunk

import (
	dwerrors "driftwatch/errors"
	"driftwatch/table"
)

// CountChunker splits a table into a fixed number of nearly equal contiguous
// chunks. With R rows and N chunks every chunk holds R/N rows and the
// remainder is front-loaded: the first R mod N chunks each take one extra
// row. The rule is deterministic and pinned by tests.
type CountChunker struct {
	Count int
}

// NewCountChunker creates a count-based chunker. A non-positive count
// selects DefaultCount.
func NewCountChunker(count int) *CountChunker {
	if count <= 0 {
		count = DefaultCount
	}
	return &CountChunker{Count: count}
}

// Name implements Chunker.
func (c *CountChunker) Name() string { return "count" }

// Split implements Chunker.
func (c *CountChunker) Split(t *table.Table) ([]Chunk, dwerrors.Warnings, error) {
	if c.Count <= 0 {
		return nil, nil, dwerrors.NewConfiguration("chunk.count", "chunk count must be positive, got %d", c.Count)
	}
	rows := t.Len()
	if rows == 0 {
		return nil, nil, nil
	}
	if rows < c.Count {
		return nil, nil, dwerrors.NewConfiguration("chunk.count",
			"%d chunks over %d rows would produce empty chunks", c.Count, rows)
	}

	warnings := orderingWarnings(t)

	base := rows / c.Count
	extra := rows % c.Count

	chunks := make([]Chunk, 0, c.Count)
	start := 0
	for i := 0; i < c.Count; i++ {
		size := base
		if i < extra {
			size++
		}
		end := start + size - 1
		chunks = append(chunks, buildChunk(t, i, start, end))
		start = end + 1
	}
	return chunks, warnings, nil
}
