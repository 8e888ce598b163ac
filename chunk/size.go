package chunk

import (
	dwerrors "driftwatch/errors"
	"driftwatch/table"
)

// SizeChunker splits a table into chunks of a fixed number of rows. The
// final chunk may hold fewer rows; DropIncomplete controls whether such a
// trailing chunk is kept (the default) or dropped.
type SizeChunker struct {
	Size           int
	DropIncomplete bool
}

// NewSizeChunker creates a size-based chunker keeping incomplete trailing
// chunks.
func NewSizeChunker(size int) *SizeChunker {
	return &SizeChunker{Size: size}
}

// Name implements Chunker.
func (c *SizeChunker) Name() string { return "size" }

// Split implements Chunker.
func (c *SizeChunker) Split(t *table.Table) ([]Chunk, dwerrors.Warnings, error) {
	if c.Size <= 0 {
		return nil, nil, dwerrors.NewConfiguration("chunk.size", "chunk size must be positive, got %d", c.Size)
	}
	rows := t.Len()
	if rows == 0 {
		return nil, nil, nil
	}

	warnings := orderingWarnings(t)

	chunks := make([]Chunk, 0, rows/c.Size+1)
	seq := 0
	for start := 0; start < rows; start += c.Size {
		end := start + c.Size - 1
		if end >= rows {
			if c.DropIncomplete {
				break
			}
			end = rows - 1
		}
		chunks = append(chunks, buildChunk(t, seq, start, end))
		seq++
	}
	return chunks, warnings, nil
}
