package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwerrors "driftwatch/errors"
	"driftwatch/table"
)

func newTable(t *testing.T, rows int) *table.Table {
	t.Helper()
	tbl := table.New(rows)
	values := make([]float64, rows)
	for i := range values {
		values[i] = float64(i)
	}
	require.NoError(t, tbl.AddContinuous("value", values))
	return tbl
}

func withTimestamps(t *testing.T, tbl *table.Table, start time.Time, step time.Duration) *table.Table {
	t.Helper()
	ts := make([]time.Time, tbl.Len())
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * step)
	}
	require.NoError(t, tbl.SetTimestamps(ts))
	return tbl
}

// requirePartitionInvariants checks what every chunker must guarantee: chunks
// are contiguous, non-overlapping, cover all rows, and appear in row order.
func requirePartitionInvariants(t *testing.T, tbl *table.Table, chunks []Chunk) {
	t.Helper()
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].StartIndex)
	assert.Equal(t, tbl.Len()-1, chunks[len(chunks)-1].EndIndex)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, ch.StartIndex, ch.EndIndex)
		if i > 0 {
			assert.Equal(t, chunks[i-1].EndIndex+1, ch.StartIndex)
		}
		require.NotNil(t, ch.Data)
		assert.Equal(t, ch.EndIndex-ch.StartIndex+1, ch.Data.Len())
	}
}

func TestCountChunker_Split(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		count     int
		wantSizes []int
	}{
		{
			name:      "even split",
			rows:      100,
			count:     10,
			wantSizes: []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10},
		},
		{
			name:      "remainder goes to earliest chunks",
			rows:      23,
			count:     5,
			wantSizes: []int{5, 5, 5, 4, 4},
		},
		{
			name:      "single chunk",
			rows:      7,
			count:     1,
			wantSizes: []int{7},
		},
		{
			name:      "rows equal count",
			rows:      4,
			count:     4,
			wantSizes: []int{1, 1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTable(t, tt.rows)
			chunks, warnings, err := NewCountChunker(tt.count).Split(tbl)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			requirePartitionInvariants(t, tbl, chunks)

			sizes := make([]int, len(chunks))
			for i, ch := range chunks {
				sizes[i] = ch.Len()
			}
			assert.Equal(t, tt.wantSizes, sizes)
		})
	}
}

func TestCountChunker_FewerRowsThanChunks(t *testing.T) {
	tbl := newTable(t, 3)
	_, _, err := NewCountChunker(10).Split(tbl)
	require.Error(t, err)
	assert.True(t, dwerrors.IsConfiguration(err))
}

func TestCountChunker_DefaultCount(t *testing.T) {
	c := NewCountChunker(0)
	assert.Equal(t, DefaultCount, c.Count)

	c = NewCountChunker(-3)
	assert.Equal(t, DefaultCount, c.Count)
}

func TestSizeChunker_Split(t *testing.T) {
	tests := []struct {
		name           string
		rows           int
		size           int
		dropIncomplete bool
		wantSizes      []int
	}{
		{
			name:      "exact multiple",
			rows:      30,
			size:      10,
			wantSizes: []int{10, 10, 10},
		},
		{
			name:      "trailing partial chunk kept",
			rows:      25,
			size:      10,
			wantSizes: []int{10, 10, 5},
		},
		{
			name:           "trailing partial chunk dropped",
			rows:           25,
			size:           10,
			dropIncomplete: true,
			wantSizes:      []int{10, 10},
		},
		{
			name:      "size larger than table",
			rows:      5,
			size:      10,
			wantSizes: []int{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTable(t, tt.rows)
			c := NewSizeChunker(tt.size)
			c.DropIncomplete = tt.dropIncomplete
			chunks, warnings, err := c.Split(tbl)
			require.NoError(t, err)
			assert.Empty(t, warnings)

			sizes := make([]int, len(chunks))
			for i, ch := range chunks {
				sizes[i] = ch.Len()
			}
			assert.Equal(t, tt.wantSizes, sizes)
			if !tt.dropIncomplete {
				requirePartitionInvariants(t, tbl, chunks)
			}
		})
	}
}

func TestSizeChunker_InvalidSize(t *testing.T) {
	tbl := newTable(t, 10)
	_, _, err := NewSizeChunker(0).Split(tbl)
	require.Error(t, err)
	assert.True(t, dwerrors.IsConfiguration(err))
}

func TestIndexChunkers_WarnOnUnsortedTimestamps(t *testing.T) {
	tbl := newTable(t, 10)
	ts := make([]time.Time, 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}
	ts[3], ts[7] = ts[7], ts[3]
	require.NoError(t, tbl.SetTimestamps(ts))

	chunks, warnings, err := NewCountChunker(2).Split(tbl)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.True(t, warnings.HasKind(dwerrors.WarningOrdering))
}

func TestPeriodChunker_Split(t *testing.T) {
	tests := []struct {
		name     string
		period   Period
		start    time.Time
		step     time.Duration
		rows     int
		wantKeys []string
	}{
		{
			name:     "daily",
			period:   PeriodDay,
			start:    time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
			step:     8 * time.Hour,
			rows:     10,
			wantKeys: []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"},
		},
		{
			name:     "weekly uses ISO weeks",
			period:   PeriodWeek,
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), // a Monday
			step:     24 * time.Hour,
			rows:     15,
			wantKeys: []string{"2024-W01", "2024-W02", "2024-W03"},
		},
		{
			name:     "monthly",
			period:   PeriodMonth,
			start:    time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			step:     7 * 24 * time.Hour,
			rows:     8,
			wantKeys: []string{"2024-01", "2024-02", "2024-03"},
		},
		{
			name:     "quarterly",
			period:   PeriodQuarter,
			start:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			step:     45 * 24 * time.Hour,
			rows:     5,
			wantKeys: []string{"2024Q1", "2024Q2", "2024Q3"},
		},
		{
			name:     "yearly",
			period:   PeriodYear,
			start:    time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
			step:     90 * 24 * time.Hour,
			rows:     5,
			wantKeys: []string{"2023", "2024"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := withTimestamps(t, newTable(t, tt.rows), tt.start, tt.step)
			chunks, warnings, err := NewPeriodChunker(tt.period).Split(tbl)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			requirePartitionInvariants(t, tbl, chunks)

			keys := make([]string, len(chunks))
			for i, ch := range chunks {
				keys[i] = ch.Key
				assert.False(t, ch.StartTime.IsZero())
				assert.True(t, ch.EndTime.After(ch.StartTime))
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestPeriodChunker_Errors(t *testing.T) {
	t.Run("missing timestamps", func(t *testing.T) {
		tbl := newTable(t, 10)
		_, _, err := NewPeriodChunker(PeriodDay).Split(tbl)
		require.Error(t, err)
		assert.True(t, dwerrors.IsConfiguration(err))
	})

	t.Run("out of order timestamps", func(t *testing.T) {
		tbl := newTable(t, 4)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		ts := []time.Time{base, base.Add(48 * time.Hour), base.Add(24 * time.Hour), base.Add(72 * time.Hour)}
		require.NoError(t, tbl.SetTimestamps(ts))
		_, _, err := NewPeriodChunker(PeriodDay).Split(tbl)
		require.Error(t, err)
		assert.True(t, dwerrors.IsConfiguration(err))
	})

	t.Run("unknown period", func(t *testing.T) {
		tbl := withTimestamps(t, newTable(t, 4), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
		_, _, err := NewPeriodChunker(Period("fortnight")).Split(tbl)
		require.Error(t, err)
		assert.True(t, dwerrors.IsConfiguration(err))
	})
}

func TestChunk_TimesFromObservedTimestamps(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tbl := withTimestamps(t, newTable(t, 10), base, time.Hour)

	chunks, _, err := NewCountChunker(2).Split(tbl)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, base, chunks[0].StartTime)
	assert.Equal(t, base.Add(5*time.Hour), chunks[1].StartTime)
	assert.Equal(t, base.Add(9*time.Hour), chunks[1].EndTime)
}
