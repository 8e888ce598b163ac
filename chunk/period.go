package chunk

import (
	"fmt"
	"time"

	dwerrors "driftwatch/errors"
	"driftwatch/table"
)

// Period is a calendar period used by the PeriodChunker.
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week" // ISO weeks, Monday to Sunday
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// Valid reports whether p names a supported period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// PeriodChunker groups rows by the calendar period containing their
// timestamp. Chunk time boundaries come from the theoretical period grid
// (midnight to midnight), not from the minimum and maximum observed
// timestamps, so boundary dates are stable even when a period holds sparse
// data. Periods without any rows produce no chunk.
type PeriodChunker struct {
	Period Period
}

// NewPeriodChunker creates a period-based chunker.
func NewPeriodChunker(period Period) *PeriodChunker {
	return &PeriodChunker{Period: period}
}

// Name implements Chunker.
func (c *PeriodChunker) Name() string { return "period" }

// Split implements Chunker. The table must carry timestamps and they must
// be non-decreasing: period boundaries are meaningless over shuffled time,
// so unlike the index-based strategies this is a hard failure.
func (c *PeriodChunker) Split(t *table.Table) ([]Chunk, dwerrors.Warnings, error) {
	if !c.Period.Valid() {
		return nil, nil, dwerrors.NewConfiguration("chunk.period", "unknown period %q", c.Period)
	}
	rows := t.Len()
	if rows == 0 {
		return nil, nil, nil
	}
	if !t.HasTimestamps() {
		return nil, nil, dwerrors.NewConfiguration("chunk.period",
			"period-based chunking requires a timestamp column")
	}
	if !t.TimestampsSorted() {
		return nil, nil, dwerrors.NewConfiguration("chunk.period",
			"period-based chunking requires non-decreasing timestamps")
	}

	ts := t.Timestamps()
	chunks := make([]Chunk, 0)
	seq := 0
	start := 0
	startPeriod := periodStart(ts[0], c.Period)
	for i := 1; i <= rows; i++ {
		if i < rows && periodStart(ts[i], c.Period).Equal(startPeriod) {
			continue
		}
		end := i - 1
		ch := buildChunk(t, seq, start, end)
		ch.Key = periodKey(startPeriod, c.Period)
		ch.StartTime = startPeriod
		ch.EndTime = periodNext(startPeriod, c.Period)
		chunks = append(chunks, ch)
		seq++
		if i < rows {
			start = i
			startPeriod = periodStart(ts[i], c.Period)
		}
	}
	return chunks, nil, nil
}

// periodStart truncates ts to the start of its containing period on the
// theoretical grid, preserving the timestamp's location.
func periodStart(ts time.Time, p Period) time.Time {
	y, m, d := ts.Date()
	loc := ts.Location()
	switch p {
	case PeriodDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) + 6) % 7 // Monday-based
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PeriodQuarter:
		qm := time.Month(((int(m)-1)/3)*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, loc)
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	}
	return ts
}

// periodNext returns the start of the period following the one beginning at
// start.
func periodNext(start time.Time, p Period) time.Time {
	switch p {
	case PeriodDay:
		return start.AddDate(0, 0, 1)
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodMonth:
		return start.AddDate(0, 1, 0)
	case PeriodQuarter:
		return start.AddDate(0, 3, 0)
	case PeriodYear:
		return start.AddDate(1, 0, 0)
	}
	return start
}

// periodKey renders the human-readable chunk key for a period.
func periodKey(start time.Time, p Period) string {
	switch p {
	case PeriodDay:
		return start.Format("2006-01-02")
	case PeriodWeek:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case PeriodMonth:
		return start.Format("2006-01")
	case PeriodQuarter:
		return fmt.Sprintf("%04dQ%d", start.Year(), (int(start.Month())-1)/3+1)
	case PeriodYear:
		return start.Format("2006")
	}
	return start.Format(time.RFC3339)
}
