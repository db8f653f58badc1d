// Package clock provides the process-wide logical clock. Timestamps are a
// plain monotonically increasing counter, not wall time: they tie-break equal
// prices inside a book and impose a total order over every event the venue
// emits. The clock is injected wherever it is needed so tests can control
// timestamp sequencing.
package clock

import "sync/atomic"

type Clock struct {
	next atomic.Int64
}

func New() *Clock {
	return &Clock{}
}

// Next allocates the next timestamp. Safe for concurrent use from any number
// of instrument books and sessions.
func (c *Clock) Next() int64 {
	return c.next.Add(1)
}

// Current returns the last allocated timestamp, zero if none was.
func (c *Clock) Current() int64 {
	return c.next.Load()
}
