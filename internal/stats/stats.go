// Package stats keeps connection and traffic counters. Writers are the loop
// goroutine; readers may be anywhere.
package stats

import "sync/atomic"

// Counter is an int64 that is safe to read from other goroutines.
type Counter int64

func (c *Counter) Inc() int64 {
	return atomic.AddInt64((*int64)(c), 1)
}

func (c *Counter) Dec() int64 {
	return atomic.AddInt64((*int64)(c), -1)
}

func (c *Counter) Add(n int64) int64 {
	return atomic.AddInt64((*int64)(c), n)
}

func (c *Counter) Value() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Counters is owned by one engine.
type Counters struct {
	Accepted        Counter
	Live            Counter
	Closed          Counter
	AcceptErrors    Counter
	ReadErrors      Counter
	BytesIn         Counter
	BytesOut        Counter
	WritesSubmitted Counter
	WritesCompleted Counter
	WritesFailed    Counter
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Accepted        int64
	Live            int64
	Closed          int64
	AcceptErrors    int64
	ReadErrors      int64
	BytesIn         int64
	BytesOut        int64
	WritesSubmitted int64
	WritesCompleted int64
	WritesFailed    int64
}

// WritesPending is the number of write requests that have not completed yet.
func (s Snapshot) WritesPending() int64 {
	return s.WritesSubmitted - s.WritesCompleted
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Accepted:        c.Accepted.Value(),
		Live:            c.Live.Value(),
		Closed:          c.Closed.Value(),
		AcceptErrors:    c.AcceptErrors.Value(),
		ReadErrors:      c.ReadErrors.Value(),
		BytesIn:         c.BytesIn.Value(),
		BytesOut:        c.BytesOut.Value(),
		WritesSubmitted: c.WritesSubmitted.Value(),
		WritesCompleted: c.WritesCompleted.Value(),
		WritesFailed:    c.WritesFailed.Value(),
	}
}
