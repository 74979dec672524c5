// Package readings keeps the most recent meter readings in memory so the
// status endpoint can serve them without touching the database.
package readings

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity holds an hour of readings at the default 10s interval.
const DefaultCapacity = 360

// Reading is one sample taken from the meter. CumulativeKWh is nil when
// the meter does not expose the cumulative energy property.
type Reading struct {
	ID            uuid.UUID `json:"id"`
	TakenAt       time.Time `json:"taken_at"`
	Watts         int32     `json:"watts"`
	CumulativeKWh *float64  `json:"cumulative_kwh,omitempty"`
}

// Log is a thread-safe ring buffer of readings. Once full, recording a new
// reading drops the oldest one.
type Log struct {
	mu    sync.RWMutex
	ring  []Reading
	start int
	count int
	total int
}

// NewLog creates an empty Log holding at most capacity readings. A
// non-positive capacity falls back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{ring: make([]Reading, capacity)}
}

// Record appends a reading, assigning an ID when the caller left it unset.
// It returns the stored reading.
func (l *Log) Record(r Reading) Reading {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := (l.start + l.count) % len(l.ring)
	l.ring[pos] = r
	if l.count < len(l.ring) {
		l.count++
	} else {
		l.start = (l.start + 1) % len(l.ring)
	}
	l.total++
	return r
}

// Latest returns the most recent reading, or false when none was recorded.
func (l *Log) Latest() (Reading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.count == 0 {
		return Reading{}, false
	}
	return l.ring[(l.start+l.count-1)%len(l.ring)], true
}

// Recent returns up to n readings, newest first.
func (l *Log) Recent(n int) []Reading {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Reading, n)
	for i := 0; i < n; i++ {
		out[i] = l.ring[(l.start+l.count-1-i)%len(l.ring)]
	}
	return out
}

// Len returns how many readings are currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Total returns how many readings were ever recorded, including ones the
// ring has since dropped.
func (l *Log) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
