// Package pipeline holds the shared run state the collector and rater report
// into: counters, a bounded in-memory log, and a status line. The state is
// owned by a Context value handed to each pipeline rather than living in
// package globals, so concurrent runs and tests stay isolated.
package pipeline

import (
	"sync"
	"time"
)

// DefaultLogCapacity bounds the in-memory log ring.
const DefaultLogCapacity = 500

// Counters are the cumulative run statistics.
type Counters struct {
	Checked     int `json:"checked"`
	Found       int `json:"found"`
	Rejected    int `json:"rejected"`
	APICalls    int `json:"api_calls"`
	HasCaptions int `json:"has_captions"`
	NoCaptions  int `json:"no_captions"`
	Rated       int `json:"rated"`
	Accepted    int `json:"accepted"`
	Discarded   int `json:"discarded"`
}

// LogEntry is one line of the in-memory run log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Context carries mutable run state. Safe for concurrent use.
type Context struct {
	mu       sync.Mutex
	counters Counters
	status   string
	log      []LogEntry
	logStart int
	logSize  int
}

// NewContext returns a Context with the given log capacity; capacity <= 0
// uses DefaultLogCapacity.
func NewContext(logCapacity int) *Context {
	if logCapacity <= 0 {
		logCapacity = DefaultLogCapacity
	}
	return &Context{log: make([]LogEntry, logCapacity)}
}

func (c *Context) add(delta int, field *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field += delta
}

func (c *Context) AddChecked(n int)  { c.add(n, &c.counters.Checked) }
func (c *Context) AddFound(n int)    { c.add(n, &c.counters.Found) }
func (c *Context) AddRejected(n int) { c.add(n, &c.counters.Rejected) }
func (c *Context) AddAPICalls(n int) { c.add(n, &c.counters.APICalls) }
func (c *Context) AddRated(n int)    { c.add(n, &c.counters.Rated) }
func (c *Context) AddAccepted(n int) { c.add(n, &c.counters.Accepted) }
func (c *Context) AddDiscarded(n int) {
	c.add(n, &c.counters.Discarded)
}

// AddCaptions tallies the caption split of one checked video.
func (c *Context) AddCaptions(hasCaptions bool) {
	if hasCaptions {
		c.add(1, &c.counters.HasCaptions)
	} else {
		c.add(1, &c.counters.NoCaptions)
	}
}

// Counters returns a copy of the current counters.
func (c *Context) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// SetStatus replaces the status line.
func (c *Context) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// Status returns the current status line.
func (c *Context) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Log appends one entry, evicting the oldest when the ring is full.
func (c *Context) Log(tag, level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now(),
		Tag:       tag,
		Level:     level,
		Message:   message,
	}

	pos := (c.logStart + c.logSize) % len(c.log)
	c.log[pos] = entry
	if c.logSize < len(c.log) {
		c.logSize++
	} else {
		c.logStart = (c.logStart + 1) % len(c.log)
	}
}

// Entries returns the buffered log, oldest first.
func (c *Context) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]LogEntry, 0, c.logSize)
	for i := 0; i < c.logSize; i++ {
		entries = append(entries, c.log[(c.logStart+i)%len(c.log)])
	}
	return entries
}

// Reset zeroes the counters and clears the log and status.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = Counters{}
	c.status = ""
	c.logStart = 0
	c.logSize = 0
}
