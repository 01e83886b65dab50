// Package metrics provides lightweight, lock-free counters for
// tracking the runtime behavior of a socket connection.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so the worker loops never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a socket's lifetime.
// A nil Collector is safe to use, all methods become no-ops.
type Collector struct {
	connects      atomic.Int64
	disconnects   atomic.Int64
	framesIn      atomic.Int64
	framesOut     atomic.Int64
	bytesIn       atomic.Int64
	bytesOut      atomic.Int64
	socketErrors  atomic.Int64
	framesDropped atomic.Int64
	queueDiscards atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Lifecycle metrics ────────────────────────────────────────────────

// ConnectionOpened records a successful connect.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connects.Add(1)
}

// ConnectionClosed records a disconnect.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.disconnects.Add(1)
}

// Connects returns the lifetime connect count.
func (c *Collector) Connects() int64 {
	if c == nil {
		return 0
	}
	return c.connects.Load()
}

// Disconnects returns the lifetime disconnect count.
func (c *Collector) Disconnects() int64 {
	if c == nil {
		return 0
	}
	return c.disconnects.Load()
}

// ── Frame and byte metrics ───────────────────────────────────────────

// FrameReceived records one inbound frame of n wire bytes.
func (c *Collector) FrameReceived(n int64) {
	if c == nil {
		return
	}
	c.framesIn.Add(1)
	c.bytesIn.Add(n)
}

// FrameQueued records one outbound frame accepted for transmission.
// Bytes are counted by [Collector.BytesSent] when the write happens.
func (c *Collector) FrameQueued() {
	if c == nil {
		return
	}
	c.framesOut.Add(1)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// FrameDropped records a frame lost in flight: an inbound delivery too
// short to carry a header, or an outbound frame abandoned after a write
// timeout.
func (c *Collector) FrameDropped() {
	if c == nil {
		return
	}
	c.framesDropped.Add(1)
}

// QueueDiscarded records n outbound frames thrown away by Stop.
func (c *Collector) QueueDiscarded(n int64) {
	if c == nil {
		return
	}
	c.queueDiscards.Add(n)
}

// FramesReceived returns the lifetime inbound frame count.
func (c *Collector) FramesReceived() int64 {
	if c == nil {
		return 0
	}
	return c.framesIn.Load()
}

// FramesQueued returns the lifetime outbound frame count.
func (c *Collector) FramesQueued() int64 {
	if c == nil {
		return 0
	}
	return c.framesOut.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.socketErrors.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of socket errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.socketErrors.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	Connects         int64  `json:"connects"`
	Disconnects      int64  `json:"disconnects"`
	FramesIn         int64  `json:"frames_in"`
	FramesOut        int64  `json:"frames_out"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	SocketErrors     int64  `json:"socket_errors"`
	FramesDropped    int64  `json:"frames_dropped,omitempty"`
	QueueDiscards    int64  `json:"queue_discards,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:        time.Since(c.startTime).Truncate(time.Second).String(),
		Connects:      c.connects.Load(),
		Disconnects:   c.disconnects.Load(),
		FramesIn:      c.framesIn.Load(),
		FramesOut:     c.framesOut.Load(),
		BytesIn:       c.bytesIn.Load(),
		BytesOut:      c.bytesOut.Load(),
		SocketErrors:  c.socketErrors.Load(),
		FramesDropped: c.framesDropped.Load(),
		QueueDiscards: c.queueDiscards.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
