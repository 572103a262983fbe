// Package bytecounter wraps an io.ReadWriter to expose atomic counters of
// bytes transferred, used for the identity/counters cross-cutting concern
// (spec.md §8: bytesReceived/bytesSent per session).
package bytecounter

import (
	"io"
	"sync/atomic"
)

// ReadWriter counts bytes read and written through the wrapped connection.
type ReadWriter struct {
	rw io.ReadWriter

	received atomic.Uint64
	sent     atomic.Uint64
}

// New wraps rw.
func New(rw io.ReadWriter) *ReadWriter {
	return &ReadWriter{rw: rw}
}

// Read implements io.Reader.
func (c *ReadWriter) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	c.received.Add(uint64(n))
	return n, err
}

// Write implements io.Writer.
func (c *ReadWriter) Write(p []byte) (int, error) {
	n, err := c.rw.Write(p)
	c.sent.Add(uint64(n))
	return n, err
}

// BytesReceived returns the total bytes read so far.
func (c *ReadWriter) BytesReceived() uint64 {
	return c.received.Load()
}

// BytesSent returns the total bytes written so far.
func (c *ReadWriter) BytesSent() uint64 {
	return c.sent.Load()
}
