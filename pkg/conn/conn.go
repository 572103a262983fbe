// Package conn implements the RTSP Control Transport (spec.md §4.2): a
// framed, full-duplex byte channel that demultiplexes RTSP messages from
// interleaved binary frames on the same TCP connection.
package conn

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/bluenviron/rtspsession/pkg/base"
	"github.com/bluenviron/rtspsession/pkg/bytecounter"
)

const readBufferSize = 4096

// FrameHandler receives one demultiplexed interleaved frame.
type FrameHandler func(payload []byte)

// Conn owns the read buffer for one control connection and demultiplexes
// RTSP messages from `$`-prefixed interleaved frames (spec.md §4.2, §6).
// Reads and writes are independently lockable (§4.2, §5) so a keep-alive
// send doesn't block a concurrent read, while writes to the wire stay
// atomic with respect to each other.
type Conn struct {
	rw io.ReadWriter
	bc *bytecounter.ReadWriter
	br *bufio.Reader

	readMu  sync.Mutex
	writeMu sync.Mutex

	frameHandlersMu sync.RWMutex
	frameHandlers   map[int]FrameHandler
}

// New allocates a Conn over rw, counting bytes transferred through it
// (spec.md §8 identity/counters) the way server_conn.go wraps its nconn in
// bytecounter.New before handing it to the conn layer.
func New(rw io.ReadWriter) *Conn {
	bc := bytecounter.New(rw)
	return &Conn{
		rw:            bc,
		bc:            bc,
		br:            bufio.NewReaderSize(bc, readBufferSize),
		frameHandlers: make(map[int]FrameHandler),
	}
}

// BytesReceived returns the total bytes read off the wire so far.
func (c *Conn) BytesReceived() uint64 {
	return c.bc.BytesReceived()
}

// BytesSent returns the total bytes written to the wire so far.
func (c *Conn) BytesSent() uint64 {
	return c.bc.BytesSent()
}

// BindChannel registers the RtpChannel-owned callback that receives bytes
// arriving on a given interleaved channel id (spec.md §4.3 Interleaved
// variant). Binding both the RTP (even) and RTCP (odd) ids of a track is
// the caller's responsibility.
func (c *Conn) BindChannel(channelID int, h FrameHandler) {
	c.frameHandlersMu.Lock()
	defer c.frameHandlersMu.Unlock()
	c.frameHandlers[channelID] = h
}

// UnbindChannel removes a previously bound channel id.
func (c *Conn) UnbindChannel(channelID int) {
	c.frameHandlersMu.Lock()
	defer c.frameHandlersMu.Unlock()
	delete(c.frameHandlers, channelID)
}

func (c *Conn) dispatchFrame(fr *base.InterleavedFrame) {
	c.frameHandlersMu.RLock()
	h := c.frameHandlers[fr.Channel]
	c.frameHandlersMu.RUnlock()

	if h != nil {
		h(fr.Payload)
	}
}

// ReadRequest reads one RTSP request, silently routing any interleaved
// frames encountered first to their bound channel (server side: a peer may
// interleave RTCP receiver reports between requests).
func (c *Conn) ReadRequest() (*base.Request, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		b, err := c.br.Peek(1)
		if err != nil {
			return nil, err
		}

		if b[0] == base.InterleavedFrameMagicByte {
			var fr base.InterleavedFrame
			if err := fr.Read(c.br); err != nil {
				return nil, err
			}
			c.dispatchFrame(&fr)
			continue
		}

		var req base.Request
		err = req.Read(c.br)
		return &req, err
	}
}

// ReadResponse reads one RTSP response, routing interleaved frames
// encountered first to their bound channel (client side: RTP/RTCP arriving
// interleaved with the response to PLAY).
func (c *Conn) ReadResponse() (*base.Response, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		b, err := c.br.Peek(1)
		if err != nil {
			return nil, err
		}

		if b[0] == base.InterleavedFrameMagicByte {
			var fr base.InterleavedFrame
			if err := fr.Read(c.br); err != nil {
				return nil, err
			}
			c.dispatchFrame(&fr)
			continue
		}

		var res base.Response
		err = res.Read(c.br)
		return &res, err
	}
}

// ReadFrame blocks until one interleaved frame arrives and returns it
// directly, without consulting bound handlers, for a caller that wants
// synchronous control over demultiplexing.
func (c *Conn) ReadFrame() (*base.InterleavedFrame, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	var fr base.InterleavedFrame
	err := fr.Read(c.br)
	return &fr, err
}

// WriteRequest serializes and writes req, holding the write lock for the
// duration so concurrent senders (e.g. the keep-alive timer) never
// interleave partial messages (spec.md §4.2, §5).
func (c *Conn) WriteRequest(req *base.Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	bw := bufio.NewWriter(c.rw)
	return req.Write(bw)
}

// WriteResponse serializes and writes res.
func (c *Conn) WriteResponse(res *base.Response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	bw := bufio.NewWriter(c.rw)
	return res.Write(bw)
}

// WriteInterleavedFrame writes one interleaved frame, atomically with
// respect to other writers on the same connection.
func (c *Conn) WriteInterleavedFrame(fr *base.InterleavedFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	buf, err := fr.Marshal()
	if err != nil {
		return fmt.Errorf("marshal interleaved frame: %w", err)
	}
	_, err = c.rw.Write(buf)
	return err
}
