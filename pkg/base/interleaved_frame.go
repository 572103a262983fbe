package base

import (
	"bufio"
	"fmt"
	"io"
)

const (
	// InterleavedFrameMagicByte is the first byte of an interleaved frame,
	// the '$' the codec uses to tell binary data from a RTSP message
	// (spec.md §4.1, §6).
	InterleavedFrameMagicByte = 0x24
)

// InterleavedFrame carries one RTP or RTCP packet over the RTSP/TCP
// connection. Even channel ids carry RTP, odd ones carry RTCP (spec.md §6).
type InterleavedFrame struct {
	Channel int
	Payload []byte
}

// Read decodes an InterleavedFrame, assuming the magic byte has already
// been peeked by the caller (pkg/conn demultiplexes on it first).
func (f *InterleavedFrame) Read(rb *bufio.Reader) error {
	var header [4]byte
	if _, err := io.ReadFull(rb, header[:]); err != nil {
		return err
	}

	if header[0] != InterleavedFrameMagicByte {
		return fmt.Errorf("invalid magic byte (0x%.2x)", header[0])
	}

	payloadLen := int(header[2])<<8 | int(header[3])
	f.Channel = int(header[1])
	f.Payload = make([]byte, payloadLen)

	_, err := io.ReadFull(rb, f.Payload)
	return err
}

// MarshalSize returns the size in bytes of the encoded frame.
func (f InterleavedFrame) MarshalSize() int {
	return 4 + len(f.Payload)
}

// MarshalTo encodes f into buf, which must be at least MarshalSize() bytes.
func (f InterleavedFrame) MarshalTo(buf []byte) (int, error) {
	if len(f.Payload) > 0xFFFF {
		return 0, fmt.Errorf("payload too large (%d bytes)", len(f.Payload))
	}

	buf[0] = InterleavedFrameMagicByte
	buf[1] = byte(f.Channel)
	buf[2] = byte(len(f.Payload) >> 8)
	buf[3] = byte(len(f.Payload))
	n := copy(buf[4:], f.Payload)
	return 4 + n, nil
}

// Marshal encodes f into a freshly allocated buffer.
func (f InterleavedFrame) Marshal() ([]byte, error) {
	buf := make([]byte, f.MarshalSize())
	_, err := f.MarshalTo(buf)
	return buf, err
}
