package base

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterleavedFrameRoundTrip(t *testing.T) {
	f := InterleavedFrame{Channel: 0, Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}

	byts, err := f.Marshal()
	require.NoError(t, err)
	require.Equal(t, []byte{0x24, 0x00, 0x00, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}, byts)

	var decoded InterleavedFrame
	err = decoded.Read(bufio.NewReader(bytes.NewReader(byts)))
	require.NoError(t, err)
	require.Equal(t, f, decoded)
}

func TestInterleavedFrameBadMagicByte(t *testing.T) {
	var f InterleavedFrame
	err := f.Read(bufio.NewReader(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00})))
	require.Error(t, err)
}
