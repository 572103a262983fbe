package base

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var casesRequest = []struct {
	name string
	byts []byte
	req  Request
}{
	{
		"options",
		[]byte("OPTIONS rtsp://example.com/stream RTSP/1.0\r\n" +
			"CSeq: 1\r\n" +
			"\r\n"),
		Request{
			Method: Options,
			URL:    mustParseURL("rtsp://example.com:554/stream"),
			Header: Header{
				"CSeq": HeaderValue{"1"},
			},
		},
	},
	{
		"set_parameter with body",
		[]byte("SET_PARAMETER rtsp://example.com/stream RTSP/1.0\r\n" +
			"CSeq: 2\r\n" +
			"Content-Length: 5\r\n" +
			"\r\n" +
			"hello"),
		Request{
			Method: SetParameter,
			URL:    mustParseURL("rtsp://example.com:554/stream"),
			Header: Header{
				"CSeq": HeaderValue{"2"},
			},
			Content: []byte("hello"),
		},
	},
}

func mustParseURL(s string) *URL {
	u, err := ParseURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

func TestRequestRead(t *testing.T) {
	for _, ca := range casesRequest {
		t.Run(ca.name, func(t *testing.T) {
			var req Request
			err := req.Read(bufio.NewReader(bytes.NewReader(ca.byts)))
			require.NoError(t, err)
			require.Equal(t, ca.req.Method, req.Method)
			require.Equal(t, ca.req.URL.String(), req.URL.String())
			require.Equal(t, ca.req.Content, req.Content)
		})
	}
}

func TestRequestWrite(t *testing.T) {
	for _, ca := range casesRequest {
		t.Run(ca.name, func(t *testing.T) {
			var buf bytes.Buffer
			bw := bufio.NewWriter(&buf)
			req := ca.req
			err := req.Write(bw)
			require.NoError(t, err)

			var decoded Request
			err = decoded.Read(bufio.NewReader(bytes.NewReader(buf.Bytes())))
			require.NoError(t, err)
			require.Equal(t, ca.req.Method, decoded.Method)
			require.Equal(t, ca.req.Content, decoded.Content)
		})
	}
}

func TestRequestReadBadStartLine(t *testing.T) {
	var req Request
	err := req.Read(bufio.NewReader(bytes.NewReader([]byte(" rtsp://x/y RTSP/1.0\r\n\r\n"))))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadStartLine)
}

func TestRequestReadTooLarge(t *testing.T) {
	var req Request
	byts := []byte("SET_PARAMETER rtsp://example.com/s RTSP/1.0\r\n" +
		"Content-Length: 999999999999\r\n\r\n")
	err := req.Read(bufio.NewReader(bytes.NewReader(byts)))
	require.Error(t, err)
}
