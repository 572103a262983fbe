package serversession

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspsession/pkg/base"
	"github.com/bluenviron/rtspsession/pkg/conn"
	"github.com/bluenviron/rtspsession/pkg/headers"
	"github.com/bluenviron/rtspsession/pkg/sessiondesc"
)

type loopbackRW struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (f *loopbackRW) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *loopbackRW) Write(p []byte) (int, error) { return f.out.Write(p) }

func newTestSession(t *testing.T) *Session {
	t.Helper()
	sd, err := sessiondesc.Unmarshal([]byte("v=0\r\n" +
		"o=- 0 0 IN IP4 0.0.0.0\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"m=video 0 RTP/AVP 96\r\n" +
		"a=control:track1\r\n"))
	require.NoError(t, err)

	c := conn.New(&loopbackRW{in: &bytes.Buffer{}, out: &bytes.Buffer{}})
	return New(c, "127.0.0.1", &Source{SDP: sd})
}

func TestHandleOptions(t *testing.T) {
	s := newTestSession(t)
	req := &base.Request{Method: base.Options, Header: base.Header{"CSeq": base.HeaderValue{"1"}}}
	res := s.Handle(req)

	require.Equal(t, base.StatusOK, res.StatusCode)
	pub, ok := res.Header.Get("Public")
	require.True(t, ok)
	require.Contains(t, pub, "SETUP")
}

func TestHandleDescribeRewritesOrigin(t *testing.T) {
	s := newTestSession(t)
	req := &base.Request{Method: base.Describe, Header: base.Header{"CSeq": base.HeaderValue{"2"}}}
	res := s.Handle(req)

	require.Equal(t, base.StatusOK, res.StatusCode)
	require.Contains(t, string(res.Body), "IN IP4 127.0.0.1")
}

func TestHandleSetupAllocatesSessionAndEchoesTransport(t *testing.T) {
	s := newTestSession(t)

	transport := headers.Transport{
		Protocol:    headers.TransportProtocolUDP,
		ClientPorts: &[2]int{15000, 15001},
	}
	req := &base.Request{
		Method: base.Setup,
		URL:    mustParseURL(t, "rtsp://127.0.0.1:8554/stream/track1"),
		Header: base.Header{"CSeq": base.HeaderValue{"3"}, "Transport": transport.Write()},
	}
	res := s.Handle(req)

	require.Equal(t, base.StatusOK, res.StatusCode)
	require.NotEmpty(t, s.SessionID())
	require.Equal(t, 1, s.TrackCount())

	sessVal, ok := res.Header.Get("Session")
	require.True(t, ok)
	require.Contains(t, sessVal, s.SessionID())

	transportVal, ok := res.Header.Get("Transport")
	require.True(t, ok)
	require.Contains(t, transportVal, "client_port=15000-15001")
}

func TestHandlePlayRejectsUnknownSession(t *testing.T) {
	s := newTestSession(t)
	req := &base.Request{
		Method: base.Play,
		Header: base.Header{"CSeq": base.HeaderValue{"4"}, "Session": base.HeaderValue{"bogus"}},
	}
	res := s.Handle(req)
	require.Equal(t, base.StatusSessionNotFound, res.StatusCode)
}

func mustParseURL(t *testing.T, s string) *base.URL {
	t.Helper()
	u, err := base.ParseURL(s)
	require.NoError(t, err)
	return u
}
