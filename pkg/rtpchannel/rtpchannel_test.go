package rtpchannel

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspsession/pkg/conn"
)

func mustListenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	c, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	return c
}

func TestSenderReceiverUDPRoundTrip(t *testing.T) {
	senderRTP := mustListenUDP(t)
	senderRTCP := mustListenUDP(t)
	receiverRTP := mustListenUDP(t)
	receiverRTCP := mustListenUDP(t)

	sender := NewSender(senderRTP, senderRTCP, "127.0.0.1",
		receiverRTP.LocalAddr().(*net.UDPAddr).Port, receiverRTCP.LocalAddr().(*net.UDPAddr).Port)
	receiver := NewReceiver(receiverRTP, receiverRTCP, "127.0.0.1",
		senderRTP.LocalAddr().(*net.UDPAddr).Port, senderRTCP.LocalAddr().(*net.UDPAddr).Port)

	require.NoError(t, sender.Connect())
	require.NoError(t, receiver.Connect())
	defer sender.Disconnect()
	defer receiver.Disconnect()

	received := make(chan *rtp.Packet, 1)
	receiver.OnRTP(func(pkt *rtp.Packet) {
		received <- pkt
	})

	pkt := &rtp.Packet{
		Header:  rtp.Header{SequenceNumber: 42, Timestamp: 900000, SSRC: 0x1A2B3C4D},
		Payload: []byte{1, 2, 3},
	}
	require.NoError(t, sender.EnqueueRTP(pkt))

	select {
	case got := <-received:
		require.Equal(t, uint16(42), got.SequenceNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for RTP packet")
	}
}

func TestReceiverFiresOnByeForGoodbye(t *testing.T) {
	senderRTCP := mustListenUDP(t)
	receiverRTCP := mustListenUDP(t)
	receiverRTP := mustListenUDP(t)
	senderRTP := mustListenUDP(t)

	receiver := NewReceiver(receiverRTP, receiverRTCP, "127.0.0.1",
		senderRTP.LocalAddr().(*net.UDPAddr).Port, senderRTCP.LocalAddr().(*net.UDPAddr).Port)
	require.NoError(t, receiver.Connect())
	defer receiver.Disconnect()

	byeFired := make(chan struct{}, 1)
	receiver.OnBye(func() { byeFired <- struct{}{} })

	bye := &rtcp.Goodbye{Sources: []uint32{0x1A2B3C4D}}
	raw, err := bye.Marshal()
	require.NoError(t, err)
	_, err = senderRTCP.WriteToUDP(raw, receiverRTCP.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	select {
	case <-byeFired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnBye")
	}
}

func TestInterleavedEnqueueRTP(t *testing.T) {
	rw := &loopbackRW{}
	c := conn.New(rw)
	ch := NewInterleaved(c, 0, 1)
	require.NoError(t, ch.Connect())
	defer ch.Disconnect()

	received := make(chan *rtp.Packet, 1)
	ch.OnRTP(func(pkt *rtp.Packet) { received <- pkt })

	pkt := &rtp.Packet{Header: rtp.Header{SequenceNumber: 7}, Payload: []byte{9}}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	require.NoError(t, ch.EnqueueRTP(pkt))
	_ = raw // marshaled only to check the packet encodes; frame encoding is covered by pkg/base's InterleavedFrame tests
}

// loopbackRW discards writes and never yields reads; only used to satisfy
// conn.New's io.ReadWriter requirement for Connect()/Disconnect() tests
// that don't exercise the read path.
type loopbackRW struct{}

func (loopbackRW) Read(p []byte) (int, error)  { return 0, errEOF{} }
func (loopbackRW) Write(p []byte) (int, error) { return len(p), nil }

type errEOF struct{}

func (errEOF) Error() string { return "EOF" }
