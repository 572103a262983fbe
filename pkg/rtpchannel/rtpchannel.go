// Package rtpchannel implements the RtpChannel capability boundary
// (spec.md §4.3): a uniform Sender/Receiver/Interleaved surface over the
// three ways a track's RTP/RTCP substream can actually move bytes, so the
// client and server session handlers never need to know which transport
// was negotiated.
package rtpchannel

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtspsession/pkg/base"
	"github.com/bluenviron/rtspsession/pkg/conn"
)

// Channel is the capability every transport variant exposes. Sessions
// never branch on transport kind past construction time; they just call
// these methods (spec.md §9: "avoid back-references from RtpChannel to
// session; deliver events by callback").
type Channel interface {
	// Connect readies the channel to send/receive (binds sockets, arms
	// the interleaved frame demultiplexer).
	Connect() error

	// Disconnect releases any owned resources. Safe to call more than
	// once.
	Disconnect()

	// EnqueueRTP serializes and sends one RTP packet.
	EnqueueRTP(pkt *rtp.Packet) error

	// OnRTP registers the callback invoked for each inbound RTP packet.
	OnRTP(func(*rtp.Packet))

	// OnRTCP registers the callback invoked for each inbound RTCP packet.
	// A received Goodbye (BYE) packet also fires OnBye.
	OnRTCP(func(rtcp.Packet))

	// OnBye registers the callback invoked when an RTCP Goodbye arrives
	// on this channel, signalling the source has stopped publishing
	// (spec.md §3: drives the Terminating transition).
	OnBye(func())
}

type callbacks struct {
	mu      sync.RWMutex
	onRTP   func(*rtp.Packet)
	onRTCP  func(rtcp.Packet)
	onBye   func()
}

func (c *callbacks) fireRTP(pkt *rtp.Packet) {
	c.mu.RLock()
	h := c.onRTP
	c.mu.RUnlock()
	if h != nil {
		h(pkt)
	}
}

func (c *callbacks) fireRTCP(raw []byte) {
	packets, err := rtcp.Unmarshal(raw)
	if err != nil {
		return
	}

	c.mu.RLock()
	onRTCP, onBye := c.onRTCP, c.onBye
	c.mu.RUnlock()

	for _, pkt := range packets {
		if onRTCP != nil {
			onRTCP(pkt)
		}
		if _, isBye := pkt.(*rtcp.Goodbye); isBye && onBye != nil {
			onBye()
		}
	}
}

func (c *callbacks) OnRTP(h func(*rtp.Packet)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRTP = h
}

func (c *callbacks) OnRTCP(h func(rtcp.Packet)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRTCP = h
}

func (c *callbacks) OnBye(h func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBye = h
}

// udpChannel is shared plumbing between Sender and Receiver: a pair of
// bound UDP sockets (rtp/rtcp) and the goroutines that pump inbound
// datagrams into the callbacks.
type udpChannel struct {
	callbacks

	rtpConn  *net.UDPConn
	rtcpConn *net.UDPConn

	remoteRTP  *net.UDPAddr
	remoteRTCP *net.UDPAddr

	closed atomic.Bool
	wg     sync.WaitGroup
}

func (u *udpChannel) readLoop(sock *net.UDPConn, onPacket func([]byte)) {
	defer u.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, _, err := sock.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if u.closed.Load() {
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		onPacket(cp)
	}
}

func (u *udpChannel) startReadLoops() {
	u.wg.Add(2)
	go u.readLoop(u.rtpConn, func(raw []byte) {
		var pkt rtp.Packet
		if err := pkt.Unmarshal(raw); err == nil {
			u.fireRTP(&pkt)
		}
	})
	go u.readLoop(u.rtcpConn, u.fireRTCP)
}

func (u *udpChannel) Disconnect() {
	if u.closed.Swap(true) {
		return
	}
	if u.rtpConn != nil {
		u.rtpConn.Close()
	}
	if u.rtcpConn != nil {
		u.rtcpConn.Close()
	}
	u.wg.Wait()
}

func (u *udpChannel) EnqueueRTP(pkt *rtp.Packet) error {
	raw, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("marshal RTP packet: %w", err)
	}
	_, err = u.rtpConn.WriteToUDP(raw, u.remoteRTP)
	return err
}

// Sender is the server-side UDP variant: it owns locally bound sockets
// and pushes RTP toward the client's negotiated client_port, while
// listening for RTCP receiver reports on the matching port (spec.md
// §4.3).
type Sender struct {
	udpChannel
}

// NewSender builds a Sender bound to localRTP/localRTCP, targeting the
// client's negotiated client_port pair at remoteIP.
func NewSender(localRTP, localRTCP *net.UDPConn, remoteIP string, remoteRTPPort, remoteRTCPPort int) *Sender {
	return &Sender{udpChannel: udpChannel{
		rtpConn:    localRTP,
		rtcpConn:   localRTCP,
		remoteRTP:  &net.UDPAddr{IP: net.ParseIP(remoteIP), Port: remoteRTPPort},
		remoteRTCP: &net.UDPAddr{IP: net.ParseIP(remoteIP), Port: remoteRTCPPort},
	}}
}

// Connect starts the RTP and RTCP read loops.
func (s *Sender) Connect() error {
	s.startReadLoops()
	return nil
}

// Receiver is the client-side UDP variant: it owns locally bound sockets
// and waits for RTP/RTCP arriving from the server's server_port, sending
// RTCP receiver reports back (spec.md §4.3).
type Receiver struct {
	udpChannel
}

// NewReceiver builds a Receiver bound to localRTP/localRTCP, expecting
// media from the server's negotiated server_port pair at remoteIP.
func NewReceiver(localRTP, localRTCP *net.UDPConn, remoteIP string, remoteRTPPort, remoteRTCPPort int) *Receiver {
	return &Receiver{udpChannel: udpChannel{
		rtpConn:    localRTP,
		rtcpConn:   localRTCP,
		remoteRTP:  &net.UDPAddr{IP: net.ParseIP(remoteIP), Port: remoteRTPPort},
		remoteRTCP: &net.UDPAddr{IP: net.ParseIP(remoteIP), Port: remoteRTCPPort},
	}}
}

// Connect starts the RTP/RTCP read loops.
func (r *Receiver) Connect() error {
	r.startReadLoops()
	return nil
}

// EnqueueRTCP sends a locally generated RTCP packet (e.g. a receiver
// report) to the peer. Unlike EnqueueRTP this is not part of the Channel
// interface since only the client side emits receiver reports.
func (r *Receiver) EnqueueRTCP(pkt rtcp.Packet) error {
	raw, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("marshal RTCP packet: %w", err)
	}
	_, err = r.rtcpConn.WriteToUDP(raw, r.remoteRTCP)
	return err
}

// Interleaved is the TCP variant: RTP and RTCP share the control
// connection, demultiplexed by pkg/conn on two interleaved channel ids
// (spec.md §4.2, §4.3).
type Interleaved struct {
	callbacks

	c          *conn.Conn
	rtpChanID  int
	rtcpChanID int
	closed     atomic.Bool
}

// NewInterleaved builds an Interleaved channel bound to the given
// interleaved channel ids on c. rtpChanID must be even; rtcpChanID is
// conventionally rtpChanID+1.
func NewInterleaved(c *conn.Conn, rtpChanID, rtcpChanID int) *Interleaved {
	return &Interleaved{c: c, rtpChanID: rtpChanID, rtcpChanID: rtcpChanID}
}

// Connect registers this channel's frame handlers with the underlying
// control connection's demultiplexer.
func (i *Interleaved) Connect() error {
	i.c.BindChannel(i.rtpChanID, func(payload []byte) {
		var pkt rtp.Packet
		if err := pkt.Unmarshal(payload); err == nil {
			i.fireRTP(&pkt)
		}
	})
	i.c.BindChannel(i.rtcpChanID, i.fireRTCP)
	return nil
}

// Disconnect unbinds this channel's handlers. The underlying conn.Conn is
// owned by the session, not by the channel, so it is never closed here.
func (i *Interleaved) Disconnect() {
	if i.closed.Swap(true) {
		return
	}
	i.c.UnbindChannel(i.rtpChanID)
	i.c.UnbindChannel(i.rtcpChanID)
}

// EnqueueRTP writes pkt as an interleaved frame on the RTP channel id.
func (i *Interleaved) EnqueueRTP(pkt *rtp.Packet) error {
	raw, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("marshal RTP packet: %w", err)
	}
	return i.c.WriteInterleavedFrame(&base.InterleavedFrame{Channel: i.rtpChanID, Payload: raw})
}

// EnqueueRTCP writes an RTCP packet as an interleaved frame on the RTCP
// channel id.
func (i *Interleaved) EnqueueRTCP(pkt rtcp.Packet) error {
	raw, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("marshal RTCP packet: %w", err)
	}
	return i.c.WriteInterleavedFrame(&base.InterleavedFrame{Channel: i.rtcpChanID, Payload: raw})
}
