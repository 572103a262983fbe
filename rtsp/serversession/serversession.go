// Package serversession implements the Server Session Handler (spec.md
// §4.5): a per-peer object created on first request from a newly accepted
// control socket, owning a session identity, a tailored SessionDescription,
// and the peer's negotiated RtpChannel.
package serversession

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/bluenviron/rtspsession/pkg/base"
	"github.com/bluenviron/rtspsession/pkg/conn"
	"github.com/bluenviron/rtspsession/pkg/headers"
	"github.com/bluenviron/rtspsession/pkg/liberrors"
	"github.com/bluenviron/rtspsession/pkg/rtpchannel"
	"github.com/bluenviron/rtspsession/pkg/sessiondesc"
)

// SupportedMethods is advertised verbatim in response to OPTIONS.
var SupportedMethods = []base.Method{
	base.Options, base.Describe, base.Setup, base.Play, base.Pause,
	base.Teardown, base.GetParameter, base.Announce, base.Record,
}

// Source describes the upstream media this peer is reading, provided by
// the ingest pipeline (spec.md §1 Non-goals: ingest itself is external).
type Source struct {
	SDP *sessiondesc.SessionDescription
}

// Session is one peer's server-side session state (spec.md §4.5's
// per-connected-peer object).
type Session struct {
	c        *conn.Conn
	localIP  string
	source   *Source

	sessionID string
	lastCSeq  string

	tracks []*peerTrack

	// OnBye fires when an RTCP BYE arrives on a track's RtpChannel,
	// mirroring client-side termination handling.
	OnBye func(trackIndex int)
}

type peerTrack struct {
	channel   rtpchannel.Channel
	transport headers.Transport
}

// New allocates a Session bound to one peer's control connection.
func New(c *conn.Conn, localIP string, source *Source) *Session {
	return &Session{c: c, localIP: localIP, source: source}
}

// Handle dispatches one request to the matching operation and returns the
// response to send back (spec.md §4.5 handle, §4.6 response construction).
func (s *Session) Handle(req *base.Request) *base.Response {
	cseq, _ := req.Header.Get("CSeq")
	if cseq != "" {
		s.lastCSeq = cseq
	}

	var res *base.Response
	switch req.Method {
	case base.Options:
		res = s.handleOptions()
	case base.Describe:
		res = s.handleDescribe()
	case base.Setup:
		res = s.handleSetup(req)
	case base.Play:
		res = s.handlePlayOrRecord(req)
	case base.Record:
		res = s.handlePlayOrRecord(req)
	case base.Pause:
		res = s.handleGated(req, base.StatusOK)
	case base.GetParameter:
		res = s.handleGated(req, base.StatusOK)
	case base.Teardown:
		res = s.handleTeardown(req)
	default:
		res = &base.Response{StatusCode: base.StatusMethodNotValidInThisState}
	}

	s.finalize(res)
	return res
}

func (s *Session) finalize(res *base.Response) {
	if res.Header == nil {
		res.Header = base.Header{}
	}
	res.Header.Set("CSeq", s.lastCSeq)
	if s.sessionID != "" {
		sessHdr := headers.Session{Session: s.sessionID, Timeout: headers.DefaultTimeoutSeconds}
		res.Header["Session"] = sessHdr.Write()
	}
}

func (s *Session) handleOptions() *base.Response {
	names := make([]string, len(SupportedMethods))
	for i, m := range SupportedMethods {
		names[i] = string(m)
	}
	return &base.Response{
		StatusCode: base.StatusOK,
		Header:     base.Header{"Public": base.HeaderValue{strings.Join(names, ",")}},
	}
}

func (s *Session) handleDescribe() *base.Response {
	if s.source == nil || s.source.SDP == nil {
		return &base.Response{StatusCode: base.StatusNotFound}
	}

	s.source.SDP.RewriteOrigin(s.localIP)
	s.source.SDP.SetSessionName("live")

	body, err := s.source.SDP.Marshal()
	if err != nil {
		return &base.Response{StatusCode: base.StatusInternalServerError}
	}

	return &base.Response{
		StatusCode: base.StatusOK,
		Header:     base.Header{"Content-Type": base.HeaderValue{"application/sdp"}},
		Body:       body,
	}
}

// handleSetup allocates the session id on the first SETUP and picks the
// matching RtpChannel variant from the client's Transport header, echoing
// selected parameters (spec.md §4.5).
func (s *Session) handleSetup(req *base.Request) *base.Response {
	transportVal, ok := req.Header.Get("Transport")
	if !ok {
		return &base.Response{StatusCode: base.StatusUnsupportedTransport}
	}
	var reqTransport headers.Transport
	if err := reqTransport.Read(base.HeaderValue{transportVal}); err != nil {
		return &base.Response{StatusCode: base.StatusUnsupportedTransport}
	}

	if s.sessionID == "" {
		s.sessionID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	trackIndex := len(s.tracks)
	pt := &peerTrack{}
	var respTransport headers.Transport

	switch reqTransport.Protocol {
	case headers.TransportProtocolTCP:
		chanID := trackIndex * 2
		if reqTransport.InterleavedIDs != nil {
			chanID = reqTransport.InterleavedIDs[0]
		}
		pt.channel = rtpchannel.NewInterleaved(s.c, chanID, chanID+1)
		delivery := headers.TransportDeliveryUnicast
		respTransport = headers.Transport{
			Protocol:       headers.TransportProtocolTCP,
			Delivery:       &delivery,
			InterleavedIDs: &[2]int{chanID, chanID + 1},
		}
	default:
		if reqTransport.ClientPorts == nil {
			return &base.Response{StatusCode: base.StatusUnsupportedTransport}
		}
		host, _, err := net.SplitHostPort(req.URL.Host)
		if err != nil {
			host = req.URL.Host
		}

		localRTP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(s.localIP)})
		if err != nil {
			return &base.Response{StatusCode: base.StatusInternalServerError}
		}
		localRTCP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(s.localIP)})
		if err != nil {
			localRTP.Close()
			return &base.Response{StatusCode: base.StatusInternalServerError}
		}

		pt.channel = rtpchannel.NewSender(localRTP, localRTCP, host,
			reqTransport.ClientPorts[0], reqTransport.ClientPorts[1])

		serverRTPPort := localRTP.LocalAddr().(*net.UDPAddr).Port
		serverRTCPPort := localRTCP.LocalAddr().(*net.UDPAddr).Port
		delivery := headers.TransportDeliveryUnicast
		respTransport = headers.Transport{
			Protocol:    headers.TransportProtocolUDP,
			Delivery:    &delivery,
			ClientPorts: reqTransport.ClientPorts,
			ServerPorts: &[2]int{serverRTPPort, serverRTCPPort},
		}
	}

	if err := pt.channel.Connect(); err != nil {
		return &base.Response{StatusCode: base.StatusInternalServerError}
	}
	if s.OnBye != nil {
		idx := trackIndex
		pt.channel.OnBye(func() { s.terminateFromBye(idx) })
	}
	pt.transport = respTransport

	s.tracks = append(s.tracks, pt)

	return &base.Response{
		StatusCode: base.StatusOK,
		Header:     base.Header{"Transport": respTransport.Write()},
	}
}

func (s *Session) handlePlayOrRecord(req *base.Request) *base.Response {
	return s.handleGated(req, base.StatusOK)
}

func (s *Session) handleGated(req *base.Request, okStatus base.StatusCode) *base.Response {
	sessVal, _ := req.Header.Get("Session")
	if s.sessionID == "" || sessVal == "" {
		return &base.Response{StatusCode: base.StatusSessionNotFound}
	}
	var sessHdr headers.Session
	if err := sessHdr.Read(base.HeaderValue{sessVal}); err != nil || sessHdr.Session != s.sessionID {
		return &base.Response{StatusCode: base.StatusSessionNotFound}
	}
	return &base.Response{StatusCode: okStatus}
}

func (s *Session) handleTeardown(req *base.Request) *base.Response {
	for _, t := range s.tracks {
		if t.channel != nil {
			t.channel.Disconnect()
		}
	}
	s.tracks = nil
	s.sessionID = ""
	return &base.Response{StatusCode: base.StatusOK}
}

// OnSourceRtp forwards one upstream RTP packet into the peer's RtpChannel
// for the given track (spec.md §4.5 onSourceRtp). It only forwards the
// packet: the session keeps no RTCP sender-report state and records no
// local receive event for it.
func (s *Session) OnSourceRtp(trackIndex int, pkt *rtp.Packet) error {
	if trackIndex < 0 || trackIndex >= len(s.tracks) {
		return liberrors.ErrProtocol{Msg: fmt.Sprintf("no such track %d", trackIndex)}
	}
	return s.tracks[trackIndex].channel.EnqueueRTP(pkt)
}

// OnSourceRtcp terminates this peer session when the upstream source
// itself goes away (spec.md §4.5 onSourceRtcp, "mirror of client
// behavior").
func (s *Session) OnSourceRtcp(trackIndex int, pkt rtcp.Packet) {
	if _, isBye := pkt.(*rtcp.Goodbye); isBye {
		s.terminateFromBye(trackIndex)
	}
}

func (s *Session) terminateFromBye(trackIndex int) {
	if s.OnBye != nil {
		s.OnBye(trackIndex)
	}
	for _, t := range s.tracks {
		if t.channel != nil {
			t.channel.Disconnect()
		}
	}
	s.tracks = nil
	s.sessionID = ""
}

// SessionID returns the allocated session id, or "" before the first
// successful SETUP.
func (s *Session) SessionID() string {
	return s.sessionID
}

// TrackCount returns the number of tracks set up so far.
func (s *Session) TrackCount() int {
	return len(s.tracks)
}

