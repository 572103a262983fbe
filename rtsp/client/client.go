// Package client implements the RTSP Client State Machine (spec.md §4.4):
// OPTIONS → DESCRIBE → SETUP → PLAY → (keep-alive) → TEARDOWN, including
// TCP-fallback mid-SETUP and session-expiry recovery, PAUSE, the publish
// direction (ANNOUNCE/RECORD), and bounded REDIRECT handling.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bluenviron/rtspsession/pkg/base"
	"github.com/bluenviron/rtspsession/pkg/conn"
	"github.com/bluenviron/rtspsession/pkg/headers"
	"github.com/bluenviron/rtspsession/pkg/liberrors"
	"github.com/bluenviron/rtspsession/pkg/portfinder"
	"github.com/bluenviron/rtspsession/pkg/rtpchannel"
	"github.com/bluenviron/rtspsession/pkg/sessiondesc"
)

// State is a node of the client state machine (spec.md §4.4).
type State int

// States, in the order the happy path visits them.
const (
	StateIdle State = iota
	StateConnected
	StateDescribed
	StateReady
	StatePlaying
	StateTerminating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnected:
		return "Connected"
	case StateDescribed:
		return "Described"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StateTerminating:
		return "Terminating"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Credential holds HTTP Basic credentials for Authorization (spec.md §6).
type Credential struct {
	User string
	Pass string
}

// Config recognizes the options spec.md §6 names.
type Config struct {
	UserAgent          string
	Credential         *Credential
	PreferredTransport string // "udp" (default) or "tcp"
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxMessageBytes    int
	KeepaliveMethod    base.Method // GetParameter (default) or Options
}

func (c *Config) setDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = "rtspsession-client"
	}
	if c.PreferredTransport == "" {
		c.PreferredTransport = "udp"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 2 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = base.MaxMessageBytes
	}
	if c.KeepaliveMethod == "" {
		c.KeepaliveMethod = base.GetParameter
	}
}

// track holds one media section's negotiated transport and channel.
type track struct {
	controlURL string
	channel    rtpchannel.Channel
	transport  headers.Transport
	startSeq   *uint16
}

// Client drives one RTSP control session against a single server.
type Client struct {
	cfg Config

	// OnRequest/OnResponse/OnTransportSwitch/OnSessionExpired/OnBye are
	// observability hooks; nil is a valid no-op.
	OnRequest         func(*base.Request)
	OnResponse        func(*base.Response)
	OnTransportSwitch func(from, to string)
	OnSessionExpired  func()
	OnBye             func(trackIndex int)

	mu    sync.Mutex
	state State

	netConn net.Conn
	c       *conn.Conn
	u       *base.URL

	// reqMu serializes the whole write-request/read-response exchange
	// (spec.md §5's single-outstanding-request discipline) and guards the
	// cseq/sessionID/timeout fields doOnce reads and writes, since the
	// keep-alive goroutine and the caller's goroutine both call do().
	reqMu sync.Mutex

	cseq             int
	supportedMethods map[base.Method]bool

	sessionID string
	timeout   uint

	sdp    *sessiondesc.SessionDescription
	tracks []*track

	rangeCursor string

	keepaliveCancel context.CancelFunc
}

// New allocates a Client in state Idle.
func New(cfg Config) *Client {
	cfg.setDefaults()
	return &Client{cfg: cfg, state: StateIdle, supportedMethods: map[base.Method]bool{}}
}

// State returns the current state machine node.
func (cl *Client) State() State {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.state
}

func (cl *Client) setState(s State) {
	cl.mu.Lock()
	cl.state = s
	cl.mu.Unlock()
}

// Connect resolves the host and opens the control socket (spec.md §4.4.1).
func (cl *Client) Connect(ctx context.Context, rawURL string) error {
	u, err := base.ParseURL(rawURL)
	if err != nil {
		return liberrors.ErrParse{Err: err}
	}
	cl.u = u

	d := net.Dialer{Timeout: cl.cfg.ReadTimeout}
	nc, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return liberrors.ErrResolve{Err: err}
	}

	cl.netConn = nc
	cl.c = conn.New(nc)
	cl.setState(StateConnected)
	return nil
}

// Close tears down the connection without issuing TEARDOWN; used after a
// best-effort TEARDOWN fails or was skipped.
func (cl *Client) Close() {
	cl.cancelKeepAlive()
	for _, t := range cl.tracks {
		if t.channel != nil {
			t.channel.Disconnect()
		}
	}
	if cl.netConn != nil {
		cl.netConn.Close()
	}
	cl.setState(StateClosed)
}

func (cl *Client) nextCSeq() int {
	cl.cseq++
	return cl.cseq
}

// do sends req, following a 302 redirect by tearing down the current
// control connection and reconnecting to the Location URL, bounded to one
// hop (spec.md SPEC_FULL supplement "REDIRECT handling", same bounded-
// depth-1 pattern spec.md §9 mandates for TCP fallback and session-expiry).
func (cl *Client) do(req *base.Request) (*base.Response, error) {
	return cl.doWithRedirect(req, 0)
}

func (cl *Client) doWithRedirect(req *base.Request, depth int) (*base.Response, error) {
	res, err := cl.doOnce(req)
	if err != nil {
		return res, err
	}
	if res.StatusCode != base.StatusFound {
		return res, nil
	}
	if depth > 0 {
		return res, liberrors.ErrRedirectLoop{}
	}

	location, ok := res.Header.Get("Location")
	if !ok {
		return res, nil
	}
	redirectURL, err := base.ParseURL(location)
	if err != nil {
		return res, liberrors.ErrProtocol{Msg: "invalid Location header: " + err.Error()}
	}

	cl.reqMu.Lock()
	if cl.netConn != nil {
		cl.netConn.Close()
	}
	d := net.Dialer{Timeout: cl.cfg.ReadTimeout}
	nc, err := d.DialContext(context.Background(), "tcp", redirectURL.Host)
	if err != nil {
		cl.reqMu.Unlock()
		return res, liberrors.ErrResolve{Err: err}
	}
	cl.netConn = nc
	cl.c = conn.New(nc)
	cl.u = redirectURL
	cl.sessionID = ""
	cl.cseq = 0
	cl.reqMu.Unlock()

	req2 := &base.Request{Method: req.Method, URL: redirectURL, Header: base.Header{}, Content: req.Content}
	for k, v := range req.Header {
		if k == "CSeq" || k == "Session" {
			continue
		}
		req2.Header[k] = v
	}
	return cl.doWithRedirect(req2, depth+1)
}

// doOnce sends req (filling CSeq, User-Agent, Session, Authorization) and
// returns the parsed response, enforcing the single-outstanding-request
// discipline spec.md §5 describes.
func (cl *Client) doOnce(req *base.Request) (*base.Response, error) {
	cl.reqMu.Lock()
	defer cl.reqMu.Unlock()

	if req.Header == nil {
		req.Header = base.Header{}
	}
	cseq := cl.nextCSeq()
	req.Header.Set("CSeq", strconv.Itoa(cseq))
	req.Header.Set("User-Agent", cl.cfg.UserAgent)

	if cl.sessionID != "" {
		req.Header.Set("Session", cl.sessionID)
	}
	if cl.cfg.Credential != nil {
		auth := headers.Authorization{User: cl.cfg.Credential.User, Pass: cl.cfg.Credential.Pass}
		req.Header["Authorization"] = auth.Write()
	}

	if cl.OnRequest != nil {
		cl.OnRequest(req)
	}

	if err := cl.netConn.SetWriteDeadline(time.Now().Add(cl.cfg.WriteTimeout)); err != nil {
		return nil, liberrors.ErrTransport{Err: err}
	}
	if err := cl.c.WriteRequest(req); err != nil {
		return nil, liberrors.ErrTransport{Err: err}
	}

	if err := cl.netConn.SetReadDeadline(time.Now().Add(cl.cfg.ReadTimeout)); err != nil {
		return nil, liberrors.ErrTransport{Err: err}
	}
	res, err := cl.c.ReadResponse()
	if err != nil {
		return nil, liberrors.ErrTransport{Err: err}
	}

	if cl.OnResponse != nil {
		cl.OnResponse(res)
	}

	respCSeqStr, _ := res.Header.Get("CSeq")
	if respCSeqStr != strconv.Itoa(cseq) {
		return res, liberrors.ErrProtocol{Msg: fmt.Sprintf("CSeq mismatch: sent %d, got %s", cseq, respCSeqStr)}
	}

	return res, nil
}

// Options sends OPTIONS and stores the advertised method set.
func (cl *Client) Options() error {
	req := &base.Request{Method: base.Options, URL: cl.u, Header: base.Header{}}
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}

	if pub, ok := res.Header.Get("Public"); ok {
		for _, m := range strings.Split(pub, ",") {
			cl.supportedMethods[base.Method(strings.TrimSpace(m))] = true
		}
	}
	return nil
}

// Describe sends DESCRIBE and stores the parsed SessionDescription.
func (cl *Client) Describe() error {
	req := &base.Request{Method: base.Describe, URL: cl.u, Header: base.Header{
		"Accept": base.HeaderValue{"application/sdp"},
	}}
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}

	sd, err := sessiondesc.Unmarshal(res.Body)
	if err != nil {
		return liberrors.ErrProtocol{Msg: "invalid session description"}
	}
	cl.sdp = sd

	cl.tracks = make([]*track, sd.MediaCount())
	for i := range cl.tracks {
		controlAttr := sd.MediaControlURL(i)
		resolved, err := sessiondesc.ResolveControlURL(cl.u.String(), controlAttr)
		if err != nil {
			return liberrors.ErrProtocol{Msg: "invalid control attribute: " + err.Error()}
		}
		cl.tracks[i] = &track{controlURL: resolved}
	}

	cl.setState(StateDescribed)
	return nil
}

// Setup negotiates transport for track i, following spec.md §4.4 SETUP
// policy including TCP-fallback mid-SETUP and 454 session-expiry retry,
// both implemented as an explicit bounded-depth-1 loop per spec.md §9.
func (cl *Client) Setup(i int) error {
	return cl.setupWithDepth(i, 0)
}

func (cl *Client) setupWithDepth(i int, depth int) error {
	if depth > 1 {
		return liberrors.ErrProtocol{Msg: "SETUP retry depth exceeded"}
	}

	t := cl.tracks[i]
	wantTCP := cl.cfg.PreferredTransport == "tcp"

	var transportHeader headers.Transport
	var udpPair *portfinder.Pair

	if !wantTCP {
		var err error
		udpPair, err = portfinder.FindPair("0.0.0.0", portfinder.DefaultSearchStart)
		if err != nil {
			return liberrors.ErrTransport{Err: err}
		}
		delivery := headers.TransportDeliveryUnicast
		transportHeader = headers.Transport{
			Protocol:    headers.TransportProtocolUDP,
			Delivery:    &delivery,
			ClientPorts: &[2]int{udpPair.RTPPort, udpPair.RTCPPort},
		}
	} else {
		delivery := headers.TransportDeliveryUnicast
		transportHeader = headers.Transport{
			Protocol:       headers.TransportProtocolTCP,
			Delivery:       &delivery,
			InterleavedIDs: &[2]int{i * 2, i*2 + 1},
		}
	}

	req := &base.Request{
		Method: base.Setup,
		URL:    mustParseControlURL(t.controlURL),
		Header: base.Header{"Transport": transportHeader.Write()},
	}
	res, err := cl.do(req)
	if err != nil {
		return err
	}

	cl.reqMu.Lock()
	hadSession := cl.sessionID != ""
	cl.reqMu.Unlock()

	if res.StatusCode == base.StatusSessionNotFound && hadSession {
		if cl.OnSessionExpired != nil {
			cl.OnSessionExpired()
		}
		cl.reqMu.Lock()
		cl.sessionID = ""
		cl.reqMu.Unlock()
		if err := cl.Describe(); err != nil {
			return err
		}
		return cl.setupWithDepth(i, depth+1)
	}

	if res.StatusCode != base.StatusOK {
		if udpPair != nil {
			udpPair.Close()
		}
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}

	var sessionHdr headers.Session
	sessionVal, ok := res.Header.Get("Session")
	if !ok {
		if udpPair != nil {
			udpPair.Close()
		}
		return liberrors.ErrProtocol{Msg: "SETUP response missing Session header"}
	}
	if err := sessionHdr.Read(base.HeaderValue{sessionVal}); err != nil {
		return liberrors.ErrProtocol{Msg: "invalid Session header: " + err.Error()}
	}
	cl.reqMu.Lock()
	cl.sessionID = sessionHdr.Session
	cl.timeout = sessionHdr.Timeout
	cl.reqMu.Unlock()

	var respTransport headers.Transport
	transportVal, ok := res.Header.Get("Transport")
	if !ok {
		if udpPair != nil {
			udpPair.Close()
		}
		return liberrors.ErrProtocol{Msg: "SETUP response missing Transport header"}
	}
	if err := respTransport.Read(base.HeaderValue{transportVal}); err != nil {
		return liberrors.ErrProtocol{Msg: "invalid Transport header: " + err.Error()}
	}

	// Server signalled TCP fallback even though we asked for UDP: drop
	// the UDP channel and re-issue SETUP with TCP parameters, bounded to
	// one retry (spec.md §4.4 item 4, §9 "Reentrant SETUP").
	if !wantTCP && respTransport.TCPFallback {
		if udpPair != nil {
			udpPair.Close()
		}
		if cl.OnTransportSwitch != nil {
			cl.OnTransportSwitch("udp", "tcp")
		}
		cl.cfg.PreferredTransport = "tcp"
		return cl.setupWithDepth(i, depth+1)
	}

	switch respTransport.Protocol {
	case headers.TransportProtocolTCP:
		chanID := i * 2
		if respTransport.InterleavedIDs != nil {
			chanID = respTransport.InterleavedIDs[0]
		}
		t.channel = rtpchannel.NewInterleaved(cl.c, chanID, chanID+1)
	default:
		if respTransport.ServerPorts == nil || udpPair == nil {
			if udpPair != nil {
				udpPair.Close()
			}
			return liberrors.ErrProtocol{Msg: "UDP SETUP response missing server_port"}
		}
		host, _, _ := net.SplitHostPort(cl.u.Host)
		t.channel = rtpchannel.NewReceiver(udpPair.RTP, udpPair.RTCP, host,
			respTransport.ServerPorts[0], respTransport.ServerPorts[1])
	}
	t.transport = respTransport

	if err := t.channel.Connect(); err != nil {
		return liberrors.ErrTransport{Err: err}
	}
	idx := i
	t.channel.OnBye(func() { cl.handleBye(idx) })

	cl.setState(StateReady)
	return nil
}

func mustParseControlURL(s string) *base.URL {
	u, err := base.ParseURL(s)
	if err != nil {
		return &base.URL{}
	}
	return u
}

func (cl *Client) handleBye(trackIndex int) {
	cl.setState(StateTerminating)
	if cl.OnBye != nil {
		cl.OnBye(trackIndex)
	}
	// Teardown disconnects the channel whose read path is running this
	// callback, so it runs on its own goroutine.
	go func() {
		_ = cl.Teardown()
		cl.Close()
	}()
}

// Play sends PLAY with a Range resuming at the current cursor (defaulting
// to "0" for the first call per spec.md §9), then arms the keep-alive
// timer at timeout/2.
func (cl *Client) Play() error {
	rng := headers.Range{Start: cl.rangeCursor}
	req := &base.Request{
		Method: base.Play,
		URL:    cl.u,
		Header: base.Header{"Range": rng.Write()},
	}
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}

	if rtpInfoVal, ok := res.Header.Get("RTP-Info"); ok {
		var ri headers.RTPInfo
		if err := ri.Read(base.HeaderValue{rtpInfoVal}); err == nil {
			for _, e := range ri {
				for _, t := range cl.tracks {
					if t.controlURL == e.URL {
						t.startSeq = e.SequenceNumber
						break
					}
				}
			}
		}
	}
	if rangeVal, ok := res.Header.Get("Range"); ok {
		var r headers.Range
		if err := r.Read(base.HeaderValue{rangeVal}); err == nil {
			cl.rangeCursor = r.Start
		}
	}

	cl.setState(StatePlaying)
	cl.armKeepAlive()
	return nil
}

// Pause sends PAUSE, cancelling the keep-alive timer (it is re-armed by
// the next Play). Grounded on the same request/response shape as Play.
func (cl *Client) Pause() error {
	req := &base.Request{Method: base.Pause, URL: cl.u, Header: base.Header{}}
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}
	cl.cancelKeepAlive()
	cl.setState(StateReady)
	return nil
}

// Announce sends ANNOUNCE with a caller-supplied SessionDescription for
// the publish direction (spec.md SPEC_FULL supplement, grounded on
// doAnnounce/doRecord).
func (cl *Client) Announce(sdp *sessiondesc.SessionDescription) error {
	body, err := sdp.Marshal()
	if err != nil {
		return liberrors.ErrParse{Err: err}
	}
	req := &base.Request{
		Method:  base.Announce,
		URL:     cl.u,
		Header:  base.Header{"Content-Type": base.HeaderValue{"application/sdp"}},
		Content: body,
	}
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}
	cl.sdp = sdp
	cl.tracks = make([]*track, sdp.MediaCount())
	for i := range cl.tracks {
		resolved, err := sessiondesc.ResolveControlURL(cl.u.String(), sdp.MediaControlURL(i))
		if err != nil {
			return liberrors.ErrProtocol{Msg: "invalid control attribute: " + err.Error()}
		}
		cl.tracks[i] = &track{controlURL: resolved}
	}
	cl.setState(StateDescribed)
	return nil
}

// Record starts the publish direction after SETUP has negotiated
// transport for every track. Setup sends no mode parameter in its
// Transport header, so it does not request mode=record.
func (cl *Client) Record() error {
	req := &base.Request{Method: base.Record, URL: cl.u, Header: base.Header{}}
	res, err := cl.do(req)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}
	cl.setState(StatePlaying)
	cl.armKeepAlive()
	return nil
}

// Teardown attempts TEARDOWN once, best-effort, and always resets local
// session state regardless of outcome (spec.md §4.4 item 7, §7).
func (cl *Client) Teardown() error {
	cl.cancelKeepAlive()

	var retErr error
	if cl.state >= StateDescribed && cl.netConn != nil {
		req := &base.Request{Method: base.Teardown, URL: cl.u, Header: base.Header{}}
		_, retErr = cl.do(req)
	}

	for _, t := range cl.tracks {
		if t != nil && t.channel != nil {
			t.channel.Disconnect()
		}
	}

	cl.reqMu.Lock()
	cl.sessionID = ""
	cl.cseq = 0
	cl.reqMu.Unlock()
	cl.tracks = nil
	cl.setState(StateClosed)
	return retErr
}

// armKeepAlive fires sendKeepAlive every timeout/2, grounded on
// connclientread.go's keepaliveTicker (a time.Ticker, not a rate.Limiter:
// a fresh Limiter starts with a full token and would fire immediately
// instead of waiting out the first period).
func (cl *Client) armKeepAlive() {
	cl.cancelKeepAlive()
	if cl.timeout == 0 {
		return
	}

	period := time.Duration(cl.timeout) * time.Second / 2
	ctx, cancel := context.WithCancel(context.Background())
	cl.keepaliveCancel = cancel

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cl.sendKeepAlive(); err != nil {
					cl.cancelKeepAlive()
					return
				}
			}
		}
	}()
}

func (cl *Client) sendKeepAlive() error {
	req := &base.Request{Method: cl.cfg.KeepaliveMethod, URL: cl.u, Header: base.Header{}}
	res, err := cl.do(req)
	if err != nil {
		if te, ok := err.(liberrors.ErrTransport); ok {
			if ne, ok := te.Err.(net.Error); ok && ne.Timeout() {
				return liberrors.ErrKeepAliveTimeout{}
			}
		}
		return err
	}
	if res.StatusCode != base.StatusOK {
		return liberrors.ErrServerRejected{StatusCode: int(res.StatusCode), StatusMessage: res.StatusMessage}
	}
	return nil
}

func (cl *Client) cancelKeepAlive() {
	if cl.keepaliveCancel != nil {
		cl.keepaliveCancel()
		cl.keepaliveCancel = nil
	}
}

// TrackCount returns the number of tracks described so far.
func (cl *Client) TrackCount() int {
	return len(cl.tracks)
}

// TrackChannel returns track i's negotiated RtpChannel, or nil before
// Setup(i) has succeeded. Callers register OnRTP/OnRTCP on the returned
// channel to consume media.
func (cl *Client) TrackChannel(i int) rtpchannel.Channel {
	if i < 0 || i >= len(cl.tracks) {
		return nil
	}
	return cl.tracks[i].channel
}

// TrackStartSequence returns the RTP sequence number PLAY's RTP-Info
// header reported for track i's first packet, or nil if the server
// didn't report one (spec.md §4.4 item 5).
func (cl *Client) TrackStartSequence(i int) *uint16 {
	if i < 0 || i >= len(cl.tracks) {
		return nil
	}
	return cl.tracks[i].startSeq
}
