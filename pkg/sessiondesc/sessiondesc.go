// Package sessiondesc wraps pion/sdp/v3's SessionDescription with the
// subset of operations the RTSP session engine needs: reading each media
// section's control attribute and protocol token (spec.md §4.1 DESCRIBE),
// and rewriting the origin line / session name before a server answers
// DESCRIBE (spec.md §4.5.1).
package sessiondesc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/bluenviron/rtspsession/pkg/ntp"
)

// SessionDescription is a thin wrapper restricting pion/sdp/v3 to the
// fields the session engine actually reads or rewrites.
type SessionDescription struct {
	sd *sdp.SessionDescription
}

// Unmarshal parses raw SDP bytes.
func Unmarshal(raw []byte) (*SessionDescription, error) {
	var sd sdp.SessionDescription
	if err := sd.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("invalid SDP: %w", err)
	}
	return &SessionDescription{sd: &sd}, nil
}

// New creates an empty session description, used by the server session
// handler to build a DESCRIBE reply from scratch.
func New() *SessionDescription {
	return &SessionDescription{sd: &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName: "-",
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}}
}

// Marshal renders the SDP back to bytes.
func (s *SessionDescription) Marshal() ([]byte, error) {
	return s.sd.Marshal()
}

// MediaCount returns the number of media sections (tracks).
func (s *SessionDescription) MediaCount() int {
	return len(s.sd.MediaDescriptions)
}

// MediaControlURL returns the value of the `a=control:` attribute for
// media section i, or "" if absent (spec.md §4.1: per-track SETUP target).
func (s *SessionDescription) MediaControlURL(i int) string {
	if i < 0 || i >= len(s.sd.MediaDescriptions) {
		return ""
	}
	for _, a := range s.sd.MediaDescriptions[i].Attributes {
		if a.Key == "control" {
			return a.Value
		}
	}
	return ""
}

// MediaProtocol returns the transport protocol token of media section i
// (e.g. "RTP/AVP").
func (s *SessionDescription) MediaProtocol(i int) string {
	if i < 0 || i >= len(s.sd.MediaDescriptions) {
		return ""
	}
	return strings.Join(s.sd.MediaDescriptions[i].MediaName.Protos, "/")
}

// ResolveControlURL joins a media section's control attribute against a
// base URL (the request URL used for DESCRIBE), following RFC 2326
// §C.1.1's aggregate-vs-absolute-URL rule: a control value starting with a
// scheme is already absolute, otherwise it is appended below the base path.
func ResolveControlURL(base string, control string) (string, error) {
	if control == "" || control == "*" {
		return base, nil
	}

	if strings.Contains(control, "://") {
		return control, nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	rel, err := url.Parse(control)
	if err != nil {
		return "", fmt.Errorf("invalid control attribute: %w", err)
	}
	return baseURL.ResolveReference(rel).String(), nil
}

// RewriteOrigin overwrites the origin line's session id / session version
// with values derived from the current NTP timestamp and sets the
// unicast address to localIP, per spec.md §4.5.1. This is the fix the
// server session handler applies before answering a DESCRIBE so that
// each generation of the description carries a monotonically-informative
// identity even when upstream media hasn't changed its own SDP.
func (s *SessionDescription) RewriteOrigin(localIP string) {
	seconds, fraction := ntp.Now()
	s.sd.Origin.SessionID = uint64(seconds)
	s.sd.Origin.SessionVersion = uint64(fraction)
	s.sd.Origin.UnicastAddress = localIP
	s.sd.Origin.NetworkType = "IN"
	s.sd.Origin.AddressType = "IP4"
}

// SetSessionName sets the s= session name line.
func (s *SessionDescription) SetSessionName(name string) {
	s.sd.SessionName = sdp.SessionName(name)
}

// AddMedia appends a media section for one track with the given payload
// type and control attribute, used by cmd/rtspserver to build the
// description it serves in DESCRIBE replies.
func (s *SessionDescription) AddMedia(mediaType string, payloadType int, control string) {
	md := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   mediaType,
			Port:    sdp.RangedPort{Value: 0},
			Protos:  []string{"RTP", "AVP"},
			Formats: []string{strconv.Itoa(payloadType)},
		},
		Attributes: []sdp.Attribute{
			{Key: "control", Value: control},
		},
	}
	s.sd.MediaDescriptions = append(s.sd.MediaDescriptions, md)
}
