package headers

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/rtspsession/pkg/base"
)

// TransportProtocol is the lower-layer protocol carrying RTP/RTCP.
type TransportProtocol int

// Transport protocols (spec.md §3 NegotiatedTransport.lower-layer).
const (
	TransportProtocolUDP TransportProtocol = iota
	TransportProtocolTCP
)

// TransportDelivery is the delivery method of a stream.
type TransportDelivery int

// Transport delivery methods.
const (
	TransportDeliveryUnicast TransportDelivery = iota
	TransportDeliveryMulticast
)

// TransportMode distinguishes a PLAY session from a RECORD (publish) one.
type TransportMode int

// Transport modes.
const (
	TransportModePlay TransportMode = iota
	TransportModeRecord
)

// Transport is a parsed Transport header (spec.md §4.1). Unknown tokens
// are ignored but never rejected, per spec.md §8's totality property.
type Transport struct {
	Protocol TransportProtocol
	Delivery *TransportDelivery

	// InterleavedIDs is the RTP/RTCP channel pair for TCP-interleaved mode.
	InterleavedIDs *[2]int

	// ClientPorts/ServerPorts are the UDP RTP/RTCP port pairs.
	ClientPorts *[2]int
	ServerPorts *[2]int

	SSRC *uint32
	Mode *TransportMode

	// TCPFallback is set by Read when the peer signalled a single-valued
	// server_port (or bare interleaved=) with no echoed client_port pair —
	// the codec-level signal spec.md §4.1 asks for so the state machine can
	// react (spec.md §4.4 step 4).
	TCPFallback bool
}

func parsePortPair(v string) (*[2]int, error) {
	parts := strings.Split(v, "-")

	p1, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid port value (%v)", v)
	}

	if len(parts) == 1 {
		return &[2]int{p1, p1 + 1}, nil
	}
	if len(parts) == 2 {
		p2, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid port value (%v)", v)
		}
		return &[2]int{p1, p2}, nil
	}
	return nil, fmt.Errorf("invalid port range (%v)", v)
}

func parseSSRC(v string) (uint32, error) {
	v = strings.TrimSpace(v)

	// decimal is tried first; hexadecimal (the more common on-wire form,
	// e.g. "1A2B3C4D") is attempted when decimal parsing fails, per
	// spec.md §4.4 tie-break.
	if n, err := strconv.ParseUint(v, 10, 32); err == nil {
		return uint32(n), nil
	}

	h := v
	if len(h)%2 != 0 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) > 4 {
		return 0, fmt.Errorf("invalid ssrc (%v)", v)
	}
	var b [4]byte
	copy(b[4-len(raw):], raw)
	return binary.BigEndian.Uint32(b[:]), nil
}

// Read decodes a Transport header value.
func (h *Transport) Read(v base.HeaderValue) error {
	if len(v) == 0 {
		return fmt.Errorf("value not provided")
	}
	if len(v) > 1 {
		return fmt.Errorf("value provided multiple times (%v)", v)
	}

	kvs, order, err := keyValParse(v[0], ';')
	if err != nil {
		return err
	}

	protocolFound := false
	for _, k := range order {
		v := kvs[k]

		switch k {
		case "RTP/AVP", "RTP/AVP/UDP":
			h.Protocol = TransportProtocolUDP
			protocolFound = true

		case "RTP/AVP/TCP":
			h.Protocol = TransportProtocolTCP
			protocolFound = true

		case "unicast":
			d := TransportDeliveryUnicast
			h.Delivery = &d

		case "multicast":
			d := TransportDeliveryMulticast
			h.Delivery = &d

		case "interleaved":
			p, err := parsePortPair(v)
			if err != nil {
				return err
			}
			h.InterleavedIDs = p
			if h.ClientPorts == nil {
				h.TCPFallback = true
			}

		case "client_port":
			p, err := parsePortPair(v)
			if err != nil {
				return err
			}
			h.ClientPorts = p

		case "server_port":
			if !strings.Contains(v, "-") {
				// single-valued server_port with no echoed client_port pair
				// signals TCP fallback (spec.md §4.1).
				if h.ClientPorts == nil {
					h.TCPFallback = true
				}
			}
			p, err := parsePortPair(v)
			if err != nil {
				return err
			}
			h.ServerPorts = p

		case "ssrc":
			ssrc, err := parseSSRC(v)
			if err != nil {
				return err
			}
			h.SSRC = &ssrc

		case "mode":
			switch strings.ToLower(v) {
			case "play":
				m := TransportModePlay
				h.Mode = &m
			case "record", "receive": // "receive" is an old alias used by some encoders
				m := TransportModeRecord
				h.Mode = &m
			default:
				return fmt.Errorf("invalid transport mode: '%s'", v)
			}

		default:
			// unknown token: preserved implicitly (ignored), never rejected.
		}
	}

	if !protocolFound {
		return fmt.Errorf("protocol not found (%v)", v[0])
	}

	return nil
}

// Write encodes a Transport header value.
func (h Transport) Write() base.HeaderValue {
	var parts []string

	if h.Protocol == TransportProtocolUDP {
		parts = append(parts, "RTP/AVP")
	} else {
		parts = append(parts, "RTP/AVP/TCP")
	}

	if h.Delivery != nil {
		if *h.Delivery == TransportDeliveryUnicast {
			parts = append(parts, "unicast")
		} else {
			parts = append(parts, "multicast")
		}
	}

	if h.InterleavedIDs != nil {
		parts = append(parts, fmt.Sprintf("interleaved=%d-%d", h.InterleavedIDs[0], h.InterleavedIDs[1]))
	}

	if h.ClientPorts != nil {
		parts = append(parts, fmt.Sprintf("client_port=%d-%d", h.ClientPorts[0], h.ClientPorts[1]))
	}

	if h.ServerPorts != nil {
		parts = append(parts, fmt.Sprintf("server_port=%d-%d", h.ServerPorts[0], h.ServerPorts[1]))
	}

	if h.SSRC != nil {
		parts = append(parts, "ssrc="+strings.ToUpper(fmt.Sprintf("%08x", *h.SSRC)))
	}

	if h.Mode != nil {
		if *h.Mode == TransportModePlay {
			parts = append(parts, "mode=play")
		} else {
			parts = append(parts, "mode=record")
		}
	}

	return base.HeaderValue{strings.Join(parts, ";")}
}
