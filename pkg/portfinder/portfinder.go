// Package portfinder locates a bindable even/odd UDP port pair for a
// track's RTP/RTCP sockets (spec.md §6, §8). Unlike the teacher's
// randomized search, the contract here is a deterministic sequential
// scan starting from a configured floor, so load-test runs and server
// deployments get reproducible port assignments across restarts.
package portfinder

import (
	"fmt"
	"net"
)

// DefaultSearchStart is the first even port tried when no floor is given.
const DefaultSearchStart = 15000

// MaxAttempts bounds the scan so a saturated port range fails fast
// instead of looping indefinitely.
const MaxAttempts = 2000

// Pair is a bound, ready-to-use RTP/RTCP UDP socket pair: rtp on an even
// port, rtcp on the next odd port.
type Pair struct {
	RTPPort  int
	RTCPPort int
	RTP      *net.UDPConn
	RTCP     *net.UDPConn
}

// Close releases both sockets.
func (p *Pair) Close() {
	if p.RTP != nil {
		p.RTP.Close()
	}
	if p.RTCP != nil {
		p.RTCP.Close()
	}
}

// FindPair scans sequentially from searchStart (rounded up to the next
// even number) for the first even port whose odd successor is also free,
// binding both as UDP sockets on listenIP.
func FindPair(listenIP string, searchStart int) (*Pair, error) {
	if searchStart <= 0 {
		searchStart = DefaultSearchStart
	}
	if searchStart%2 != 0 {
		searchStart++
	}

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		rtpPort := searchStart + attempt*2

		rtpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(listenIP), Port: rtpPort})
		if err != nil {
			continue
		}

		rtcpPort := rtpPort + 1
		rtcpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(listenIP), Port: rtcpPort})
		if err != nil {
			rtpConn.Close()
			continue
		}

		return &Pair{RTPPort: rtpPort, RTCPPort: rtcpPort, RTP: rtpConn, RTCP: rtcpConn}, nil
	}

	return nil, fmt.Errorf("no free UDP port pair found starting at %d after %d attempts", searchStart, MaxAttempts)
}
