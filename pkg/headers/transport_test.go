package headers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspsession/pkg/base"
)

func TestTransportReadWrite(t *testing.T) {
	unicast := TransportDeliveryUnicast
	play := TransportModePlay
	var ssrc uint32 = 0x1A2B3C4D

	ca := Transport{
		Protocol:    TransportProtocolUDP,
		Delivery:    &unicast,
		ClientPorts: &[2]int{15000, 15001},
		ServerPorts: &[2]int{30000, 30001},
		SSRC:        &ssrc,
		Mode:        &play,
	}

	encoded := ca.Write()

	var decoded Transport
	err := decoded.Read(encoded)
	require.NoError(t, err)
	require.Equal(t, ca.Protocol, decoded.Protocol)
	require.Equal(t, *ca.Delivery, *decoded.Delivery)
	require.Equal(t, *ca.ClientPorts, *decoded.ClientPorts)
	require.Equal(t, *ca.ServerPorts, *decoded.ServerPorts)
	require.Equal(t, *ca.SSRC, *decoded.SSRC)
	require.Equal(t, *ca.Mode, *decoded.Mode)
}

func TestTransportSSRCHex(t *testing.T) {
	var h Transport
	err := h.Read(base.HeaderValue{"RTP/AVP;unicast;ssrc=1A2B3C4D"})
	require.NoError(t, err)
	require.Equal(t, uint32(0x1A2B3C4D), *h.SSRC)
}

func TestTransportSSRCDecimal(t *testing.T) {
	var h Transport
	err := h.Read(base.HeaderValue{"RTP/AVP;unicast;ssrc=12345"})
	require.NoError(t, err)
	require.Equal(t, uint32(12345), *h.SSRC)
}

func TestTransportTCPFallback(t *testing.T) {
	var h Transport
	err := h.Read(base.HeaderValue{"RTP/AVP/TCP;interleaved=0-1"})
	require.NoError(t, err)
	require.True(t, h.TCPFallback)
}

func TestTransportSingleServerPortNoClientPortsIsFallback(t *testing.T) {
	var h Transport
	err := h.Read(base.HeaderValue{"RTP/AVP;unicast;server_port=6970"})
	require.NoError(t, err)
	require.True(t, h.TCPFallback)
	require.Equal(t, [2]int{6970, 6971}, *h.ServerPorts)
}

func TestTransportUnknownTokensNeverRejected(t *testing.T) {
	var h Transport
	err := h.Read(base.HeaderValue{"RTP/AVP;unicast;client_port=15000-15001;totally_unknown=xyz"})
	require.NoError(t, err)
	require.Equal(t, [2]int{15000, 15001}, *h.ClientPorts)
}

func TestTransportMissingProtocol(t *testing.T) {
	var h Transport
	err := h.Read(base.HeaderValue{"unicast;client_port=1-2"})
	require.Error(t, err)
}
