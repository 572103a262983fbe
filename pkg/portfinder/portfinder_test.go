package portfinder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindPairReturnsEvenOddAdjacentPorts(t *testing.T) {
	p, err := FindPair("127.0.0.1", 17000)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, 0, p.RTPPort%2)
	require.Equal(t, p.RTPPort+1, p.RTCPPort)
}

func TestFindPairSkipsOccupiedPort(t *testing.T) {
	first, err := FindPair("127.0.0.1", 17100)
	require.NoError(t, err)
	defer first.Close()

	second, err := FindPair("127.0.0.1", 17100)
	require.NoError(t, err)
	defer second.Close()

	require.NotEqual(t, first.RTPPort, second.RTPPort)
	require.Greater(t, second.RTPPort, first.RTPPort)
}

func TestFindPairDefaultsSearchStart(t *testing.T) {
	p, err := FindPair("127.0.0.1", 0)
	require.NoError(t, err)
	defer p.Close()
	require.GreaterOrEqual(t, p.RTPPort, DefaultSearchStart)
}
