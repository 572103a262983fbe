package headers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspsession/pkg/base"
)

func TestSessionReadDefaultTimeout(t *testing.T) {
	var h Session
	err := h.Read(base.HeaderValue{"12345678"})
	require.NoError(t, err)
	require.Equal(t, "12345678", h.Session)
	require.EqualValues(t, DefaultTimeoutSeconds, h.Timeout)
}

func TestSessionReadExplicitTimeout(t *testing.T) {
	var h Session
	err := h.Read(base.HeaderValue{"12345678;timeout=60"})
	require.NoError(t, err)
	require.Equal(t, "12345678", h.Session)
	require.EqualValues(t, 60, h.Timeout)
}

func TestSessionWrite(t *testing.T) {
	h := Session{Session: "abc", Timeout: 30}
	require.Equal(t, base.HeaderValue{"abc;timeout=30"}, h.Write())

	h2 := Session{Session: "abc", Timeout: DefaultTimeoutSeconds}
	require.Equal(t, base.HeaderValue{"abc"}, h2.Write())
}
