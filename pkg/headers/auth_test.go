package headers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspsession/pkg/base"
)

func TestAuthorizationRoundTrip(t *testing.T) {
	h := Authorization{User: "admin", Pass: "secret"}
	encoded := h.Write()

	var decoded Authorization
	err := decoded.Read(encoded)
	require.NoError(t, err)
	require.Equal(t, h, decoded)
}

func TestAuthenticateRealm(t *testing.T) {
	var h Authenticate
	err := h.Read(base.HeaderValue{`Basic realm="camera"`})
	require.NoError(t, err)
	require.Equal(t, "camera", h.Realm)
}

func TestAuthorizationRejectsDigest(t *testing.T) {
	var h Authorization
	err := h.Read(base.HeaderValue{`Digest username="x"`})
	require.Error(t, err)
}
