package headers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/rtspsession/pkg/base"
)

func TestRangeReadOpenEnded(t *testing.T) {
	var h Range
	err := h.Read(base.HeaderValue{"npt=0-"})
	require.NoError(t, err)
	require.Equal(t, "0", h.Start)
	require.Equal(t, "", h.End)
}

func TestRangeReadEmptyStartDefaultsToZero(t *testing.T) {
	var h Range
	err := h.Read(base.HeaderValue{"npt=-"})
	require.NoError(t, err)
	require.Equal(t, "0", h.Start)
}

func TestRangeWriteEmptyCursorUsesZero(t *testing.T) {
	h := Range{}
	require.Equal(t, base.HeaderValue{"npt=0-"}, h.Write())
}

func TestRangeReadBounded(t *testing.T) {
	var h Range
	err := h.Read(base.HeaderValue{"npt=12.5-20"})
	require.NoError(t, err)
	require.Equal(t, "12.5", h.Start)
	require.Equal(t, "20", h.End)
}
