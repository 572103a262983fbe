package ntp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := time.Date(2026, 7, 29, 12, 0, 0, 500_000_000, time.UTC)
	sec, frac := Encode(in)
	out := Decode(sec, frac)
	require.WithinDuration(t, in, out, time.Millisecond)
}

func TestEncodeKnownEpoch(t *testing.T) {
	sec, frac := Encode(time.Unix(0, 0).UTC())
	require.EqualValues(t, ntpEpochOffset, sec)
	require.EqualValues(t, 0, frac)
}
