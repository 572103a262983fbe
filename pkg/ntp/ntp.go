// Package ntp computes the 64-bit NTP timestamp used to seed SDP origin
// line fields (spec.md §4.5.1): sessionId from the seconds half,
// sessionVersion from the fraction half.
package ntp

import "time"

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpEpochOffset = 2208988800

// Now returns the seconds-since-1900 and fractional-second halves of the
// current time, encoded as NTP would: the upper 32 bits of a 64-bit
// timestamp and the lower 32 bits respectively.
func Now() (seconds uint32, fraction uint32) {
	return Encode(time.Now())
}

// Encode splits t into its NTP seconds/fraction halves.
func Encode(t time.Time) (seconds uint32, fraction uint32) {
	sec := t.Unix() + ntpEpochOffset
	nsec := t.Nanosecond()

	seconds = uint32(sec)
	fraction = uint32((uint64(nsec) << 32) / 1e9)
	return seconds, fraction
}

// Decode reconstructs a time.Time from NTP seconds/fraction halves.
func Decode(seconds uint32, fraction uint32) time.Time {
	sec := int64(seconds) - ntpEpochOffset
	nsec := (uint64(fraction) * 1e9) >> 32
	return time.Unix(sec, int64(nsec))
}
