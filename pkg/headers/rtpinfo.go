package headers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluenviron/rtspsession/pkg/base"
)

// RTPInfoEntry is one per-track entry of a RTP-Info header (spec.md §4.1:
// "comma-list of per-track url=..., seqno=N, rtptime=N").
type RTPInfoEntry struct {
	URL            string
	SequenceNumber *uint16
	Timestamp      *uint32
}

// RTPInfo is a parsed RTP-Info header.
type RTPInfo []*RTPInfoEntry

// Read decodes a RTP-Info header value.
func (h *RTPInfo) Read(v base.HeaderValue) error {
	if len(v) == 0 {
		return errValueNotProvided
	}
	if len(v) > 1 {
		return errValueRepeated
	}

	for _, entryStr := range strings.Split(v[0], ",") {
		entryStr = strings.TrimSpace(entryStr)
		if entryStr == "" {
			continue
		}

		e := &RTPInfoEntry{}
		kvs, order, err := keyValParse(entryStr, ';')
		if err != nil {
			return err
		}

		for _, k := range order {
			val := kvs[k]
			switch k {
			case "url":
				e.URL = val

			case "seq", "seqno":
				n, err := strconv.ParseUint(val, 10, 16)
				if err != nil {
					return err
				}
				v16 := uint16(n)
				e.SequenceNumber = &v16

			case "rtptime":
				n, err := strconv.ParseUint(val, 10, 32)
				if err != nil {
					return err
				}
				v32 := uint32(n)
				e.Timestamp = &v32

			default:
				// unknown token, ignored.
			}
		}

		if e.URL == "" {
			return fmt.Errorf("URL is missing in RTP-Info entry (%v)", entryStr)
		}

		*h = append(*h, e)
	}

	return nil
}

// Write encodes a RTP-Info header value.
func (h RTPInfo) Write() base.HeaderValue {
	entries := make([]string, len(h))

	for i, e := range h {
		parts := []string{"url=" + e.URL}

		if e.SequenceNumber != nil {
			parts = append(parts, "seqno="+strconv.FormatUint(uint64(*e.SequenceNumber), 10))
		}
		if e.Timestamp != nil {
			parts = append(parts, "rtptime="+strconv.FormatUint(uint64(*e.Timestamp), 10))
		}

		entries[i] = strings.Join(parts, ";")
	}

	return base.HeaderValue{strings.Join(entries, ",")}
}
