package headers

import (
	"fmt"
	"strings"

	"github.com/bluenviron/rtspsession/pkg/base"
)

// Range is a parsed Range header, restricted to the NPT (Normal Play Time)
// unit named by spec.md §4.1 — "npt=start-[end]", start defaulting to "0".
type Range struct {
	// Start is the NPT start value, e.g. "0" or "12.5".
	Start string
	// End is the NPT end value, empty if open-ended.
	End string
}

// Read decodes a Range header value.
func (h *Range) Read(v base.HeaderValue) error {
	if len(v) == 0 {
		return errValueNotProvided
	}
	if len(v) > 1 {
		return errValueRepeated
	}

	v0 := v[0]
	if !strings.HasPrefix(v0, "npt=") {
		return fmt.Errorf("unsupported range unit (%v)", v0)
	}
	v0 = v0[len("npt="):]

	i := strings.IndexByte(v0, '-')
	if i < 0 {
		return fmt.Errorf("invalid npt range (%v)", v0)
	}

	h.Start = v0[:i]
	if h.Start == "" {
		// spec.md §9 open question: some servers reject a bare "npt=-" on
		// the first PLAY; default the empty cursor to "0" instead.
		h.Start = "0"
	}
	h.End = v0[i+1:]

	return nil
}

// Write encodes a Range header value.
func (h Range) Write() base.HeaderValue {
	start := h.Start
	if start == "" {
		start = "0"
	}
	return base.HeaderValue{"npt=" + start + "-" + h.End}
}
