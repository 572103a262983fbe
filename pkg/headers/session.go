package headers

import (
	"strconv"

	"github.com/bluenviron/rtspsession/pkg/base"
)

// DefaultTimeoutSeconds is the session timeout assumed when a Session
// header omits ";timeout=" (spec.md §3, §4.1).
const DefaultTimeoutSeconds = 60

// Session is a parsed Session header: id and negotiated timeout.
type Session struct {
	Session string
	Timeout uint
}

// Read decodes a Session header value.
func (h *Session) Read(v base.HeaderValue) error {
	if len(v) == 0 {
		return errValueNotProvided
	}
	if len(v) > 1 {
		return errValueRepeated
	}

	kvs, order, err := keyValParse(v[0], ';')
	if err != nil {
		return err
	}

	h.Timeout = DefaultTimeoutSeconds
	if len(order) == 0 {
		return errEmptyValue
	}
	h.Session = order[0]

	if raw, ok := kvs["timeout"]; ok {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		h.Timeout = uint(n)
	}

	return nil
}

// Write encodes a Session header value.
func (h Session) Write() base.HeaderValue {
	s := h.Session
	if h.Timeout != DefaultTimeoutSeconds {
		s += ";timeout=" + strconv.FormatUint(uint64(h.Timeout), 10)
	}
	return base.HeaderValue{s}
}
