package base

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// URL is a RTSP URL: basically an HTTP URL with a couple of RTSP-only
// conveniences for resolving a per-media "control" attribute against a
// session-level base URL (spec.md §6 URI schemes).
type URL url.URL

// credentialsRegexp pulls user:pass@ out of a raw URL before handing the
// rest to net/url, the same escape net/url itself can't apply generically
// (see https://github.com/golang/go/issues/30611).
var credentialsRegexp = regexp.MustCompile(`^(.+?)://(.*?)@(.*?)/(.*?)$`)

// ParseURL parses a rtsp:// or rtspu:// URL.
func ParseURL(s string) (*URL, error) {
	var rawUser string
	if m := credentialsRegexp.FindStringSubmatch(s); m != nil {
		rawUser = m[2]
		s = m[1] + "://" + m[3] + "/" + m[4]
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "rtsp" && u.Scheme != "rtspu" {
		return nil, fmt.Errorf("invalid scheme '%s'", u.Scheme)
	}

	if rawUser != "" {
		parts := strings.SplitN(rawUser, ":", 2)
		if len(parts) == 2 {
			u.User = url.UserPassword(parts[0], parts[1])
		} else {
			u.User = url.User(parts[0])
		}
	}

	if u.Port() == "" {
		u.Host += ":554"
	}

	return (*URL)(u), nil
}

// String implements fmt.Stringer.
func (u URL) String() string {
	uu := url.URL(u)
	return uu.String()
}

// CloneWithoutCredentials returns a copy of u with user info stripped, the
// form that must appear on the request line (spec.md §6).
func (u URL) CloneWithoutCredentials() *URL {
	uu := url.URL(u)
	uu.User = nil
	return (*URL)(&uu)
}

// RTSPPathAndQuery returns the path (plus query, if any) with the leading
// slash removed, as used to resolve per-media control attributes.
func (u URL) RTSPPathAndQuery() string {
	uu := url.URL(u)
	p := strings.TrimPrefix(uu.RequestURI(), "/")
	return p
}

// Clone returns a deep-enough copy of u.
func (u URL) Clone() *URL {
	uu := url.URL(u)
	return (*URL)(&uu)
}
