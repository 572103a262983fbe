package headers

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bluenviron/rtspsession/pkg/base"
)

// Authenticate is a WWW-Authenticate header, restricted to Basic per
// spec.md §4.1/§6 ("at minimum HTTP Basic").
type Authenticate struct {
	Realm string
}

// Read decodes a WWW-Authenticate header value.
func (h *Authenticate) Read(v base.HeaderValue) error {
	if len(v) == 0 {
		return errValueNotProvided
	}
	if len(v) > 1 {
		return errValueRepeated
	}

	v0 := v[0]
	if !strings.HasPrefix(v0, "Basic ") {
		return fmt.Errorf("unsupported authentication method (%v)", v0)
	}

	kvs, _, err := keyValParse(v0[len("Basic "):], ',')
	if err != nil {
		return err
	}
	h.Realm = strings.Trim(kvs["realm"], `"`)

	return nil
}

// Write encodes a WWW-Authenticate header value.
func (h Authenticate) Write() base.HeaderValue {
	return base.HeaderValue{fmt.Sprintf(`Basic realm="%s"`, h.Realm)}
}

// Authorization is an Authorization header carrying HTTP Basic
// credentials (spec.md §4.1, §6).
type Authorization struct {
	User string
	Pass string
}

// Read decodes an Authorization header value.
func (h *Authorization) Read(v base.HeaderValue) error {
	if len(v) == 0 {
		return errValueNotProvided
	}
	if len(v) > 1 {
		return errValueRepeated
	}

	v0 := v[0]
	if !strings.HasPrefix(v0, "Basic ") {
		return fmt.Errorf("unsupported authorization method (%v)", v0)
	}

	raw, err := base64.StdEncoding.DecodeString(v0[len("Basic "):])
	if err != nil {
		return fmt.Errorf("invalid base64 (%w)", err)
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid basic credentials")
	}
	h.User, h.Pass = parts[0], parts[1]

	return nil
}

// Write encodes an Authorization header value.
func (h Authorization) Write() base.HeaderValue {
	enc := base64.StdEncoding.EncodeToString([]byte(h.User + ":" + h.Pass))
	return base.HeaderValue{"Basic " + enc}
}
