// Package headers parses and encodes the RTSP headers the core needs to
// read or rewrite: Transport, Session, RTP-Info, Range, and the
// Authenticate/Authorization pair (spec.md §4.1).
package headers

import "strings"

// splitRespectingQuotes splits s on every unquoted occurrence of separator.
func splitRespectingQuotes(s string, separator byte) []string {
	var tokens []string
	start := 0
	inQuotes := false

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case separator:
			if !inQuotes {
				tokens = append(tokens, s[start:i])
				start = i + 1
			}
		}
	}
	tokens = append(tokens, s[start:])
	return tokens
}

// keyValParse tokenizes a separator-delimited grammar of bare keys
// ("unicast", "RTP/AVP") and key=value pairs ("client_port=a-b"), as used
// by Transport (';') and Authenticate (','). Unknown keys are preserved so
// callers can stay total over unrecognized tokens (spec.md §8: "never
// rejects a message that contains unknown tokens").
//
// The return value preserves encounter order so a caller that needs it
// (the Transport protocol token, which must come first) can still recover
// it via order, while most callers only care about presence/value.
func keyValParse(s string, separator byte) (map[string]string, []string, error) {
	ret := make(map[string]string)
	var order []string

	for _, tok := range splitRespectingQuotes(s, separator) {
		tok = strings.TrimLeft(tok, " ")
		if tok == "" {
			continue
		}

		if i := strings.IndexByte(tok, '='); i >= 0 {
			k, v := tok[:i], tok[i+1:]
			v = strings.Trim(v, `"`)
			ret[k] = v
			order = append(order, k)
		} else {
			ret[tok] = ""
			order = append(order, tok)
		}
	}

	return ret, order, nil
}
