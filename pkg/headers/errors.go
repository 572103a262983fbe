package headers

import "errors"

var (
	errValueNotProvided = errors.New("value not provided")
	errValueRepeated    = errors.New("value provided multiple times")
	errEmptyValue       = errors.New("empty header value")
)
