package notification

import (
	"encoding/json"
	"errors"
)

// ErrMalformedPayload marks a payload no retry can fix
var ErrMalformedPayload = errors.New("malformed notification payload")

// IsMalformed reports whether err wraps ErrMalformedPayload or a JSON decoding error
func IsMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, ErrMalformedPayload) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
