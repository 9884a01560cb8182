package pure_utils

import (
	"encoding/base64"
	"unicode/utf8"
)

// DecodeIfBase64Quoted undoes the framing used by some courier endpoints, which send the
// whole body as one quoted base64 string. Anything that does not decode cleanly is
// returned untouched: the body is then assumed to be plain text already.
func DecodeIfBase64Quoted(body string) string {
	if len(body) < 2 || body[0] != '"' || body[len(body)-1] != '"' {
		return body
	}

	inner := body[1 : len(body)-1]
	decoded, err := base64.StdEncoding.DecodeString(inner)
	if err != nil || !utf8.Valid(decoded) {
		return body
	}
	return string(decoded)
}
