package pipeline

import (
	"encoding/base64"
	"strings"
	"unicode"
	"unicode/utf8"
)

// InputFormat is how the request carries its content.
type InputFormat string

const (
	InputString InputFormat = "string"
	InputBase64 InputFormat = "base64"
)

// Decode turns request content into text. Base64 input may be wrapped; any
// whitespace is ignored before decoding.
func Decode(content string, format InputFormat) (string, error) {
	switch format {
	case "", InputString:
		return content, nil
	case InputBase64:
		compact := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, content)
		raw, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return "", Decodef("invalid base64 content: %v", err)
		}
		if !utf8.Valid(raw) {
			return "", Decodef("base64 content does not decode to UTF-8 text")
		}
		return string(raw), nil
	default:
		return "", Invalidf("invalid input format %q, must be one of: string, base64", format)
	}
}

// Encode is the inverse of Decode for the given format.
func Encode(text string, format InputFormat) string {
	if format == InputBase64 {
		return base64.StdEncoding.EncodeToString([]byte(text))
	}
	return text
}
