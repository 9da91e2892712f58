package eml

import (
	"encoding/base64"
	"strings"
)

// decodeTextBody decodes a body segment destined for a text field. Failures
// are tolerated by returning the original segment unchanged.
func decodeTextBody(body, encoding string, warn warnFn) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(body))
		if err != nil {
			warn("transfer-decode", "bad base64 text body: "+err.Error())
			return body
		}
		return string(decoded)
	case "quoted-printable":
		return string(decodeQuotedPrintable(body))
	default:
		// 7bit, 8bit, binary and anything unrecognized pass through.
		return body
	}
}

// decodeBinaryBody decodes a body segment destined for attachment bytes.
// The quoted-printable path shares expandHexEscapes with the text path and
// the Q-word decoder; only the final interpretation differs, which keeps
// binary attachments from corrupting.
func decodeBinaryBody(body, encoding string, warn warnFn) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(body))
		if err != nil {
			warn("transfer-decode", "bad base64 attachment body: "+err.Error())
			return []byte(body)
		}
		return decoded
	case "quoted-printable":
		return decodeQuotedPrintable(body)
	default:
		return []byte(body)
	}
}

// decodeQuotedPrintable removes soft line breaks (`=` at end of line) and
// expands =XX escapes into raw bytes.
func decodeQuotedPrintable(s string) []byte {
	s = strings.ReplaceAll(s, "=\r\n", "")
	s = strings.ReplaceAll(s, "=\n", "")
	return expandHexEscapes(s)
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
