package eml

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// MIME encoded-word tokens per RFC 2047: =?charset?B|Q?payload?=
var (
	mimeWordRe     = regexp.MustCompile(`=\?([^?]+)\?([bBqQ])\?([^?]*)\?=`)
	mimeWordGlueRe = regexp.MustCompile(`\?=[ \t]+=\?`)
)

// decodeMIMEWords replaces every encoded-word token in s with its decoded
// text. The declared charset is accepted syntactically but the payload is
// always interpreted as UTF-8. Decoding is best-effort: a token that fails to
// decode is left in place unchanged.
func decodeMIMEWords(s string, warn warnFn) string {
	if !strings.Contains(s, "=?") {
		return s
	}

	// Whitespace between adjacent encoded words is not significant.
	s = mimeWordGlueRe.ReplaceAllString(s, "?==?")

	return mimeWordRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := mimeWordRe.FindStringSubmatch(match)
		payload := sub[3]
		switch sub[2] {
		case "B", "b":
			decoded, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				warn("mime-word", "bad base64 encoded word: "+err.Error())
				return match
			}
			return string(decoded)
		case "Q", "q":
			// Underscores encode spaces in Q words. The =XX escapes must be
			// expanded at the byte level because multi-byte UTF-8 characters
			// are split across consecutive escapes.
			return string(expandHexEscapes(strings.ReplaceAll(payload, "_", " ")))
		}
		return match
	})
}

// expandHexEscapes turns =XX hex escapes into raw bytes, leaving everything
// else untouched. Malformed escapes (non-hex digits, truncated input) pass
// through as literal characters. Shared by the Q-word decoder and the
// quoted-printable transfer decoder so header text and binary bodies expand
// escapes identically.
func expandHexEscapes(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '=' && i+2 < len(s) {
			hi, okHi := hexValue(s[i+1])
			lo, okLo := hexValue(s[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
