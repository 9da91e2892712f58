// Package htmlconv converts untrusted email HTML fragments into Markdown or
// plain text. Both converters are pure functions built on a streaming
// tokenizer rather than chained regex substitutions, so pathological nested
// markup degrades instead of interfering across passes. Every link and image
// target is routed through the URL allow-list.
package htmlconv

import "strings"

// allowedSchemes is the URL allow-list. Everything else — javascript:,
// data:, file:, vbscript: — is rejected outright.
var allowedSchemes = []string{"http://", "https://", "mailto:", "cid:"}

// SanitizeURL returns the trimmed URL when its scheme is on the allow-list,
// and an empty string otherwise. Callers use the empty result to drop the
// link or image while keeping its visible text.
func SanitizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	lower := strings.ToLower(u)
	for _, scheme := range allowedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return u
		}
	}
	return ""
}
