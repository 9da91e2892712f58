package eml

import "strings"

// splitHeaderBody locates the first blank line separating the header block
// from the body. Both CRLF and bare LF line endings are tolerated. When no
// separator exists the document has no usable header block; callers treat
// that as a soft failure, not an error.
func splitHeaderBody(raw string) (head, body string, ok bool) {
	if idx := strings.Index(raw, "\r\n\r\n"); idx >= 0 {
		// A bare-LF separator earlier in the document still wins.
		if lf := strings.Index(raw[:idx], "\n\n"); lf >= 0 {
			return raw[:lf], raw[lf+2:], true
		}
		return raw[:idx], raw[idx+4:], true
	}
	if idx := strings.Index(raw, "\n\n"); idx >= 0 {
		return raw[:idx], raw[idx+2:], true
	}
	return "", "", false
}

// parseHeaders unfolds a header block into a lower-cased key to value map.
// Continuation lines (leading horizontal whitespace) are joined to the
// previous logical line with a single space. Values are passed through the
// MIME-word decoder. When a key repeats, the last occurrence wins.
func parseHeaders(block string, warn warnFn) map[string]string {
	headers := make(map[string]string)
	if block == "" {
		return headers
	}

	lines := strings.Split(block, "\n")
	logical := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += " " + strings.TrimLeft(line, " \t")
			continue
		}
		logical = append(logical, line)
	}

	for _, line := range logical {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		headers[key] = decodeMIMEWords(strings.TrimSpace(value), warn)
	}
	return headers
}
