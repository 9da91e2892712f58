package eml

import (
	"net/url"
	"strings"
)

// contentInfo is the per-part metadata pulled out of the header map.
type contentInfo struct {
	Type             string // lower-cased MIME type, defaults to text/plain
	Boundary         string
	Charset          string // detected but never used for decoding
	TransferEncoding string // defaults to 7bit
	Disposition      string // lower-cased disposition token, e.g. "attachment"
	Filename         string
	ContentID        string // angle brackets stripped
}

// inspectContent extracts type, boundary, disposition and filename metadata
// from an already-parsed header map. The filename is tried first from
// Content-Disposition's filename/filename* parameter, falling back to
// Content-Type's name parameter.
func inspectContent(headers map[string]string, warn warnFn) contentInfo {
	info := contentInfo{
		Type:             "text/plain",
		TransferEncoding: "7bit",
	}

	if ct, ok := headers["content-type"]; ok {
		mimeType, _, _ := strings.Cut(ct, ";")
		if t := strings.ToLower(strings.TrimSpace(mimeType)); t != "" {
			info.Type = t
		}
		info.Boundary = headerParam(ct, "boundary", warn)
		info.Charset = strings.ToLower(headerParam(ct, "charset", warn))
	}

	if cte, ok := headers["content-transfer-encoding"]; ok {
		if enc := strings.ToLower(strings.TrimSpace(cte)); enc != "" {
			info.TransferEncoding = enc
		}
	}

	if cd, ok := headers["content-disposition"]; ok {
		token, _, _ := strings.Cut(cd, ";")
		info.Disposition = strings.ToLower(strings.TrimSpace(token))
		info.Filename = decodeMIMEWords(headerParam(cd, "filename", warn), warn)
	}
	if info.Filename == "" {
		info.Filename = decodeMIMEWords(headerParam(headers["content-type"], "name", warn), warn)
	}

	info.ContentID = stripAngle(headers["content-id"])

	return info
}

// headerParam extracts a single parameter value from a structured header
// like Content-Type or Content-Disposition. Both `name=value` and the RFC
// 2231 extended `name*=charset''percent-encoded` forms are recognized; the
// extended form is URL-decoded. Quotes around the value are stripped.
func headerParam(header, name string, warn warnFn) string {
	for _, segment := range strings.Split(header, ";") {
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != name && key != name+"*" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if strings.HasSuffix(key, "*") {
			// charset''payload prefix per RFC 2231; charset is ignored.
			if i := strings.Index(value, "''"); i >= 0 {
				value = value[i+2:]
			}
			if decoded, err := url.PathUnescape(value); err == nil {
				value = decoded
			} else {
				warn("content-type", "bad percent-encoding in "+name+"* parameter")
			}
		}
		return value
	}
	return ""
}
