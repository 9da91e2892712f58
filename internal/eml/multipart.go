package eml

import (
	"regexp"
	"strings"
)

// walkMultipart splits body on its boundary marker and dispatches every
// sub-part: nested multiparts recurse, text parts fill the first-wins body
// fields, everything attachment-like is decoded to bytes. The preamble
// before the first boundary is always discarded; the epilogue after the
// closing marker is discarded at the top level.
//
// Boundary matching is literal with regex metacharacters escaped; the only
// structural failure is exceeding the configured nesting depth.
func (p *parser) walkMultipart(body, boundary string, depth int) error {
	if boundary == "" {
		p.warn("multipart", "multipart content without a boundary parameter")
		return nil
	}
	if depth >= p.maxDepth {
		return ErrMaxDepthExceeded
	}

	// Anchored to whole lines so a boundary that prefixes a longer token
	// does not split mid-part.
	marker := regexp.MustCompile(`(?m)^--` + regexp.QuoteMeta(boundary) + `(?:--)?[ \t]*(?:\r?\n|$)`)
	segments := marker.Split(body, -1)
	if len(segments) < 2 {
		p.warn("multipart", "boundary "+boundary+" not found in body")
		return nil
	}

	// Preamble, then at top level the epilogue after the closing marker.
	segments = segments[1:]
	if depth == 0 && strings.Contains(body, "--"+boundary+"--") {
		segments = segments[:len(segments)-1]
	}

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" || segment == "--" {
			continue
		}
		if err := p.parsePart(segment, depth); err != nil {
			return err
		}
	}
	return nil
}

// parsePart handles one boundary-delimited segment: its own header block and
// body, then either recursion or leaf decoding.
func (p *parser) parsePart(part string, depth int) error {
	head, body, ok := splitHeaderBody(part)
	if !ok {
		// Headerless part: the whole segment is the body, type defaults
		// to text/plain.
		body = part
	}
	headers := parseHeaders(head, p.warn)
	info := inspectContent(headers, p.warn)

	if strings.HasPrefix(info.Type, "multipart/") {
		return p.walkMultipart(body, info.Boundary, depth+1)
	}

	p.consumeLeaf(body, info)
	return nil
}

// consumeLeaf classifies a non-multipart part. A part is an attachment iff it
// declares a filename, its disposition is attachment, or its content type is
// neither text/* nor multipart/*. Remaining text parts fill TextBody and
// HTMLBody first-wins; anything else is dropped with a warning.
func (p *parser) consumeLeaf(body string, info contentInfo) {
	isAttachment := info.Filename != "" ||
		info.Disposition == "attachment" ||
		!strings.HasPrefix(info.Type, "text/")

	email := p.email
	switch {
	case isAttachment:
		email.Attachments = append(email.Attachments, Attachment{
			Filename:    info.Filename,
			ContentType: info.Type,
			Content:     decodeBinaryBody(body, info.TransferEncoding, p.warn),
			ContentID:   info.ContentID,
		})
	case info.Type == "text/plain":
		if !p.haveText {
			email.TextBody = decodeTextBody(body, info.TransferEncoding, p.warn)
			p.haveText = true
		}
	case info.Type == "text/html":
		if !p.haveHTML {
			email.HTMLBody = decodeTextBody(body, info.TransferEncoding, p.warn)
			p.haveHTML = true
		}
	default:
		// Unnamed informational text parts (e.g. text/calendar) are dropped.
		p.warn("multipart", "dropping unhandled "+info.Type+" part")
	}
}
