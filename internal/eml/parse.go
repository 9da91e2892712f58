// Package eml parses RFC5322/MIME email documents into a structured,
// read-only representation. The parser never fails on malformed input; it
// degrades to empty fields and reports decode anomalies through an optional
// warning handler. The single structural error is exceeding the multipart
// nesting depth limit.
package eml

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DefaultMaxDepth is the multipart nesting depth allowed before Parse gives
// up on a document as adversarial.
const DefaultMaxDepth = 10

// ErrMaxDepthExceeded is returned by Parse when a document nests multipart
// bodies deeper than the configured maximum.
var ErrMaxDepthExceeded = errors.New("eml: multipart nesting exceeds maximum depth")

type warnFn func(context, message string)

type parser struct {
	maxDepth int
	handler  func(Warning)

	email    *Email
	haveText bool
	haveHTML bool
}

// Option configures a single Parse call.
type Option func(*parser)

// WithMaxDepth overrides the multipart nesting depth limit. Values below 1
// are ignored.
func WithMaxDepth(n int) Option {
	return func(p *parser) {
		if n >= 1 {
			p.maxDepth = n
		}
	}
}

// WithWarningHandler installs a callback invoked for every non-fatal decode
// anomaly. The default discards warnings.
func WithWarningHandler(fn func(Warning)) Option {
	return func(p *parser) {
		if fn != nil {
			p.handler = fn
		}
	}
}

func (p *parser) warn(context, message string) {
	p.handler(Warning{Context: context, Message: message})
}

// Parse turns a raw email document into an Email. A document without a
// header/body separator yields an all-default Email, not an error; the only
// possible error is ErrMaxDepthExceeded.
func Parse(raw string, opts ...Option) (*Email, error) {
	p := &parser{
		maxDepth: DefaultMaxDepth,
		handler:  func(Warning) {},
		email:    &Email{},
	}
	for _, opt := range opts {
		opt(p)
	}

	head, body, ok := splitHeaderBody(raw)
	if !ok {
		p.warn("parse", "no header/body separator found")
		return p.email, nil
	}

	headers := parseHeaders(head, p.warn)
	email := p.email
	email.From = parseAddressList(headers["from"])
	email.To = parseAddressList(headers["to"])
	email.Cc = parseAddressList(headers["cc"])
	email.Bcc = parseAddressList(headers["bcc"])
	email.Subject = headers["subject"]
	email.MessageID = stripAngle(headers["message-id"])
	email.Date = p.parseDate(headers["date"])

	info := inspectContent(headers, p.warn)
	switch {
	case strings.HasPrefix(info.Type, "multipart/"):
		if err := p.walkMultipart(body, info.Boundary, 0); err != nil {
			return email, err
		}
	case info.Type == "text/plain":
		email.TextBody = decodeTextBody(body, info.TransferEncoding, p.warn)
		p.haveText = true
	case info.Type == "text/html":
		email.HTMLBody = decodeTextBody(body, info.TransferEncoding, p.warn)
		p.haveHTML = true
	default:
		p.warn("parse", "dropping non-text top-level "+info.Type+" body")
	}

	return email, nil
}

// parseDate tries the RFC 5322 date format first and falls back to lenient
// parsing for the many malformed Date headers found in the wild. Failure
// yields the zero time, never an error.
func (p *parser) parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t
	}
	if t, err := dateparse.ParseAny(value); err == nil {
		return t
	}
	p.warn("parse", "unparseable Date header: "+value)
	return time.Time{}
}
