package eml

import (
	"strings"
	"time"
)

// Address is a single mailbox from an address-list header.
type Address struct {
	Name string // display name, may be empty
	Addr string // the address itself
}

// String formats the address as "Name <addr>" or just the bare address.
func (a Address) String() string {
	if a.Name == "" {
		return a.Addr
	}
	return a.Name + " <" + a.Addr + ">"
}

// Attachment is a non-body MIME part extracted during the tree walk.
// Content holds the transfer-decoded bytes. ContentID, when present, has the
// surrounding angle brackets stripped so it can be matched against cid: URLs.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	ContentID   string
}

// Email is the structured result of parsing a raw RFC5322 document.
// It is populated once by Parse and never mutated afterwards.
//
// TextBody and HTMLBody each hold at most one value: the first text/plain
// (resp. text/html) part encountered in a depth-first walk wins, later parts
// of the same type are ignored. Attachments appear in encounter order.
type Email struct {
	From        []Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	Subject     string
	Date        time.Time // zero when the Date header is absent or unparseable
	MessageID   string    // angle brackets stripped
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Warning describes a non-fatal decode anomaly encountered during parsing.
// Parsing never fails on malformed input; anomalies are surfaced through the
// optional warning handler so the caller can log them.
type Warning struct {
	Context string // which component noticed the problem
	Message string
}

func (w Warning) String() string {
	return w.Context + ": " + w.Message
}

// stripAngle removes a single pair of surrounding angle brackets, as used by
// Message-ID and Content-ID header values.
func stripAngle(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") && len(s) >= 2 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
