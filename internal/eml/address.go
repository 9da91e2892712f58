package eml

import (
	"regexp"
	"strings"
)

// Name part is either quoted or bare; the address part is mandatory and
// enclosed in angle brackets.
var mailboxRe = regexp.MustCompile(`^\s*(?:"([^"]*)"|([^<]*?))\s*<([^>]+)>\s*$`)

// parseAddressList splits a header value into mailboxes and parses each one.
// Commas separate mailboxes only outside double quotes and outside angle
// brackets, so display names like "Doe, John" and route addresses survive
// intact. Segments that match neither `Name <addr>` nor a quoted-name form
// are taken as bare addresses with an empty display name.
func parseAddressList(value string) []Address {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	var (
		segments []string
		start    int
		inQuote  bool
		inAngle  bool
	)
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '"':
			if i > 0 && value[i-1] == '\\' {
				continue
			}
			inQuote = !inQuote
		case '<':
			if !inQuote {
				inAngle = true
			}
		case '>':
			if !inQuote {
				inAngle = false
			}
		case ',':
			if !inQuote && !inAngle {
				segments = append(segments, value[start:i])
				start = i + 1
			}
		}
	}
	segments = append(segments, value[start:])

	addrs := make([]Address, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if m := mailboxRe.FindStringSubmatch(seg); m != nil {
			name := m[1]
			if name == "" {
				name = strings.TrimSpace(m[2])
				// Names with escaped quotes fall through to the bare branch
				// still wearing their outer quotes.
				if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
					name = name[1 : len(name)-1]
				}
			}
			addrs = append(addrs, Address{
				Name: strings.ReplaceAll(name, `\"`, `"`),
				Addr: strings.TrimSpace(m[3]),
			})
			continue
		}
		addrs = append(addrs, Address{Addr: seg})
	}
	if len(addrs) == 0 {
		return nil
	}
	return addrs
}
