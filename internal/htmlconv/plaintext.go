package htmlconv

import (
	"strings"

	"golang.org/x/net/html"
)

// ToPlainText converts an HTML fragment to readable plain text: tags are
// dropped, block-level elements become line breaks, list items get a dash,
// and safe link targets are kept after their text. Entities are decoded by
// the tokenizer.
func ToPlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var (
		out        strings.Builder
		anchorText strings.Builder
		anchorHref string
		anchorOpen bool
		skip       string
	)

	writeText := func(data string) {
		collapsed := wsRun.ReplaceAllString(data, " ")
		current := out.String()
		if current == "" || strings.HasSuffix(current, "\n") || strings.HasSuffix(current, " ") {
			collapsed = strings.TrimLeft(collapsed, " ")
		}
		out.WriteString(collapsed)
	}
	ensureLine := func() {
		if s := out.String(); s != "" && !strings.HasSuffix(s, "\n") {
			out.WriteString("\n")
		}
	}
	ensureBlank := func() {
		s := out.String()
		if s == "" || strings.HasSuffix(s, "\n\n") {
			return
		}
		if strings.HasSuffix(s, "\n") {
			out.WriteString("\n")
		} else {
			out.WriteString("\n\n")
		}
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.TextToken:
			if skip != "" {
				continue
			}
			if anchorOpen {
				anchorText.WriteString(tok.Data)
			} else {
				writeText(tok.Data)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			if skip != "" {
				continue
			}
			switch tok.Data {
			case "script", "style", "head", "title":
				skip = tok.Data
			case "a":
				anchorOpen = true
				anchorHref = SanitizeURL(attr(tok, "href"))
				anchorText.Reset()
			case "img":
				if alt := attr(tok, "alt"); alt != "" {
					writeText(alt)
				}
			case "br", "tr":
				out.WriteString("\n")
			case "li":
				ensureLine()
				out.WriteString("- ")
			case "p", "div", "table", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "pre":
				ensureBlank()
			}
		case html.EndTagToken:
			if skip != "" {
				if tok.Data == skip {
					skip = ""
				}
				continue
			}
			switch tok.Data {
			case "a":
				text := strings.TrimSpace(wsRun.ReplaceAllString(anchorText.String(), " "))
				writeText(text)
				if anchorHref != "" && text != "" && text != anchorHref {
					out.WriteString(" (" + anchorHref + ")")
				} else if anchorHref != "" && text == "" {
					writeText(anchorHref)
				}
				anchorOpen = false
				anchorHref = ""
			case "li":
				ensureLine()
			case "p", "div", "table", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "pre":
				ensureBlank()
			}
		}
	}

	result := trailingWS.ReplaceAllString(out.String(), "\n")
	result = excessBlanks.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
