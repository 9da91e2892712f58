package htmlconv

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	wsRun        = regexp.MustCompile(`\s+`)
	trailingWS   = regexp.MustCompile(`[ \t]+\n`)
	excessBlanks = regexp.MustCompile(`\n{3,}`)
)

type frameKind int

const (
	frameRoot frameKind = iota
	frameBlockquote
	framePre
	frameCell
)

type frame struct {
	kind frameKind
	buf  strings.Builder
}

type listState struct {
	ordered bool
	index   int
}

type tableState struct {
	row        []string
	headerDone bool
}

// mdWriter accumulates Markdown output while walking the token stream.
// Blockquotes, pre blocks and table cells buffer their content in a frame
// so it can be reshaped (prefixed, fenced, joined) when the tag closes.
type mdWriter struct {
	frames []*frame
	lists  []listState
	table  *tableState

	skip       string // raw-text element being discarded (script/style)
	pre        bool
	anchorOpen bool
	anchorHref string // empty when the href failed sanitization
}

// ToMarkdown converts an HTML fragment to Markdown. The conversion is
// best-effort by design: common email markup maps onto Markdown equivalents,
// unknown tags are stripped, entities are decoded, and unsafe URLs degrade
// to their visible text.
func ToMarkdown(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	w := &mdWriter{frames: []*frame{{kind: frameRoot}}}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.TextToken:
			w.text(tok.Data)
		case html.StartTagToken, html.SelfClosingTagToken:
			w.openTag(tok)
		case html.EndTagToken:
			w.closeTag(tok.Data)
		}
	}

	// Unclosed containers in malformed markup still flush their content.
	for len(w.frames) > 1 {
		w.closeFrame(w.cur().kind)
	}

	out := w.cur().buf.String()
	out = trailingWS.ReplaceAllString(out, "\n")
	out = excessBlanks.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func (w *mdWriter) cur() *frame {
	return w.frames[len(w.frames)-1]
}

func (w *mdWriter) write(s string) {
	w.cur().buf.WriteString(s)
}

// text routes character data to the active frame, collapsing whitespace runs
// except inside pre blocks.
func (w *mdWriter) text(data string) {
	if w.skip != "" {
		return
	}
	if w.pre {
		w.write(data)
		return
	}
	collapsed := wsRun.ReplaceAllString(data, " ")
	current := w.cur().buf.String()
	if current == "" || strings.HasSuffix(current, "\n") || strings.HasSuffix(current, " ") {
		collapsed = strings.TrimLeft(collapsed, " ")
	}
	w.write(collapsed)
}

func (w *mdWriter) openTag(tok html.Token) {
	if w.skip != "" {
		return
	}
	switch tok.Data {
	case "script", "style", "head", "title", "textarea":
		w.skip = tok.Data
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(tok.Data[1] - '0')
		w.ensureBlank()
		w.write(strings.Repeat("#", level) + " ")
	case "b", "strong":
		w.write("**")
	case "i", "em":
		w.write("*")
	case "code":
		if !w.pre {
			w.write("`")
		}
	case "pre":
		w.ensureBlank()
		w.pushFrame(framePre)
		w.pre = true
	case "blockquote":
		w.ensureBlank()
		w.pushFrame(frameBlockquote)
	case "a":
		w.anchorOpen = true
		w.anchorHref = SanitizeURL(attr(tok, "href"))
		if w.anchorHref != "" {
			w.write("[")
		}
	case "img":
		src := SanitizeURL(attr(tok, "src"))
		alt := attr(tok, "alt")
		if src != "" {
			w.write("![" + alt + "](" + src + ")")
		} else if alt != "" {
			w.write(alt)
		}
	case "ul":
		w.ensureNewline()
		w.lists = append(w.lists, listState{})
	case "ol":
		w.ensureNewline()
		w.lists = append(w.lists, listState{ordered: true})
	case "li":
		w.ensureNewline()
		indent := ""
		if n := len(w.lists); n > 1 {
			indent = strings.Repeat("  ", n-1)
		}
		if n := len(w.lists); n > 0 && w.lists[n-1].ordered {
			w.lists[n-1].index++
			w.write(indent + strconv.Itoa(w.lists[n-1].index) + ". ")
		} else {
			w.write(indent + "- ")
		}
	case "br":
		w.write("\n")
	case "hr":
		w.ensureBlank()
		w.write("---\n\n")
	case "p", "div", "section", "article":
		w.ensureBlank()
	case "table":
		w.ensureBlank()
		w.table = &tableState{}
	case "tr":
		if w.table != nil {
			w.table.row = w.table.row[:0]
		}
	case "td", "th":
		if w.table != nil {
			w.pushFrame(frameCell)
		}
	}
}

func (w *mdWriter) closeTag(name string) {
	if w.skip != "" {
		if name == w.skip {
			w.skip = ""
		}
		return
	}
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.write("\n\n")
	case "b", "strong":
		w.write("**")
	case "i", "em":
		w.write("*")
	case "code":
		if !w.pre {
			w.write("`")
		}
	case "pre":
		w.closeFrame(framePre)
	case "blockquote":
		w.closeFrame(frameBlockquote)
	case "a":
		if w.anchorOpen && w.anchorHref != "" {
			w.write("](" + w.anchorHref + ")")
		}
		w.anchorOpen = false
		w.anchorHref = ""
	case "li":
		w.ensureNewline()
	case "ul", "ol":
		if len(w.lists) > 0 {
			w.lists = w.lists[:len(w.lists)-1]
		}
		w.write("\n")
	case "p", "div", "section", "article":
		w.ensureBlank()
	case "td", "th":
		w.closeFrame(frameCell)
	case "tr":
		w.flushRow()
	case "table":
		w.table = nil
		w.write("\n")
	}
}

func (w *mdWriter) pushFrame(kind frameKind) {
	w.frames = append(w.frames, &frame{kind: kind})
}

// closeFrame pops the top frame when it matches the expected kind and folds
// its content into the parent. Mismatches from malformed markup are ignored.
func (w *mdWriter) closeFrame(kind frameKind) {
	top := w.cur()
	if top.kind != kind || top.kind == frameRoot {
		return
	}
	w.frames = w.frames[:len(w.frames)-1]
	content := top.buf.String()

	switch kind {
	case framePre:
		w.pre = false
		w.ensureBlank()
		w.write("```\n" + strings.Trim(content, "\n") + "\n```\n\n")
	case frameBlockquote:
		w.ensureBlank()
		for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
			w.write("> " + strings.TrimSpace(line) + "\n")
		}
		w.write("\n")
	case frameCell:
		if w.table != nil {
			cell := strings.TrimSpace(wsRun.ReplaceAllString(content, " "))
			cell = strings.ReplaceAll(cell, "|", `\|`)
			w.table.row = append(w.table.row, cell)
		}
	}
}

// flushRow emits the accumulated cells as a pipe row, adding the separator
// row after the first.
func (w *mdWriter) flushRow() {
	if w.table == nil || len(w.table.row) == 0 {
		return
	}
	w.write("| " + strings.Join(w.table.row, " | ") + " |\n")
	if !w.table.headerDone {
		w.write("|" + strings.Repeat(" --- |", len(w.table.row)) + "\n")
		w.table.headerDone = true
	}
	w.table.row = w.table.row[:0]
}

// ensureBlank pads the current frame so the next write starts a new block.
func (w *mdWriter) ensureBlank() {
	s := w.cur().buf.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if strings.HasSuffix(s, "\n") {
		w.write("\n")
		return
	}
	w.write("\n\n")
}

// ensureNewline pads the current frame so the next write starts on its own
// line.
func (w *mdWriter) ensureNewline() {
	s := w.cur().buf.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	w.write("\n")
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
