// Package note assembles the final Markdown document for one converted
// email: YAML frontmatter, the transcoded body, an attachment link table and
// optionally the sanitized original HTML.
package note

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	"github.com/wuhup/obsidian-eml-to-markdown/internal/eml"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/htmlconv"
)

// AttachmentLink ties an attachment from the parsed email to the path it was
// written to inside the vault.
type AttachmentLink struct {
	Filename    string
	VaultPath   string
	ContentType string
	Size        int
	ContentID   string
}

// Options controls optional note sections.
type Options struct {
	// IncludeRawHTML appends the bluemonday-sanitized original HTML body,
	// for mail whose layout the Markdown approximation loses.
	IncludeRawHTML bool
	Tags           []string
}

type frontmatter struct {
	Title     string   `yaml:"title,omitempty"`
	From      string   `yaml:"from,omitempty"`
	To        []string `yaml:"to,omitempty"`
	Cc        []string `yaml:"cc,omitempty"`
	Date      string   `yaml:"date,omitempty"`
	MessageID string   `yaml:"message-id,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
}

// cidTarget matches cid: link/image targets left in the converted Markdown.
var cidTarget = regexp.MustCompile(`\(cid:([^)\s]+)\)`)

// htmlPolicy strips scripts, event handlers and hostile attributes from HTML
// embedded verbatim in a note. Policies are safe for concurrent use.
var htmlPolicy = bluemonday.UGCPolicy()

// Build renders the complete Markdown note for email. The HTML body is
// preferred and transcoded to Markdown; the plain-text body is the fallback.
func Build(email *eml.Email, links []AttachmentLink, opts Options) (string, error) {
	fm := frontmatter{
		Title:     email.Subject,
		From:      joinAddresses(email.From),
		To:        addressStrings(email.To),
		Cc:        addressStrings(email.Cc),
		MessageID: email.MessageID,
		Tags:      opts.Tags,
	}
	if !email.Date.IsZero() {
		fm.Date = email.Date.Format(time.RFC3339)
	}

	header, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")

	title := email.Subject
	if title == "" {
		title = "(no subject)"
	}
	b.WriteString("# " + title + "\n\n")

	switch {
	case email.HTMLBody != "":
		body := htmlconv.ToMarkdown(email.HTMLBody)
		body = rewriteCIDTargets(body, links)
		b.WriteString(body + "\n")
	case email.TextBody != "":
		b.WriteString(strings.TrimSpace(email.TextBody) + "\n")
	}

	if len(links) > 0 {
		b.WriteString("\n## Attachments\n\n")
		b.WriteString("| File | Type | Size |\n| --- | --- | --- |\n")
		for _, link := range links {
			name := link.Filename
			if name == "" {
				name = link.VaultPath
			}
			b.WriteString(fmt.Sprintf("| [%s](%s) | %s | %s |\n",
				escapePipes(name), linkTarget(link.VaultPath), link.ContentType, formatSize(link.Size)))
		}
	}

	if opts.IncludeRawHTML && email.HTMLBody != "" {
		b.WriteString("\n## Original HTML\n\n")
		b.WriteString(htmlPolicy.Sanitize(email.HTMLBody) + "\n")
	}

	return b.String(), nil
}

// rewriteCIDTargets points cid: references at the attachment files written
// into the vault. References to unknown IDs are left in place.
func rewriteCIDTargets(markdown string, links []AttachmentLink) string {
	byID := make(map[string]string, len(links))
	for _, link := range links {
		if link.ContentID != "" {
			byID[link.ContentID] = link.VaultPath
		}
	}
	if len(byID) == 0 {
		return markdown
	}
	return cidTarget.ReplaceAllStringFunc(markdown, func(match string) string {
		id := cidTarget.FindStringSubmatch(match)[1]
		path, ok := byID[id]
		if !ok {
			return match
		}
		return "(" + linkTarget(path) + ")"
	})
}

func joinAddresses(addrs []eml.Address) string {
	return strings.Join(addressStrings(addrs), ", ")
}

func addressStrings(addrs []eml.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// linkTarget makes a vault path usable inside (...) Markdown targets.
func linkTarget(path string) string {
	return strings.ReplaceAll(path, " ", "%20")
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
