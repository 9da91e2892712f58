package eml

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedMultipart = `From: "Doe, John" <john@x.com>
To: jane@y.com
Subject: =?UTF-8?B?SGVsbG8=?=
Date: Mon, 1 Jan 2024 10:00:00 +0000
Message-ID: <abc123@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

This is the preamble, it must be discarded.
--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

Plain body.
--inner
Content-Type: text/html; charset=utf-8

<p>HTML body.</p>
--inner--
--outer
Content-Type: image/png
Content-Transfer-Encoding: base64
Content-Disposition: attachment; filename="pixel.png"
Content-ID: <img1>

iVBORw0KGgo=
--outer--
And this is the epilogue.
`

// TestParse_NestedMultipart walks a multipart/mixed containing a
// multipart/alternative plus one attachment part.
func TestParse_NestedMultipart(t *testing.T) {
	email, err := Parse(nestedMultipart)
	require.NoError(t, err, "Should parse nested multipart without error")

	assert.Equal(t, "Hello", email.Subject, "MIME-word subject should be decoded")
	assert.Equal(t, "abc123@example.com", email.MessageID, "Angle brackets should be stripped")

	require.Len(t, email.From, 1)
	assert.Equal(t, "Doe, John", email.From[0].Name)
	assert.Equal(t, "john@x.com", email.From[0].Addr)
	require.Len(t, email.To, 1)
	assert.Equal(t, "jane@y.com", email.To[0].Addr)

	assert.Equal(t, "Plain body.", email.TextBody)
	assert.Equal(t, "<p>HTML body.</p>", email.HTMLBody)

	require.Len(t, email.Attachments, 1, "Should have exactly 1 attachment")
	att := email.Attachments[0]
	assert.Equal(t, "pixel.png", att.Filename)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, "img1", att.ContentID, "Content-ID brackets should be stripped")
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, att.Content)

	expected := time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, email.Date.Equal(expected), "Date should parse as RFC 5322")
}

// TestParse_NoSeparator verifies the soft-failure contract: a document with
// no blank line between headers and body yields an all-default structure.
func TestParse_NoSeparator(t *testing.T) {
	email, err := Parse("Subject: no body here\r\nFrom: a@b.com\r\n")

	require.NoError(t, err, "Missing separator is a soft failure, not an error")
	assert.Empty(t, email.Subject)
	assert.Empty(t, email.From)
	assert.Empty(t, email.TextBody)
	assert.Empty(t, email.Attachments)
	assert.True(t, email.Date.IsZero())
}

// TestParse_FirstBodyWins verifies that later duplicate text parts are
// ignored once a body of that type has been captured.
func TestParse_FirstBodyWins(t *testing.T) {
	doc := strings.Join([]string{
		"From: a@b.com",
		"Content-Type: multipart/mixed; boundary=bb",
		"",
		"--bb",
		"Content-Type: text/plain",
		"",
		"first plain",
		"--bb",
		"Content-Type: text/plain",
		"",
		"second plain",
		"--bb",
		"Content-Type: text/html",
		"",
		"<b>first html</b>",
		"--bb",
		"Content-Type: text/html",
		"",
		"<b>second html</b>",
		"--bb--",
		"",
	}, "\r\n")

	email, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "first plain", email.TextBody)
	assert.Equal(t, "<b>first html</b>", email.HTMLBody)
	assert.Empty(t, email.Attachments)
}

// TestParse_SimpleTextBody covers the non-multipart top-level dispatch.
func TestParse_SimpleTextBody(t *testing.T) {
	doc := "From: a@b.com\r\nSubject: plain\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nJust a body.\r\n"

	email, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "Just a body.\r\n", email.TextBody, "Top-level body is not trimmed")
	assert.Empty(t, email.HTMLBody)
}

// TestParse_MissingContentTypeDefaultsToText exercises the text/plain default.
func TestParse_MissingContentTypeDefaultsToText(t *testing.T) {
	email, err := Parse("From: a@b.com\n\nimplicit plain text")
	require.NoError(t, err)
	assert.Equal(t, "implicit plain text", email.TextBody)
}

// TestParse_UnknownTopLevelTypeDropped verifies the documented silent drop of
// a non-multipart, non-text top-level body, surfaced as a warning.
func TestParse_UnknownTopLevelTypeDropped(t *testing.T) {
	var warnings []Warning
	email, err := Parse(
		"From: a@b.com\nContent-Type: application/pdf\n\n%PDF-1.4",
		WithWarningHandler(func(w Warning) { warnings = append(warnings, w) }),
	)

	require.NoError(t, err)
	assert.Empty(t, email.TextBody)
	assert.Empty(t, email.Attachments)
	require.NotEmpty(t, warnings, "Dropped body should produce a warning")
	assert.Equal(t, "parse", warnings[0].Context)
}

// TestParse_MaxDepth verifies the nesting bound fails closed on adversarial
// documents instead of recursing without limit.
func TestParse_MaxDepth(t *testing.T) {
	doc := strings.Join([]string{
		"From: a@b.com",
		"Content-Type: multipart/mixed; boundary=l0",
		"",
		"--l0",
		"Content-Type: multipart/mixed; boundary=l1",
		"",
		"--l1",
		"Content-Type: multipart/mixed; boundary=l2",
		"",
		"--l2",
		"Content-Type: text/plain",
		"",
		"deep body",
		"--l2--",
		"--l1--",
		"--l0--",
		"",
	}, "\n")

	_, err := Parse(doc, WithMaxDepth(2))
	assert.ErrorIs(t, err, ErrMaxDepthExceeded, "Three nested multiparts should exceed depth 2")

	email, err := Parse(doc)
	require.NoError(t, err, "Default depth should accommodate shallow nesting")
	assert.Equal(t, "deep body", email.TextBody)
}

// TestParse_InvalidDate verifies an unparseable Date degrades to the zero
// time and emits a warning.
func TestParse_InvalidDate(t *testing.T) {
	var warnings []Warning
	email, err := Parse(
		"From: a@b.com\nDate: not a date at all ???\n\nbody",
		WithWarningHandler(func(w Warning) { warnings = append(warnings, w) }),
	)

	require.NoError(t, err)
	assert.True(t, email.Date.IsZero())
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0].Message, "Date")
}

// TestParse_LenientDateFallback covers the dateparse fallback for
// non-RFC5322 Date headers.
func TestParse_LenientDateFallback(t *testing.T) {
	email, err := Parse("From: a@b.com\nDate: 2024-01-01 10:00:00\n\nbody")
	require.NoError(t, err)
	assert.Equal(t, 2024, email.Date.Year())
	assert.Equal(t, time.January, email.Date.Month())
}

// TestParse_AttachmentByDisposition classifies a text part with an
// attachment disposition as an attachment, not a body.
func TestParse_AttachmentByDisposition(t *testing.T) {
	doc := strings.Join([]string{
		"From: a@b.com",
		"Content-Type: multipart/mixed; boundary=bb",
		"",
		"--bb",
		"Content-Type: text/plain",
		"Content-Disposition: attachment",
		"",
		"log line one",
		"--bb--",
		"",
	}, "\n")

	email, err := Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, email.TextBody)
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "", email.Attachments[0].Filename)
	assert.Equal(t, []byte("log line one"), email.Attachments[0].Content)
}
