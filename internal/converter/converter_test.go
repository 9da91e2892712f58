package converter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuhup/obsidian-eml-to-markdown/internal/config"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/db"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/vault"
)

const sampleEML = "From: Ann Smith <ann@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Release plan\r\n" +
	"Date: Tue, 5 Mar 2024 09:30:00 +0000\r\n" +
	"Message-ID: <plan-1@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>The plan is <b>ready</b>.</p>\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"plan.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQ=\r\n" +
	"--outer--\r\n"

func newTestConverter(t *testing.T) (*Converter, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		InboxDir:           filepath.Join(base, "inbox"),
		NotesDir:           filepath.Join(base, "vault", "Email"),
		AttachmentsDir:     filepath.Join(base, "vault", "Email", "attachments"),
		ProcessedDir:       filepath.Join(base, "inbox", "processed"),
		DBPath:             filepath.Join(base, "conversions.db"),
		MaxAttachmentBytes: 1024 * 1024,
		MaxMultipartDepth:  10,
		Tags:               []string{"email"},
		Workers:            2,
	}
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0o755))

	database, err := db.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	v, err := vault.New(cfg.NotesDir, cfg.AttachmentsDir, cfg.MaxAttachmentBytes)
	require.NoError(t, err)

	return New(database, v, cfg), cfg
}

func TestRun_ConvertsNewFiles(t *testing.T) {
	c, cfg := newTestConverter(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InboxDir, "plan.eml"), []byte(sampleEML), 0o644))

	result, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 0, result.Failed)

	notePath := filepath.Join(cfg.NotesDir, "Release plan.md")
	content, err := os.ReadFile(notePath)
	require.NoError(t, err)
	body := string(content)
	assert.Contains(t, body, "# Release plan")
	assert.Contains(t, body, "The plan is **ready**.")
	assert.Contains(t, body, "[plan.pdf](attachments/plan.pdf)")

	pdf, err := os.ReadFile(filepath.Join(cfg.AttachmentsDir, "plan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf), "base64 attachment should be decoded before writing")
}

func TestRun_SkipsAlreadyConverted(t *testing.T) {
	c, cfg := newTestConverter(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InboxDir, "plan.eml"), []byte(sampleEML), 0o644))

	_, err := c.Run()
	require.NoError(t, err)

	second, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalFound)
	assert.Equal(t, 0, second.Converted)
	assert.Equal(t, 1, second.Skipped)

	entries, err := os.ReadDir(cfg.NotesDir)
	require.NoError(t, err)
	noteCount := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".md") {
			noteCount++
		}
	}
	assert.Equal(t, 1, noteCount, "a re-run must not duplicate notes")
}

func TestRun_ArchivesProcessedFiles(t *testing.T) {
	c, cfg := newTestConverter(t)
	cfg.ArchiveProcessed = true
	src := filepath.Join(cfg.InboxDir, "plan.eml")
	require.NoError(t, os.WriteFile(src, []byte(sampleEML), 0o644))

	_, err := c.Run()
	require.NoError(t, err)

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(cfg.ProcessedDir, "plan.eml"))
}

func TestRun_MalformedFileStillConverts(t *testing.T) {
	c, cfg := newTestConverter(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InboxDir, "broken.eml"),
		[]byte("this is not an email at all"), 0o644))

	result, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Converted, "malformed input degrades to an empty note, not a failure")

	assert.FileExists(t, filepath.Join(cfg.NotesDir, "(no subject).md"))
}

func TestLastResult(t *testing.T) {
	c, _ := newTestConverter(t)
	assert.Nil(t, c.LastResult())

	result, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, result, c.LastResult())
}
