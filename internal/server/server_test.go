package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuhup/obsidian-eml-to-markdown/internal/config"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/converter"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/db"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/vault"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		InboxDir:           filepath.Join(base, "inbox"),
		NotesDir:           filepath.Join(base, "vault", "Email"),
		AttachmentsDir:     filepath.Join(base, "vault", "Email", "attachments"),
		ProcessedDir:       filepath.Join(base, "inbox", "processed"),
		MaxAttachmentBytes: 1024 * 1024,
		MaxMultipartDepth:  10,
		Workers:            1,
	}
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0o755))

	database, err := db.Open(filepath.Join(base, "conversions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	v, err := vault.New(cfg.NotesDir, cfg.AttachmentsDir, cfg.MaxAttachmentBytes)
	require.NoError(t, err)

	return New(database, converter.New(database, v, cfg)), cfg
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatus_EmptyLedger(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		TotalConversions int               `json:"total_conversions"`
		Recent           []json.RawMessage `json:"recent"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 0, status.TotalConversions)
	assert.NotNil(t, status.Recent, "recent should encode as an empty array, not null")
}

func TestScan_ConvertsAndReportsViaStatus(t *testing.T) {
	s, cfg := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	sample := "From: ann@example.com\r\nSubject: Hello\r\n\r\nplain body\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InboxDir, "hello.eml"), []byte(sample), 0o644))

	resp, err := http.Post(srv.URL+"/scan", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		TotalFound int `json:"total_found"`
		Converted  int `json:"converted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.TotalFound)
	assert.Equal(t, 1, result.Converted)

	statusResp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()

	var status struct {
		TotalConversions int `json:"total_conversions"`
		LastRun          *struct {
			Converted int `json:"converted"`
		} `json:"last_run"`
	}
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, 1, status.TotalConversions)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, 1, status.LastRun.Converted)
}
