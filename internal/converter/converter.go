// Package converter drives the inbox-to-vault pipeline: it scans for .eml
// files, parses them, writes attachments and markdown notes, and records
// each conversion in the ledger.
package converter

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/wuhup/obsidian-eml-to-markdown/internal/config"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/db"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/eml"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/htmlconv"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/note"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/scanner"
	"github.com/wuhup/obsidian-eml-to-markdown/internal/vault"
)

// Converter handles conversion runs over the inbox
type Converter struct {
	db          *db.DB
	vault       *vault.Vault
	scanner     *scanner.Scanner
	cfg         *config.Config
	concurrency int

	mu         sync.Mutex
	lastResult *Result
}

// Result contains statistics about a conversion run
type Result struct {
	TotalFound  int      `json:"total_found"`
	Converted   int      `json:"converted"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	FailedFiles []string `json:"failed_files,omitempty"`
}

// New creates a converter over the configured inbox and vault.
func New(database *db.DB, v *vault.Vault, cfg *config.Config) *Converter {
	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU() * 2 // 2x CPUs for I/O-bound work
	}
	return &Converter{
		db:          database,
		vault:       v,
		scanner:     scanner.NewScanner(cfg.InboxDir, cfg.ProcessedDir),
		cfg:         cfg,
		concurrency: workers,
	}
}

// Run scans the inbox and converts all new .eml files using a worker pool.
func (c *Converter) Run() (*Result, error) {
	files, err := c.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan for files: %w", err)
	}

	result := &Result{
		TotalFound:  len(files),
		FailedFiles: make([]string, 0),
	}

	log.Printf("Found %d .eml files to process with %d workers", result.TotalFound, c.concurrency)

	fileChan := make(chan string, len(files))
	resultChan := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go c.worker(&wg, fileChan, resultChan)
	}

	for _, file := range files {
		fileChan <- file
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for res := range resultChan {
		switch res.status {
		case statusConverted:
			result.Converted++
		case statusSkipped:
			result.Skipped++
		case statusFailed:
			result.Failed++
			result.FailedFiles = append(result.FailedFiles, res.filePath)
		}
	}

	log.Printf("Conversion complete: %d converted, %d skipped, %d failed",
		result.Converted, result.Skipped, result.Failed)

	c.mu.Lock()
	c.lastResult = result
	c.mu.Unlock()

	return result, nil
}

// LastResult returns the result of the most recent run, or nil if no run
// has completed yet.
func (c *Converter) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

type fileStatus int

const (
	statusConverted fileStatus = iota
	statusSkipped
	statusFailed
)

type fileResult struct {
	filePath string
	status   fileStatus
}

// worker processes files from the file channel
func (c *Converter) worker(wg *sync.WaitGroup, fileChan <-chan string, resultChan chan<- fileResult) {
	defer wg.Done()

	for filePath := range fileChan {
		resultChan <- fileResult{
			filePath: filePath,
			status:   c.processFile(filePath),
		}
	}
}

// processFile converts a single .eml file and returns its status
func (c *Converter) processFile(filePath string) fileStatus {
	exists, err := c.db.Exists(filePath)
	if err != nil {
		log.Printf("Error checking conversion ledger for %s: %v", filePath, err)
		return statusFailed
	}
	if exists {
		return statusSkipped
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("Error reading %s: %v", filePath, err)
		return statusFailed
	}

	warningCount := 0
	email, err := eml.Parse(string(raw),
		eml.WithMaxDepth(c.cfg.MaxMultipartDepth),
		eml.WithWarningHandler(func(w eml.Warning) {
			warningCount++
			log.Printf("Warning parsing %s: %s: %s", filePath, w.Context, w.Message)
		}),
	)
	if err != nil {
		log.Printf("Error parsing %s: %v", filePath, err)
		return statusFailed
	}

	links := c.writeAttachments(filePath, email)

	title := email.Subject
	if title == "" {
		title = "(no subject)"
	}

	content, err := note.Build(email, links, note.Options{
		IncludeRawHTML: c.cfg.IncludeRawHTML,
		Tags:           c.cfg.Tags,
	})
	if err != nil {
		log.Printf("Error building note for %s: %v", filePath, err)
		return statusFailed
	}

	notePath, err := c.vault.WriteNote(title, content)
	if err != nil {
		log.Printf("Error writing note for %s: %v", filePath, err)
		return statusFailed
	}

	if err := c.db.Record(&db.Conversion{
		FilePath:        filePath,
		MessageID:       email.MessageID,
		Subject:         email.Subject,
		NotePath:        notePath,
		Preview:         preview(email),
		AttachmentCount: len(email.Attachments),
		WarningCount:    warningCount,
	}); err != nil {
		log.Printf("Error recording conversion for %s: %v", filePath, err)
		return statusFailed
	}

	if c.cfg.ArchiveProcessed {
		if _, err := vault.Archive(filePath, c.cfg.ProcessedDir); err != nil {
			// The note exists and the ledger knows about it, so the run
			// still counts as converted.
			log.Printf("Error archiving %s: %v", filePath, err)
		}
	}

	return statusConverted
}

const previewLen = 200

// preview returns a short single-line excerpt of the message body for the
// ledger, derived from the plain-text body or a text rendering of the HTML.
func preview(email *eml.Email) string {
	text := strings.TrimSpace(email.TextBody)
	if text == "" && email.HTMLBody != "" {
		text = htmlconv.ToPlainText(email.HTMLBody)
	}
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > previewLen {
		text = string(runes[:previewLen])
	}
	return text
}

// writeAttachments stores decoded attachments and returns link metadata for
// the note. Oversized attachments are skipped with a log line; their table
// row is omitted so the note never links a file that was not written.
func (c *Converter) writeAttachments(filePath string, email *eml.Email) []note.AttachmentLink {
	links := make([]note.AttachmentLink, 0, len(email.Attachments))
	for _, att := range email.Attachments {
		name := att.Filename
		if name == "" {
			name = "unnamed"
		}
		written, err := c.vault.WriteAttachment(name, att.Content)
		if err != nil {
			if errors.Is(err, vault.ErrAttachmentTooLarge) {
				log.Printf("Skipping attachment from %s: %v", filePath, err)
			} else {
				log.Printf("Error writing attachment from %s: %v", filePath, err)
			}
			continue
		}
		links = append(links, note.AttachmentLink{
			Filename:    filepath.Base(written),
			VaultPath:   c.vaultRelative(written),
			ContentType: att.ContentType,
			Size:        len(att.Content),
			ContentID:   att.ContentID,
		})
	}
	return links
}

// vaultRelative turns an attachment path into a link target relative to the
// notes directory, the form Obsidian resolves from within a note.
func (c *Converter) vaultRelative(path string) string {
	rel, err := filepath.Rel(c.cfg.NotesDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
