// Package vault writes notes and attachments into an Obsidian vault
// directory, taking care of filename sanitization and collision handling.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrAttachmentTooLarge is returned by WriteAttachment when the decoded
// attachment exceeds the configured size limit.
var ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

const maxFilenameLen = 120

// Vault persists converted notes and their attachments under a vault root.
type Vault struct {
	NotesDir       string
	AttachmentsDir string
	MaxAttachment  int64
}

// New creates a Vault and ensures its target directories exist.
func New(notesDir, attachmentsDir string, maxAttachment int64) (*Vault, error) {
	for _, dir := range []string{notesDir, attachmentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create vault directory %s: %w", dir, err)
		}
	}
	return &Vault{
		NotesDir:       notesDir,
		AttachmentsDir: attachmentsDir,
		MaxAttachment:  maxAttachment,
	}, nil
}

// SanitizeFilename turns an arbitrary string (a subject line, a MIME
// filename) into a name that is safe to use on disk. Path separators and
// characters Obsidian or common filesystems reject are replaced with
// underscores, control characters are dropped, and the result is capped
// in length. An empty result falls back to a random name.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// drop control characters
		case strings.ContainsRune(`/\:*?"<>|#^[]`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	out = strings.Trim(out, ".")
	if len(out) > maxFilenameLen {
		runes := []rune(out)
		if len(runes) > maxFilenameLen {
			runes = runes[:maxFilenameLen]
		}
		out = strings.TrimRight(string(runes), " .")
	}
	if out == "" {
		return uuid.NewString()
	}
	return out
}

// uniquePath returns path if it does not exist yet, otherwise appends
// " (n)" before the extension until an unused name is found.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// WriteNote writes markdown content under the notes directory using the
// given title. It returns the path actually written, which may carry a
// collision suffix.
func (v *Vault) WriteNote(title, content string) (string, error) {
	name := SanitizeFilename(title) + ".md"
	path := uniquePath(filepath.Join(v.NotesDir, name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write note %s: %w", path, err)
	}
	return path, nil
}

// WriteAttachment stores decoded attachment bytes under the attachments
// directory. Attachments over the configured limit are not written and
// ErrAttachmentTooLarge is returned.
func (v *Vault) WriteAttachment(filename string, content []byte) (string, error) {
	if v.MaxAttachment > 0 && int64(len(content)) > v.MaxAttachment {
		return "", fmt.Errorf("%s (%d bytes): %w", filename, len(content), ErrAttachmentTooLarge)
	}
	name := SanitizeFilename(filename)
	path := uniquePath(filepath.Join(v.AttachmentsDir, name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment %s: %w", path, err)
	}
	return path, nil
}

// Archive moves a processed source file into processedDir, creating the
// directory on first use. Name collisions get the same " (n)" suffix as
// notes do.
func Archive(srcPath, processedDir string) (string, error) {
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create processed directory: %w", err)
	}
	dest := uniquePath(filepath.Join(processedDir, filepath.Base(srcPath)))
	if err := os.Rename(srcPath, dest); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", srcPath, err)
	}
	return dest, nil
}
