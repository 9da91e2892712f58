// Package scanner finds .eml files under an inbox directory.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Scanner scans directories for .eml files
type Scanner struct {
	rootPath string
	skipDirs map[string]bool
}

// NewScanner creates a new scanner for the given root path. Directories in
// skipDirs are not descended into; the processed archive lives under the
// inbox by default and must not be re-scanned.
func NewScanner(rootPath string, skipDirs ...string) *Scanner {
	skip := make(map[string]bool, len(skipDirs))
	for _, dir := range skipDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			skip[abs] = true
		}
	}
	return &Scanner{rootPath: rootPath, skipDirs: skip}
}

// Scan recursively collects .eml files and returns their absolute paths.
func (s *Scanner) Scan() ([]string, error) {
	absRoot, err := filepath.Abs(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute root path: %w", err)
	}

	var emlFiles []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if d.IsDir() {
			if s.skipDirs[path] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == ".eml" {
			emlFiles = append(emlFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return emlFiles, nil
}

// Count returns the number of .eml files under the root.
func (s *Scanner) Count() (int, error) {
	files, err := s.Scan()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
