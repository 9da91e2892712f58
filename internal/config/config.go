// Package config loads application configuration from an optional YAML
// file, falling back to sensible defaults when no file is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Directories
	InboxDir       string `mapstructure:"inbox_dir"`
	NotesDir       string `mapstructure:"notes_dir"`
	AttachmentsDir string `mapstructure:"attachments_dir"`
	ProcessedDir   string `mapstructure:"processed_dir"`

	// Database settings
	DBPath string `mapstructure:"db_path"`

	// Conversion settings
	MaxAttachmentBytes int64    `mapstructure:"max_attachment_bytes"`
	MaxMultipartDepth  int      `mapstructure:"max_multipart_depth"`
	IncludeRawHTML     bool     `mapstructure:"include_raw_html"`
	Tags               []string `mapstructure:"tags"`
	ArchiveProcessed   bool     `mapstructure:"archive_processed"`
	Workers            int      `mapstructure:"workers"`

	// Watch mode
	Watch             bool `mapstructure:"watch"`
	RescanIntervalSec int  `mapstructure:"rescan_interval_sec"`

	// Server settings
	ServerAddr string `mapstructure:"server_addr"`
}

// DefaultConfigPath returns the conventional config file location under
// the user's home directory.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".eml-to-markdown", "config.yaml")
}

// Load reads configuration from path. A missing file is not an error:
// defaults are returned instead.
func Load(path string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, ".eml-to-markdown")

	v := viper.New()
	v.SetDefault("inbox_dir", "./inbox")
	v.SetDefault("notes_dir", "./vault/Email")
	v.SetDefault("attachments_dir", "./vault/Email/attachments")
	v.SetDefault("processed_dir", "./inbox/processed")
	v.SetDefault("db_path", filepath.Join(dataDir, "conversions.db"))
	v.SetDefault("max_attachment_bytes", int64(25*1024*1024))
	v.SetDefault("max_multipart_depth", 10)
	v.SetDefault("include_raw_html", false)
	v.SetDefault("tags", []string{"email"})
	v.SetDefault("archive_processed", false)
	v.SetDefault("workers", 4)
	v.SetDefault("watch", false)
	v.SetDefault("rescan_interval_sec", 300)
	v.SetDefault("server_addr", "")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
