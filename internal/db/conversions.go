package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Conversion is one ledger row: a source .eml file and the note it produced.
type Conversion struct {
	ID              int64
	FilePath        string
	MessageID       string
	Subject         string
	NotePath        string
	Preview         string
	AttachmentCount int
	WarningCount    int
	ConvertedAt     time.Time
}

// Exists reports whether filePath has already been converted.
func (db *DB) Exists(filePath string) (bool, error) {
	var id int64
	err := db.QueryRow("SELECT id FROM conversions WHERE file_path = ?", filePath).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check conversion: %w", err)
	}
	return true, nil
}

// Record inserts a conversion row. Re-recording the same file path replaces
// the previous row, which happens when a file is converted again after the
// ledger was reset for it.
func (db *DB) Record(c *Conversion) error {
	result, err := db.Exec(`
		INSERT INTO conversions (file_path, message_id, subject, note_path, preview, attachment_count, warning_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			message_id = excluded.message_id,
			subject = excluded.subject,
			note_path = excluded.note_path,
			preview = excluded.preview,
			attachment_count = excluded.attachment_count,
			warning_count = excluded.warning_count,
			converted_at = CURRENT_TIMESTAMP
	`, c.FilePath, c.MessageID, c.Subject, c.NotePath, c.Preview, c.AttachmentCount, c.WarningCount)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

// Count returns the total number of recorded conversions.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM conversions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return n, nil
}

// Recent returns the most recently converted entries, newest first.
func (db *DB) Recent(limit int) ([]*Conversion, error) {
	rows, err := db.Query(`
		SELECT id, file_path, message_id, subject, note_path, preview, attachment_count, warning_count, converted_at
		FROM conversions
		ORDER BY converted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent conversions: %w", err)
	}
	defer rows.Close()

	var out []*Conversion
	for rows.Next() {
		c := &Conversion{}
		var convertedAt string
		if err := rows.Scan(&c.ID, &c.FilePath, &c.MessageID, &c.Subject, &c.NotePath,
			&c.Preview, &c.AttachmentCount, &c.WarningCount, &convertedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		c.ConvertedAt = parseSQLiteTime(convertedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// parseSQLiteTime handles the timestamp formats SQLite emits for
// CURRENT_TIMESTAMP defaults as well as RFC3339 values written by the driver.
func parseSQLiteTime(s string) time.Time {
	for _, format := range []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
