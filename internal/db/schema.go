package db

// schema defines the conversion ledger. One row per .eml file that has
// been turned into a note; file_path is unique so re-scans skip files
// already converted.
const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL UNIQUE,
	message_id TEXT,
	subject TEXT,
	note_path TEXT NOT NULL,
	preview TEXT NOT NULL DEFAULT '',
	attachment_count INTEGER NOT NULL DEFAULT 0,
	warning_count INTEGER NOT NULL DEFAULT 0,
	converted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversions_message_id ON conversions(message_id);
CREATE INDEX IF NOT EXISTS idx_conversions_converted_at ON conversions(converted_at DESC);
`
