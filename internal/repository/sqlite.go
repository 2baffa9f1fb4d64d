package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens and initializes the SQLite mirror database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Writers from a sync run and readers from a status query may overlap
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Mirror of the remote library, one row per remote media item
	CREATE TABLE IF NOT EXISTS remote_media (
		media_key TEXT PRIMARY KEY,
		dedup_key TEXT,
		file_name TEXT,
		type INTEGER,
		caption TEXT,
		size_bytes INTEGER,
		utc_timestamp INTEGER,
		server_creation_timestamp INTEGER,
		content_version INTEGER,
		timezone_offset INTEGER,
		width INTEGER,
		height INTEGER,
		duration INTEGER,
		camera_make TEXT,
		camera_model TEXT,
		aperture REAL,
		shutter_speed REAL,
		iso INTEGER,
		focal_length REAL,
		upload_status INTEGER,
		trash_timestamp INTEGER,
		is_archived INTEGER NOT NULL DEFAULT 0,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_locked INTEGER NOT NULL DEFAULT 0,
		is_original_quality INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_remote_media_dedup_key ON remote_media(dedup_key);
	CREATE INDEX IF NOT EXISTS idx_remote_media_file_name ON remote_media(file_name);

	-- Singleton sync cursor
	CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state_token TEXT NOT NULL DEFAULT '',
		page_token TEXT NOT NULL DEFAULT '',
		init_complete INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO sync_state (id, state_token, page_token, init_complete)
	VALUES (1, '', '', 0);
	`

	_, err := db.Exec(schema)
	return err
}
