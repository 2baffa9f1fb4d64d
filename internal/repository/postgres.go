package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB opens and initializes a PostgreSQL mirror database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS remote_media (
		media_key TEXT PRIMARY KEY,
		dedup_key TEXT,
		file_name TEXT,
		type INTEGER,
		caption TEXT,
		size_bytes BIGINT,
		utc_timestamp BIGINT,
		server_creation_timestamp BIGINT,
		content_version BIGINT,
		timezone_offset BIGINT,
		width BIGINT,
		height BIGINT,
		duration BIGINT,
		camera_make TEXT,
		camera_model TEXT,
		aperture DOUBLE PRECISION,
		shutter_speed DOUBLE PRECISION,
		iso BIGINT,
		focal_length DOUBLE PRECISION,
		upload_status BIGINT,
		trash_timestamp BIGINT,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		is_original_quality BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_remote_media_dedup_key ON remote_media(dedup_key);
	CREATE INDEX IF NOT EXISTS idx_remote_media_file_name ON remote_media(file_name);

	CREATE TABLE IF NOT EXISTS sync_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state_token TEXT NOT NULL DEFAULT '',
		page_token TEXT NOT NULL DEFAULT '',
		init_complete BOOLEAN NOT NULL DEFAULT FALSE
	);

	INSERT INTO sync_state (id, state_token, page_token, init_complete)
	VALUES (1, '', '', FALSE)
	ON CONFLICT (id) DO NOTHING;
	`

	_, err := db.Exec(schema)
	return err
}
