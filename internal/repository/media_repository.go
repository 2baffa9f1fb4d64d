package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photomirror/client/internal/models"
)

// mediaColumns lists remote_media columns in insert order. media_key must
// stay first; the conflict clause treats it as the immutable key.
var mediaColumns = []string{
	"media_key",
	"dedup_key",
	"file_name",
	"type",
	"caption",
	"size_bytes",
	"utc_timestamp",
	"server_creation_timestamp",
	"content_version",
	"timezone_offset",
	"width",
	"height",
	"duration",
	"camera_make",
	"camera_model",
	"aperture",
	"shutter_speed",
	"iso",
	"focal_length",
	"upload_status",
	"trash_timestamp",
	"is_archived",
	"is_favorite",
	"is_locked",
	"is_original_quality",
}

func mediaValues(m *models.RemoteMedia) []interface{} {
	return []interface{}{
		m.MediaKey,
		m.DedupKey,
		m.FileName,
		int64(m.Type),
		m.Caption,
		m.SizeBytes,
		m.UTCTimestamp,
		m.ServerCreationTimestamp,
		m.ContentVersion,
		m.TimezoneOffset,
		m.Width,
		m.Height,
		m.Duration,
		m.CameraMake,
		m.CameraModel,
		m.Aperture,
		m.ShutterSpeed,
		m.ISO,
		m.FocalLength,
		m.UploadStatus,
		m.TrashTimestamp,
		m.IsArchived,
		m.IsFavorite,
		m.IsLocked,
		m.IsOriginalQuality,
	}
}

func scanMedia(scan func(dest ...interface{}) error) (*models.RemoteMedia, error) {
	var m models.RemoteMedia
	var mediaType int64
	err := scan(
		&m.MediaKey,
		&m.DedupKey,
		&m.FileName,
		&mediaType,
		&m.Caption,
		&m.SizeBytes,
		&m.UTCTimestamp,
		&m.ServerCreationTimestamp,
		&m.ContentVersion,
		&m.TimezoneOffset,
		&m.Width,
		&m.Height,
		&m.Duration,
		&m.CameraMake,
		&m.CameraModel,
		&m.Aperture,
		&m.ShutterSpeed,
		&m.ISO,
		&m.FocalLength,
		&m.UploadStatus,
		&m.TrashTimestamp,
		&m.IsArchived,
		&m.IsFavorite,
		&m.IsLocked,
		&m.IsOriginalQuality,
	)
	if err != nil {
		return nil, err
	}
	m.Type = models.MediaType(mediaType)
	return &m, nil
}

// MediaRepository handles remote media mirror persistence (SQLite)
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Upsert inserts or updates a batch of mirror records in one transaction.
// A record already present is overwritten column by column, so applying
// the same batch twice leaves the mirror unchanged.
func (r *MediaRepository) Upsert(ctx context.Context, items []*models.RemoteMedia) error {
	if len(items) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(mediaColumns)), ", ")
	updates := make([]string, 0, len(mediaColumns)-1)
	for _, col := range mediaColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO remote_media (%s) VALUES (%s) ON CONFLICT(media_key) DO UPDATE SET %s",
		strings.Join(mediaColumns, ", "),
		placeholders,
		strings.Join(updates, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if item.MediaKey == "" {
			return models.ErrEmptyMediaKey
		}
		if _, err := stmt.ExecContext(ctx, mediaValues(item)...); err != nil {
			return fmt.Errorf("failed to upsert media %s: %w", item.MediaKey, err)
		}
	}

	return tx.Commit()
}

// Delete removes a batch of mirror records by media key in one transaction
func (r *MediaRepository) Delete(ctx context.Context, mediaKeys []string) error {
	if len(mediaKeys) == 0 {
		return nil
	}

	placeholders := make([]string, len(mediaKeys))
	args := make([]interface{}, len(mediaKeys))
	for i, key := range mediaKeys {
		placeholders[i] = "?"
		args[i] = key
	}

	query := "DELETE FROM remote_media WHERE media_key IN (" + strings.Join(placeholders, ",") + ")"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete media batch: %w", err)
	}

	return tx.Commit()
}

// GetByKey retrieves one mirror record, or nil when absent
func (r *MediaRepository) GetByKey(ctx context.Context, mediaKey string) (*models.RemoteMedia, error) {
	query := fmt.Sprintf("SELECT %s FROM remote_media WHERE media_key = ?", strings.Join(mediaColumns, ", "))

	row := r.db.QueryRowContext(ctx, query, mediaKey)
	media, err := scanMedia(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return media, nil
}

// GetCount returns the number of mirrored records
func (r *MediaRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM remote_media").Scan(&count)
	return count, err
}
