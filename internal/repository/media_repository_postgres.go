package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photomirror/client/internal/models"
)

// MediaRepositoryPostgres handles remote media mirror persistence (PostgreSQL)
type MediaRepositoryPostgres struct {
	db *sql.DB
}

// NewMediaRepositoryPostgres creates a new MediaRepositoryPostgres
func NewMediaRepositoryPostgres(db *sql.DB) *MediaRepositoryPostgres {
	return &MediaRepositoryPostgres{db: db}
}

// Upsert inserts or updates a batch of mirror records in one transaction
func (r *MediaRepositoryPostgres) Upsert(ctx context.Context, items []*models.RemoteMedia) error {
	if len(items) == 0 {
		return nil
	}

	placeholders := make([]string, len(mediaColumns))
	for i := range mediaColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	updates := make([]string, 0, len(mediaColumns)-1)
	for _, col := range mediaColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO remote_media (%s) VALUES (%s) ON CONFLICT (media_key) DO UPDATE SET %s",
		strings.Join(mediaColumns, ", "),
		strings.Join(placeholders, ", "),
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
func (r *MediaRepositoryPostgres) Delete(ctx context.Context, mediaKeys []string) error {
	if len(mediaKeys) == 0 {
		return nil
	}

	placeholders := make([]string, len(mediaKeys))
	args := make([]interface{}, len(mediaKeys))
	for i, key := range mediaKeys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
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
func (r *MediaRepositoryPostgres) GetByKey(ctx context.Context, mediaKey string) (*models.RemoteMedia, error) {
	query := fmt.Sprintf("SELECT %s FROM remote_media WHERE media_key = $1", strings.Join(mediaColumns, ", "))

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
func (r *MediaRepositoryPostgres) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM remote_media").Scan(&count)
	return count, err
}
