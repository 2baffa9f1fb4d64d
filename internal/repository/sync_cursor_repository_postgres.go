package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photomirror/client/internal/models"
)

// SyncCursorRepositoryPostgres handles the singleton sync cursor row (PostgreSQL)
type SyncCursorRepositoryPostgres struct {
	db *sql.DB
}

// NewSyncCursorRepositoryPostgres creates a new SyncCursorRepositoryPostgres
func NewSyncCursorRepositoryPostgres(db *sql.DB) *SyncCursorRepositoryPostgres {
	return &SyncCursorRepositoryPostgres{db: db}
}

// Get returns the current cursor, or the zero cursor when unset
func (r *SyncCursorRepositoryPostgres) Get(ctx context.Context) (models.SyncCursor, error) {
	var cursor models.SyncCursor
	err := r.db.QueryRowContext(ctx,
		"SELECT state_token, page_token, init_complete FROM sync_state WHERE id = 1",
	).Scan(&cursor.StateToken, &cursor.PageToken, &cursor.InitComplete)

	if err == sql.ErrNoRows {
		return models.SyncCursor{}, nil
	}
	if err != nil {
		return models.SyncCursor{}, fmt.Errorf("failed to read sync cursor: %w", err)
	}
	return cursor, nil
}

// Update applies a partial cursor update; only non-nil fields are written
func (r *SyncCursorRepositoryPostgres) Update(ctx context.Context, update models.CursorUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if update.StateToken != nil {
		args = append(args, *update.StateToken)
		sets = append(sets, fmt.Sprintf("state_token = $%d", len(args)))
	}
	if update.PageToken != nil {
		args = append(args, *update.PageToken)
		sets = append(sets, fmt.Sprintf("page_token = $%d", len(args)))
	}
	if update.InitComplete != nil {
		args = append(args, *update.InitComplete)
		sets = append(sets, fmt.Sprintf("init_complete = $%d", len(args)))
	}

	query := "UPDATE sync_state SET " + strings.Join(sets, ", ") + " WHERE id = 1"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write sync cursor: %w", err)
	}
	return nil
}
