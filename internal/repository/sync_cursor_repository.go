package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/photomirror/client/internal/models"
)

// SyncCursorRepository handles the singleton sync cursor row (SQLite)
type SyncCursorRepository struct {
	db *sql.DB
}

// NewSyncCursorRepository creates a new SyncCursorRepository
func NewSyncCursorRepository(db *sql.DB) *SyncCursorRepository {
	return &SyncCursorRepository{db: db}
}

// Get returns the current cursor. The zero cursor is returned when the
// row has never been written.
func (r *SyncCursorRepository) Get(ctx context.Context) (models.SyncCursor, error) {
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

// Update applies a partial cursor update. Only non-nil fields are written;
// the rest keep their stored values.
func (r *SyncCursorRepository) Update(ctx context.Context, update models.CursorUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if update.StateToken != nil {
		sets = append(sets, "state_token = ?")
		args = append(args, *update.StateToken)
	}
	if update.PageToken != nil {
		sets = append(sets, "page_token = ?")
		args = append(args, *update.PageToken)
	}
	if update.InitComplete != nil {
		sets = append(sets, "init_complete = ?")
		args = append(args, *update.InitComplete)
	}

	query := "UPDATE sync_state SET " + strings.Join(sets, ", ") + " WHERE id = 1"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write sync cursor: %w", err)
	}
	return nil
}
