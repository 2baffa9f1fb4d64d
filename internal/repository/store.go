package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/photomirror/client/internal/models"
	"github.com/photomirror/client/internal/observability"
)

// MirrorStore is the durable local mirror: the remote_media table plus the
// singleton sync cursor. It opens its database per logical operation
// (open, operate, close) so a long sync run never starves a concurrent
// status reader of the underlying file.
type MirrorStore struct {
	usePostgres bool
	dsn         string
}

// NewMirrorStore creates a MirrorStore backed by SQLite at dbPath
func NewMirrorStore(dbPath string) *MirrorStore {
	return &MirrorStore{dsn: dbPath}
}

// NewMirrorStorePostgres creates a MirrorStore backed by PostgreSQL
func NewMirrorStorePostgres(connStr string) *MirrorStore {
	return &MirrorStore{usePostgres: true, dsn: connStr}
}

func (s *MirrorStore) open() (*sql.DB, error) {
	if s.usePostgres {
		return NewPostgresDB(s.dsn)
	}
	return NewSQLiteDB(s.dsn)
}

func (s *MirrorStore) mediaRepo(db *sql.DB) MediaRepo {
	if s.usePostgres {
		return NewMediaRepositoryPostgres(db)
	}
	return NewMediaRepository(db)
}

func (s *MirrorStore) cursorRepo(db *sql.DB) SyncCursorRepo {
	if s.usePostgres {
		return NewSyncCursorRepositoryPostgres(db)
	}
	return NewSyncCursorRepository(db)
}

// Upsert applies a batch of mirror records atomically
func (s *MirrorStore) Upsert(ctx context.Context, items []*models.RemoteMedia) error {
	if len(items) == 0 {
		return nil
	}
	ctx, span := observability.StartStoreSpan(ctx, "upsert", "remote_media")
	defer span.End()
	db, err := s.open()
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("failed to open mirror store: %w", err)
	}
	defer db.Close()
	if err := s.mediaRepo(db).Upsert(ctx, items); err != nil {
		observability.RecordError(span, err)
		return err
	}
	return nil
}

// Delete removes a batch of mirror records atomically
func (s *MirrorStore) Delete(ctx context.Context, mediaKeys []string) error {
	if len(mediaKeys) == 0 {
		return nil
	}
	ctx, span := observability.StartStoreSpan(ctx, "delete", "remote_media")
	defer span.End()
	db, err := s.open()
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("failed to open mirror store: %w", err)
	}
	defer db.Close()
	if err := s.mediaRepo(db).Delete(ctx, mediaKeys); err != nil {
		observability.RecordError(span, err)
		return err
	}
	return nil
}

// ReadCursor returns the stored sync cursor, zero-valued when unset
func (s *MirrorStore) ReadCursor(ctx context.Context) (models.SyncCursor, error) {
	db, err := s.open()
	if err != nil {
		return models.SyncCursor{}, fmt.Errorf("failed to open mirror store: %w", err)
	}
	defer db.Close()
	return s.cursorRepo(db).Get(ctx)
}

// WriteCursor applies a partial cursor update
func (s *MirrorStore) WriteCursor(ctx context.Context, update models.CursorUpdate) error {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to open mirror store: %w", err)
	}
	defer db.Close()
	return s.cursorRepo(db).Update(ctx, update)
}

// GetByKey retrieves one mirror record, or nil when absent
func (s *MirrorStore) GetByKey(ctx context.Context, mediaKey string) (*models.RemoteMedia, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror store: %w", err)
	}
	defer db.Close()
	return s.mediaRepo(db).GetByKey(ctx, mediaKey)
}

// GetCount returns the number of mirrored records
func (s *MirrorStore) GetCount(ctx context.Context) (int, error) {
	db, err := s.open()
	if err != nil {
		return 0, fmt.Errorf("failed to open mirror store: %w", err)
	}
	defer db.Close()
	return s.mediaRepo(db).GetCount(ctx)
}
