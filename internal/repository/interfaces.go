package repository

import (
	"context"

	"github.com/photomirror/client/internal/models"
)

// MediaRepo defines the interface for mirror record persistence
type MediaRepo interface {
	Upsert(ctx context.Context, items []*models.RemoteMedia) error
	Delete(ctx context.Context, mediaKeys []string) error
	GetByKey(ctx context.Context, mediaKey string) (*models.RemoteMedia, error)
	GetCount(ctx context.Context) (int, error)
}

// SyncCursorRepo defines the interface for sync cursor persistence
type SyncCursorRepo interface {
	Get(ctx context.Context) (models.SyncCursor, error)
	Update(ctx context.Context, update models.CursorUpdate) error
}
