package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/client/internal/models"
)

func newTestStore(t *testing.T) *MirrorStore {
	t.Helper()
	return NewMirrorStore(filepath.Join(t.TempDir(), "mirror.db"))
}

func testMedia(key string) *models.RemoteMedia {
	return &models.RemoteMedia{
		MediaKey:     key,
		DedupKey:     "dedup-" + key,
		FileName:     key + ".jpg",
		Type:         models.MediaTypeImage,
		SizeBytes:    2048,
		UTCTimestamp: 1700000000,
		Width:        4032,
		Height:       3024,
		CameraMake:   "Google",
		CameraModel:  "Pixel XL",
		IsFavorite:   true,
	}
}

func TestMirrorStore_Upsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("inserts new records", func(t *testing.T) {
		err := store.Upsert(ctx, []*models.RemoteMedia{testMedia("k1"), testMedia("k2")})
		require.NoError(t, err)

		count, err := store.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		got, err := store.GetByKey(ctx, "k1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "k1.jpg", got.FileName)
		assert.Equal(t, models.MediaTypeImage, got.Type)
		assert.True(t, got.IsFavorite)
	})

	t.Run("is idempotent", func(t *testing.T) {
		batch := []*models.RemoteMedia{testMedia("k1"), testMedia("k2")}
		require.NoError(t, store.Upsert(ctx, batch))
		require.NoError(t, store.Upsert(ctx, batch))

		count, err := store.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("updates all columns on conflict", func(t *testing.T) {
		updated := testMedia("k1")
		updated.FileName = "renamed.jpg"
		updated.IsFavorite = false
		updated.TrashTimestamp = 1700000500

		require.NoError(t, store.Upsert(ctx, []*models.RemoteMedia{updated}))

		got, err := store.GetByKey(ctx, "k1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "renamed.jpg", got.FileName)
		assert.False(t, got.IsFavorite)
		assert.Equal(t, int64(1700000500), got.TrashTimestamp)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, nil))
	})

	t.Run("rolls back the whole batch on a bad record", func(t *testing.T) {
		before, err := store.GetCount(ctx)
		require.NoError(t, err)

		batch := []*models.RemoteMedia{testMedia("k9"), {MediaKey: ""}}
		err = store.Upsert(ctx, batch)
		require.Error(t, err)

		after, err := store.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after, "partial batch must not be committed")
	})
}

func TestMirrorStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []*models.RemoteMedia{
		testMedia("a"), testMedia("b"), testMedia("c"),
	}))

	t.Run("removes records by key", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, []string{"a", "c"}))

		count, err := store.GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got, err := store.GetByKey(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, []string{"missing"}))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, nil))
	})
}

func TestMirrorStore_Cursor(t *testing.T) {
	ctx := context.Background()

	t.Run("returns zero cursor when unset", func(t *testing.T) {
		store := newTestStore(t)

		cursor, err := store.ReadCursor(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.SyncCursor{}, cursor)
	})

	t.Run("partial update leaves other fields untouched", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.WriteCursor(ctx, models.CursorUpdate{
			StateToken: models.String("s1"),
			PageToken:  models.String("p1"),
		}))
		require.NoError(t, store.WriteCursor(ctx, models.CursorUpdate{
			PageToken: models.String("p2"),
		}))

		cursor, err := store.ReadCursor(ctx)
		require.NoError(t, err)
		assert.Equal(t, "s1", cursor.StateToken)
		assert.Equal(t, "p2", cursor.PageToken)
		assert.False(t, cursor.InitComplete)
	})

	t.Run("init flag alone does not clobber tokens", func(t *testing.T) {
		store := newTestStore(t)

		require.NoError(t, store.WriteCursor(ctx, models.CursorUpdate{
			StateToken: models.String("s1"),
			PageToken:  models.String(""),
		}))
		require.NoError(t, store.WriteCursor(ctx, models.CursorUpdate{
			InitComplete: models.Bool(true),
		}))

		cursor, err := store.ReadCursor(ctx)
		require.NoError(t, err)
		assert.Equal(t, "s1", cursor.StateToken)
		assert.True(t, cursor.InitComplete)
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.WriteCursor(ctx, models.CursorUpdate{}))
	})

	t.Run("cursor survives reopening the store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mirror.db")
		store := NewMirrorStore(path)

		require.NoError(t, store.WriteCursor(ctx, models.CursorUpdate{
			StateToken:   models.String("epoch-7"),
			InitComplete: models.Bool(true),
		}))

		reopened := NewMirrorStore(path)
		cursor, err := reopened.ReadCursor(ctx)
		require.NoError(t, err)
		assert.Equal(t, "epoch-7", cursor.StateToken)
		assert.True(t, cursor.InitComplete)
	})
}
