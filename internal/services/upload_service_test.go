package services

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/client/internal/models"
)

type fakeUploader struct {
	mu         sync.Mutex
	resolved   map[string]string
	failCommit map[string]bool
	slotErr    error
	transfers  int
	resolves   int
	commits    []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		resolved:   make(map[string]string),
		failCommit: make(map[string]bool),
	}
}

func (f *fakeUploader) ResolveByHash(ctx context.Context, sha1Hash []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	return f.resolved[base64.StdEncoding.EncodeToString(sha1Hash)], nil
}

func (f *fakeUploader) RequestUploadSlot(ctx context.Context, sha1HashB64 string, fileSize int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slotErr != nil {
		return "", f.slotErr
	}
	return "slot-" + sha1HashB64, nil
}

func (f *fakeUploader) Transfer(ctx context.Context, uploadToken string, body io.Reader, size int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers++
	return "receipt-" + uploadToken, nil
}

func (f *fakeUploader) CommitUpload(ctx context.Context, receipt, fileName string, sha1Hash []byte, uploadTimestamp int64, quality, deviceMake, deviceModel string, deviceAPILevel int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCommit[fileName] {
		return "", errors.New("commit rejected")
	}
	f.commits = append(f.commits, fileName)
	return "mk-" + fileName, nil
}

func newTestUploadService(api RemoteUploader) *UploadService {
	return NewUploadService(api, NewHashService(), NewEXIFService())
}

func writeMediaFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadSingleFile(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)
	path := writeMediaFile(t, t.TempDir(), "photo.jpg", "pixels")

	uploaded, err := service.Upload(context.Background(), NewTarget(path), UploadOptions{})
	require.NoError(t, err)

	abs, _ := filepath.Abs(path)
	assert.Equal(t, map[string]string{abs: "mk-photo.jpg"}, uploaded)
	assert.Equal(t, 1, uploader.transfers)
}

func TestUploadDeduplicationSkipsTransfer(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)
	path := writeMediaFile(t, t.TempDir(), "photo.jpg", "pixels")

	_, b64, err := NewHashService().HashFile(path, nil)
	require.NoError(t, err)
	uploader.resolved[b64] = "existing-key"

	uploaded, err := service.Upload(context.Background(), NewTarget(path), UploadOptions{})
	require.NoError(t, err)

	abs, _ := filepath.Abs(path)
	assert.Equal(t, "existing-key", uploaded[abs])
	// A known hash never moves bytes
	assert.Zero(t, uploader.transfers)
	assert.Empty(t, uploader.commits)
}

func TestUploadForceSkipsDedupCheck(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)
	path := writeMediaFile(t, t.TempDir(), "photo.jpg", "pixels")

	_, b64, err := NewHashService().HashFile(path, nil)
	require.NoError(t, err)
	uploader.resolved[b64] = "existing-key"

	uploaded, err := service.Upload(context.Background(), NewTarget(path), UploadOptions{ForceUpload: true})
	require.NoError(t, err)

	abs, _ := filepath.Abs(path)
	assert.Equal(t, "mk-photo.jpg", uploaded[abs])
	assert.Zero(t, uploader.resolves)
	assert.Equal(t, 1, uploader.transfers)
}

func TestUploadPartialFailureIsIsolated(t *testing.T) {
	uploader := newFakeUploader()
	uploader.failCommit["bad.jpg"] = true
	service := newTestUploadService(uploader)

	dir := t.TempDir()
	writeMediaFile(t, dir, "good1.jpg", "one")
	writeMediaFile(t, dir, "bad.jpg", "two")
	writeMediaFile(t, dir, "good2.jpg", "three")

	uploaded, err := service.Upload(context.Background(), NewTarget(dir), UploadOptions{Threads: 3})
	require.NoError(t, err)

	assert.Len(t, uploaded, 2)
	for path := range uploaded {
		assert.NotEqual(t, "bad.jpg", filepath.Base(path))
	}
}

func TestUploadTargetExpansion(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)

	t.Run("empty directory fails", func(t *testing.T) {
		_, err := service.Upload(context.Background(), NewTarget(t.TempDir()), UploadOptions{})
		assert.ErrorIs(t, err, models.ErrNoFilesInDir)
	})

	t.Run("directory without media fails", func(t *testing.T) {
		dir := t.TempDir()
		writeMediaFile(t, dir, "notes.txt", "text")
		_, err := service.Upload(context.Background(), NewTarget(dir), UploadOptions{})
		assert.ErrorIs(t, err, models.ErrNoMediaFiles)
	})

	t.Run("single non-media file fails", func(t *testing.T) {
		path := writeMediaFile(t, t.TempDir(), "notes.txt", "text")
		_, err := service.Upload(context.Background(), NewTarget(path), UploadOptions{})
		assert.ErrorIs(t, err, models.ErrUnsupportedMime)
	})

	t.Run("missing path fails", func(t *testing.T) {
		_, err := service.Upload(context.Background(), NewTarget(filepath.Join(t.TempDir(), "nope")), UploadOptions{})
		assert.ErrorIs(t, err, models.ErrInvalidPath)
	})

	t.Run("non-media entries are skipped alongside media", func(t *testing.T) {
		dir := t.TempDir()
		writeMediaFile(t, dir, "photo.jpg", "pixels")
		writeMediaFile(t, dir, "notes.txt", "text")

		uploaded, err := service.Upload(context.Background(), NewTarget(dir), UploadOptions{})
		require.NoError(t, err)
		assert.Len(t, uploaded, 1)
	})

	t.Run("recursive walks nested directories", func(t *testing.T) {
		dir := t.TempDir()
		nested := filepath.Join(dir, "trip", "day2")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		writeMediaFile(t, dir, "top.jpg", "a")
		writeMediaFile(t, nested, "deep.jpg", "b")

		uploaded, err := service.Upload(context.Background(), NewTarget(dir), UploadOptions{Recursive: true})
		require.NoError(t, err)
		assert.Len(t, uploaded, 2)
	})

	t.Run("non-recursive ignores nested directories", func(t *testing.T) {
		dir := t.TempDir()
		nested := filepath.Join(dir, "trip")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		writeMediaFile(t, dir, "top.jpg", "a")
		writeMediaFile(t, nested, "deep.jpg", "b")

		uploaded, err := service.Upload(context.Background(), NewTarget(dir), UploadOptions{})
		require.NoError(t, err)
		assert.Len(t, uploaded, 1)
	})
}

func TestUploadHashedTarget(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)

	t.Run("pre-hashed files bypass media type checks", func(t *testing.T) {
		// The extension maps to no MIME type at all
		path := writeMediaFile(t, t.TempDir(), "export.dat", "blob")
		digest := []byte("0123456789abcdefghij")
		uploader.resolved[base64.StdEncoding.EncodeToString(digest)] = "dedup-key"

		uploaded, err := service.Upload(context.Background(),
			NewHashedTarget(map[string]HashInput{path: RawHash(digest)}), UploadOptions{})
		require.NoError(t, err)

		abs, _ := filepath.Abs(path)
		assert.Equal(t, "dedup-key", uploaded[abs])
	})

	t.Run("empty mapping fails", func(t *testing.T) {
		_, err := service.Upload(context.Background(),
			NewHashedTarget(map[string]HashInput{}), UploadOptions{})
		assert.ErrorIs(t, err, models.ErrNoMediaFiles)
	})
}

func TestUploadFilter(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)

	setup := func(t *testing.T) string {
		dir := t.TempDir()
		writeMediaFile(t, dir, "cat.jpg", "a")
		writeMediaFile(t, dir, "dog.jpg", "b")
		writeMediaFile(t, dir, "CATALOG.jpg", "c")
		return dir
	}

	t.Run("substring include", func(t *testing.T) {
		uploaded, err := service.Upload(context.Background(), NewTarget(setup(t)),
			UploadOptions{Filter: FilterOptions{Expression: "cat"}})
		require.NoError(t, err)
		assert.Len(t, uploaded, 1)
	})

	t.Run("case-insensitive include", func(t *testing.T) {
		uploaded, err := service.Upload(context.Background(), NewTarget(setup(t)),
			UploadOptions{Filter: FilterOptions{Expression: "cat", IgnoreCase: true}})
		require.NoError(t, err)
		assert.Len(t, uploaded, 2)
	})

	t.Run("exclude inverts the match", func(t *testing.T) {
		uploaded, err := service.Upload(context.Background(), NewTarget(setup(t)),
			UploadOptions{Filter: FilterOptions{Expression: "cat", Exclude: true}})
		require.NoError(t, err)
		assert.Len(t, uploaded, 2)
	})

	t.Run("regex include", func(t *testing.T) {
		uploaded, err := service.Upload(context.Background(), NewTarget(setup(t)),
			UploadOptions{Filter: FilterOptions{Expression: `^(cat|dog)\.jpg$`, Regex: true}})
		require.NoError(t, err)
		assert.Len(t, uploaded, 2)
	})

	t.Run("invalid regex fails", func(t *testing.T) {
		_, err := service.Upload(context.Background(), NewTarget(setup(t)),
			UploadOptions{Filter: FilterOptions{Expression: `([`, Regex: true}})
		assert.Error(t, err)
	})

	t.Run("nothing left after filtering fails", func(t *testing.T) {
		_, err := service.Upload(context.Background(), NewTarget(setup(t)),
			UploadOptions{Filter: FilterOptions{Expression: "zebra"}})
		assert.ErrorIs(t, err, models.ErrNoFilesAfterMatch)
	})
}

func TestUploadDeleteFromHost(t *testing.T) {
	uploader := newFakeUploader()
	uploader.failCommit["keep.jpg"] = true
	service := newTestUploadService(uploader)

	dir := t.TempDir()
	gone := writeMediaFile(t, dir, "gone.jpg", "a")
	keep := writeMediaFile(t, dir, "keep.jpg", "b")

	_, err := service.Upload(context.Background(), NewTarget(dir), UploadOptions{DeleteFromHost: true})
	require.NoError(t, err)

	_, err = os.Stat(gone)
	assert.True(t, os.IsNotExist(err))
	// Failed uploads keep their local file
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}

// cancellingUploader cancels the run's context the moment the first task
// asks for an upload slot
type cancellingUploader struct {
	*fakeUploader
	cancel context.CancelFunc
}

func (c *cancellingUploader) RequestUploadSlot(ctx context.Context, sha1HashB64 string, fileSize int64) (string, error) {
	c.cancel()
	return "", ctx.Err()
}

func TestUploadCancellationDropsPendingTasks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"} {
		writeMediaFile(t, dir, name, name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uploader := &cancellingUploader{fakeUploader: newFakeUploader(), cancel: cancel}
	service := newTestUploadService(uploader)

	uploaded, err := service.Upload(ctx, NewTarget(dir), UploadOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, uploaded)

	// With a width-1 pool, one task was in flight and at most one more was
	// already handed over before the feeder saw the cancellation; the rest
	// never start.
	uploader.mu.Lock()
	defer uploader.mu.Unlock()
	assert.LessOrEqual(t, uploader.resolves, 2)
	assert.Zero(t, uploader.transfers)
}

func TestUploadReportsTaskProgress(t *testing.T) {
	uploader := newFakeUploader()
	service := newTestUploadService(uploader)
	path := writeMediaFile(t, t.TempDir(), "photo.jpg", "pixels")

	recorder := &progressRecorder{}
	_, err := service.Upload(context.Background(), NewTarget(path), UploadOptions{Progress: recorder})
	require.NoError(t, err)

	assert.Equal(t, []models.TaskStatus{
		models.TaskPending,
		models.TaskHashing,
		models.TaskCheckingRemote,
		models.TaskTransferring,
		models.TaskCommitting,
		models.TaskDone,
	}, recorder.statuses)
	assert.NotEmpty(t, recorder.bytes)
}

type progressRecorder struct {
	mu       sync.Mutex
	statuses []models.TaskStatus
	bytes    []int64
}

func (r *progressRecorder) TaskStatus(task *models.UploadTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, task.Status)
}

func (r *progressRecorder) TaskBytes(task *models.UploadTask, done, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes = append(r.bytes, done)
}
