package services

import "github.com/photomirror/client/internal/models"

// ProgressFunc receives byte-level progress while a file is hashed or
// transferred. Implementations must be cheap; it is called per chunk.
type ProgressFunc func(bytesDone, bytesTotal int64)

// SyncProgress receives cumulative counters after each applied library
// page. Counts accumulate across the whole run, not per page.
type SyncProgress interface {
	PageApplied(totalUpdated, totalDeleted int)
}

// SyncProgressFunc adapts a plain function to the SyncProgress interface
type SyncProgressFunc func(totalUpdated, totalDeleted int)

func (f SyncProgressFunc) PageApplied(totalUpdated, totalDeleted int) {
	f(totalUpdated, totalDeleted)
}

// UploadProgress receives upload task state transitions
type UploadProgress interface {
	TaskStatus(task *models.UploadTask)
	TaskBytes(task *models.UploadTask, bytesDone, bytesTotal int64)
}

type noopSyncProgress struct{}

func (noopSyncProgress) PageApplied(int, int) {}

type noopUploadProgress struct{}

func (noopUploadProgress) TaskStatus(*models.UploadTask)              {}
func (noopUploadProgress) TaskBytes(*models.UploadTask, int64, int64) {}
