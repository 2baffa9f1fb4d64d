package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus tracks an upload task through the pipeline
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskHashing
	TaskCheckingRemote
	TaskTransferring
	TaskCommitting
	TaskDone
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskHashing:
		return "hashing"
	case TaskCheckingRemote:
		return "checking"
	case TaskTransferring:
		return "transferring"
	case TaskCommitting:
		return "committing"
	case TaskDone:
		return "done"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadTask is the ephemeral unit of work in the upload pipeline, one per
// submitted file. It is never persisted.
type UploadTask struct {
	ID        string
	LocalPath string
	Size      int64
	Status    TaskStatus
	MediaKey  string
	Err       error
	CreatedAt time.Time
}

// NewUploadTask creates a pending task for a local file
func NewUploadTask(localPath string, size int64) *UploadTask {
	return &UploadTask{
		ID:        uuid.New().String(),
		LocalPath: localPath,
		Size:      size,
		Status:    TaskPending,
		CreatedAt: time.Now().UTC(),
	}
}

// DeviceProfile selects storage-quota and quality behavior on the remote
// side. The values are opaque to the pipeline and are threaded through the
// commit call unchanged.
type DeviceProfile struct {
	Make       string
	Model      string
	APIVersion int
	Quality    string
}

// SelectDeviceProfile maps the two independent upload axes (counts against
// quota, storage-saver quality) onto the device profile the remote expects.
func SelectDeviceProfile(useQuota, saver bool) DeviceProfile {
	profile := DeviceProfile{
		Make:       "Google",
		Model:      "Pixel XL",
		APIVersion: 28,
		Quality:    "original",
	}
	if saver {
		profile.Model = "Pixel 2"
		profile.Quality = "saver"
	}
	if useQuota {
		profile.Model = "Pixel 8"
	}
	return profile
}
