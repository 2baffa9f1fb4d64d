package models

// MediaType distinguishes still images from videos in the mirror
type MediaType int

const (
	MediaTypeUnknown MediaType = 0
	MediaTypeImage   MediaType = 1
	MediaTypeVideo   MediaType = 2
)

// RemoteMedia is the local projection of one remote media item.
// The mirror is a cache of the remote library, keyed by MediaKey; a row
// present here is believed to currently exist remotely.
type RemoteMedia struct {
	MediaKey  string    `json:"mediaKey"`
	DedupKey  string    `json:"dedupKey"`
	FileName  string    `json:"fileName"`
	Type      MediaType `json:"type"`
	Caption   string    `json:"caption"`
	SizeBytes int64     `json:"sizeBytes"`

	UTCTimestamp            int64 `json:"utcTimestamp"`
	ServerCreationTimestamp int64 `json:"serverCreationTimestamp"`
	ContentVersion          int64 `json:"contentVersion"`
	TimezoneOffset          int64 `json:"timezoneOffset"`

	Width    int64 `json:"width"`
	Height   int64 `json:"height"`
	Duration int64 `json:"duration"`

	CameraMake   string  `json:"cameraMake"`
	CameraModel  string  `json:"cameraModel"`
	Aperture     float64 `json:"aperture"`
	ShutterSpeed float64 `json:"shutterSpeed"`
	ISO          int64   `json:"iso"`
	FocalLength  float64 `json:"focalLength"`

	UploadStatus      int64 `json:"uploadStatus"`
	TrashTimestamp    int64 `json:"trashTimestamp"`
	IsArchived        bool  `json:"isArchived"`
	IsFavorite        bool  `json:"isFavorite"`
	IsLocked          bool  `json:"isLocked"`
	IsOriginalQuality bool  `json:"isOriginalQuality"`
}

// MediaError represents a media domain validation error
type MediaError struct {
	message string
}

func (e MediaError) Error() string {
	return e.message
}

var (
	ErrEmptyMediaKey     = MediaError{"media key cannot be empty"}
	ErrNoMediaFiles      = MediaError{"no valid media files found to upload"}
	ErrNoFilesInDir      = MediaError{"no files in the directory"}
	ErrNoFilesAfterMatch = MediaError{"no media files left after filtering"}
	ErrUnsupportedMime   = MediaError{"file mime type does not match image or video"}
	ErrInvalidPath       = MediaError{"invalid path: expected a file or directory"}
	ErrEmptyCollection   = MediaError{"collection requires at least one media key"}
	ErrEmptyHashInput    = MediaError{"hash or file path must be provided"}
	ErrInvalidHashFormat = MediaError{"invalid sha1 hash format"}
)
