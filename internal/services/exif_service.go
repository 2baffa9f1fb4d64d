package services

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIFService extracts capture metadata from image files. Commit calls
// prefer the embedded capture time over the filesystem mtime when present.
type EXIFService struct{}

// NewEXIFService creates a new EXIFService
func NewEXIFService() *EXIFService {
	return &EXIFService{}
}

// CaptureTime returns the original capture time embedded in the file.
// ok is false when the file carries no usable EXIF block; videos and
// non-JPEG images typically land here.
func (s *EXIFService) CaptureTime(path string) (time.Time, bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, false
	}

	taken, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return taken, true
}

// UploadTimestamp picks the commit timestamp for a file: EXIF capture
// time when available, otherwise the file's last-modified time.
func (s *EXIFService) UploadTimestamp(path string) int64 {
	if taken, ok := s.CaptureTime(path); ok {
		return taken.Unix()
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Now().Unix()
	}
	return info.ModTime().Unix()
}
