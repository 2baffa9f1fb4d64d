package api

import (
	"fmt"

	"github.com/photomirror/client/internal/models"
)

// LibraryPage is one page of a library traversal: the snapshot epoch it
// belongs to, the position of the next page ("" when the traversal is
// done), and the mutations to apply to the mirror.
type LibraryPage struct {
	StateToken    string                `json:"stateToken"`
	NextPageToken string                `json:"nextPageToken"`
	Upserts       []*models.RemoteMedia `json:"upserts"`
	Deletes       []string              `json:"deletes"`
}

type resolveRequest struct {
	SHA1Hash string `json:"sha1Hash"`
}

type resolveResponse struct {
	MediaKey string `json:"mediaKey"`
}

type uploadSlotRequest struct {
	SHA1Hash string `json:"sha1Hash"`
	FileSize int64  `json:"fileSize"`
}

type uploadSlotResponse struct {
	UploadToken string `json:"uploadToken"`
}

type transferResponse struct {
	Receipt string `json:"receipt"`
}

type commitRequest struct {
	Receipt         string `json:"receipt"`
	FileName        string `json:"fileName"`
	SHA1Hash        string `json:"sha1Hash"`
	UploadTimestamp int64  `json:"uploadTimestamp"`
	Quality         string `json:"quality"`
	DeviceMake      string `json:"deviceMake"`
	DeviceModel     string `json:"deviceModel"`
	DeviceAPILevel  int    `json:"deviceApiLevel"`
}

type commitResponse struct {
	MediaKey string `json:"mediaKey"`
}

type libraryInitRequest struct {
	PageToken string `json:"pageToken"`
}

type libraryStateRequest struct {
	StateToken string `json:"stateToken"`
	PageToken  string `json:"pageToken"`
}

type createCollectionRequest struct {
	Name      string   `json:"name"`
	MediaKeys []string `json:"mediaKeys"`
}

type createCollectionResponse struct {
	CollectionKey string `json:"collectionKey"`
}

type addToCollectionRequest struct {
	MediaKeys []string `json:"mediaKeys"`
}

type trashRequest struct {
	DedupKeys []string `json:"dedupKeys"`
}

// RemoteError is a failed remote call: the operation, the HTTP status the
// remote answered with (0 for transport failures), and the cause.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ErrUploadRejected is returned when a commit response omits the media key
var ErrUploadRejected = fmt.Errorf("file upload rejected by remote")
