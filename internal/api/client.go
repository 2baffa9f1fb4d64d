package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/photomirror/client/internal/observability"
)

const (
	// DefaultTimeout bounds a single remote call
	DefaultTimeout = 30 * time.Second

	maxAttempts = 5
)

// Client talks to the remote media library service. Every call is a
// fallible remote procedure; idempotent calls are retried with exponential
// backoff on gateway errors, everything else fails fast.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *observability.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient overrides the underlying HTTP client (used by tests)
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client for baseURL whose requests carry bearer
// tokens from the given source.
func NewClient(baseURL string, tokenSource oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: oauth2.NewClient(context.Background(), tokenSource),
		timeout:    DefaultTimeout,
		logger:     observability.GetLogger().WithField("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryable reports whether a response status warrants another attempt
func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// doJSON performs one JSON request with retry. A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out interface{}) error {
	ctx, span := observability.StartRemoteSpan(ctx, op)
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	operation := func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("X-Request-ID", uuid.New().String())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport errors are worth another attempt unless the
			// caller's context is gone
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			remoteErr := &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(bytes.TrimSpace(data)))}
			if retryable(resp.StatusCode) {
				c.logger.Warnf("%s returned %d, retrying", op, resp.StatusCode)
				return nil, remoteErr
			}
			return nil, backoff.Permanent(remoteErr)
		}

		return data, nil
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		observability.RecordError(span, err)
		if _, ok := err.(*RemoteError); ok {
			return err
		}
		return &RemoteError{Op: op, Err: err}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			observability.RecordError(span, err)
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	observability.SetSuccess(span)
	return nil
}

// ResolveByHash returns the media key of a remote item with the given
// SHA-1 digest, or "" when the remote does not know the hash.
func (c *Client) ResolveByHash(ctx context.Context, sha1Hash []byte) (string, error) {
	req := resolveRequest{SHA1Hash: base64.StdEncoding.EncodeToString(sha1Hash)}
	var resp resolveResponse
	err := c.doJSON(ctx, "resolve", http.MethodPost, "/api/media/resolve", req, &resp)
	if err != nil {
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return resp.MediaKey, nil
}

// RequestUploadSlot reserves an upload slot sized to the file and returns
// its token.
func (c *Client) RequestUploadSlot(ctx context.Context, sha1HashB64 string, fileSize int64) (string, error) {
	req := uploadSlotRequest{SHA1Hash: sha1HashB64, FileSize: fileSize}
	var resp uploadSlotResponse
	if err := c.doJSON(ctx, "upload-slot", http.MethodPost, "/api/uploads", req, &resp); err != nil {
		return "", err
	}
	if resp.UploadToken == "" {
		return "", &RemoteError{Op: "upload-slot", Err: fmt.Errorf("response missing upload token")}
	}
	return resp.UploadToken, nil
}

// Transfer streams the file bytes into an upload slot and returns the
// opaque receipt the commit call needs. The body is a one-shot stream, so
// this call is never retried.
func (c *Client) Transfer(ctx context.Context, uploadToken string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/uploads/"+uploadToken, body)
	if err != nil {
		return "", &RemoteError{Op: "transfer", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Request-ID", uuid.New().String())
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RemoteError{Op: "transfer", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RemoteError{Op: "transfer", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RemoteError{Op: "transfer", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(bytes.TrimSpace(data)))}
	}

	var decoded transferResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode transfer response: %w", err)
	}
	if decoded.Receipt == "" {
		return "", &RemoteError{Op: "transfer", Err: fmt.Errorf("response missing receipt")}
	}
	return decoded.Receipt, nil
}

// CommitUpload finalizes an upload and returns the new media key. The
// device profile values are threaded through unchanged; the remote uses
// them to pick quota and quality behavior.
func (c *Client) CommitUpload(ctx context.Context, receipt, fileName string, sha1Hash []byte, uploadTimestamp int64, quality, deviceMake, deviceModel string, deviceAPILevel int) (string, error) {
	req := commitRequest{
		Receipt:         receipt,
		FileName:        fileName,
		SHA1Hash:        base64.StdEncoding.EncodeToString(sha1Hash),
		UploadTimestamp: uploadTimestamp,
		Quality:         quality,
		DeviceMake:      deviceMake,
		DeviceModel:     deviceModel,
		DeviceAPILevel:  deviceAPILevel,
	}
	var resp commitResponse
	if err := c.doJSON(ctx, "commit", http.MethodPost, "/api/uploads/commit", req, &resp); err != nil {
		return "", err
	}
	if resp.MediaKey == "" {
		return "", ErrUploadRejected
	}
	return resp.MediaKey, nil
}

// FetchLibraryInit fetches one page of the initial library traversal.
// The init traversal uses a narrower field projection than steady-state
// paging, which is why it is a distinct endpoint.
func (c *Client) FetchLibraryInit(ctx context.Context, pageToken string) (*LibraryPage, error) {
	req := libraryInitRequest{PageToken: pageToken}
	var page LibraryPage
	if err := c.doJSON(ctx, "library-init", http.MethodPost, "/api/library/init", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchLibrary fetches the library state for a snapshot epoch, or the next
// page within it when pageToken is non-empty.
func (c *Client) FetchLibrary(ctx context.Context, stateToken, pageToken string) (*LibraryPage, error) {
	req := libraryStateRequest{StateToken: stateToken, PageToken: pageToken}
	var page LibraryPage
	if err := c.doJSON(ctx, "library-state", http.MethodPost, "/api/library/state", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateCollection creates a named collection seeded with media keys and
// returns the collection key.
func (c *Client) CreateCollection(ctx context.Context, name string, mediaKeys []string) (string, error) {
	req := createCollectionRequest{Name: name, MediaKeys: mediaKeys}
	var resp createCollectionResponse
	if err := c.doJSON(ctx, "create-collection", http.MethodPost, "/api/collections", req, &resp); err != nil {
		return "", err
	}
	if resp.CollectionKey == "" {
		return "", &RemoteError{Op: "create-collection", Err: fmt.Errorf("response missing collection key")}
	}
	return resp.CollectionKey, nil
}

// AddToCollection appends media keys to an existing collection
func (c *Client) AddToCollection(ctx context.Context, collectionKey string, mediaKeys []string) error {
	req := addToCollectionRequest{MediaKeys: mediaKeys}
	return c.doJSON(ctx, "add-to-collection", http.MethodPost, "/api/collections/"+collectionKey+"/media", req, nil)
}

// MoveToTrash moves remote items to the trash by dedup key
func (c *Client) MoveToTrash(ctx context.Context, dedupKeys []string) error {
	req := trashRequest{DedupKeys: dedupKeys}
	return c.doJSON(ctx, "trash", http.MethodPost, "/api/media/trash", req, nil)
}
