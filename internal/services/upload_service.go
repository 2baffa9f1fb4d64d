package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/photomirror/client/internal/models"
	"github.com/photomirror/client/internal/observability"
)

// RemoteUploader is the remote surface the upload pipeline consumes
type RemoteUploader interface {
	ResolveByHash(ctx context.Context, sha1Hash []byte) (string, error)
	RequestUploadSlot(ctx context.Context, sha1HashB64 string, fileSize int64) (string, error)
	Transfer(ctx context.Context, uploadToken string, body io.Reader, size int64) (string, error)
	CommitUpload(ctx context.Context, receipt, fileName string, sha1Hash []byte, uploadTimestamp int64, quality, deviceMake, deviceModel string, deviceAPILevel int) (string, error)
}

// Target is the normalized upload input: plain paths to expand, or a
// pre-hashed path-to-digest mapping taken as-is.
type Target struct {
	paths  []string
	hashed map[string]HashInput
}

// NewTarget creates a target from one or more file or directory paths
func NewTarget(paths ...string) Target {
	return Target{paths: paths}
}

// NewHashedTarget creates a target from files whose SHA-1 digests are
// already known, skipping directory expansion and MIME filtering.
func NewHashedTarget(files map[string]HashInput) Target {
	return Target{hashed: files}
}

// FilterOptions narrows an expanded file set before uploading
type FilterOptions struct {
	Expression string
	Exclude    bool
	Regex      bool
	IgnoreCase bool
	MatchPath  bool
}

// UploadOptions control one pipeline invocation
type UploadOptions struct {
	Threads        int
	ForceUpload    bool
	UseQuota       bool
	Saver          bool
	Recursive      bool
	DeleteFromHost bool
	Filter         FilterOptions
	Progress       UploadProgress
}

// UploadService uploads local files to the remote store, deduplicating by
// content hash before any bytes move. Tasks run on a bounded worker pool;
// one task's failure never affects its siblings.
type UploadService struct {
	api     RemoteUploader
	hash    *HashService
	exif    *EXIFService
	logger  *observability.Logger
	metrics *observability.UploadMetrics
}

// NewUploadService creates a new UploadService
func NewUploadService(api RemoteUploader, hashService *HashService, exifService *EXIFService) *UploadService {
	metrics, err := observability.NewUploadMetrics()
	if err != nil {
		observability.Warnf("upload metrics unavailable: %v", err)
	}
	return &UploadService{
		api:     api,
		hash:    hashService,
		exif:    exifService,
		logger:  observability.GetLogger().WithField("component", "upload"),
		metrics: metrics,
	}
}

type uploadJob struct {
	path  string
	input HashInput
}

type uploadResult struct {
	path     string
	mediaKey string
	err      error
}

// Upload runs the pipeline for the target and returns the mapping of
// absolute file paths to remote media keys for every file that made it.
// Per-file failures are logged and counted but never abort the call;
// input errors abort before any task starts.
func (s *UploadService) Upload(ctx context.Context, target Target, opts UploadOptions) (map[string]string, error) {
	ctx, span := observability.StartServiceSpan(ctx, "upload", "Upload")
	defer span.End()

	files, err := s.normalizeTarget(target, opts)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	progress := opts.Progress
	if progress == nil {
		progress = noopUploadProgress{}
	}

	workers := opts.Threads
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan uploadJob)
	results := make(chan uploadResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				mediaKey, err := s.uploadOne(ctx, job.path, job.input, opts, progress)
				results <- uploadResult{path: job.path, mediaKey: mediaKey, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for path, input := range files {
			select {
			case jobs <- uploadJob{path: path, input: input}:
			case <-ctx.Done():
				// Not-yet-started tasks are dropped on cancellation
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// The collector is the only owner of the result map
	uploaded := make(map[string]string)
	failures := 0
	for result := range results {
		if result.err != nil {
			failures++
			s.logger.Errorf("error uploading file %s: %v", result.path, result.err)
			continue
		}
		uploaded[result.path] = result.mediaKey
	}

	if failures > 0 {
		s.logger.Warnf("%d of %d uploads failed", failures, len(files))
	}

	if opts.DeleteFromHost {
		for path := range uploaded {
			s.logger.Infof("%s deleting from host", path)
			if err := os.Remove(path); err != nil {
				s.logger.Errorf("failed to delete %s: %v", path, err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		observability.RecordError(span, err)
		return uploaded, err
	}

	observability.SetSuccess(span)
	return uploaded, nil
}

// uploadOne drives a single file through the pipeline: hash, dedup
// lookup, slot request, transfer, commit.
func (s *UploadService) uploadOne(ctx context.Context, path string, input HashInput, opts UploadOptions, progress UploadProgress) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	task := models.NewUploadTask(path, info.Size())
	progress.TaskStatus(task)

	var digest []byte
	var digestB64 string
	if input.IsZero() {
		task.Status = models.TaskHashing
		progress.TaskStatus(task)
		digest, digestB64, err = s.hash.HashFile(path, func(done, total int64) {
			progress.TaskBytes(task, done, total)
		})
	} else {
		digest, digestB64, err = s.hash.Resolve(input)
	}
	if err != nil {
		task.Status = models.TaskFailed
		task.Err = err
		progress.TaskStatus(task)
		return "", err
	}

	// Dedup fast path: a hash the remote already knows never transfers
	if !opts.ForceUpload {
		task.Status = models.TaskCheckingRemote
		progress.TaskStatus(task)
		mediaKey, err := s.api.ResolveByHash(ctx, digest)
		if err != nil {
			task.Status = models.TaskFailed
			task.Err = err
			progress.TaskStatus(task)
			return "", err
		}
		if mediaKey != "" {
			task.Status = models.TaskDone
			task.MediaKey = mediaKey
			progress.TaskStatus(task)
			s.metrics.RecordDeduplicated(ctx)
			return mediaKey, nil
		}
	}

	uploadToken, err := s.api.RequestUploadSlot(ctx, digestB64, info.Size())
	if err != nil {
		task.Status = models.TaskFailed
		task.Err = err
		progress.TaskStatus(task)
		return "", err
	}

	task.Status = models.TaskTransferring
	progress.TaskStatus(task)

	file, err := os.Open(path)
	if err != nil {
		task.Status = models.TaskFailed
		task.Err = err
		progress.TaskStatus(task)
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	reader := &progressReader{
		reader: file,
		total:  info.Size(),
		report: func(done, total int64) {
			progress.TaskBytes(task, done, total)
		},
	}
	receipt, err := s.api.Transfer(ctx, uploadToken, reader, info.Size())
	file.Close()
	if err != nil {
		task.Status = models.TaskFailed
		task.Err = err
		progress.TaskStatus(task)
		return "", err
	}

	task.Status = models.TaskCommitting
	progress.TaskStatus(task)

	profile := models.SelectDeviceProfile(opts.UseQuota, opts.Saver)
	timestamp := s.exif.UploadTimestamp(path)

	mediaKey, err := s.api.CommitUpload(ctx, receipt, filepath.Base(path), digest, timestamp,
		profile.Quality, profile.Make, profile.Model, profile.APIVersion)
	if err != nil {
		task.Status = models.TaskFailed
		task.Err = err
		progress.TaskStatus(task)
		s.metrics.RecordFailed(ctx)
		return "", err
	}

	task.Status = models.TaskDone
	task.MediaKey = mediaKey
	progress.TaskStatus(task)
	s.metrics.RecordCompleted(ctx, info.Size())
	return mediaKey, nil
}

// normalizeTarget turns the submitted target into an absolute-path to
// hash-input map, expanding directories and applying the filter. An
// empty final set is an input error, never a silent empty result.
func (s *UploadService) normalizeTarget(target Target, opts UploadOptions) (map[string]HashInput, error) {
	if target.hashed != nil {
		if len(target.hashed) == 0 {
			return nil, models.ErrNoMediaFiles
		}
		files := make(map[string]HashInput, len(target.hashed))
		for path, input := range target.hashed {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
			}
			files[abs] = input
		}
		return files, nil
	}

	var expanded []string
	for _, path := range target.paths {
		found, err := s.searchMediaFiles(path, opts.Recursive)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, found...)
	}

	if len(expanded) == 0 {
		return nil, models.ErrNoMediaFiles
	}

	if opts.Filter.Expression != "" {
		var err error
		expanded, err = filterFiles(expanded, opts.Filter)
		if err != nil {
			return nil, err
		}
		if len(expanded) == 0 {
			return nil, models.ErrNoFilesAfterMatch
		}
	}

	files := make(map[string]HashInput, len(expanded))
	for _, path := range expanded {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		files[abs] = HashInput{}
	}
	return files, nil
}

// searchMediaFiles expands a path into the media files beneath it. A
// single file must itself be a media file; a directory yields its
// image/video entries, recursively when asked.
func (s *UploadService) searchMediaFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidPath, path)
	}

	if !info.IsDir() {
		if !isMediaFile(path) {
			return nil, models.ErrUnsupportedMime
		}
		return []string{path}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}

	if len(files) == 0 {
		return nil, models.ErrNoFilesInDir
	}

	var media []string
	for _, file := range files {
		if isMediaFile(file) {
			media = append(media, file)
		}
	}
	if len(media) == 0 {
		return nil, models.ErrNoMediaFiles
	}
	return media, nil
}

// isMediaFile accepts files whose extension maps to an image or video
// MIME type
func isMediaFile(path string) bool {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}

// filterFiles applies the include/exclude expression to the file set,
// matching against the filename or the full path.
func filterFiles(paths []string, filter FilterOptions) ([]string, error) {
	var pattern *regexp.Regexp
	if filter.Regex {
		expr := filter.Expression
		if filter.IgnoreCase {
			expr = "(?i)" + expr
		}
		var err error
		pattern, err = regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	var filtered []string
	for _, path := range paths {
		text := filepath.Base(path)
		if filter.MatchPath {
			text = path
		}

		var matches bool
		if pattern != nil {
			matches = pattern.MatchString(text)
		} else if filter.IgnoreCase {
			matches = strings.Contains(strings.ToLower(text), strings.ToLower(filter.Expression))
		} else {
			matches = strings.Contains(text, filter.Expression)
		}

		if matches != filter.Exclude {
			filtered = append(filtered, path)
		}
	}
	return filtered, nil
}

// progressReader reports transfer progress while the HTTP client drains
// the file
type progressReader struct {
	reader io.Reader
	done   int64
	total  int64
	report func(done, total int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.done += int64(n)
		r.report(r.done, r.total)
	}
	return n, err
}
