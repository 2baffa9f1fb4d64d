package services

import (
	"context"
	"fmt"

	"github.com/photomirror/client/internal/models"
	"github.com/photomirror/client/internal/observability"
)

// trashBatch is the most dedup keys one trash call accepts
const trashBatch = 500

// MediaRemote is the remote surface for single-item media operations
type MediaRemote interface {
	ResolveByHash(ctx context.Context, sha1Hash []byte) (string, error)
	MoveToTrash(ctx context.Context, dedupKeys []string) error
}

// MediaService covers remote media operations outside the upload and
// sync pipelines: hash lookups and trashing.
type MediaService struct {
	api    MediaRemote
	hash   *HashService
	logger *observability.Logger
}

// NewMediaService creates a new MediaService
func NewMediaService(api MediaRemote, hashService *HashService) *MediaService {
	return &MediaService{
		api:    api,
		hash:   hashService,
		logger: observability.GetLogger().WithField("component", "media"),
	}
}

// MediaKeyByHash returns the media key owning the given content hash, or
// empty when the remote has never seen it
func (s *MediaService) MediaKeyByHash(ctx context.Context, input HashInput) (string, error) {
	digest, _, err := s.hash.Resolve(input)
	if err != nil {
		return "", err
	}
	return s.api.ResolveByHash(ctx, digest)
}

// Trash moves the items with the given content hashes into the remote
// trash. The remote addresses trash candidates by URL-safe dedup key, so
// each hash is converted before batching.
func (s *MediaService) Trash(ctx context.Context, inputs []HashInput) error {
	ctx, span := observability.StartServiceSpan(ctx, "media", "Trash")
	defer span.End()

	if len(inputs) == 0 {
		observability.RecordError(span, models.ErrEmptyHashInput)
		return models.ErrEmptyHashInput
	}

	dedupKeys := make([]string, 0, len(inputs))
	for _, input := range inputs {
		_, digestB64, err := s.hash.Resolve(input)
		if err != nil {
			observability.RecordError(span, err)
			return err
		}
		dedupKeys = append(dedupKeys, URLSafeBase64(digestB64))
	}

	for _, batch := range chunkKeys(dedupKeys, trashBatch) {
		if err := s.api.MoveToTrash(ctx, batch); err != nil {
			observability.RecordError(span, err)
			return fmt.Errorf("failed to move batch to trash: %w", err)
		}
	}

	s.logger.Infof("moved %d items to trash", len(dedupKeys))
	observability.SetSuccess(span)
	return nil
}
