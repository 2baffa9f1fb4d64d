package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/photomirror/client/internal/models"
	"github.com/photomirror/client/internal/observability"
)

// AutoCollection names collections after each file's parent directory
// instead of a fixed title
const AutoCollection = "AUTO"

const (
	// collectionLimit is the most items one remote collection accepts
	collectionLimit = 20000
	// collectionBatch is the most keys one add call accepts
	collectionBatch = 500
)

// CollectionCreator is the remote surface the organizer consumes
type CollectionCreator interface {
	CreateCollection(ctx context.Context, name string, mediaKeys []string) (string, error)
	AddToCollection(ctx context.Context, collectionKey string, mediaKeys []string) error
}

// CollectionService files uploaded media into named remote collections,
// splitting any set past the per-collection limit into numbered parts
type CollectionService struct {
	api    CollectionCreator
	logger *observability.Logger
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(api CollectionCreator) *CollectionService {
	return &CollectionService{
		api:    api,
		logger: observability.GetLogger().WithField("component", "collections"),
	}
}

// Organize places the uploaded files, a mapping of local path to remote
// media key, into collections and returns the created collection keys.
// The AutoCollection name groups files by their parent directory name;
// any other name collects everything under that title.
func (s *CollectionService) Organize(ctx context.Context, files map[string]string, name string) ([]string, error) {
	ctx, span := observability.StartServiceSpan(ctx, "collections", "Organize")
	defer span.End()

	if len(files) == 0 {
		observability.RecordError(span, models.ErrEmptyCollection)
		return nil, models.ErrEmptyCollection
	}

	groups := make(map[string][]string)
	if name == AutoCollection {
		for path, mediaKey := range files {
			abs, err := filepath.Abs(path)
			if err != nil {
				observability.RecordError(span, err)
				return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
			}
			dir := filepath.Base(filepath.Dir(abs))
			groups[dir] = append(groups[dir], mediaKey)
		}
	} else {
		for _, mediaKey := range files {
			groups[name] = append(groups[name], mediaKey)
		}
	}

	var created []string
	for _, groupName := range sortedGroupNames(groups) {
		keys := groups[groupName]
		sort.Strings(keys)
		collectionKeys, err := s.organizeGroup(ctx, groupName, keys)
		if err != nil {
			observability.RecordError(span, err)
			return created, err
		}
		created = append(created, collectionKeys...)
	}

	observability.SetSuccess(span)
	return created, nil
}

// organizeGroup creates the collections holding one named key set. A set
// past the per-collection limit becomes numbered parts, and the number
// suffix then appears on every part so no part masquerades as the whole.
func (s *CollectionService) organizeGroup(ctx context.Context, name string, mediaKeys []string) ([]string, error) {
	if len(mediaKeys) == 0 {
		return nil, models.ErrEmptyCollection
	}

	parts := chunkKeys(mediaKeys, collectionLimit)
	var created []string
	for i, part := range parts {
		partName := name
		if len(parts) > 1 {
			partName = fmt.Sprintf("%s %d", name, i+1)
		}
		collectionKey, err := s.createCollection(ctx, partName, part)
		if err != nil {
			return created, err
		}
		s.logger.Infof("collection %q holds %d items", partName, len(part))
		created = append(created, collectionKey)
	}
	return created, nil
}

// createCollection creates one collection, seeding it with the first key
// batch and adding the rest batch by batch
func (s *CollectionService) createCollection(ctx context.Context, name string, mediaKeys []string) (string, error) {
	batches := chunkKeys(mediaKeys, collectionBatch)

	collectionKey, err := s.api.CreateCollection(ctx, name, batches[0])
	if err != nil {
		return "", fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	for _, batch := range batches[1:] {
		if err := s.api.AddToCollection(ctx, collectionKey, batch); err != nil {
			return collectionKey, fmt.Errorf("failed to add to collection %q: %w", name, err)
		}
	}
	return collectionKey, nil
}

func chunkKeys(keys []string, size int) [][]string {
	var chunks [][]string
	for len(keys) > size {
		chunks = append(chunks, keys[:size])
		keys = keys[size:]
	}
	return append(chunks, keys)
}

func sortedGroupNames(groups map[string][]string) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
