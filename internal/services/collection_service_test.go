package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/client/internal/models"
)

type fakeCollections struct {
	created   map[string]string
	added     map[string][][]string
	createLog []createCall
	createErr error
	nextKey   int
}

type createCall struct {
	name string
	keys []string
}

func newFakeCollections() *fakeCollections {
	return &fakeCollections{
		created: make(map[string]string),
		added:   make(map[string][][]string),
	}
}

func (f *fakeCollections) CreateCollection(ctx context.Context, name string, mediaKeys []string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextKey++
	key := fmt.Sprintf("col-%d", f.nextKey)
	f.created[key] = name
	f.createLog = append(f.createLog, createCall{name: name, keys: mediaKeys})
	return key, nil
}

func (f *fakeCollections) AddToCollection(ctx context.Context, collectionKey string, mediaKeys []string) error {
	f.added[collectionKey] = append(f.added[collectionKey], mediaKeys)
	return nil
}

// itemCount is everything a collection holds, seed batch included
func (f *fakeCollections) itemCount(key string) int {
	count := 0
	for i, call := range f.createLog {
		if fmt.Sprintf("col-%d", i+1) == key {
			count += len(call.keys)
		}
	}
	for _, batch := range f.added[key] {
		count += len(batch)
	}
	return count
}

func mediaKeys(n int) map[string]string {
	files := make(map[string]string, n)
	for i := 0; i < n; i++ {
		files[fmt.Sprintf("/photos/img%05d.jpg", i)] = fmt.Sprintf("mk%05d", i)
	}
	return files
}

func TestOrganizeSingleCollection(t *testing.T) {
	api := newFakeCollections()
	service := NewCollectionService(api)

	created, err := service.Organize(context.Background(), mediaKeys(3), "Vacation")
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, "Vacation", api.created[created[0]])
	// Small sets need no follow-up add calls
	assert.Empty(t, api.added[created[0]])
	assert.Len(t, api.createLog[0].keys, 3)
}

func TestOrganizeBatchesLargeSets(t *testing.T) {
	api := newFakeCollections()
	service := NewCollectionService(api)

	created, err := service.Organize(context.Background(), mediaKeys(1200), "Vacation")
	require.NoError(t, err)

	require.Len(t, created, 1)
	// 1200 keys arrive as a 500-key seed plus 500 and 200 key adds
	assert.Len(t, api.createLog[0].keys, 500)
	require.Len(t, api.added[created[0]], 2)
	assert.Len(t, api.added[created[0]][0], 500)
	assert.Len(t, api.added[created[0]][1], 200)
}

func TestOrganizeSplitsPastCollectionLimit(t *testing.T) {
	api := newFakeCollections()
	service := NewCollectionService(api)

	created, err := service.Organize(context.Background(), mediaKeys(45000), "Archive")
	require.NoError(t, err)

	require.Len(t, created, 3)
	assert.Equal(t, "Archive 1", api.created[created[0]])
	assert.Equal(t, "Archive 2", api.created[created[1]])
	assert.Equal(t, "Archive 3", api.created[created[2]])

	assert.Equal(t, 20000, api.itemCount(created[0]))
	assert.Equal(t, 20000, api.itemCount(created[1]))
	assert.Equal(t, 5000, api.itemCount(created[2]))
}

func TestOrganizeExactLimitStaysUnnumbered(t *testing.T) {
	api := newFakeCollections()
	service := NewCollectionService(api)

	created, err := service.Organize(context.Background(), mediaKeys(20000), "Archive")
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, "Archive", api.created[created[0]])
}

func TestOrganizeAutoGroupsByParentDirectory(t *testing.T) {
	api := newFakeCollections()
	service := NewCollectionService(api)

	files := map[string]string{
		filepath.Join("/photos", "rome", "a.jpg"):  "mk1",
		filepath.Join("/photos", "rome", "b.jpg"):  "mk2",
		filepath.Join("/photos", "paris", "c.jpg"): "mk3",
	}

	created, err := service.Organize(context.Background(), files, AutoCollection)
	require.NoError(t, err)
	require.Len(t, created, 2)

	names := make(map[string]int)
	for _, call := range api.createLog {
		names[call.name] = len(call.keys)
	}
	assert.Equal(t, map[string]int{"paris": 1, "rome": 2}, names)
}

func TestOrganizeEmptySetFails(t *testing.T) {
	service := NewCollectionService(newFakeCollections())
	_, err := service.Organize(context.Background(), map[string]string{}, "Vacation")
	assert.ErrorIs(t, err, models.ErrEmptyCollection)
}

func TestOrganizeCreateFailureStops(t *testing.T) {
	api := newFakeCollections()
	api.createErr = errors.New("quota exceeded")
	service := NewCollectionService(api)

	_, err := service.Organize(context.Background(), mediaKeys(3), "Vacation")
	assert.Error(t, err)
}
