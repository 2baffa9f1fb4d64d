package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/client/internal/api"
	"github.com/photomirror/client/internal/models"
)

type fakeLibrary struct {
	initPages  map[string]*api.LibraryPage
	statePages map[string]*api.LibraryPage
	initErrs   map[string]error
	stateErrs  map[string]error
	calls      []string
}

func (f *fakeLibrary) FetchLibraryInit(ctx context.Context, pageToken string) (*api.LibraryPage, error) {
	f.calls = append(f.calls, "init:"+pageToken)
	if err := f.initErrs[pageToken]; err != nil {
		return nil, err
	}
	page, ok := f.initPages[pageToken]
	if !ok {
		return nil, fmt.Errorf("unexpected init page token %q", pageToken)
	}
	return page, nil
}

func (f *fakeLibrary) FetchLibrary(ctx context.Context, stateToken, pageToken string) (*api.LibraryPage, error) {
	key := stateToken + "|" + pageToken
	f.calls = append(f.calls, "state:"+key)
	if err := f.stateErrs[key]; err != nil {
		return nil, err
	}
	page, ok := f.statePages[key]
	if !ok {
		return nil, fmt.Errorf("unexpected state fetch %q", key)
	}
	return page, nil
}

type fakeMirror struct {
	records   map[string]*models.RemoteMedia
	cursor    models.SyncCursor
	ops       []string
	upsertErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{records: make(map[string]*models.RemoteMedia)}
}

func (f *fakeMirror) Upsert(ctx context.Context, items []*models.RemoteMedia) error {
	if len(items) == 0 {
		return nil
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, item := range items {
		f.records[item.MediaKey] = item
	}
	f.ops = append(f.ops, fmt.Sprintf("upsert:%d", len(items)))
	return nil
}

func (f *fakeMirror) Delete(ctx context.Context, mediaKeys []string) error {
	if len(mediaKeys) == 0 {
		return nil
	}
	for _, key := range mediaKeys {
		delete(f.records, key)
	}
	f.ops = append(f.ops, fmt.Sprintf("delete:%d", len(mediaKeys)))
	return nil
}

func (f *fakeMirror) ReadCursor(ctx context.Context) (models.SyncCursor, error) {
	return f.cursor, nil
}

func (f *fakeMirror) WriteCursor(ctx context.Context, update models.CursorUpdate) error {
	if update.StateToken != nil {
		f.cursor.StateToken = *update.StateToken
	}
	if update.PageToken != nil {
		f.cursor.PageToken = *update.PageToken
	}
	if update.InitComplete != nil {
		f.cursor.InitComplete = *update.InitComplete
	}
	f.ops = append(f.ops, "cursor")
	return nil
}

func media(key string) *models.RemoteMedia {
	return &models.RemoteMedia{MediaKey: key, FileName: key + ".jpg", Type: models.MediaTypeImage}
}

func TestSyncFullInitialization(t *testing.T) {
	mirror := newFakeMirror()
	library := &fakeLibrary{
		statePages: map[string]*api.LibraryPage{
			"|": {StateToken: "s1", NextPageToken: "p1", Upserts: []*models.RemoteMedia{media("a")}},
			// Steady-state check after init finds nothing new
			"s1|": {StateToken: "s2"},
		},
		initPages: map[string]*api.LibraryPage{
			"p1": {NextPageToken: "p2", Upserts: []*models.RemoteMedia{media("b"), media("c")}},
			"p2": {Upserts: []*models.RemoteMedia{media("d")}},
		},
	}
	service := NewSyncService(mirror, library)
	require.NoError(t, service.Sync(context.Background()))

	assert.Len(t, mirror.records, 4)
	assert.True(t, mirror.cursor.InitComplete)
	assert.Equal(t, "s2", mirror.cursor.StateToken)
	assert.Equal(t, "", mirror.cursor.PageToken)
}

func TestSyncResumesInterruptedInit(t *testing.T) {
	mirror := newFakeMirror()
	// A crash mid-init left the next init page token behind
	mirror.cursor = models.SyncCursor{StateToken: "s0", PageToken: "p5"}

	library := &fakeLibrary{
		initPages: map[string]*api.LibraryPage{
			"p5": {Upserts: []*models.RemoteMedia{media("leftover")}},
		},
		statePages: map[string]*api.LibraryPage{
			"|":   {StateToken: "s1", Upserts: []*models.RemoteMedia{media("root")}},
			"s1|": {StateToken: "s1"},
		},
	}

	service := NewSyncService(mirror, library)
	require.NoError(t, service.Sync(context.Background()))

	// The leftover page drains through the init feed before anything else
	require.NotEmpty(t, library.calls)
	assert.Equal(t, "init:p5", library.calls[0])
	assert.Equal(t, "state:|", library.calls[1])
	assert.Contains(t, mirror.records, "leftover")
	assert.Contains(t, mirror.records, "root")
	assert.True(t, mirror.cursor.InitComplete)
}

func TestSyncIncrementalUpdate(t *testing.T) {
	mirror := newFakeMirror()
	mirror.cursor = models.SyncCursor{StateToken: "s1", InitComplete: true}
	mirror.records["old"] = media("old")

	library := &fakeLibrary{
		statePages: map[string]*api.LibraryPage{
			"s1|":   {StateToken: "s2", NextPageToken: "p1", Upserts: []*models.RemoteMedia{media("new1")}},
			"s1|p1": {StateToken: "s2", Deletes: []string{"old"}},
		},
	}

	service := NewSyncService(mirror, library)
	require.NoError(t, service.Sync(context.Background()))

	// Every page of the run is fetched against the starting state token
	assert.Equal(t, []string{"state:s1|", "state:s1|p1"}, library.calls)
	assert.Contains(t, mirror.records, "new1")
	assert.NotContains(t, mirror.records, "old")
	assert.Equal(t, "s2", mirror.cursor.StateToken)
}

func TestSyncKeepsBaselineWhenPageOmitsStateToken(t *testing.T) {
	mirror := newFakeMirror()
	mirror.cursor = models.SyncCursor{StateToken: "s1", InitComplete: true}

	library := &fakeLibrary{
		statePages: map[string]*api.LibraryPage{
			"s1|": {StateToken: "s2", NextPageToken: "p1", Upserts: []*models.RemoteMedia{media("a")}},
			// Follow-up page answers without a state token
			"s1|p1": {Upserts: []*models.RemoteMedia{media("b")}},
		},
	}

	service := NewSyncService(mirror, library)
	require.NoError(t, service.Sync(context.Background()))

	assert.Equal(t, "s2", mirror.cursor.StateToken)
	assert.Empty(t, mirror.cursor.PageToken)
}

func TestSyncAppliesPageBeforeCursor(t *testing.T) {
	mirror := newFakeMirror()
	mirror.cursor = models.SyncCursor{StateToken: "s1", InitComplete: true}

	library := &fakeLibrary{
		statePages: map[string]*api.LibraryPage{
			"s1|": {StateToken: "s2", Upserts: []*models.RemoteMedia{media("x")}, Deletes: []string{"gone"}},
		},
	}

	service := NewSyncService(mirror, library)
	require.NoError(t, service.Sync(context.Background()))

	assert.Equal(t, []string{"upsert:1", "delete:1", "cursor"}, mirror.ops)
}

func TestSyncFailedApplyLeavesCursorUntouched(t *testing.T) {
	mirror := newFakeMirror()
	mirror.cursor = models.SyncCursor{StateToken: "s1", InitComplete: true}
	mirror.upsertErr = errors.New("disk full")

	library := &fakeLibrary{
		statePages: map[string]*api.LibraryPage{
			"s1|": {StateToken: "s2", NextPageToken: "p1", Upserts: []*models.RemoteMedia{media("x")}},
		},
	}

	service := NewSyncService(mirror, library)
	err := service.Sync(context.Background())
	require.Error(t, err)

	assert.Equal(t, "s1", mirror.cursor.StateToken)
	assert.Empty(t, mirror.cursor.PageToken)
	assert.NotContains(t, mirror.ops, "cursor")
}

func TestSyncFetchFailureLeavesCursorUntouched(t *testing.T) {
	mirror := newFakeMirror()
	mirror.cursor = models.SyncCursor{StateToken: "s1", InitComplete: true}

	library := &fakeLibrary{
		stateErrs: map[string]error{
			"s1|": errors.New("connection reset"),
		},
	}

	service := NewSyncService(mirror, library)
	require.Error(t, service.Sync(context.Background()))
	assert.Equal(t, models.SyncCursor{StateToken: "s1", InitComplete: true}, mirror.cursor)
}

func TestSyncReportsCumulativeProgress(t *testing.T) {
	mirror := newFakeMirror()
	mirror.cursor = models.SyncCursor{StateToken: "s1", InitComplete: true}

	library := &fakeLibrary{
		statePages: map[string]*api.LibraryPage{
			"s1|":   {StateToken: "s2", NextPageToken: "p1", Upserts: []*models.RemoteMedia{media("a"), media("b")}},
			"s1|p1": {StateToken: "s2", Upserts: []*models.RemoteMedia{media("c")}, Deletes: []string{"a"}},
		},
	}

	var updates, deletes []int
	service := NewSyncService(mirror, library)
	service.SetProgress(SyncProgressFunc(func(totalUpdated, totalDeleted int) {
		updates = append(updates, totalUpdated)
		deletes = append(deletes, totalDeleted)
	}))
	require.NoError(t, service.Sync(context.Background()))

	assert.Equal(t, []int{2, 3}, updates)
	assert.Equal(t, []int{0, 1}, deletes)
}
