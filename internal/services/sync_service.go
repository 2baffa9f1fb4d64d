package services

import (
	"context"
	"fmt"

	"github.com/photomirror/client/internal/api"
	"github.com/photomirror/client/internal/models"
	"github.com/photomirror/client/internal/observability"
)

// LibraryFetcher is the remote surface the sync engine consumes
type LibraryFetcher interface {
	FetchLibraryInit(ctx context.Context, pageToken string) (*api.LibraryPage, error)
	FetchLibrary(ctx context.Context, stateToken, pageToken string) (*api.LibraryPage, error)
}

// CursorStore is the durable mirror the sync engine writes into
type CursorStore interface {
	Upsert(ctx context.Context, items []*models.RemoteMedia) error
	Delete(ctx context.Context, mediaKeys []string) error
	ReadCursor(ctx context.Context) (models.SyncCursor, error)
	WriteCursor(ctx context.Context, update models.CursorUpdate) error
}

// SyncService keeps the local mirror consistent with the remote library.
// A first run walks the whole library through the init feed; every run
// after that replays only the changes since the stored state token.
//
// Page contents are always applied to the mirror before the tokens that
// acknowledge them are written, so a crash between the two replays the
// page instead of skipping it. Replays are safe: upserts are idempotent
// and deletes of absent keys are no-ops.
type SyncService struct {
	store    CursorStore
	remote   LibraryFetcher
	logger   *observability.Logger
	metrics  *observability.SyncMetrics
	progress SyncProgress

	updated int
	deleted int
}

// NewSyncService creates a new SyncService
func NewSyncService(store CursorStore, remote LibraryFetcher) *SyncService {
	metrics, err := observability.NewSyncMetrics()
	if err != nil {
		observability.Warnf("sync metrics unavailable: %v", err)
	}
	return &SyncService{
		store:    store,
		remote:   remote,
		logger:   observability.GetLogger().WithField("component", "sync"),
		metrics:  metrics,
		progress: noopSyncProgress{},
	}
}

// SetProgress installs a progress observer for subsequent runs
func (s *SyncService) SetProgress(progress SyncProgress) {
	if progress == nil {
		progress = noopSyncProgress{}
	}
	s.progress = progress
}

// Sync brings the mirror up to date, resuming any interrupted run from
// the stored cursor
func (s *SyncService) Sync(ctx context.Context) error {
	ctx, span := observability.StartServiceSpan(ctx, "sync", "Sync")
	defer span.End()

	s.updated = 0
	s.deleted = 0

	cursor, err := s.store.ReadCursor(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("failed to read sync cursor: %w", err)
	}

	if !cursor.InitComplete {
		s.logger.Info("starting full mirror initialization")
		if err := s.initMirror(ctx, cursor); err != nil {
			observability.RecordError(span, err)
			return err
		}
		cursor, err = s.store.ReadCursor(ctx)
		if err != nil {
			observability.RecordError(span, err)
			return fmt.Errorf("failed to read sync cursor: %w", err)
		}
	}

	if err := s.updateMirror(ctx, cursor.StateToken); err != nil {
		observability.RecordError(span, err)
		return err
	}

	s.logger.Infof("sync complete: %d updated, %d deleted", s.updated, s.deleted)
	observability.SetSuccess(span)
	return nil
}

// initMirror walks the full library through the init feed. An interrupted
// init left its next page token in the cursor; that remainder is drained
// through the init feed first, because init page tokens are only valid
// against it. Only then is the root snapshot re-fetched with an empty
// state token.
func (s *SyncService) initMirror(ctx context.Context, cursor models.SyncCursor) error {
	if cursor.PageToken != "" {
		s.logger.Info("resuming interrupted initialization")
		if err := s.drainInitPages(ctx, cursor.PageToken); err != nil {
			return err
		}
	}

	page, err := s.remote.FetchLibrary(ctx, "", "")
	if err != nil {
		return fmt.Errorf("failed to fetch library snapshot: %w", err)
	}
	if err := s.applyPage(ctx, page); err != nil {
		return err
	}
	if err := s.store.WriteCursor(ctx, models.CursorUpdate{
		StateToken: models.String(page.StateToken),
		PageToken:  models.String(page.NextPageToken),
	}); err != nil {
		return fmt.Errorf("failed to write sync cursor: %w", err)
	}

	if err := s.drainInitPages(ctx, page.NextPageToken); err != nil {
		return err
	}

	if err := s.store.WriteCursor(ctx, models.CursorUpdate{InitComplete: models.Bool(true)}); err != nil {
		return fmt.Errorf("failed to write sync cursor: %w", err)
	}
	s.logger.Info("mirror initialization complete")
	return nil
}

// drainInitPages follows the init feed until the page chain ends,
// acknowledging each applied page by storing its successor token
func (s *SyncService) drainInitPages(ctx context.Context, pageToken string) error {
	for pageToken != "" {
		page, err := s.remote.FetchLibraryInit(ctx, pageToken)
		if err != nil {
			return fmt.Errorf("failed to fetch library init page: %w", err)
		}
		if err := s.applyPage(ctx, page); err != nil {
			return err
		}
		if err := s.store.WriteCursor(ctx, models.CursorUpdate{
			PageToken: models.String(page.NextPageToken),
		}); err != nil {
			return fmt.Errorf("failed to write sync cursor: %w", err)
		}
		pageToken = page.NextPageToken
	}
	return nil
}

// updateMirror replays remote changes since stateToken. Every page of
// one run is fetched against the state token the run started from, while
// the advancing token each page carries is persisted as the baseline for
// the next run.
func (s *SyncService) updateMirror(ctx context.Context, stateToken string) error {
	pageToken := ""
	for {
		page, err := s.remote.FetchLibrary(ctx, stateToken, pageToken)
		if err != nil {
			return fmt.Errorf("failed to fetch library changes: %w", err)
		}
		if err := s.applyPage(ctx, page); err != nil {
			return err
		}
		update := models.CursorUpdate{PageToken: models.String(page.NextPageToken)}
		if page.StateToken != "" {
			// A page that omits the token must not reset the baseline
			update.StateToken = models.String(page.StateToken)
		}
		if err := s.store.WriteCursor(ctx, update); err != nil {
			return fmt.Errorf("failed to write sync cursor: %w", err)
		}
		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

// applyPage writes one page of upserts and deletes into the mirror
func (s *SyncService) applyPage(ctx context.Context, page *api.LibraryPage) error {
	if err := s.store.Upsert(ctx, page.Upserts); err != nil {
		return fmt.Errorf("failed to apply mirror updates: %w", err)
	}
	if err := s.store.Delete(ctx, page.Deletes); err != nil {
		return fmt.Errorf("failed to apply mirror deletes: %w", err)
	}
	s.updated += len(page.Upserts)
	s.deleted += len(page.Deletes)
	s.metrics.RecordPage(ctx, len(page.Upserts), len(page.Deletes))
	s.progress.PageApplied(s.updated, s.deleted)
	return nil
}
