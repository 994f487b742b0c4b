package downloading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadenzadl/cadenza/src/features/config"
	"github.com/google/uuid"
)

// Service is the download orchestrator: it owns the pending queue, the
// display state and the singleton drain worker, and exposes the caller-facing
// operations.
type Service struct {
	configManager *config.Manager
	metadata      MetadataClient
	fetcher       MediaFetcher
	tagger        TagWriter
	sink          ProgressSink
	history       HistoryStore
	scanner       LibraryScanner

	queue *queue

	// workerStagger delays each additional track worker's start so the
	// external search service is not hit with a burst of requests.
	workerStagger time.Duration
}

// NewService creates a new downloading service. history and scanner may be
// nil; sink may be nil for a log-only setup.
func NewService(cfgManager *config.Manager, metadata MetadataClient, fetcher MediaFetcher, tagger TagWriter, sink ProgressSink, history HistoryStore, scanner LibraryScanner) *Service {
	if sink == nil {
		sink = LogSink{}
	}
	return &Service{
		configManager: cfgManager,
		metadata:      metadata,
		fetcher:       fetcher,
		tagger:        tagger,
		sink:          sink,
		history:       history,
		scanner:       scanner,
		queue:         newQueue(),
		workerStagger: 500 * time.Millisecond,
	}
}

// EnqueueAlbums appends album requests to the run and makes sure a drain
// worker exists. Safe to call while a run is in progress.
func (s *Service) EnqueueAlbums(requests []AlbumRequest) {
	if len(requests) == 0 {
		return
	}
	entries := make([]AlbumDownloadState, 0, len(requests))
	items := make([]queueItem, 0, len(requests))
	for i := range requests {
		req := requests[i]
		id := uuid.New().String()
		entries = append(entries, AlbumDownloadState{
			ID:     id,
			Artist: req.Artist,
			Album:  req.Album,
			Status: StatusPending,
		})
		items = append(items, queueItem{id: id, album: &req})
	}
	s.queue.enqueue(entries, items)
	slog.Info("Enqueued albums", "count", len(requests))
	s.ensureWorker()
}

// EnqueueSongs appends single-song requests paired positionally with their
// pre-resolved media identifiers.
func (s *Service) EnqueueSongs(requests []SongRequest, mediaIDs []string) error {
	if len(requests) != len(mediaIDs) {
		return fmt.Errorf("got %d songs but %d media ids", len(requests), len(mediaIDs))
	}
	if len(requests) == 0 {
		return nil
	}
	entries := make([]AlbumDownloadState, 0, len(requests))
	items := make([]queueItem, 0, len(requests))
	for i := range requests {
		req := requests[i]
		id := uuid.New().String()
		entries = append(entries, AlbumDownloadState{
			ID:          id,
			Artist:      req.Artist,
			Album:       req.Label(),
			Status:      StatusPending,
			TotalTracks: 1,
		})
		items = append(items, queueItem{id: id, song: &req, mediaID: mediaIDs[i]})
	}
	s.queue.enqueue(entries, items)
	slog.Info("Enqueued songs", "count", len(requests))
	s.ensureWorker()
	return nil
}

// Status returns a consistent snapshot of the display state.
func (s *Service) Status() DownloadState {
	return s.queue.snapshot()
}

// Cancel requests a cooperative stop. The run winds down at the next
// checkpoint; in-flight external calls are not interrupted.
func (s *Service) Cancel() {
	s.queue.cancel.Store(true)
	slog.Info("Download cancellation requested")
}

// ClearFinished prunes complete, errored and cancelled entries from the
// display list.
func (s *Service) ClearFinished() {
	s.queue.clearFinished()
}

// History lists recent terminal outcomes, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.history.List(ctx, limit)
}

// SearchArtists looks up artists by name.
func (s *Service) SearchArtists(ctx context.Context, name string) ([]ArtistResult, error) {
	return s.metadata.SearchArtists(ctx, name)
}

// Discography lists all release groups of an artist.
func (s *Service) Discography(ctx context.Context, artistID string) ([]ReleaseGroup, error) {
	return s.metadata.ReleaseGroups(ctx, artistID)
}

// Tracklist fetches the track titles of an album.
func (s *Service) Tracklist(ctx context.Context, artist, album string) ([]string, error) {
	return s.metadata.Tracklist(ctx, artist, album)
}

// SearchSongs searches the media source for individual songs.
func (s *Service) SearchSongs(ctx context.Context, query string) ([]SongResult, error) {
	return s.fetcher.SearchSongs(ctx, query)
}

// TriggerScan asks the configured media server for a library rescan.
func (s *Service) TriggerScan(ctx context.Context) error {
	if s.scanner == nil {
		return fmt.Errorf("no library scanner configured")
	}
	return s.scanner.Trigger(ctx)
}
