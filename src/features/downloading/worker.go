package downloading

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrCancelled marks an item that stopped because the run was cancelled, as
// opposed to failing.
var ErrCancelled = errors.New("download cancelled")

// ensureWorker guarantees that exactly one drain loop is active. If a worker
// is already running it will pick up the newly enqueued items; otherwise a
// fresh loop is started with a cleared cancellation signal.
func (s *Service) ensureWorker() {
	if !s.queue.tryStart() {
		return
	}
	s.queue.cancel.Store(false)
	go s.drain()
}

// drain processes queue items one at a time, in enqueue order, until the
// pending queue is empty or the run is cancelled. Album-internal track
// parallelism is handled by processAlbum; from the loop's perspective every
// item is synchronous.
func (s *Service) drain() {
	ctx := context.Background()
	for {
		item, ok := s.queue.next()
		if !ok {
			break
		}
		if s.queue.cancel.Load() {
			s.queue.abortRun()
			s.sink.Notify(Event{Type: EventRunCancelled})
			slog.Info("Drain loop stopped by cancellation")
			return
		}
		if s.process(ctx, item) == StatusCancelled {
			// Cancel landed mid-item; sweep now so a run whose last item was
			// cancelled never reports all-complete or triggers a scan.
			s.queue.abortRun()
			s.sink.Notify(Event{Type: EventRunCancelled})
			slog.Info("Drain loop stopped by cancellation")
			return
		}
	}

	if s.queue.settleIdle() {
		s.sink.Notify(Event{Type: EventAllComplete})
		s.autoScan(ctx)
	}
}

// process runs a single dequeued item to its terminal state and reports that
// state. A failing item never stops the loop; a cancelled one does.
func (s *Service) process(ctx context.Context, item queueItem) Status {
	idx, ok := s.queue.claim(item.id)
	if !ok {
		// Entry was cleared or already handled; nothing to do.
		return StatusPending
	}
	totalAlbums := s.queue.albumCount()

	var err error
	if item.album != nil {
		err = s.processAlbum(ctx, item.id, idx, totalAlbums, *item.album)
	} else {
		err = s.processSong(ctx, item.id, idx, totalAlbums, *item.song, item.mediaID)
	}

	var final AlbumDownloadState
	switch {
	case errors.Is(err, ErrCancelled):
		final = s.queue.finish(item.id, StatusCancelled, "")
	case err != nil:
		final = s.queue.finish(item.id, StatusError, err.Error())
		s.sink.Notify(Event{
			Type:   EventRunError,
			Artist: item.artist(),
			Album:  item.label(),
			Error:  err.Error(),
		})
	default:
		final = s.queue.finish(item.id, StatusComplete, "")
	}

	s.record(ctx, item.id, final)
	s.sink.Notify(Event{
		Type:        EventAlbumComplete,
		AlbumIndex:  idx,
		TotalAlbums: totalAlbums,
		Artist:      item.artist(),
		Album:       item.label(),
	})
	return final.Status
}

// record appends the terminal outcome to the history store, best-effort.
func (s *Service) record(ctx context.Context, id string, state AlbumDownloadState) {
	if s.history == nil || state.ID == "" {
		return
	}
	entry := HistoryEntry{
		ID:              id,
		Artist:          state.Artist,
		Album:           state.Album,
		Status:          state.Status,
		CompletedTracks: state.CompletedTracks,
		TotalTracks:     state.TotalTracks,
		Error:           state.Error,
		FinishedAt:      time.Now(),
	}
	if err := s.history.Record(ctx, entry); err != nil {
		slog.Warn("Failed to record download history", "artist", state.Artist, "album", state.Album, "error", err)
	}
}

// autoScan triggers a media-server rescan after a finished run when enabled.
func (s *Service) autoScan(ctx context.Context) {
	if s.scanner == nil || !s.configManager.Get().Subsonic.AutoScan {
		return
	}
	if err := s.scanner.Trigger(ctx); err != nil {
		slog.Warn("Library scan trigger failed", "error", err)
	}
}
