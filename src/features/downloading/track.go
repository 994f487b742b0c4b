package downloading

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// processTrack runs one track through the search → download → tag pipeline.
// It is called from the album's bounded worker pool; all display-state
// mutation goes through the queue's short critical sections.
func (s *Service) processTrack(ctx context.Context, run *albumRun, job trackJob) {
	dest := filepath.Join(run.dir, trackFileName(job.index+1, job.name, run.ext))

	// Already on disk from an earlier run: count it and skip every external
	// call.
	if _, err := os.Stat(dest); err == nil {
		count := int(run.completed.Add(1))
		s.queue.setCompleted(run.id, count)
		s.emitTrack(run, job.index, job.name, TrackDone, "")
		return
	}

	s.queue.addActiveTrack(run.id, job.index, job.name, TrackSearching)
	s.emitTrack(run, job.index, job.name, TrackSearching, "")

	mediaID, err := s.fetcher.Resolve(ctx, run.artist+" "+job.name)
	if err != nil || mediaID == "" {
		if err != nil {
			slog.Warn("Track search failed", "track", job.name, "error", err)
		}
		s.queue.removeActiveTrack(run.id, job.index)
		s.emitTrack(run, job.index, job.name, TrackError, "not found")
		return
	}

	if s.queue.cancel.Load() {
		s.abortTrack(run, job)
		return
	}

	s.queue.setActiveTrackStatus(run.id, job.index, TrackDownloading)
	s.emitTrack(run, job.index, job.name, TrackDownloading, "")

	template := filepath.Join(run.dir, trackTemplate(job.index+1, job.name))
	if err := s.fetcher.Download(ctx, mediaID, template); err != nil {
		slog.Warn("Track download failed", "track", job.name, "error", err)
		s.queue.removeActiveTrack(run.id, job.index)
		s.emitTrack(run, job.index, job.name, TrackError, "download failed")
		return
	}

	if s.queue.cancel.Load() {
		s.abortTrack(run, job)
		return
	}

	s.queue.setActiveTrackStatus(run.id, job.index, TrackTagging)
	s.emitTrack(run, job.index, job.name, TrackTagging, "")

	tags := TrackTags{
		Title:       job.name,
		Artist:      run.artist,
		Album:       run.album,
		Year:        run.year,
		Genre:       run.genre,
		TrackNumber: job.index + 1,
		TotalTracks: run.totalTracks,
	}
	// A written but untagged file still counts as done.
	if err := s.tagger.WriteFileTags(ctx, dest, tags, run.cover); err != nil {
		slog.Warn("Failed to tag track", "path", dest, "error", err)
	}

	count := int(run.completed.Add(1))
	s.queue.removeActiveTrack(run.id, job.index)
	s.queue.setCompleted(run.id, count)
	s.emitTrack(run, job.index, job.name, TrackDone, "")
}

// abortTrack winds a track down at a cancellation checkpoint. The track is
// reported cancelled, not failed.
func (s *Service) abortTrack(run *albumRun, job trackJob) {
	run.cancelled.Store(true)
	s.queue.removeActiveTrack(run.id, job.index)
	s.emitTrack(run, job.index, job.name, TrackCancelled, "")
}
