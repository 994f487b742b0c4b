package downloading

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// maxConcurrentTracks bounds per-album track parallelism.
const maxConcurrentTracks = 3

type trackJob struct {
	index int
	name  string
}

// albumRun bundles the shared context of one album's track workers. Display
// mutations go through id; albumIdx is a position for progress events only.
type albumRun struct {
	id          string
	albumIdx    int
	totalAlbums int
	artist      string
	album       string
	year        string
	genre       string
	dir         string
	ext         string
	totalTracks int
	cover       []byte
	completed   atomic.Int32
	cancelled   atomic.Bool
}

// processAlbum resolves album-level metadata once, then downloads every track
// with bounded parallelism. Individual track failures are recorded on the
// track and do not fail the album; a cancelled run does.
func (s *Service) processAlbum(ctx context.Context, id string, albumIdx, totalAlbums int, req AlbumRequest) error {
	cfg := s.configManager.Get()

	albumDir := filepath.Join(cfg.MusicPath, s.pathName(req.Artist), s.pathName(req.Album))
	if err := os.MkdirAll(albumDir, 0755); err != nil {
		return fmt.Errorf("failed to create album directory: %w", err)
	}

	run := &albumRun{
		id:          id,
		albumIdx:    albumIdx,
		totalAlbums: totalAlbums,
		artist:      req.Artist,
		album:       req.Album,
		year:        req.Year,
		genre:       req.Genre,
		dir:         albumDir,
		ext:         cfg.Downloader.AudioFormat,
	}

	s.emitTrack(run, 0, "", trackFetchingCover, "")
	cover, err := s.metadata.CoverArt(ctx, req.Artist, req.Album)
	if err != nil {
		slog.Warn("No cover art", "artist", req.Artist, "album", req.Album, "error", err)
	}
	run.cover = cover

	s.emitTrack(run, 0, "", trackFetchingTracklist, "")
	tracks := req.Tracks
	if len(tracks) == 0 {
		tracks, err = s.metadata.Tracklist(ctx, req.Artist, req.Album)
		if err != nil {
			return err
		}
	}
	run.totalTracks = len(tracks)
	s.queue.setTotalTracks(id, run.totalTracks)

	jobs := make(chan trackJob, len(tracks))
	for i, name := range tracks {
		jobs <- trackJob{index: i, name: name}
	}
	close(jobs)

	workers := maxConcurrentTracks
	if run.totalTracks < workers {
		workers = run.totalTracks
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		// Stagger worker starts so searches don't hit the source in a burst.
		if w > 0 {
			time.Sleep(s.workerStagger)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if run.cancelled.Load() || s.queue.cancel.Load() {
					run.cancelled.Store(true)
					return
				}
				s.processTrack(ctx, run, job)
			}
		}()
	}
	wg.Wait()

	if run.cancelled.Load() {
		return ErrCancelled
	}
	return nil
}

// processSong downloads one pre-resolved single into artist/album (or
// artist/Singles) and tags it.
func (s *Service) processSong(ctx context.Context, id string, idx, totalAlbums int, song SongRequest, mediaID string) error {
	cfg := s.configManager.Get()

	albumName := song.Album
	if albumName == "" {
		albumName = "Singles"
	}
	dir := filepath.Join(cfg.MusicPath, s.pathName(song.Artist), s.pathName(albumName))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	run := &albumRun{
		id:          id,
		albumIdx:    idx,
		totalAlbums: totalAlbums,
		artist:      song.Artist,
		album:       song.Label(),
		year:        song.Year,
		genre:       song.Genre,
		dir:         dir,
		ext:         cfg.Downloader.AudioFormat,
		totalTracks: 1,
	}

	trackNum := song.TrackNum
	if trackNum == 0 {
		trackNum = 1
	}
	dest := filepath.Join(dir, trackFileName(trackNum, song.Title, run.ext))

	if _, err := os.Stat(dest); err == nil {
		s.queue.setCompleted(id, 1)
		s.emitTrack(run, 0, song.Title, TrackDone, "")
		return nil
	}

	s.emitTrack(run, 0, song.Title, TrackDownloading, "")
	template := filepath.Join(dir, trackTemplate(trackNum, song.Title))
	if err := s.fetcher.Download(ctx, mediaID, template); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if s.queue.cancel.Load() {
		return ErrCancelled
	}

	var cover []byte
	if song.Album != "" {
		cover, _ = s.metadata.CoverArt(ctx, song.Artist, song.Album)
	}

	s.emitTrack(run, 0, song.Title, TrackTagging, "")
	tags := TrackTags{
		Title:       song.Title,
		Artist:      song.Artist,
		Album:       albumName,
		Year:        song.Year,
		Genre:       song.Genre,
		TrackNumber: trackNum,
		TotalTracks: 1,
	}
	if err := s.tagger.WriteFileTags(ctx, dest, tags, cover); err != nil {
		slog.Warn("Failed to tag song", "path", dest, "error", err)
	}

	s.queue.setCompleted(id, 1)
	s.emitTrack(run, 0, song.Title, TrackDone, "")
	return nil
}

// pathName maps a display name to an on-disk directory name.
func (s *Service) pathName(name string) string {
	if s.configManager.Get().Downloader.AsciifyPaths {
		return SanitizeASCII(name)
	}
	return Sanitize(name)
}

// emitTrack sends a track-progress event for the given stage.
func (s *Service) emitTrack(run *albumRun, trackIdx int, trackName, status, errMsg string) {
	s.sink.Notify(Event{
		Type: EventTrackProgress,
		Track: &TrackProgress{
			AlbumIndex:  run.albumIdx,
			TotalAlbums: run.totalAlbums,
			Artist:      run.artist,
			Album:       run.album,
			TrackIndex:  trackIdx,
			TotalTracks: run.totalTracks,
			TrackName:   trackName,
			Status:      status,
			Error:       errMsg,
		},
	})
}
