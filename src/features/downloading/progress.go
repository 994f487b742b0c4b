package downloading

import (
	"context"
	"log/slog"
)

// EventType discriminates progress notifications.
type EventType string

const (
	EventTrackProgress EventType = "track-progress"
	EventAlbumComplete EventType = "album-complete"
	EventRunError      EventType = "run-error"
	EventRunCancelled  EventType = "run-cancelled"
	EventAllComplete   EventType = "all-complete"
)

// TrackProgress carries the per-track payload of a track-progress event.
type TrackProgress struct {
	AlbumIndex  int    `json:"albumIndex"`
	TotalAlbums int    `json:"totalAlbums"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	TrackIndex  int    `json:"trackIndex"`
	TotalTracks int    `json:"totalTracks"`
	TrackName   string `json:"trackName"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// Event is one progress notification. Track is set only for track-progress
// events; the album fields are set for album-complete and run-error.
type Event struct {
	Type        EventType      `json:"type"`
	AlbumIndex  int            `json:"albumIndex,omitempty"`
	TotalAlbums int            `json:"totalAlbums,omitempty"`
	Artist      string         `json:"artist,omitempty"`
	Album       string         `json:"album,omitempty"`
	Error       string         `json:"error,omitempty"`
	Track       *TrackProgress `json:"track,omitempty"`
}

// ProgressSink receives progress notifications. Delivery is best-effort:
// implementations must not block the pipeline and must swallow their own
// failures.
type ProgressSink interface {
	Notify(event Event)
}

// MetadataClient looks up artists, discographies, tracklists and cover art.
// Implementations are expected to pace paginated calls themselves.
type MetadataClient interface {
	SearchArtists(ctx context.Context, name string) ([]ArtistResult, error)
	ReleaseGroups(ctx context.Context, artistID string) ([]ReleaseGroup, error)
	Tracklist(ctx context.Context, artist, album string) ([]string, error)
	// CoverArt returns nil when no usable front cover exists.
	CoverArt(ctx context.Context, artist, album string) ([]byte, error)
}

// MediaFetcher locates and downloads media through an external tool. Both
// operations block for the lifetime of the underlying process.
type MediaFetcher interface {
	// Resolve returns the media identifier for the best match of the query,
	// or an empty string when nothing was found.
	Resolve(ctx context.Context, query string) (string, error)
	// Download fetches the media into the given output template. The
	// %(ext)s placeholder expands to the container extension.
	Download(ctx context.Context, mediaID, destTemplate string) error
	SearchSongs(ctx context.Context, query string) ([]SongResult, error)
}

// TagWriter embeds metadata and optional artwork into a finished file.
type TagWriter interface {
	WriteFileTags(ctx context.Context, path string, tags TrackTags, cover []byte) error
}

// HistoryStore persists terminal outcomes of processed items.
type HistoryStore interface {
	Record(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// LibraryScanner asks the media server to pick up newly written files.
type LibraryScanner interface {
	Trigger(ctx context.Context) error
}

// MultiSink fans an event out to several sinks.
type MultiSink []ProgressSink

func (m MultiSink) Notify(event Event) {
	for _, sink := range m {
		sink.Notify(event)
	}
}

// LogSink reports progress through slog.
type LogSink struct{}

func (LogSink) Notify(event Event) {
	switch event.Type {
	case EventTrackProgress:
		t := event.Track
		if t == nil {
			return
		}
		if t.Error != "" {
			slog.Warn("Track failed", "artist", t.Artist, "album", t.Album, "track", t.TrackName, "error", t.Error)
			return
		}
		slog.Debug("Track progress", "artist", t.Artist, "album", t.Album, "track", t.TrackName, "status", t.Status)
	case EventAlbumComplete:
		slog.Info("Item finished", "artist", event.Artist, "album", event.Album)
	case EventRunError:
		slog.Error("Item failed", "artist", event.Artist, "album", event.Album, "error", event.Error)
	case EventRunCancelled:
		slog.Info("Download run cancelled")
	case EventAllComplete:
		slog.Info("All downloads complete")
	}
}
