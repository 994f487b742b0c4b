package downloading

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gosimple/unidecode"
)

// AlbumRequest describes one album to acquire. Immutable once enqueued.
// If Tracks is non-empty it overrides the tracklist lookup.
type AlbumRequest struct {
	Artist string   `json:"artist" validate:"required"`
	Album  string   `json:"album" validate:"required"`
	Year   string   `json:"year"`
	Genre  string   `json:"genre"`
	Tracks []string `json:"tracks,omitempty"`
}

// SongRequest describes a single track to acquire. The media identifier is
// resolved by the caller beforehand (e.g. picked from SearchSongs results).
type SongRequest struct {
	Title    string `json:"title" validate:"required"`
	Artist   string `json:"artist" validate:"required"`
	Album    string `json:"album"`
	Year     string `json:"year"`
	Genre    string `json:"genre"`
	TrackNum int    `json:"trackNum"`
}

// Label returns the display label used for a song in the albums list.
func (r SongRequest) Label() string {
	return r.Title + " (Single)"
}

// Status is the lifecycle state of one enqueued album or song.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// Track-level pipeline stages as reported through progress events and the
// active-track set.
const (
	TrackSearching   = "searching"
	TrackDownloading = "downloading"
	TrackTagging     = "tagging"
	TrackDone        = "done"
	TrackError       = "error"
	TrackCancelled   = "cancelled"

	trackFetchingCover     = "fetching_cover"
	trackFetchingTracklist = "fetching_tracklist"
)

// ActiveTrack is a track currently inside the pipeline. Entries are inserted
// when a track starts searching and removed on any terminal outcome.
type ActiveTrack struct {
	TrackIndex int    `json:"trackIndex"`
	TrackName  string `json:"trackName"`
	Status     string `json:"status"`
}

// AlbumDownloadState is the caller-visible progress record for one enqueued
// item. TotalTracks stays 0 until the tracklist is resolved.
type AlbumDownloadState struct {
	ID              string        `json:"id"`
	Artist          string        `json:"artist"`
	Album           string        `json:"album"`
	Status          Status        `json:"status"`
	CompletedTracks int           `json:"completedTracks"`
	TotalTracks     int           `json:"totalTracks"`
	Error           string        `json:"error,omitempty"`
	ActiveTracks    []ActiveTrack `json:"activeTracks"`
}

// DownloadState is the full display state: every enqueued item in enqueue
// order. Entries only leave the list through ClearFinished.
type DownloadState struct {
	IsActive bool                 `json:"isActive"`
	Albums   []AlbumDownloadState `json:"albums"`
}

// queueItem is one unit of pending work. It is owned by the pending queue
// until dequeued; ownership then transfers to the drain loop.
type queueItem struct {
	id      string
	album   *AlbumRequest
	song    *SongRequest
	mediaID string
}

func (it queueItem) artist() string {
	if it.album != nil {
		return it.album.Artist
	}
	return it.song.Artist
}

func (it queueItem) label() string {
	if it.album != nil {
		return it.album.Album
	}
	return it.song.Label()
}

// ArtistResult is one artist search hit from the metadata service.
type ArtistResult struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Disambiguation string `json:"disambiguation"`
}

// ReleaseGroup is one entry of an artist's discography.
type ReleaseGroup struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Year           string   `json:"year"`
	Type           string   `json:"type"`
	SecondaryTypes []string `json:"secondaryTypes"`
}

// SongResult is one media search hit from the fetcher.
type SongResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
	Channel  string `json:"channel"`
}

// TrackTags is the metadata handed to the tag writer for one finished file.
type TrackTags struct {
	Title       string
	Artist      string
	Album       string
	Year        string
	Genre       string
	TrackNumber int
	TotalTracks int
}

// HistoryEntry records the terminal outcome of one processed item.
type HistoryEntry struct {
	ID              string    `json:"id"`
	Artist          string    `json:"artist"`
	Album           string    `json:"album"`
	Status          Status    `json:"status"`
	CompletedTracks int       `json:"completedTracks"`
	TotalTracks     int       `json:"totalTracks"`
	Error           string    `json:"error,omitempty"`
	FinishedAt      time.Time `json:"finishedAt"`
}

var (
	unsafePathChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	repeatedSpaces  = regexp.MustCompile(`\s+`)
)

// Sanitize creates a filesystem-safe file or directory name.
func Sanitize(name string) string {
	sanitized := unsafePathChars.ReplaceAllString(name, "-")
	sanitized = strings.Trim(sanitized, " .")
	return repeatedSpaces.ReplaceAllString(sanitized, " ")
}

// SanitizeASCII additionally transliterates the name to ASCII, for
// filesystems and media servers that choke on unicode paths.
func SanitizeASCII(name string) string {
	return Sanitize(unidecode.Unidecode(name))
}

// trackFileName builds the on-disk name for a track, e.g. "03-Title.mp3".
func trackFileName(index int, name, ext string) string {
	return fmt.Sprintf("%02d-%s.%s", index, Sanitize(name), ext)
}

// trackTemplate builds the fetcher output template for a track. The
// %(ext)s placeholder is expanded by the fetcher to the container extension
// before transcoding.
func trackTemplate(index int, name string) string {
	return fmt.Sprintf("%02d-%s.%%(ext)s", index, Sanitize(name))
}
