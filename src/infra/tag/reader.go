package tag

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// Reader reads tags back out of finished files. It implements
// downloading.FileInspector.
type Reader struct{}

// NewReader creates a new tag reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadFileTags reads the metadata of a music file.
func (r *Reader) ReadFileTags(path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	trackNumber, totalTracks := tags.Track()

	return map[string]any{
		"title":       tags.Title(),
		"artist":      tags.Artist(),
		"albumArtist": tags.AlbumArtist(),
		"album":       tags.Album(),
		"year":        tags.Year(),
		"genre":       tags.Genre(),
		"trackNumber": trackNumber,
		"totalTracks": totalTracks,
		"format":      string(tags.Format()),
		"fileType":    string(tags.FileType()),
		"hasArtwork":  tags.Picture() != nil,
	}, nil
}
