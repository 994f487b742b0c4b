package tag

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/cadenzadl/cadenza/src/features/config"
	"github.com/cadenzadl/cadenza/src/features/downloading"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
	_ "image/gif"
)

// Writer embeds metadata and artwork into MP3 and FLAC files. It implements
// downloading.TagWriter.
type Writer struct {
	config *config.Manager
}

// NewWriter creates a new tag writer.
func NewWriter(cfg *config.Manager) *Writer {
	return &Writer{config: cfg}
}

// WriteFileTags writes metadata and an optional front cover to the file.
func (w *Writer) WriteFileTags(ctx context.Context, path string, tags downloading.TrackTags, cover []byte) error {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".mp3":
		return w.tagMP3(path, tags, cover)
	case ".flac":
		return w.tagFLAC(path, tags, cover)
	default:
		return fmt.Errorf("unsupported format: %s", ext)
	}
}

// tagMP3 handles MP3 tagging using id3v2.
func (w *Writer) tagMP3(path string, tags downloading.TrackTags, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file for tagging: %w", err)
	}
	defer tag.Close()

	tag.SetTitle(tags.Title)
	tag.SetArtist(tags.Artist)
	tag.AddTextFrame(tag.CommonID("Album Artist"), id3v2.EncodingUTF8, tags.Artist)
	tag.SetAlbum(tags.Album)
	if tags.Year != "" {
		tag.SetYear(tags.Year)
	}
	if tags.Genre != "" {
		tag.SetGenre(tags.Genre)
	}
	if tags.TrackNumber > 0 {
		position := fmt.Sprintf("%d", tags.TrackNumber)
		if tags.TotalTracks > 0 {
			position = fmt.Sprintf("%d/%d", tags.TrackNumber, tags.TotalTracks)
		}
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, position)
	}

	if cover = w.prepareCover(path, cover); len(cover) > 0 {
		pic := id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectMime(cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		}
		tag.AddAttachedPicture(pic)
		slog.Debug("Embedded artwork in MP3", "path", path, "size", len(cover))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}

	slog.Debug("Tagged MP3 file", "path", path, "title", tags.Title)
	return nil
}

// tagFLAC handles FLAC tagging using Vorbis comments.
func (w *Writer) tagFLAC(path string, tags downloading.TrackTags, cover []byte) error {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var vorbisComment *flacvorbis.MetaDataBlockVorbisComment
	commentIndex := -1
	for idx, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			vorbisComment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
			break
		}
	}
	if vorbisComment == nil {
		vorbisComment = flacvorbis.New()
	}

	vorbisComment.Add(flacvorbis.FIELD_TITLE, tags.Title)
	vorbisComment.Add(flacvorbis.FIELD_ARTIST, tags.Artist)
	vorbisComment.Add("ALBUMARTIST", tags.Artist)
	vorbisComment.Add(flacvorbis.FIELD_ALBUM, tags.Album)
	if tags.Year != "" {
		vorbisComment.Add(flacvorbis.FIELD_DATE, tags.Year)
	}
	if tags.Genre != "" {
		vorbisComment.Add(flacvorbis.FIELD_GENRE, tags.Genre)
	}
	if tags.TrackNumber > 0 {
		vorbisComment.Add(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(tags.TrackNumber))
	}
	if tags.TotalTracks > 0 {
		vorbisComment.Add("TRACKTOTAL", strconv.Itoa(tags.TotalTracks))
	}

	commentMeta := vorbisComment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &commentMeta
	} else {
		f.Meta = append(f.Meta, &commentMeta)
	}

	if cover = w.prepareCover(path, cover); len(cover) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover, detectMime(cover))
		if err != nil {
			slog.Warn("Failed to build FLAC picture block", "path", path, "error", err)
		} else {
			marshaled := pic.Marshal()
			f.Meta = append(f.Meta, &goflac.MetaDataBlock{
				Type: goflac.Picture,
				Data: marshaled.Data,
			})
			slog.Debug("Embedded artwork in FLAC", "path", path, "size", len(cover))
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}

	slog.Debug("Tagged FLAC file", "path", path, "title", tags.Title)
	return nil
}

// prepareCover resizes the cover per config and returns nil when embedding
// is disabled.
func (w *Writer) prepareCover(path string, cover []byte) []byte {
	if len(cover) == 0 {
		return nil
	}
	cfg := w.config.Get()
	if !cfg.Downloader.Artwork.Embedded.Enabled {
		return nil
	}
	if maxSize := cfg.Downloader.Artwork.Embedded.Size; maxSize > 0 {
		resized, err := w.resizeImage(cover, maxSize)
		if err != nil {
			slog.Warn("Failed to resize artwork", "path", path, "error", err)
		} else {
			cover = resized
		}
	}
	return cover
}

// resizeImage resizes image data to fit within maxSize pixels, maintaining
// aspect ratio.
func (w *Writer) resizeImage(imgData []byte, maxSize int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return imgData, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxSize && height <= maxSize {
		return imgData, nil
	}

	if width > height {
		height = (height * maxSize) / width
		width = maxSize
	} else {
		width = (width * maxSize) / height
		height = maxSize
	}

	resizedImg := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	quality := w.config.Get().Downloader.Artwork.Embedded.Quality
	if quality <= 0 {
		quality = 85
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		err = png.Encode(&buf, resizedImg)
	default:
		err = jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return imgData, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// detectMime sniffs the image MIME type from the magic bytes.
func detectMime(data []byte) string {
	if len(data) >= 4 && string(data[:4]) == "\x89PNG" {
		return "image/png"
	}
	return "image/jpeg"
}
