package downloading

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for downloading.
type Handler struct {
	service  *Service
	validate *validator.Validate
	inspect  FileInspector
}

// FileInspector reads the tags of a finished file for the inspect endpoint.
type FileInspector interface {
	ReadFileTags(path string) (map[string]any, error)
}

// NewHandler creates a new downloading handler. inspector may be nil.
func NewHandler(service *Service, inspector FileInspector) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		inspect:  inspector,
	}
}

// EnqueueAlbumsRequest is the body of POST /downloads/albums.
type EnqueueAlbumsRequest struct {
	Albums []AlbumRequest `json:"albums" validate:"required,min=1,dive"`
}

// EnqueueSongsRequest is the body of POST /downloads/songs.
type EnqueueSongsRequest struct {
	Songs    []SongRequest `json:"songs" validate:"required,min=1,dive"`
	MediaIDs []string      `json:"mediaIds" validate:"required"`
}

// EnqueueAlbums appends albums to the download queue.
func (h *Handler) EnqueueAlbums(c *fiber.Ctx) error {
	var req EnqueueAlbumsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	h.service.EnqueueAlbums(req.Albums)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"enqueued": len(req.Albums)})
}

// EnqueueSongs appends pre-resolved songs to the download queue.
func (h *Handler) EnqueueSongs(c *fiber.Ctx) error {
	var req EnqueueSongsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.service.EnqueueSongs(req.Songs, req.MediaIDs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"enqueued": len(req.Songs)})
}

// Status returns a snapshot of the download state.
func (h *Handler) Status(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// Cancel requests cancellation of the current run.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	h.service.Cancel()
	return c.JSON(fiber.Map{"cancelled": true})
}

// ClearFinished prunes terminal entries from the display list.
func (h *Handler) ClearFinished(c *fiber.Ctx) error {
	h.service.ClearFinished()
	return c.JSON(h.service.Status())
}

// History lists recent terminal outcomes.
func (h *Handler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.Context(), c.QueryInt("limit"))
	if err != nil {
		slog.Error("Failed to list download history", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list history"})
	}
	return c.JSON(fiber.Map{"history": entries})
}

// SearchArtists looks up artists by name.
func (h *Handler) SearchArtists(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name parameter is required"})
	}
	artists, err := h.service.SearchArtists(c.Context(), name)
	if err != nil {
		slog.Error("Artist search failed", "name", name, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"artists": artists})
}

// Discography lists the release groups of an artist.
func (h *Handler) Discography(c *fiber.Ctx) error {
	artistID := c.Params("artistId")
	releases, err := h.service.Discography(c.Context(), artistID)
	if err != nil {
		slog.Error("Discography lookup failed", "artistId", artistID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"releases": releases})
}

// Tracklist returns the track titles of an album.
func (h *Handler) Tracklist(c *fiber.Ctx) error {
	artist, album := c.Query("artist"), c.Query("album")
	if artist == "" || album == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "artist and album parameters are required"})
	}
	tracks, err := h.service.Tracklist(c.Context(), artist, album)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"tracks": tracks})
}

// SearchSongs searches the media source for songs.
func (h *Handler) SearchSongs(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q parameter is required"})
	}
	songs, err := h.service.SearchSongs(c.Context(), query)
	if err != nil {
		slog.Error("Song search failed", "query", query, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"songs": songs})
}

// Inspect reads the tags of a finished file under the music root.
func (h *Handler) Inspect(c *fiber.Ctx) error {
	if h.inspect == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "inspection not available"})
	}
	rel := c.Query("path")
	if rel == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path parameter is required"})
	}
	root := h.service.configManager.Get().MusicPath
	full := filepath.Join(root, filepath.Clean("/"+rel))
	if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path escapes music root"})
	}
	tags, err := h.inspect.ReadFileTags(full)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(tags)
}

// TriggerScan asks the media server for a library rescan.
func (h *Handler) TriggerScan(c *fiber.Ctx) error {
	if err := h.service.TriggerScan(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"scan": "triggered"})
}
