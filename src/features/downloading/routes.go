package downloading

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the downloading and search routes.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	downloads := app.Group("/downloads")
	downloads.Post("/albums", handler.EnqueueAlbums)
	downloads.Post("/songs", handler.EnqueueSongs)
	downloads.Get("/status", handler.Status)
	downloads.Post("/cancel", handler.Cancel)
	downloads.Post("/clear", handler.ClearFinished)
	downloads.Get("/history", handler.History)
	downloads.Get("/inspect", handler.Inspect)

	search := app.Group("/search")
	search.Get("/artists", handler.SearchArtists)
	search.Get("/artists/:artistId/releases", handler.Discography)
	search.Get("/tracklist", handler.Tracklist)
	search.Get("/songs", handler.SearchSongs)

	app.Post("/library/scan", handler.TriggerScan)
}
