package hosting

import (
	"fmt"
	"log/slog"

	"github.com/cadenzadl/cadenza/src/features/config"
	"github.com/cadenzadl/cadenza/src/features/downloading"
	"github.com/cadenzadl/cadenza/src/features/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server. recorder and inspector may be nil.
func NewServer(cfg *config.Manager, downloadingService *downloading.Service, recorder *metrics.Recorder, inspector downloading.FileInspector) *Server {
	engine := html.New("./views", ".html")
	engine.Debug(cfg.Get().Logger.Level == "debug")
	engine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	engine.AddFunc("percent", func(completed, total int) int {
		if total == 0 {
			return 0
		}
		return completed * 100 / total
	})

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "Cadenza",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("status", fiber.Map{
			"State": downloadingService.Status(),
		})
	})

	downloadingHandler := downloading.NewHandler(downloadingService, inspector)
	downloading.RegisterRoutes(app, downloadingHandler)
	config.RegisterRoutes(app, cfg)
	if recorder != nil {
		metrics.RegisterRoutes(app, recorder)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
