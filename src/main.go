package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cadenzadl/cadenza/src/features/config"
	"github.com/cadenzadl/cadenza/src/features/downloading"
	"github.com/cadenzadl/cadenza/src/features/hosting"
	"github.com/cadenzadl/cadenza/src/features/logging"
	"github.com/cadenzadl/cadenza/src/features/metrics"
	"github.com/cadenzadl/cadenza/src/infra/history"
	"github.com/cadenzadl/cadenza/src/infra/musicbrainz"
	"github.com/cadenzadl/cadenza/src/infra/notify"
	"github.com/cadenzadl/cadenza/src/infra/scan"
	"github.com/cadenzadl/cadenza/src/infra/tag"
	"github.com/cadenzadl/cadenza/src/infra/watcher"
	"github.com/cadenzadl/cadenza/src/infra/ytdlp"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Create the metadata and media clients
	metadataClient := musicbrainz.NewClient(cfgManager.Get().MusicBrainz.UserAgent)
	fetcher, err := ytdlp.NewFetcher(cfgManager)
	if err != nil {
		log.Fatalf("failed to initialize media fetcher: %v", err)
	}
	tagWriter := tag.NewWriter(cfgManager)

	// Create the history store if enabled
	var historyStore downloading.HistoryStore
	if cfgManager.Get().History.Enabled {
		store, err := history.NewSqliteStore(cfgManager.Get().History.Path)
		if err != nil {
			log.Fatalf("failed to open history store: %v", err)
		}
		defer store.Close()
		historyStore = store
	}

	// Create the media server scan client
	scanClient := scan.NewSubsonicClient(cfgManager)

	// Assemble the progress sinks: log, metrics, and optionally Telegram
	var downloadingService *downloading.Service
	recorder := metrics.NewRecorder(func() downloading.DownloadState {
		return downloadingService.Status()
	})
	sinks := downloading.MultiSink{downloading.LogSink{}, recorder}
	if cfgManager.Get().Telegram.Enabled {
		telegramSink, err := notify.NewTelegramSink(cfgManager)
		if err != nil {
			slog.Error("Failed to initialize Telegram notifications", "error", err)
		} else {
			sinks = append(sinks, telegramSink)
		}
	}

	// Create the downloading service
	downloadingService = downloading.NewService(cfgManager, metadataClient, fetcher, tagWriter, sinks, historyStore, scanClient)

	// Start the music root watcher if configured
	if cfgManager.Get().Subsonic.Enabled && cfgManager.Get().Subsonic.Watch {
		w, err := watcher.NewWatcher(scanClient)
		if err != nil {
			slog.Error("Failed to create file watcher", "error", err)
		} else if err := w.Start(context.Background(), cfgManager.Get().MusicPath); err != nil {
			slog.Error("Failed to start file watcher", "error", err)
		} else {
			defer w.Stop()
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, downloadingService, recorder, tag.NewReader())
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	// Stop accepting work and wind down the drain loop
	downloadingService.Cancel()

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
