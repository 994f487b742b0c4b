package scan

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cadenzadl/cadenza/src/features/config"
)

// SubsonicClient triggers library scans on a Subsonic-compatible media
// server (Navidrome, Airsonic, ...). It implements
// downloading.LibraryScanner.
type SubsonicClient struct {
	config     *config.Manager
	httpClient *http.Client
}

// NewSubsonicClient creates a scan client for the configured server.
func NewSubsonicClient(cfg *config.Manager) *SubsonicClient {
	return &SubsonicClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Trigger asks the media server to start a library scan.
func (c *SubsonicClient) Trigger(ctx context.Context) error {
	sub := c.config.Get().Subsonic
	if !sub.Enabled {
		return fmt.Errorf("subsonic integration is disabled in configuration")
	}

	params := url.Values{}
	params.Set("u", sub.Username)
	params.Set("p", sub.Password)
	params.Set("v", "1.16.1")
	params.Set("c", "Cadenza")
	params.Set("f", "json")

	scanURL := fmt.Sprintf("%s/rest/startScan?%s", sub.URL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", scanURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to trigger scan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scan request failed with status %d", resp.StatusCode)
	}

	slog.Info("Triggered media server library scan", "url", sub.URL)
	return nil
}
