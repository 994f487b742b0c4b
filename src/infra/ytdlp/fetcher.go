package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cadenzadl/cadenza/src/features/config"
	"github.com/cadenzadl/cadenza/src/features/downloading"
)

// Fetcher resolves and downloads audio through the yt-dlp command line
// tool. It implements downloading.MediaFetcher.
type Fetcher struct {
	config *config.Manager
	binary string
}

// NewFetcher creates a yt-dlp backed fetcher. It fails if the yt-dlp
// binary cannot be found on PATH.
func NewFetcher(cfg *config.Manager) (*Fetcher, error) {
	binary, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found. Please install it:\n"+
			"  pip install yt-dlp\n"+
			"  Or download from: https://github.com/yt-dlp/yt-dlp: %w", err)
	}
	return &Fetcher{config: cfg, binary: binary}, nil
}

// Resolve searches the media source and returns the identifier of the best
// match, or an empty string when nothing was found.
func (f *Fetcher) Resolve(ctx context.Context, query string) (string, error) {
	cmd := exec.CommandContext(ctx, f.binary,
		"--no-update",
		"--print", "id",
		"ytsearch1:"+query,
	)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("media search failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Download fetches the media item and extracts audio into the given output
// template path.
func (f *Fetcher) Download(ctx context.Context, mediaID, destTemplate string) error {
	cfg := f.config.Get()

	args := []string{
		"--no-update",
		"--extractor-args", "youtube:player_client=android",
		"-x",
		"--audio-format", cfg.Downloader.AudioFormat,
		"--audio-quality", "0",
		"-o", destTemplate,
	}
	if cfg.Downloader.FfmpegPath != "" {
		args = append(args, "--ffmpeg-location", cfg.Downloader.FfmpegPath)
	}
	args = append(args, "https://www.youtube.com/watch?v="+mediaID)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("download failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// SearchSongs returns up to ten candidate songs for a free-text query.
func (f *Fetcher) SearchSongs(ctx context.Context, query string) ([]downloading.SongResult, error) {
	cmd := exec.CommandContext(ctx, f.binary,
		"--no-update",
		"--flat-playlist",
		"-j",
		"ytsearch10:"+query,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("song search failed: %w", err)
	}

	var results []downloading.SongResult
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var entry struct {
			ID       string  `json:"id"`
			Title    string  `json:"title"`
			Duration float64 `json:"duration"`
			Channel  string  `json:"channel"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		results = append(results, downloading.SongResult{
			ID:       entry.ID,
			Title:    entry.Title,
			Duration: formatDuration(entry.Duration),
			Channel:  entry.Channel,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return results, nil
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
