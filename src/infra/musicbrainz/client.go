package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cadenzadl/cadenza/src/features/downloading"
)

const (
	defaultAPIBase      = "https://musicbrainz.org/ws/2"
	defaultCoverArtBase = "https://coverartarchive.org"

	releaseGroupPageSize = 100
)

// MusicBrainz API response structures
type artistSearchResponse struct {
	Artists []struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Disambiguation string `json:"disambiguation"`
	} `json:"artists"`
}

type releaseGroupResponse struct {
	ReleaseGroupCount int `json:"release-group-count"`
	ReleaseGroups     []struct {
		ID               string   `json:"id"`
		Title            string   `json:"title"`
		PrimaryType      string   `json:"primary-type"`
		SecondaryTypes   []string `json:"secondary-types"`
		FirstReleaseDate string   `json:"first-release-date"`
	} `json:"release-groups"`
}

type releaseSearchResponse struct {
	Releases []struct {
		ID string `json:"id"`
	} `json:"releases"`
}

type releaseResponse struct {
	Media []struct {
		Tracks []struct {
			Title    string `json:"title"`
			Position int    `json:"position"`
		} `json:"tracks"`
	} `json:"media"`
}

// Client queries the MusicBrainz API. It implements
// downloading.MetadataClient.
type Client struct {
	userAgent    string
	apiBase      string
	coverArtBase string
	httpClient   *http.Client

	// pace is slept between consecutive API calls inside one operation,
	// per the MusicBrainz rate-limit guidelines.
	pace time.Duration
}

// NewClient creates a MusicBrainz client with the given User-Agent.
func NewClient(userAgent string) *Client {
	return &Client{
		userAgent:    userAgent,
		apiBase:      defaultAPIBase,
		coverArtBase: defaultCoverArtBase,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pace:         time.Second,
	}
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("MusicBrainz API request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) sleep(ctx context.Context) error {
	if c.pace == 0 {
		return nil
	}
	select {
	case <-time.After(c.pace):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SearchArtists looks up artists by name.
func (c *Client) SearchArtists(ctx context.Context, name string) ([]downloading.ArtistResult, error) {
	searchURL := fmt.Sprintf("%s/artist?query=%s&fmt=json&limit=8", c.apiBase, url.QueryEscape(name))

	var resp artistSearchResponse
	if err := c.get(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	results := make([]downloading.ArtistResult, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		results = append(results, downloading.ArtistResult{
			ID:             a.ID,
			Name:           a.Name,
			Disambiguation: a.Disambiguation,
		})
	}
	return results, nil
}

// ReleaseGroups lists an artist's full discography, paginated, sorted by
// release year, with case-insensitive title duplicates removed.
func (c *Client) ReleaseGroups(ctx context.Context, artistID string) ([]downloading.ReleaseGroup, error) {
	var all []downloading.ReleaseGroup
	offset := 0

	for {
		pageURL := fmt.Sprintf("%s/release-group?artist=%s&fmt=json&limit=%d&offset=%d",
			c.apiBase, url.PathEscape(artistID), releaseGroupPageSize, offset)

		var page releaseGroupResponse
		if err := c.get(ctx, pageURL, &page); err != nil {
			return nil, err
		}

		for _, rg := range page.ReleaseGroups {
			year := rg.FirstReleaseDate
			if len(year) > 4 {
				year = year[:4]
			}
			all = append(all, downloading.ReleaseGroup{
				ID:             rg.ID,
				Title:          rg.Title,
				Year:           year,
				Type:           rg.PrimaryType,
				SecondaryTypes: rg.SecondaryTypes,
			})
		}

		offset += len(page.ReleaseGroups)
		if offset >= page.ReleaseGroupCount || len(page.ReleaseGroups) == 0 {
			break
		}
		if err := c.sleep(ctx); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Year < all[j].Year
	})

	seen := make(map[string]bool, len(all))
	deduped := all[:0]
	for _, rg := range all {
		key := strings.ToLower(rg.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, rg)
	}
	return deduped, nil
}

// Tracklist resolves the track titles of an album, in release order.
func (c *Client) Tracklist(ctx context.Context, artist, album string) ([]string, error) {
	query := fmt.Sprintf(`artist:"%s" AND release:"%s"`, artist, album)
	searchURL := fmt.Sprintf("%s/release?query=%s&fmt=json&limit=1", c.apiBase, url.QueryEscape(query))

	var search releaseSearchResponse
	if err := c.get(ctx, searchURL, &search); err != nil {
		return nil, err
	}
	if len(search.Releases) == 0 {
		return nil, fmt.Errorf("no release found on MusicBrainz for %s - %s", artist, album)
	}

	if err := c.sleep(ctx); err != nil {
		return nil, err
	}

	releaseURL := fmt.Sprintf("%s/release/%s?inc=recordings&fmt=json", c.apiBase, url.PathEscape(search.Releases[0].ID))
	var release releaseResponse
	if err := c.get(ctx, releaseURL, &release); err != nil {
		return nil, err
	}

	var tracks []string
	for _, medium := range release.Media {
		for _, t := range medium.Tracks {
			tracks = append(tracks, t.Title)
		}
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks found on MusicBrainz for %s - %s", artist, album)
	}
	return tracks, nil
}

// CoverArt fetches the front cover of an album as raw image bytes. Only
// JPEG and PNG payloads are accepted.
func (c *Client) CoverArt(ctx context.Context, artist, album string) ([]byte, error) {
	query := fmt.Sprintf(`artist:"%s" AND releasegroup:"%s"`, artist, album)
	searchURL := fmt.Sprintf("%s/release-group?query=%s&fmt=json&limit=1", c.apiBase, url.QueryEscape(query))

	var search releaseGroupResponse
	if err := c.get(ctx, searchURL, &search); err != nil {
		return nil, err
	}
	if len(search.ReleaseGroups) == 0 {
		return nil, fmt.Errorf("no release group found for %s - %s", artist, album)
	}

	coverURL := fmt.Sprintf("%s/release-group/%s/front-500", c.coverArtBase, url.PathEscape(search.ReleaseGroups[0].ID))
	req, err := http.NewRequestWithContext(ctx, "GET", coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cover art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover art request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover art: %w", err)
	}
	if !isImage(data) {
		return nil, fmt.Errorf("cover art response is not a JPEG or PNG image")
	}
	return data, nil
}

// isImage checks the JPEG and PNG magic bytes.
func isImage(data []byte) bool {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return true
	}
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return true
	}
	return false
}
