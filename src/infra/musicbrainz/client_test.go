package musicbrainz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(apiBase, coverArtBase string) *Client {
	c := NewClient("test-agent")
	c.apiBase = apiBase
	c.coverArtBase = coverArtBase
	c.pace = 0
	return c
}

func TestSearchArtists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artist" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("expected User-Agent test-agent, got %s", got)
		}
		fmt.Fprint(w, `{"artists":[{"id":"id-1","name":"Queen","disambiguation":"UK rock band"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	artists, err := client.SearchArtists(context.Background(), "queen")
	if err != nil {
		t.Fatal(err)
	}
	if len(artists) != 1 {
		t.Fatalf("expected 1 artist, got %d", len(artists))
	}
	if artists[0].Name != "Queen" || artists[0].Disambiguation != "UK rock band" {
		t.Errorf("unexpected artist: %+v", artists[0])
	}
}

func TestReleaseGroups_PaginatesSortsAndDedupes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		switch offset {
		case 0:
			fmt.Fprint(w, `{"release-group-count":3,"release-groups":[
				{"id":"b","title":"Later","primary-type":"Album","first-release-date":"1991-02-01"},
				{"id":"a","title":"Debut","primary-type":"Album","first-release-date":"1985"}]}`)
		default:
			fmt.Fprint(w, `{"release-group-count":3,"release-groups":[
				{"id":"c","title":"DEBUT","primary-type":"Album","first-release-date":"1999"}]}`)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	// Page size matches the live API; the fake just keys off the offset.
	releases, err := client.ReleaseGroups(context.Background(), "artist-id")
	if err != nil {
		t.Fatal(err)
	}

	if len(releases) != 2 {
		t.Fatalf("expected 2 releases after dedup, got %d: %+v", len(releases), releases)
	}
	if releases[0].Title != "Debut" || releases[0].Year != "1985" {
		t.Errorf("expected Debut (1985) first, got %+v", releases[0])
	}
	if releases[1].Title != "Later" || releases[1].Year != "1991" {
		t.Errorf("expected Later (1991) second, got %+v", releases[1])
	}
}

func TestTracklist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/release":
			fmt.Fprint(w, `{"releases":[{"id":"rel-1"}]}`)
		case "/release/rel-1":
			fmt.Fprint(w, `{"media":[{"tracks":[{"title":"One","position":1},{"title":"Two","position":2}]},{"tracks":[{"title":"Three","position":1}]}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	tracks, err := client.Tracklist(context.Background(), "Artist", "Album")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"One", "Two", "Three"}
	if len(tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %d", len(want), len(tracks))
	}
	for i := range want {
		if tracks[i] != want[i] {
			t.Errorf("track %d: expected %s, got %s", i, want[i], tracks[i])
		}
	}
}

func TestTracklist_NoRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"releases":[]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.Tracklist(context.Background(), "Artist", "Nothing"); err == nil {
		t.Fatal("expected error for missing release")
	}
}

func TestCoverArt_AcceptsJPEG(t *testing.T) {
	jpegBytes := append([]byte{0xFF, 0xD8}, []byte("rest-of-image")...)
	mux := http.NewServeMux()
	mux.HandleFunc("/release-group", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"release-group-count":1,"release-groups":[{"id":"rg-1","title":"Album"}]}`)
	})
	mux.HandleFunc("/release-group/rg-1/front-500", func(w http.ResponseWriter, r *http.Request) {
		w.Write(jpegBytes)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	data, err := client.CoverArt(context.Background(), "Artist", "Album")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(jpegBytes) {
		t.Errorf("expected %d bytes, got %d", len(jpegBytes), len(data))
	}
}

func TestCoverArt_RejectsNonImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release-group", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"release-group-count":1,"release-groups":[{"id":"rg-1","title":"Album"}]}`)
	})
	mux.HandleFunc("/release-group/rg-1/front-500", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not found page served with 200</html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.CoverArt(context.Background(), "Artist", "Album"); err == nil {
		t.Fatal("expected error for non-image payload")
	}
}

func TestIsImage(t *testing.T) {
	if !isImage([]byte{0xFF, 0xD8, 0x00}) {
		t.Error("expected JPEG magic to be accepted")
	}
	if !isImage([]byte{0x89, 0x50, 0x4E, 0x47}) {
		t.Error("expected PNG magic to be accepted")
	}
	if isImage([]byte("<html>")) {
		t.Error("expected HTML to be rejected")
	}
	if isImage(nil) {
		t.Error("expected empty payload to be rejected")
	}
}
