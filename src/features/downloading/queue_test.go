package downloading

import (
	"fmt"
	"testing"
)

func testItems(albums ...string) ([]AlbumDownloadState, []queueItem) {
	entries := make([]AlbumDownloadState, 0, len(albums))
	items := make([]queueItem, 0, len(albums))
	for i, album := range albums {
		id := fmt.Sprintf("item-%d", i)
		entries = append(entries, AlbumDownloadState{ID: id, Artist: "A", Album: album, Status: StatusPending})
		items = append(items, queueItem{id: id, album: &AlbumRequest{Artist: "A", Album: album}})
	}
	return entries, items
}

func TestQueue_NextClearsRunningWhenEmpty(t *testing.T) {
	q := newQueue()

	if !q.tryStart() {
		t.Fatal("expected first tryStart to succeed")
	}
	if q.tryStart() {
		t.Fatal("expected second tryStart to fail while running")
	}

	if _, ok := q.next(); ok {
		t.Fatal("expected next on empty queue to report false")
	}

	// The worker is gone; a new enqueue must be able to start one.
	if !q.tryStart() {
		t.Fatal("expected tryStart to succeed after queue drained")
	}
}

func TestQueue_PopsInEnqueueOrder(t *testing.T) {
	q := newQueue()
	entries, items := testItems("First", "Second")
	q.enqueue(entries, items)

	first, ok := q.next()
	if !ok || first.label() != "First" {
		t.Fatalf("expected First, got %v ok=%v", first.label(), ok)
	}
	second, ok := q.next()
	if !ok || second.label() != "Second" {
		t.Fatalf("expected Second, got %v ok=%v", second.label(), ok)
	}
}

func TestQueue_ClaimIsPerEntry(t *testing.T) {
	q := newQueue()
	// Duplicate labels: each item still resolves its own entry by id.
	entries, items := testItems("Same", "Same")
	q.enqueue(entries, items)

	idx1, ok := q.claim("item-0")
	if !ok || idx1 != 0 {
		t.Fatalf("expected claim of entry 0, got %d ok=%v", idx1, ok)
	}
	idx2, ok := q.claim("item-1")
	if !ok || idx2 != 1 {
		t.Fatalf("expected claim of entry 1, got %d ok=%v", idx2, ok)
	}
	if _, ok := q.claim("item-0"); ok {
		t.Fatal("expected re-claim of a downloading entry to fail")
	}
	if _, ok := q.claim("missing"); ok {
		t.Fatal("expected claim of an unknown id to fail")
	}
}

func TestQueue_MutatorsFollowEntryAfterClearShift(t *testing.T) {
	q := newQueue()
	entries, items := testItems("Done", "Current")
	q.enqueue(entries, items)
	q.claim("item-0")
	q.finish("item-0", StatusComplete, "")
	q.claim("item-1")

	// Pruning the finished entry shifts the display slice under the run; the
	// in-flight item's mutations must still land on its own entry.
	q.clearFinished()

	q.setTotalTracks("item-1", 5)
	q.setCompleted("item-1", 5)
	final := q.finish("item-1", StatusComplete, "")
	if final.Album != "Current" || final.Status != StatusComplete {
		t.Fatalf("expected Current recorded complete, got %+v", final)
	}

	state := q.snapshot()
	if len(state.Albums) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(state.Albums))
	}
	if state.Albums[0].Status != StatusComplete || state.Albums[0].CompletedTracks != 5 {
		t.Errorf("expected complete 5/5, got %+v", state.Albums[0])
	}
	if !q.settleIdle() {
		t.Error("expected run to settle once the shifted entry finished")
	}
}

func TestQueue_AbortRunCancelsNonTerminal(t *testing.T) {
	q := newQueue()
	entries, items := testItems("Done", "Running", "Waiting")
	q.enqueue(entries, items)
	q.claim("item-0")
	q.finish("item-0", StatusComplete, "")
	q.claim("item-1")

	q.abortRun()

	state := q.snapshot()
	if state.IsActive {
		t.Error("expected inactive state after abort")
	}
	if state.Albums[0].Status != StatusComplete {
		t.Errorf("expected finished album untouched, got %s", state.Albums[0].Status)
	}
	if state.Albums[1].Status != StatusCancelled {
		t.Errorf("expected running album cancelled, got %s", state.Albums[1].Status)
	}
	if state.Albums[2].Status != StatusCancelled {
		t.Errorf("expected waiting album cancelled, got %s", state.Albums[2].Status)
	}
	if _, ok := q.next(); ok {
		t.Error("expected pending queue to be drained after abort")
	}
}

func TestQueue_SettleIdle(t *testing.T) {
	q := newQueue()
	entries, items := testItems("One")
	q.enqueue(entries, items)

	if q.settleIdle() {
		t.Fatal("expected settleIdle to report false with pending work")
	}
	q.claim("item-0")
	if q.settleIdle() {
		t.Fatal("expected settleIdle to report false while downloading")
	}
	q.finish("item-0", StatusComplete, "")
	if !q.settleIdle() {
		t.Fatal("expected settleIdle to report true when all terminal")
	}
	if q.snapshot().IsActive {
		t.Error("expected inactive state after settle")
	}
}

func TestQueue_SnapshotIsDeepCopy(t *testing.T) {
	q := newQueue()
	entries, items := testItems("One")
	q.enqueue(entries, items)
	q.addActiveTrack("item-0", 0, "Track", TrackSearching)

	snap := q.snapshot()
	snap.Albums[0].ActiveTracks[0].Status = TrackDone
	snap.Albums[0].Status = StatusError

	state := q.snapshot()
	if state.Albums[0].ActiveTracks[0].Status != TrackSearching {
		t.Error("snapshot mutation leaked into queue state")
	}
	if state.Albums[0].Status != StatusPending {
		t.Error("snapshot mutation leaked into album status")
	}
}

func TestQueue_ActiveTrackLifecycle(t *testing.T) {
	q := newQueue()
	entries, items := testItems("One")
	q.enqueue(entries, items)

	q.addActiveTrack("item-0", 2, "Three", TrackSearching)
	q.setActiveTrackStatus("item-0", 2, TrackDownloading)

	state := q.snapshot()
	if len(state.Albums[0].ActiveTracks) != 1 {
		t.Fatalf("expected 1 active track, got %d", len(state.Albums[0].ActiveTracks))
	}
	if state.Albums[0].ActiveTracks[0].Status != TrackDownloading {
		t.Errorf("expected downloading, got %s", state.Albums[0].ActiveTracks[0].Status)
	}

	q.removeActiveTrack("item-0", 2)
	if n := len(q.snapshot().Albums[0].ActiveTracks); n != 0 {
		t.Errorf("expected no active tracks after removal, got %d", n)
	}
}
