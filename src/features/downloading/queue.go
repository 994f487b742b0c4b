package downloading

import (
	"sync"
	"sync/atomic"
)

// queue owns the pending work list, the singleton-worker flag and the
// caller-visible display state.
//
// Locking: mu guards pending and running together, so the drain loop's final
// emptiness check and the clearing of the running flag happen in one critical
// section, so an enqueue can never land between the two and be stranded.
// stateMu guards the display state. Neither lock is ever held across a
// blocking external call.
type queue struct {
	mu      sync.Mutex
	pending []queueItem
	running bool

	stateMu sync.Mutex
	state   DownloadState

	cancel atomic.Bool
}

func newQueue() *queue {
	return &queue{}
}

// enqueue appends display entries and pending items and marks the run active.
// Safe to call while a drain loop is running.
func (q *queue) enqueue(entries []AlbumDownloadState, items []queueItem) {
	q.stateMu.Lock()
	q.state.IsActive = true
	q.state.Albums = append(q.state.Albums, entries...)
	q.stateMu.Unlock()

	q.mu.Lock()
	q.pending = append(q.pending, items...)
	q.mu.Unlock()
}

// tryStart marks the worker running if no worker is active. Returns true
// when the caller must spawn the drain loop.
func (q *queue) tryStart() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return false
	}
	q.running = true
	return true
}

// next pops the head of the pending queue. When the queue is empty it clears
// the running flag under the same lock and reports false: the worker must
// exit, and any later enqueue will pass tryStart again.
func (q *queue) next() (queueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.running = false
		return queueItem{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

// abortRun discards all pending work, stops the worker and marks every
// non-terminal display entry cancelled. Used on the cancel sweep.
func (q *queue) abortRun() {
	q.mu.Lock()
	q.pending = nil
	q.running = false
	q.mu.Unlock()

	q.stateMu.Lock()
	for i := range q.state.Albums {
		s := q.state.Albums[i].Status
		if s == StatusPending || s == StatusDownloading {
			q.state.Albums[i].Status = StatusCancelled
			q.state.Albums[i].ActiveTracks = nil
		}
	}
	q.state.IsActive = false
	q.stateMu.Unlock()
}

// find returns the position of the entry with the given id, or -1. Positions
// shift when clearFinished prunes the slice, so they are never cached across
// calls; every mutator resolves the entry by id. Callers must hold stateMu.
func (q *queue) find(id string) int {
	for i := range q.state.Albums {
		if q.state.Albums[i].ID == id {
			return i
		}
	}
	return -1
}

// claim marks a dequeued item's display entry downloading and returns its
// current position, for progress events only. Reports false when the entry is
// gone or already handled.
func (q *queue) claim(id string) (int, bool) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	i := q.find(id)
	if i < 0 || q.state.Albums[i].Status != StatusPending {
		return 0, false
	}
	q.state.Albums[i].Status = StatusDownloading
	return i, true
}

// finish records the terminal status of a claimed entry and returns a copy
// for history recording.
func (q *queue) finish(id string, status Status, errMsg string) AlbumDownloadState {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	i := q.find(id)
	if i < 0 {
		return AlbumDownloadState{}
	}
	a := &q.state.Albums[i]
	a.Status = status
	a.Error = errMsg
	a.ActiveTracks = nil
	return *a
}

// settleIdle sets isActive=false when nothing is pending or downloading.
// Returns true when the run is over.
func (q *queue) settleIdle() bool {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	for _, a := range q.state.Albums {
		if a.Status == StatusPending || a.Status == StatusDownloading {
			return false
		}
	}
	q.state.IsActive = false
	return true
}

// clearFinished prunes terminal entries from the display list. The pending
// queue is untouched: finished items are never still pending.
func (q *queue) clearFinished() {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	kept := q.state.Albums[:0]
	for _, a := range q.state.Albums {
		if !a.Status.Terminal() {
			kept = append(kept, a)
		}
	}
	q.state.Albums = kept
	if len(q.state.Albums) == 0 {
		q.state.IsActive = false
	}
}

// snapshot returns a consistent deep copy of the display state.
func (q *queue) snapshot() DownloadState {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	out := DownloadState{IsActive: q.state.IsActive, Albums: make([]AlbumDownloadState, len(q.state.Albums))}
	for i, a := range q.state.Albums {
		cp := a
		cp.ActiveTracks = append([]ActiveTrack(nil), a.ActiveTracks...)
		out.Albums[i] = cp
	}
	return out
}

func (q *queue) albumCount() int {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	return len(q.state.Albums)
}

func (q *queue) setTotalTracks(id string, total int) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	if i := q.find(id); i >= 0 {
		q.state.Albums[i].TotalTracks = total
	}
}

func (q *queue) setCompleted(id string, count int) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	if i := q.find(id); i >= 0 {
		q.state.Albums[i].CompletedTracks = count
	}
}

func (q *queue) addActiveTrack(id string, trackIdx int, name, status string) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	if i := q.find(id); i >= 0 {
		q.state.Albums[i].ActiveTracks = append(q.state.Albums[i].ActiveTracks, ActiveTrack{
			TrackIndex: trackIdx,
			TrackName:  name,
			Status:     status,
		})
	}
}

func (q *queue) setActiveTrackStatus(id string, trackIdx int, status string) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	i := q.find(id)
	if i < 0 {
		return
	}
	for j := range q.state.Albums[i].ActiveTracks {
		if q.state.Albums[i].ActiveTracks[j].TrackIndex == trackIdx {
			q.state.Albums[i].ActiveTracks[j].Status = status
			return
		}
	}
}

func (q *queue) removeActiveTrack(id string, trackIdx int) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()
	i := q.find(id)
	if i < 0 {
		return
	}
	active := q.state.Albums[i].ActiveTracks
	kept := active[:0]
	for _, t := range active {
		if t.TrackIndex != trackIdx {
			kept = append(kept, t)
		}
	}
	q.state.Albums[i].ActiveTracks = kept
}
