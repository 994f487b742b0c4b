package metrics

import (
	"github.com/cadenzadl/cadenza/src/features/downloading"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes download pipeline counters and gauges. It implements
// downloading.ProgressSink so the pipeline feeds it like any other observer.
type Recorder struct {
	registry *prometheus.Registry

	tracksDone    prometheus.Counter
	trackErrors   prometheus.Counter
	itemsFinished prometheus.Counter
	itemErrors    prometheus.Counter
	runsCancelled prometheus.Counter
	runsCompleted prometheus.Counter
}

// NewRecorder builds a Recorder with its own registry. statusFn is sampled on
// scrape for the queue gauges.
func NewRecorder(statusFn func() downloading.DownloadState) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tracksDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadenza_tracks_downloaded_total",
			Help: "Tracks that reached the done state.",
		}),
		trackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadenza_track_errors_total",
			Help: "Tracks that ended in a search or download error.",
		}),
		itemsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadenza_items_finished_total",
			Help: "Queue items that reached any terminal state.",
		}),
		itemErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadenza_item_errors_total",
			Help: "Queue items that ended in an error.",
		}),
		runsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadenza_runs_cancelled_total",
			Help: "Download runs stopped by cancellation.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cadenza_runs_completed_total",
			Help: "Download runs that drained to completion.",
		}),
	}

	pendingItems := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cadenza_queue_items_pending",
		Help: "Display entries still pending or downloading.",
	}, func() float64 {
		n := 0
		for _, a := range statusFn().Albums {
			if !a.Status.Terminal() {
				n++
			}
		}
		return float64(n)
	})
	activeTracks := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cadenza_tracks_active",
		Help: "Tracks currently inside the per-album worker pool.",
	}, func() float64 {
		n := 0
		for _, a := range statusFn().Albums {
			n += len(a.ActiveTracks)
		}
		return float64(n)
	})

	r.registry.MustRegister(r.tracksDone, r.trackErrors, r.itemsFinished, r.itemErrors, pendingItems, activeTracks, r.runsCancelled, r.runsCompleted)
	return r
}

// Notify implements downloading.ProgressSink.
func (r *Recorder) Notify(event downloading.Event) {
	switch event.Type {
	case downloading.EventTrackProgress:
		if event.Track == nil {
			return
		}
		switch event.Track.Status {
		case downloading.TrackDone:
			r.tracksDone.Inc()
		case downloading.TrackError:
			r.trackErrors.Inc()
		}
	case downloading.EventAlbumComplete:
		r.itemsFinished.Inc()
	case downloading.EventRunError:
		r.itemErrors.Inc()
	case downloading.EventRunCancelled:
		r.runsCancelled.Inc()
	case downloading.EventAllComplete:
		r.runsCompleted.Inc()
	}
}

// Registry returns the recorder's prometheus registry for serving.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
