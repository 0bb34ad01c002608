package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the narrow surface the services report through.
type Recorder interface {
	QueueDepth(n int)
	MatchFormed()
	DraftCompleted()
	DraftCancelled(reason string)
	MatchProcessed()
}

type promRecorder struct {
	queueDepth      prometheus.Gauge
	matchesFormed   prometheus.Counter
	draftsCompleted prometheus.Counter
	draftsCancelled *prometheus.CounterVec
	matchesRecorded prometheus.Counter
}

// New registers the collectors on registry and returns a Recorder.
func New(registry *prometheus.Registry) Recorder {
	r := &promRecorder{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rift_queue_depth",
			Help: "Players currently waiting in the matchmaking queue.",
		}),
		matchesFormed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rift_matches_formed_total",
			Help: "Matches formed from the queue.",
		}),
		draftsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rift_drafts_completed_total",
			Help: "Draft sessions that reached completion.",
		}),
		draftsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rift_drafts_cancelled_total",
			Help: "Draft sessions cancelled, by reason.",
		}, []string{"reason"}),
		matchesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rift_matches_recorded_total",
			Help: "Match results processed into rating updates.",
		}),
	}
	registry.MustRegister(r.queueDepth, r.matchesFormed, r.draftsCompleted, r.draftsCancelled, r.matchesRecorded)
	return r
}

func (r *promRecorder) QueueDepth(n int) { r.queueDepth.Set(float64(n)) }
func (r *promRecorder) MatchFormed()     { r.matchesFormed.Inc() }
func (r *promRecorder) DraftCompleted()  { r.draftsCompleted.Inc() }
func (r *promRecorder) MatchProcessed()  { r.matchesRecorded.Inc() }
func (r *promRecorder) DraftCancelled(reason string) {
	r.draftsCancelled.WithLabelValues(reason).Inc()
}

// Noop discards all observations; used in tests.
type Noop struct{}

func (Noop) QueueDepth(int)        {}
func (Noop) MatchFormed()          {}
func (Noop) DraftCompleted()       {}
func (Noop) DraftCancelled(string) {}
func (Noop) MatchProcessed()       {}
