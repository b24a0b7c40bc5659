package landsync

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation a Manager exposes for the
// Lands it runs. Construct one with NewMetrics and pass it to NewManager;
// passing nil disables instrumentation entirely.
type Metrics struct {
	LandsActive      prometheus.Gauge
	PlayersActive    prometheus.Gauge
	TicksTotal       *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	ActionsTotal     *prometheus.CounterVec
	EventsTotal      *prometheus.CounterVec
	DiffsSentTotal   *prometheus.CounterVec
	FirstSyncsTotal  *prometheus.CounterVec
	LandsDestroyed   prometheus.Counter
}

// NewMetrics builds and registers the landsync metric family against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LandsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "landsync", Name: "lands_active", Help: "Number of Lands currently running.",
		}),
		PlayersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "landsync", Name: "players_active", Help: "Number of players currently joined across all Lands.",
		}),
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landsync", Name: "ticks_total", Help: "Ticks executed, by land.",
		}, []string{"land"}),
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "landsync", Name: "tick_duration_seconds", Help: "Wall time spent executing one tick, including diff fan-out.",
			Buckets: prometheus.DefBuckets,
		}, []string{"land"}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landsync", Name: "actions_total", Help: "Actions handled, by action type and outcome.",
		}, []string{"action_type", "outcome"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landsync", Name: "events_total", Help: "Client events handled, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		DiffsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landsync", Name: "diffs_sent_total", Help: "Per-player diff updates sent, by land.",
		}, []string{"land"}),
		FirstSyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landsync", Name: "first_syncs_total", Help: "First-sync snapshots sent, by land.",
		}, []string{"land"}),
		LandsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "landsync", Name: "lands_destroyed_total", Help: "Lands torn down, by idle timeout or DestroyLand.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.LandsActive, m.PlayersActive, m.TicksTotal, m.TickDuration,
			m.ActionsTotal, m.EventsTotal, m.DiffsSentTotal, m.FirstSyncsTotal,
			m.LandsDestroyed,
		)
	}
	return m
}
