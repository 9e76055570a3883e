package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry agrupa las métricas del servicio. Cada instancia usa su propio
// prometheus.Registry para que los tests puedan crear varias.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Votes       *prometheus.CounterVec
	Suggestions prometheus.Counter
	VoteRetries prometheus.Counter

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ActiveFeeds prometheus.Gauge
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gamenight_http_requests_total",
				Help: "HTTP requests by route pattern, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gamenight_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"route", "method"},
		),

		Votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gamenight_votes_total",
				Help: "Vote toggles by direction (add|remove)",
			},
			[]string{"direction"},
		),

		Suggestions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gamenight_suggestions_total",
				Help: "Games suggested for game nights",
			},
		),

		VoteRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gamenight_vote_revision_retries_total",
				Help: "Vote writes retried because another write changed the game night first",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gamenight_cache_hits_total",
				Help: "Cache hits by cache key family",
			},
			[]string{"cache"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gamenight_cache_misses_total",
				Help: "Cache misses by cache key family",
			},
			[]string{"cache"},
		),

		ActiveFeeds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gamenight_feed_connections",
				Help: "Open websocket change-feed connections",
			},
		),
	}

	r.reg.MustRegister(
		r.HTTPRequests,
		r.HTTPDuration,
		r.Votes,
		r.Suggestions,
		r.VoteRetries,
		r.CacheHits,
		r.CacheMisses,
		r.ActiveFeeds,
		collectors.NewGoCollector(),
	)
	return r
}

// Gatherer se pasa a promhttp.HandlerFor.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
