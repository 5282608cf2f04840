package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Lookups         *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
	RequestSeconds  *prometheus.HistogramVec
	LookupsInFlight prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tract_lookups_total",
			Help: "Total number of address-to-tract lookups by outcome.",
		}, []string{"outcome"}),
		UpstreamErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tract_upstream_errors_total",
			Help: "Total number of failed requests to the geocoding and census block APIs.",
		}, []string{"service", "outcome"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tract_upstream_request_duration_seconds",
			Help:    "Duration of requests to the geocoding and census block APIs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		LookupsInFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "tract_lookups_in_flight",
			Help: "Current number of lookups being resolved.",
		}),
	}
}
