package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveRoutes   prometheus.Gauge
	RoutesAnalyzed *prometheus.CounterVec // status label: success|partial|failure

	FetchRequests *prometheus.CounterVec // source label: cache|overpass|error
	StoreWrites   *prometheus.CounterVec // op label: upsert|delete|error

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	AnalyzeDuration prometheus.Histogram
	FetchDuration   prometheus.Histogram
	PublishDuration prometheus.Histogram
	RouteDistance   prometheus.Histogram

	Workers prometheus.Gauge
}

func NewCollector(workers int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyzer_active_routes",
			Help: "Number of routes currently being analyzed.",
		}),
		RoutesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_routes_total",
			Help: "Total routes analyzed by result status.",
		}, []string{"status"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_fetch_total",
			Help: "Route documents obtained, by source.",
		}, []string{"source"}),
		StoreWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_store_writes_total",
			Help: "Database writes of route details.",
		}, []string{"op"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyzer_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		AnalyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_analyze_duration_seconds",
			Help:    "Duration of the profile computation for one route.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_fetch_duration_seconds",
			Help:    "Duration to obtain a route document, cache included.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 18),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RouteDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_route_distance_km",
			Help:    "Length of analyzed routes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analyzer_workers",
			Help: "Configured number of concurrent route workers.",
		}),
	}

	// Register
	reg.MustRegister(
		c.ActiveRoutes, c.RoutesAnalyzed,
		c.FetchRequests, c.StoreWrites,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.AnalyzeDuration, c.FetchDuration, c.PublishDuration, c.RouteDistance,
		c.Workers,
	)

	c.Workers.Set(float64(workers))

	return c
}

// RouteDone records a finished analysis.
func (c *Collector) RouteDone(status string, distance float64, d time.Duration) {
	c.RoutesAnalyzed.WithLabelValues(status).Inc()
	c.AnalyzeDuration.Observe(d.Seconds())
	if distance > 0 {
		c.RouteDistance.Observe(distance)
	}
}

func (c *Collector) FetchObserve(source string, d time.Duration) {
	c.FetchRequests.WithLabelValues(source).Inc()
	c.FetchDuration.Observe(d.Seconds())
}

func (c *Collector) StoreWriteInc(op string) { c.StoreWrites.WithLabelValues(op).Inc() }

// Publisher hooks
func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
