// Package metrics exposes Prometheus collectors for scans, blacklist API
// calls and bot commands.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ysyunhei"

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultRefused = "refused"
	ResultSkipped = "skipped"
)

// Collector holds every metric the bot records. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry prometheus.Gatherer

	scansTotal     prometheus.Counter
	membersScanned prometheus.Counter
	hitsTotal      *prometheus.CounterVec
	kicksTotal     *prometheus.CounterVec
	apiCallsTotal  *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	commandsTotal  *prometheus.CounterVec
	scanDuration   prometheus.Histogram
}

// NewCollector registers the collectors on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	return NewCollectorWithRegistry(reg, reg)
}

// NewCollectorWithRegistry registers on reg; gatherer backs Handler.
func NewCollectorWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: gatherer,

		scansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of group scans started",
		}),
		membersScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_scanned_total",
			Help:      "Total number of group members checked against the blacklist",
		}),
		hitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Blacklisted members found during scans",
		}, []string{"level"}),
		kicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kicks_total",
			Help:      "Kick attempts by outcome",
		}, []string{"result"}),
		apiCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Blacklist API calls by endpoint and outcome",
		}, []string{"endpoint", "result"}),
		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_call_duration_seconds",
			Help:      "Blacklist API call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Bot commands handled by name and outcome",
		}, []string{"command", "result"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full group scan",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

// ScanStarted counts a scan.
func (c *Collector) ScanStarted() {
	if c == nil {
		return
	}
	c.scansTotal.Inc()
}

// ScanFinished records scan duration and the number of members checked.
func (c *Collector) ScanFinished(members int, d time.Duration) {
	if c == nil {
		return
	}
	c.membersScanned.Add(float64(members))
	c.scanDuration.Observe(d.Seconds())
}

// Hit counts a blacklisted member by level name.
func (c *Collector) Hit(level string) {
	if c == nil {
		return
	}
	c.hitsTotal.WithLabelValues(level).Inc()
}

// Kick counts a kick attempt.
func (c *Collector) Kick(result string) {
	if c == nil {
		return
	}
	c.kicksTotal.WithLabelValues(result).Inc()
}

// APICall records one blacklist API round trip.
func (c *Collector) APICall(endpoint, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.apiCallsTotal.WithLabelValues(endpoint, result).Inc()
	c.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Command counts a handled bot command.
func (c *Collector) Command(name, result string) {
	if c == nil {
		return
	}
	c.commandsTotal.WithLabelValues(name, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
