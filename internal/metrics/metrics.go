// Package metrics exposes pinger's monitoring state and internals to
// Prometheus.
//
// Endpoint counters (pings, errors) and the current classification are read
// straight from the state table at scrape time, so the table stays the single
// source of truth. Delivery results, poll latency and loop restarts are
// recorded as they happen.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/pinger/internal/store"
)

const defaultNamespace = "pinger"

var allStatuses = []store.Status{
	store.StatusUnknown,
	store.StatusOK,
	store.StatusError,
	store.StatusSleeping,
}

// Collector implements prometheus.Collector for the state table and records
// event metrics for the poll loops and the notifier.
type Collector struct {
	reader    store.Reader
	namespace string

	pingsDesc  *prometheus.Desc
	errorsDesc *prometheus.Desc
	statusDesc *prometheus.Desc

	pollDuration  *prometheus.HistogramVec
	loopRestarts  *prometheus.CounterVec
	notifications *prometheus.CounterVec

	registerOnce sync.Once
	registerErr  error
}

var _ prometheus.Collector = (*Collector)(nil)

// New creates a Collector reading endpoint state from reader.
//
// Parameters:
//   - reader: state table to expose
//   - namespace: metric namespace (defaults to "pinger" if empty)
func New(reader store.Reader, namespace string) *Collector {
	if namespace == "" {
		namespace = defaultNamespace
	}

	return &Collector{
		reader:    reader,
		namespace: namespace,
		pingsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "endpoint", "pings_total"),
			"Poll attempts per monitored endpoint.",
			[]string{"url"}, nil,
		),
		errorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "endpoint", "errors_total"),
			"Error classifications per monitored endpoint.",
			[]string{"url"}, nil,
		),
		statusDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "endpoint", "status"),
			"Current classification of each endpoint (1 for the active status).",
			[]string{"url", "status"}, nil,
		),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Time spent fetching an endpoint's status payload.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"url"}),
		loopRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "loop_restarts_total",
			Help:      "Poll loops restarted after a crash.",
		}, []string{"url"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
	}
}

// Register registers the collector with reg (prometheus.DefaultRegisterer
// if nil). Subsequent calls return the first result.
func (c *Collector) Register(reg prometheus.Registerer) error {
	c.registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		c.registerErr = reg.Register(c)
	})
	return c.registerErr
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pingsDesc
	ch <- c.errorsDesc
	ch <- c.statusDesc
	c.pollDuration.Describe(ch)
	c.loopRestarts.Describe(ch)
	c.notifications.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, state := range c.reader.All() {
		ch <- prometheus.MustNewConstMetric(c.pingsDesc, prometheus.CounterValue, float64(state.Pings), state.URL)
		ch <- prometheus.MustNewConstMetric(c.errorsDesc, prometheus.CounterValue, float64(state.Errors), state.URL)
		for _, status := range allStatuses {
			value := 0.0
			if state.Status == status {
				value = 1
			}
			ch <- prometheus.MustNewConstMetric(c.statusDesc, prometheus.GaugeValue, value, state.URL, string(status))
		}
	}
	c.pollDuration.Collect(ch)
	c.loopRestarts.Collect(ch)
	c.notifications.Collect(ch)
}

// PollCompleted records the fetch latency of one poll.
func (c *Collector) PollCompleted(url string, d time.Duration) {
	c.pollDuration.WithLabelValues(url).Observe(d.Seconds())
}

// LoopRestarted records a supervised restart of url's poll loop.
func (c *Collector) LoopRestarted(url string) {
	c.loopRestarts.WithLabelValues(url).Inc()
}

// NotificationSent records one channel delivery. It implements
// notify.Recorder.
func (c *Collector) NotificationSent(channel string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.notifications.WithLabelValues(channel, result).Inc()
}
