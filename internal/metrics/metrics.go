// Package metrics exposes Prometheus instrumentation for the scheduler and the engagement engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification outcomes.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Recorder is what the scheduler and engine report to.
type Recorder interface {
	RecordTick(ok bool, due int, took time.Duration)
	RecordNotification(result string)
	RecordBadge(badge string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	ticks         *prometheus.CounterVec
	dueUsers      prometheus.Gauge
	notifications *prometheus.CounterVec
	tickSeconds   prometheus.Histogram
	badges        *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kdrop_scheduler_ticks_total",
			Help: "Scheduler ticks by result (ok|error).",
		}, []string{"result"}),
		dueUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kdrop_scheduler_due_users",
			Help: "Users due in the most recent tick.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kdrop_notifications_total",
			Help: "Daily drops by result (sent|failed|skipped).",
		}, []string{"result"}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kdrop_scheduler_tick_seconds",
			Help:    "Wall time of one scheduler tick.",
			Buckets: prometheus.DefBuckets,
		}),
		badges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kdrop_badges_awarded_total",
			Help: "Badges awarded by badge id.",
		}, []string{"badge"}),
	}

	reg.MustRegister(c.ticks, c.dueUsers, c.notifications, c.tickSeconds, c.badges)
	return c
}

func (c *Collector) RecordTick(ok bool, due int, took time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.ticks.WithLabelValues(result).Inc()
	c.dueUsers.Set(float64(due))
	c.tickSeconds.Observe(took.Seconds())
}

func (c *Collector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

func (c *Collector) RecordBadge(badge string) {
	c.badges.WithLabelValues(badge).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTick(bool, int, time.Duration) {}
func (Nop) RecordNotification(string)          {}
func (Nop) RecordBadge(string)                 {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
