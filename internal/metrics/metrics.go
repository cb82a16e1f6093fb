// Package metrics exposes evacsim counters on a private Prometheus registry.
// Every method is safe on a nil *Metrics, so components can run unmetered.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

type Metrics struct {
	registry *prometheus.Registry

	accessDecisions *prometheus.CounterVec
	fireTriggers    *prometheus.CounterVec
	occupancy       *prometheus.GaugeVec
	logAppends      prometheus.Counter
	logAppendErrors prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		accessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evacsim",
			Name:      "access_decisions_total",
			Help:      "Access requests decided by building controllers.",
		}, []string{"building", "action", "outcome", "reason"}),
		fireTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evacsim",
			Name:      "fire_triggers_total",
			Help:      "Fire triggers handled, per building.",
		}, []string{"building"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evacsim",
			Name:      "building_occupants",
			Help:      "Badges currently inside each building.",
		}, []string{"building"}),
		logAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evacsim",
			Name:      "log_appends_total",
			Help:      "Lines written to the event log.",
		}),
		logAppendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "evacsim",
			Name:      "log_append_errors_total",
			Help:      "Log lines dropped because the store was unavailable.",
		}),
	}

	m.registry.MustRegister(
		m.accessDecisions,
		m.fireTriggers,
		m.occupancy,
		m.logAppends,
		m.logAppendErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveDecision(d types.Decision) {
	if m == nil {
		return
	}
	reason := string(d.Reason)
	if reason == "" {
		reason = "none"
	}
	m.accessDecisions.WithLabelValues(strconv.Itoa(d.Building), d.Action.String(), d.Outcome.String(), reason).Inc()
}

func (m *Metrics) ObserveFire(building int) {
	if m == nil {
		return
	}
	m.fireTriggers.WithLabelValues(strconv.Itoa(building)).Inc()
}

func (m *Metrics) SetOccupancy(building, n int) {
	if m == nil {
		return
	}
	m.occupancy.WithLabelValues(strconv.Itoa(building)).Set(float64(n))
}

func (m *Metrics) ObserveAppend(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.logAppendErrors.Inc()
		return
	}
	m.logAppends.Inc()
}
