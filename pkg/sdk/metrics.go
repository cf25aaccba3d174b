package sdk

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	evaluations *prometheus.CounterVec
	events      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flagdemo",
			Subsystem: "sdk",
			Name:      "flag_evaluations_total",
			Help:      "Flag evaluations by flag, variant and enabled state.",
		}, []string{"flag", "variant", "enabled"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flagdemo",
			Subsystem: "sdk",
			Name:      "tracked_events_total",
			Help:      "Tracked events by event name.",
		}, []string{"event"}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.evaluations, err = register(reg, m.evaluations); err != nil {
		return nil, err
	}
	if m.events, err = register(reg, m.events); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing the collector a previous client registered.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("register sdk metrics: %w", err)
}

func (m *metrics) evaluation(flag, variant string, enabled bool) {
	m.evaluations.WithLabelValues(flag, variant, strconv.FormatBool(enabled)).Inc()
}

func (m *metrics) event(name string) {
	m.events.WithLabelValues(name).Inc()
}
