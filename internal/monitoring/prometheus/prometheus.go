// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package prometheus

import (
	"fmt"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

var _ monitoring.MonitorInterface = (*Monitor)(nil)

type Monitor struct {
	service string

	responseTime           *prometheus.HistogramVec
	dependencyAvailability *prometheus.GaugeVec
	operations             *prometheus.CounterVec

	logger logging.LoggerInterface
}

func (m *Monitor) GetService() string {
	return m.service
}

func (m *Monitor) SetResponseTimeMetric(tags map[string]string, value float64) error {
	if m.responseTime == nil {
		return fmt.Errorf("metric not instantiated")
	}

	m.responseTime.With(tags).Observe(value)

	return nil
}

func (m *Monitor) SetDependencyAvailability(tags map[string]string, value float64) error {
	if m.dependencyAvailability == nil {
		return fmt.Errorf("metric not instantiated")
	}

	m.dependencyAvailability.With(tags).Set(value)

	return nil
}

func (m *Monitor) IncOperation(tags map[string]string) error {
	if m.operations == nil {
		return fmt.Errorf("metric not instantiated")
	}

	m.operations.With(tags).Inc()

	return nil
}

func (m *Monitor) registerHistograms() {
	m.responseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "http_response_time_seconds",
			Help:        "http_response_time_seconds",
			ConstLabels: prometheus.Labels{"service": m.service},
		},
		[]string{"route", "status"},
	)

	if err := prometheus.Register(m.responseTime); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.responseTime = are.ExistingCollector.(*prometheus.HistogramVec)
			return
		}
		m.logger.Errorf("failed to register metric: %s", err)
	}
}

func (m *Monitor) registerGauges() {
	m.dependencyAvailability = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "dependency_available",
			Help:        "dependency_available",
			ConstLabels: prometheus.Labels{"service": m.service},
		},
		[]string{"component"},
	)

	if err := prometheus.Register(m.dependencyAvailability); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.dependencyAvailability = are.ExistingCollector.(*prometheus.GaugeVec)
			return
		}
		m.logger.Errorf("failed to register metric: %s", err)
	}
}

func (m *Monitor) registerCounters() {
	m.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "ledger_operations_total",
			Help:        "count of ledger, payment and audit operations by outcome",
			ConstLabels: prometheus.Labels{"service": m.service},
		},
		[]string{"operation", "outcome"},
	)

	if err := prometheus.Register(m.operations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			m.operations = are.ExistingCollector.(*prometheus.CounterVec)
			return
		}
		m.logger.Errorf("failed to register metric: %s", err)
	}
}

func NewMonitor(service string, logger logging.LoggerInterface) *Monitor {
	m := new(Monitor)

	m.service = service
	m.logger = logger

	m.registerHistograms()
	m.registerGauges()
	m.registerCounters()

	return m
}
