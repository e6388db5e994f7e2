package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type writerMetrics struct {
	registry *prometheus.Registry

	Received *prometheus.CounterVec
	Written  *prometheus.CounterVec
	Failed   *prometheus.CounterVec
	Skipped  *prometheus.CounterVec
}

func newWriterMetrics() *writerMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bidplus",
			Subsystem: "graph_writer",
			Name:      name,
			Help:      help,
		}, []string{"stream"})
	}
	return &writerMetrics{
		registry: reg,
		Received: counter("messages_received_total", "Messages fetched from Kafka."),
		Written:  counter("messages_written_total", "Messages written to Neo4j."),
		Failed:   counter("messages_failed_total", "Failed graph write attempts; each is retried."),
		Skipped:  counter("messages_skipped_total", "Undecodable or unkeyed messages committed without a write."),
	}
}

func (m *writerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
