package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	uploads   *prometheus.CounterVec
	decisions *prometheus.CounterVec
	failures  *prometheus.CounterVec
	searches  prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	f := promauto.With(reg)
	return &metrics{
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shapestore_uploads_total",
			Help: "Uploads processed, by content kind.",
		}, []string{"kind"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shapestore_storage_decisions_total",
			Help: "Schema decisions made, by storage type.",
		}, []string{"storage_type"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shapestore_upload_failures_total",
			Help: "Uploads rejected or failed, by stage.",
		}, []string{"stage"}),
		searches: f.NewCounter(prometheus.CounterOpts{
			Name: "shapestore_searches_total",
			Help: "Search requests served.",
		}),
	}
}
