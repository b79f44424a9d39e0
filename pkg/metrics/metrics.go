/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package metrics owns the latency histograms of pipelines and plugins.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	PipelineLatencyName = "etl_pipeline_exec_time"
	PluginLatencyName   = "etl_plugin_exec_time"
)

type (
	Metrics struct {
		Registry        *prometheus.Registry
		PipelineLatency *prometheus.HistogramVec
		PluginLatency   *prometheus.HistogramVec
	}
)

// Default is the process wide metrics sink. Pipelines and plugins bind their timers to it.
var Default = New()

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: PipelineLatencyName,
			Help: "The time it takes for a pipeline to complete",
		}, []string{"id"}),
		PluginLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: PluginLatencyName,
			Help: "The time it takes for a plugin to complete",
		}, []string{"id", "plugin", "type", "class"}),
	}
	m.Registry.MustRegister(m.PipelineLatency, m.PluginLatency)
	return m
}

func (m *Metrics) PipelineTimer(id string) *Timer {
	return NewTimer(m.PipelineLatency, id)
}

func (m *Metrics) PluginTimer(id, plugin, typ, class string) *Timer {
	return NewTimer(m.PluginLatency, id, plugin, typ, class)
}

// ObservationCount returns how many observations the series identified by labels has received.
func ObservationCount(vec *prometheus.HistogramVec, labels ...string) uint64 {
	o, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	h, ok := o.(prometheus.Metric)
	if !ok {
		return 0
	}
	pb := &dto.Metric{}
	if err := h.Write(pb); err != nil || pb.Histogram == nil {
		return 0
	}
	return pb.Histogram.GetSampleCount()
}
