/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimer_Init(t *testing.T) {
	m := New()
	timer := m.PluginTimer("a", "b", "c", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, timer.Labels())
	assert.True(t, timer.StartTime().IsZero())
}

func TestTimer_StartStop(t *testing.T) {
	m := New()
	timer := m.PipelineTimer("p1")

	timer.Start()
	assert.False(t, timer.StartTime().IsZero())
	timer.Stop()

	assert.Equal(t, uint64(1), ObservationCount(m.PipelineLatency, "p1"))
}

func TestTimer_StopWithoutStart(t *testing.T) {
	m := New()
	timer := m.PipelineTimer("p1")
	timer.Stop()
	assert.Equal(t, uint64(0), ObservationCount(m.PipelineLatency, "p1"))
}

func TestTimer_Time(t *testing.T) {
	m := New()
	timer := m.PluginTimer("id", "plugin", "Loader", "PluginLoader")

	expected := errors.New("boom")
	err := timer.Time(func() error {
		return expected
	})
	assert.Equal(t, expected, err)
	assert.Equal(t, uint64(1), ObservationCount(m.PluginLatency, "id", "plugin", "Loader", "PluginLoader"))
}

func TestTimer_TimePanic(t *testing.T) {
	m := New()
	timer := m.PipelineTimer("p1")

	assert.Panics(t, func() {
		timer.Time(func() error {
			panic("boom")
		})
	})
	assert.Equal(t, uint64(1), ObservationCount(m.PipelineLatency, "p1"))
}

func TestMetrics_Registered(t *testing.T) {
	m := New()
	m.PipelineTimer("p1").Time(func() error { return nil })
	m.PluginTimer("e1", "static", "Extractor", "StaticExtractor").Time(func() error { return nil })

	assert.Equal(t, 1, testutil.CollectAndCount(m.PipelineLatency, PipelineLatencyName))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PluginLatency, PluginLatencyName))

	families, err := m.Registry.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 2)
}
