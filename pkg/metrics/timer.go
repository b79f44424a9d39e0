/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	// Timer records one observation per Start/Stop interval into a labeled histogram series.
	// A Timer is not safe for concurrent use; each plugin instance and pipeline owns its own.
	Timer struct {
		observer prometheus.ObserverVec
		labels   []string
		start    time.Time
	}
)

func NewTimer(observer prometheus.ObserverVec, labels ...string) *Timer {
	return &Timer{
		observer: observer,
		labels:   labels,
	}
}

func (t *Timer) Labels() []string {
	return t.labels
}

// StartTime returns the time of the last Start call, zero if never started.
func (t *Timer) StartTime() time.Time {
	return t.start
}

func (t *Timer) Start() {
	t.start = time.Now()
}

// Stop observes the seconds elapsed since Start. Stop without a prior Start observes nothing.
func (t *Timer) Stop() {
	if t.start.IsZero() {
		return
	}
	t.observer.WithLabelValues(t.labels...).Observe(time.Since(t.start).Seconds())
}

// Time runs f between Start and Stop. Stop runs exactly once even if f panics.
func (t *Timer) Time(f func() error) error {
	t.Start()
	defer t.Stop()
	return f()
}
