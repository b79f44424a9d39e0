/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package controller drives the pipeline set in cycles until the host asks it to stop.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/pipeline"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/util"
	"github.com/traas-stack/holoinsight-etl/pkg/util/trigger"
	"go.uber.org/zap"
)

const DefaultInterval = 90 * time.Second

type (
	Controller struct {
		set      *pipeline.Set
		interval time.Duration
		trigger  trigger.Trigger
		aligned  bool
	}

	Option func(*Controller)
)

// WithAlignedSchedule starts cycles on wall clock multiples of the interval instead of waiting
// the interval after each cycle.
func WithAlignedSchedule() Option {
	return func(c *Controller) {
		c.aligned = true
		c.trigger = trigger.WithFixedRate(c.interval, 0)
	}
}

// New returns a controller running set every interval. A non positive interval means DefaultInterval.
func New(set *pipeline.Set, interval time.Duration, opts ...Option) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if set == nil {
		set = pipeline.NewSet()
	}
	c := &Controller{
		set:      set,
		interval: interval,
		trigger:  trigger.WithFixedDelay(interval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Set() *pipeline.Set {
	return c.set
}

func (c *Controller) Interval() time.Duration {
	return c.interval
}

// RunCycle runs every pipeline once in insertion order. A failing pipeline is logged and the next one runs.
func (c *Controller) RunCycle(ctx context.Context) {
	runID := uuid.NewString()
	begin := time.Now()

	c.set.Each(func(p *pipeline.Pipeline) {
		if util.IsContextDone(ctx) {
			return
		}
		logger.Infoz("[controller] run pipeline", zap.String("run", runID), zap.String("pipeline", p.ID()))

		err := util.WithRecoverE(func() error {
			return p.Run(ctx)
		})
		switch {
		case err == nil:
		case api.IsFrameworkError(err):
			logger.Warnz("[controller] pipeline failed", zap.String("run", runID), zap.String("pipeline", p.ID()), zap.Error(err))
		default:
			logger.Errorz("[controller] pipeline raised unexpected error", zap.String("run", runID), zap.String("pipeline", p.ID()), zap.Error(err))
		}

		logger.Infoz("[controller] finish pipeline", zap.String("run", runID), zap.String("pipeline", p.ID()))
	})

	logger.Infoz("[controller] cycle done",
		zap.String("run", runID),
		zap.Int("pipelines", c.set.Len()),
		zap.Duration("cost", time.Since(begin)))
}

// Start runs cycles separated by the interval until ctx is done. It returns nil on cancellation.
func (c *Controller) Start(ctx context.Context) error {
	logger.Infoz("[controller] start", zap.Stringer("pipelines", c.set), zap.Duration("interval", c.interval), zap.Bool("aligned", c.aligned))

	for {
		c.RunCycle(ctx)

		now := time.Now()
		timer := time.NewTimer(c.trigger.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infoz("[controller] stop")
			return nil
		case <-timer.C:
		}
	}
}

// Close closes every pipeline. It gives up when ctx is done before all plugins are closed.
func (c *Controller) Close(ctx context.Context) error {
	logger.Infoz("[controller] cleaning pipelines")

	done := make(chan error, 1)
	util.GoWithRecover(func() {
		done <- c.set.Close()
	}, func(p interface{}) {
		done <- errors.Errorf("panic while closing pipelines: %v", p)
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "close pipelines")
	}
}
