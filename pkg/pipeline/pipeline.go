/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/metrics"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/util"
	"github.com/traas-stack/holoinsight-etl/pkg/util/stat"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// Pipeline pulls records from its extractors one at a time and pushes each through the transformer
	// and every loader before pulling the next one. At most one record is in flight.
	Pipeline struct {
		id          string
		extractors  []api.Extractor
		transformer api.Transformer
		loaders     []api.Loader
		timer       *metrics.Timer
		// extracted, loaded, load failures
		stat *stat.Bind
	}
)

func New(id string, extractors []api.Extractor, transformer api.Transformer, loaders []api.Loader) *Pipeline {
	return &Pipeline{
		id:          id,
		extractors:  extractors,
		transformer: transformer,
		loaders:     loaders,
		timer:       metrics.Default.PipelineTimer(id),
		stat:        stat.Default.Counter("pipeline").Bind(id),
	}
}

func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) Extractors() []api.Extractor {
	return p.extractors
}

func (p *Pipeline) Transformer() api.Transformer {
	return p.transformer
}

func (p *Pipeline) Loaders() []api.Loader {
	return p.loaders
}

func (p *Pipeline) Timer() *metrics.Timer {
	return p.timer
}

// Run executes one full cycle. Extractor and transformer failures abort the cycle and are returned,
// loader failures never are.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.timer.Time(func() error {
		for _, e := range p.extractors {
			logger.Debugz("[pipeline] run extractor", zap.String("pipeline", p.id), zap.Stringer("extractor", e))
			if err := p.extract(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Pipeline) extract(ctx context.Context, e api.Extractor) (err error) {
	timer := e.Timer()

	timer.Start()
	var stream api.Stream
	if err := util.WithRecoverE(func() (err error) {
		stream, err = e.Run(ctx)
		return
	}); err != nil {
		return errors.Wrapf(err, "extractor %s", e.ID())
	}
	if stream == nil {
		return nil
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			logger.Warnz("[pipeline] close extractor stream error", zap.String("pipeline", p.id), zap.String("extractor", e.ID()), zap.Error(cerr))
		}
	}()

	for {
		var record model.Record
		var ok bool
		if err := util.WithRecoverE(func() (err error) {
			record, ok, err = stream.Next(ctx)
			return
		}); err != nil {
			return errors.Wrapf(err, "extractor %s", e.ID())
		}
		if !ok {
			return nil
		}
		timer.Stop()
		p.stat.Add(1, 0, 0)

		logger.Debugz("[pipeline] extracted", zap.String("pipeline", p.id), zap.String("extractor", e.ID()), zap.Any("record", record))
		if err := p.process(ctx, record); err != nil {
			return err
		}
		timer.Start()
	}
}

// process runs the transformer on record and loads every payload it produces.
func (p *Pipeline) process(ctx context.Context, record model.Record) error {
	return p.transformer.Timer().Time(func() error {
		var stream api.Stream
		if err := util.WithRecoverE(func() (err error) {
			stream, err = p.transformer.Run(ctx, record)
			return
		}); err != nil {
			return errors.Wrapf(err, "transformer %s", p.transformer.ID())
		}
		if stream == nil {
			return nil
		}
		defer stream.Close()

		for {
			var payload model.Record
			var ok bool
			if err := util.WithRecoverE(func() (err error) {
				payload, ok, err = stream.Next(ctx)
				return
			}); err != nil {
				return errors.Wrapf(err, "transformer %s", p.transformer.ID())
			}
			if !ok {
				return nil
			}
			logger.Debugz("[pipeline] transformed", zap.String("pipeline", p.id), zap.String("transformer", p.transformer.ID()), zap.Any("payload", payload))
			p.load(ctx, payload)
		}
	})
}

// load hands record to every loader in order. An empty record is skipped without touching any timer.
// A failing loader is logged and the next one still runs.
func (p *Pipeline) load(ctx context.Context, record model.Record) {
	if record.IsEmpty() {
		return
	}

	for _, l := range p.loaders {
		logger.Debugz("[pipeline] run loader", zap.String("pipeline", p.id), zap.Stringer("loader", l))

		err := l.Timer().Time(func() error {
			return util.WithRecoverE(func() error {
				return l.Run(ctx, record)
			})
		})
		if err == nil {
			p.stat.Add(0, 1, 0)
			continue
		}
		p.stat.Add(0, 0, 1)
		if api.IsFrameworkError(err) {
			logger.Warnz("[pipeline] loader failed", zap.String("pipeline", p.id), zap.String("loader", l.ID()), zap.Error(err))
		} else {
			logger.Errorz("[pipeline] loader raised unexpected error", zap.String("pipeline", p.id), zap.String("loader", l.ID()), zap.Error(err))
		}
	}
}

// Close closes extractors, then the transformer, then loaders. Every plugin gets a close attempt.
func (p *Pipeline) Close() error {
	var plugins []api.Plugin
	for _, e := range p.extractors {
		plugins = append(plugins, e)
	}
	if p.transformer != nil {
		plugins = append(plugins, p.transformer)
	}
	for _, l := range p.loaders {
		plugins = append(plugins, l)
	}

	var err error
	for _, plugin := range plugins {
		if cerr := util.WithRecoverE(plugin.Close); cerr != nil {
			logger.Warnz("[pipeline] close plugin error", zap.String("pipeline", p.id), zap.String("plugin", plugin.ID()), zap.Error(cerr))
			err = multierr.Append(err, errors.Wrapf(cerr, "close %s", plugin))
		}
	}
	return err
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s)", p.id)
}
