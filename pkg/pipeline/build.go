/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package pipeline

import (
	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/template"
	"go.uber.org/zap"
)

// Build resolves every pipeline of cfg against r. Resolution and validation errors are returned so that
// misconfiguration stops the process at startup; pipelines built before the failure are closed.
// A pipeline whose transform is neither a name nor a mapping is skipped with an error log.
func Build(cfg *model.Config, r *plugin.Registry) (*Set, error) {
	set := NewSet()
	if cfg == nil {
		return set, nil
	}

	for _, pc := range cfg.Pipelines {
		if pc.Transform.Kind == model.TransformInvalid {
			logger.Errorz("[pipeline] invalid pipeline configuration, bad transform", zap.String("pipeline", pc.ID))
			continue
		}

		p, err := buildPipeline(cfg, r, pc)
		if err != nil {
			if cerr := set.Close(); cerr != nil {
				logger.Warnz("[pipeline] close partially built pipelines error", zap.Error(cerr))
			}
			return nil, errors.Wrapf(err, "build pipeline %s", pc.ID)
		}
		set.Append(p)
		logger.Infoz("[pipeline] built", zap.String("pipeline", pc.ID),
			zap.Int("extractors", len(p.extractors)),
			zap.Stringer("transformer", p.transformer),
			zap.Int("loaders", len(p.loaders)))
	}
	return set, nil
}

func buildPipeline(cfg *model.Config, r *plugin.Registry, pc *model.PipelineConfig) (_ *Pipeline, retErr error) {
	var built []api.Plugin
	defer func() {
		if retErr != nil {
			for _, p := range built {
				p.Close()
			}
		}
	}()

	var transformer api.Transformer
	switch pc.Transform.Kind {
	case model.TransformNamed:
		ref, ok := cfg.Transformers[pc.Transform.Name]
		if !ok {
			return nil, api.InvalidConfigf(pc.ID, "transformer %s is not declared", pc.Transform.Name)
		}
		t, err := r.ResolveTransformer(pc.Transform.Name, ref)
		if err != nil {
			return nil, err
		}
		transformer = t
	case model.TransformInline:
		t, err := template.NewInline(pc.ID, pc.Transform.Inline)
		if err != nil {
			return nil, err
		}
		transformer = t
	}
	built = append(built, transformer)

	extractors := make([]api.Extractor, 0, len(pc.Extractors))
	for _, id := range pc.Extractors {
		ref, ok := cfg.Extractors[id]
		if !ok {
			return nil, api.InvalidConfigf(pc.ID, "extractor %s is not declared", id)
		}
		e, err := r.ResolveExtractor(id, ref)
		if err != nil {
			return nil, err
		}
		built = append(built, e)
		extractors = append(extractors, e)
	}

	loaders := make([]api.Loader, 0, len(pc.Loaders))
	for _, id := range pc.Loaders {
		ref, ok := cfg.Loaders[id]
		if !ok {
			return nil, api.InvalidConfigf(pc.ID, "loader %s is not declared", id)
		}
		l, err := r.ResolveLoader(id, ref)
		if err != nil {
			return nil, err
		}
		built = append(built, l)
		loaders = append(loaders, l)
	}

	return New(pc.ID, extractors, transformer, loaders), nil
}
