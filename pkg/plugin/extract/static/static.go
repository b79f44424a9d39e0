/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package static

import (
	"context"

	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

const (
	PluginName = "Static"
	ClassName  = "StaticExtractor"
)

type (
	// StaticExtractor yields the records written in its config, in order, on every run.
	StaticExtractor struct {
		api.Base
		records []model.Record
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		e := &StaticExtractor{}
		if err := e.Init(e, p, "records"); err != nil {
			return nil, err
		}
		return e, nil
	})
}

func (e *StaticExtractor) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	items, err := cast.ToSliceE(config["records"])
	if err != nil {
		return nil, api.InvalidConfigf(e.ID(), "records must be a list")
	}
	e.records = make([]model.Record, 0, len(items))
	for i, item := range items {
		m := model.NormalizeMap(item)
		if m == nil {
			return nil, api.InvalidConfigf(e.ID(), "records[%d] is not a mapping", i)
		}
		e.records = append(e.records, m)
	}
	return config, nil
}

func (e *StaticExtractor) Run(ctx context.Context) (api.Stream, error) {
	records := make([]model.Record, len(e.records))
	for i, r := range e.records {
		records[i] = r.Clone()
	}
	return api.SliceStream(records...), nil
}
