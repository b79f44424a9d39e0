/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package console

import (
	"context"
	"strings"

	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"go.uber.org/zap"
)

const (
	PluginName = "Console"
	ClassName  = "ConsoleLoader"
)

type (
	// ConsoleLoader writes every record to the agent log. Useful to dry run a pipeline.
	ConsoleLoader struct {
		api.Base
		debug  bool
		fields []string
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		l := &ConsoleLoader{}
		if err := l.Init(l, p); err != nil {
			return nil, err
		}
		l.debug = l.GetString("level") == "debug"
		l.fields = l.GetStringSlice("fields")
		return l, nil
	})
}

func (l *ConsoleLoader) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	level, _ := config["level"].(string)
	switch strings.ToLower(level) {
	case "", "info":
		config["level"] = "info"
	case "debug":
		config["level"] = "debug"
	default:
		return nil, api.InvalidConfigf(l.ID(), "unsupported level %q", level)
	}
	return config, nil
}

func (l *ConsoleLoader) Run(ctx context.Context, record model.Record) error {
	out := l.project(record)
	if l.debug {
		logger.Debugz("[load] [console]", zap.String("loader", l.ID()), zap.Any("record", out))
	} else {
		logger.Infoz("[load] [console]", zap.String("loader", l.ID()), zap.Any("record", out))
	}
	return nil
}

// project keeps the configured fields only. Missing fields are skipped.
func (l *ConsoleLoader) project(record model.Record) model.Record {
	if len(l.fields) == 0 {
		return record
	}
	out := make(model.Record, len(l.fields))
	for _, f := range l.fields {
		if v, ok := record[f]; ok {
			out[f] = v
		}
	}
	return out
}
