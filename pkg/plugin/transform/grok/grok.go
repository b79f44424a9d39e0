/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package grok

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/vjeantet/grok"
)

const (
	PluginName = "Grok"
	ClassName  = "GrokTransformer"
)

type (
	// GrokTransformer parses one string field of the record with a grok expression and merges the named
	// captures into a copy of the record. A record that does not match produces nothing.
	GrokTransformer struct {
		api.Base
		g          *grok.Grok
		field      string
		expression string
		// drop the parsed field from the output
		drop bool
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		t := &GrokTransformer{}
		if err := t.Init(t, p, "field", "pattern"); err != nil {
			return nil, err
		}
		return t, nil
	})
}

func (t *GrokTransformer) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	g, err := grok.NewWithConfig(&grok.Config{NamedCapturesOnly: true})
	if err != nil {
		return nil, err
	}
	for name, pattern := range model.NormalizeMap(config["patterns"]) {
		if err := g.AddPattern(name, cast.ToString(pattern)); err != nil {
			return nil, api.InvalidConfigf(t.ID(), "bad pattern %s: %v", name, err)
		}
	}

	t.g = g
	t.field = cast.ToString(config["field"])
	t.expression = cast.ToString(config["pattern"])
	t.drop = cast.ToBool(config["drop"])
	if t.field == "" || t.expression == "" {
		return nil, api.InvalidConfigf(t.ID(), "field and pattern must not be empty")
	}
	// compile once so that a broken expression fails at startup
	if _, err := g.Parse(t.expression, ""); err != nil {
		return nil, api.InvalidConfigf(t.ID(), "bad expression %q: %v", t.expression, err)
	}
	return config, nil
}

func (t *GrokTransformer) Run(ctx context.Context, record model.Record) (api.Stream, error) {
	v, ok := record[t.field]
	if !ok {
		return nil, &api.DataError{Field: t.field, Err: errors.New("field not found")}
	}

	captures, err := t.g.ParseTyped(t.expression, cast.ToString(v))
	if err != nil {
		return nil, &api.DataError{Field: t.field, Err: err}
	}
	if len(captures) == 0 {
		return api.EmptyStream(), nil
	}

	out := record.Clone()
	if t.drop {
		delete(out, t.field)
	}
	for k, c := range captures {
		out[k] = c
	}
	return api.SliceStream(out), nil
}
