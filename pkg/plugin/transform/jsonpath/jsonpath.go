/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package jsonpath

import (
	"context"
	"sort"
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

const (
	PluginName = "Jsonpath"
	ClassName  = "JsonpathTransformer"
)

type (
	// JsonpathTransformer builds each output field from a jsonpath expression evaluated on the input record.
	JsonpathTransformer struct {
		api.Base
		fields []field
		// keep copies the input record into the output before the selected fields are set
		keep bool
		// optional fields whose expression finds nothing are left out instead of failing the record
		optional map[string]struct{}
	}

	field struct {
		name string
		path *jsonpath.Compiled
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		t := &JsonpathTransformer{}
		if err := t.Init(t, p, "fields"); err != nil {
			return nil, err
		}
		t.keep = t.GetBool("keep")
		t.optional = make(map[string]struct{})
		for _, name := range t.GetStringSlice("optional") {
			t.optional[name] = struct{}{}
		}
		return t, nil
	})
}

func (t *JsonpathTransformer) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	fields := model.NormalizeMap(config["fields"])
	if len(fields) == 0 {
		return nil, api.InvalidConfigf(t.ID(), "fields must be a non empty mapping")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	t.fields = t.fields[:0]
	for _, name := range names {
		expr := cast.ToString(fields[name])
		if !strings.HasPrefix(expr, "$") {
			expr = "$." + expr
		}
		c, err := jsonpath.Compile(expr)
		if err != nil {
			return nil, api.InvalidConfigf(t.ID(), "bad jsonpath %s for field %s: %v", expr, name, err)
		}
		t.fields = append(t.fields, field{name: name, path: c})
	}
	return config, nil
}

func (t *JsonpathTransformer) Run(ctx context.Context, record model.Record) (api.Stream, error) {
	out := model.Record{}
	if t.keep {
		out = record.Clone()
	}

	obj := map[string]interface{}(record)
	for _, f := range t.fields {
		v, err := f.path.Lookup(obj)
		if err != nil {
			if _, ok := t.optional[f.name]; ok {
				continue
			}
			return nil, &api.DataError{Field: f.name, Err: err}
		}
		out[f.name] = v
	}
	return api.SliceStream(out), nil
}
