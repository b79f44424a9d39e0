/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package script transforms records with tengo scripts.
//
// The script sees the input as the map variable "record". It may either modify "record" in place, which
// is then emitted, or assign "result": a map emits one record, an array of maps emits one record per element,
// an empty array emits nothing.
package script

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

const (
	PluginName = "Script"
	ClassName  = "ScriptTransformer"

	defaultTimeout = 3 * time.Second
)

// modules scripts may import
var modules = []string{"fmt", "math", "text", "times", "json", "enum"}

type (
	ScriptTransformer struct {
		api.Base
		compiled *tengo.Compiled
		timeout  time.Duration
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		t := &ScriptTransformer{}
		if err := t.Init(t, p, "script"); err != nil {
			return nil, err
		}
		t.timeout = t.GetDuration("timeout", defaultTimeout)
		return t, nil
	})
}

func (t *ScriptTransformer) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	ts := tengo.NewScript([]byte(cast.ToString(config["script"])))
	ts.SetImports(stdlib.GetModuleMap(modules...))
	ts.Add("record", nil)
	ts.Add("result", nil)
	ts.Add("divide", divideFunc)

	compiled, err := ts.Compile()
	if err != nil {
		return nil, api.InvalidConfigf(t.ID(), "fail to compile script: %v", err)
	}
	t.compiled = compiled
	return config, nil
}

func (t *ScriptTransformer) Run(ctx context.Context, record model.Record) (api.Stream, error) {
	if err := t.compiled.Set("record", model.NormalizeMap(map[string]interface{}(record))); err != nil {
		return nil, &api.DataError{Field: "record", Err: err}
	}
	t.compiled.Set("result", nil)
	defer func() {
		t.compiled.Set("record", nil)
		t.compiled.Set("result", nil)
	}()

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.compiled.RunContext(runCtx); err != nil {
		return nil, api.NewRuntimeError("run script", err)
	}

	result := t.compiled.Get("result")
	if result.IsUndefined() {
		return api.SliceStream(toRecord(t.compiled.Get("record").Map())), nil
	}

	switch x := result.Value().(type) {
	case map[string]interface{}:
		return api.SliceStream(toRecord(x)), nil
	case []interface{}:
		records := make([]model.Record, 0, len(x))
		for i, item := range x {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, &api.DataError{Field: fmt.Sprintf("result[%d]", i), Err: errors.Errorf("expect map, got %T", item)}
			}
			records = append(records, toRecord(m))
		}
		return api.SliceStream(records...), nil
	default:
		return nil, &api.DataError{Field: "result", Err: errors.Errorf("expect map or array, got %T", x)}
	}
}

func toRecord(m map[string]interface{}) model.Record {
	if m == nil {
		return model.Record{}
	}
	return model.Record(m)
}

// divideFunc is divide(m, a, b): m[a] / m[b], 0 when m[b] is zero or missing.
func divideFunc(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 3 {
		return nil, tengo.ErrWrongNumArguments
	}
	m := args[0]

	var leftv float64
	var rightv float64

	if left, err := m.IndexGet(args[1]); err == nil {
		leftv, _ = tengo.ToFloat64(left)
	}
	if right, err := m.IndexGet(args[2]); err == nil {
		rightv, _ = tengo.ToFloat64(right)
	}

	if rightv == 0 {
		return tengo.FromInterface(0.0)
	}
	return tengo.FromInterface(leftv / rightv)
}
