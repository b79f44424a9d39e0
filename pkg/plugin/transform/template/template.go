/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package template implements the reference transformer: a nested mapping whose string leaves are
// "{field}" templates evaluated against the input record.
package template

import (
	"context"

	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

const (
	PluginName = "Template"
	ClassName  = "TemplateTransformer"
)

type (
	TemplateTransformer struct {
		api.Base
		root map[string]node
	}

	node interface {
		eval(record model.Record) (interface{}, error)
	}
	mapNode     map[string]node
	listNode    []node
	textNode    struct{ t *text }
	literalNode struct{ v interface{} }
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		return New(p)
	})
}

// New builds a template transformer whose whole config is the template mapping.
func New(p api.Params) (*TemplateTransformer, error) {
	t := &TemplateTransformer{}
	if err := t.Init(t, p); err != nil {
		return nil, err
	}
	return t, nil
}

// NewInline builds the transformer of a pipeline that declares its transform as an inline mapping.
func NewInline(pipelineID string, mapping map[string]interface{}) (*TemplateTransformer, error) {
	return New(api.Params{
		ID:     pipelineID + ".transform",
		Config: mapping,
		Labels: api.Labels{Plugin: PluginName, Type: string(api.CapabilityTransformer), Class: ClassName},
	})
}

// Sanitize compiles every template so that syntax errors surface at startup.
func (t *TemplateTransformer) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	root, err := compileMap(config)
	if err != nil {
		return nil, api.InvalidConfigf(t.ID(), "%v", err)
	}
	t.root = root
	return config, nil
}

// Run emits exactly one record shaped like the config. A template naming a field absent
// from record fails the whole record with *api.DataError.
func (t *TemplateTransformer) Run(ctx context.Context, record model.Record) (api.Stream, error) {
	out, err := mapNode(t.root).eval(record)
	if err != nil {
		return nil, err
	}
	return api.SliceStream(model.Record(out.(map[string]interface{}))), nil
}

// Parse evaluates an arbitrary template value against record. Exposed for plugins reusing the template syntax.
func Parse(template interface{}, record model.Record) (interface{}, error) {
	n, err := compile(template)
	if err != nil {
		return nil, err
	}
	return n.eval(record)
}

// Validate reports syntax errors of template without evaluating it.
func Validate(template interface{}) error {
	_, err := compile(template)
	return err
}

func compile(v interface{}) (node, error) {
	switch x := v.(type) {
	case string:
		t, err := compileText(x)
		if err != nil {
			return nil, err
		}
		return textNode{t}, nil
	case map[string]interface{}, map[interface{}]interface{}:
		return compileMap(model.NormalizeMap(x))
	case []interface{}:
		l := make(listNode, len(x))
		for i := range x {
			n, err := compile(x[i])
			if err != nil {
				return nil, err
			}
			l[i] = n
		}
		return l, nil
	default:
		return literalNode{x}, nil
	}
}

func compileMap(m map[string]interface{}) (mapNode, error) {
	out := make(mapNode, len(m))
	for k, v := range m {
		n, err := compile(v)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

func (m mapNode) eval(record model.Record) (interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, n := range m {
		v, err := n.eval(record)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (l listNode) eval(record model.Record) (interface{}, error) {
	out := make([]interface{}, len(l))
	for i, n := range l {
		v, err := n.eval(record)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (n textNode) eval(record model.Record) (interface{}, error) {
	return n.t.format(record)
}

func (n literalNode) eval(record model.Record) (interface{}, error) {
	return n.v, nil
}
