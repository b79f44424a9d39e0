/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package model

import (
	"fmt"

	"github.com/spf13/cast"
)

const (
	TransformInvalid TransformKind = iota
	// TransformNamed refers to an entry of the transformers catalog.
	TransformNamed
	// TransformInline carries a template mapping evaluated by the template transformer.
	TransformInline
)

type (
	// PluginRef is the declarative form of a plugin instance.
	PluginRef struct {
		Plugin string                 `json:"plugin" yaml:"plugin" toml:"plugin"`
		Class  string                 `json:"class,omitempty" yaml:"class,omitempty" toml:"class"`
		Config map[string]interface{} `json:"config" yaml:"config" toml:"config"`
	}

	TransformKind uint8

	// TransformSpec is either Named(reference) or Inline(template mapping).
	TransformSpec struct {
		Kind   TransformKind
		Name   string
		Inline map[string]interface{}
	}

	PipelineConfig struct {
		ID         string
		Extractors []string
		Transform  TransformSpec
		Loaders    []string
	}

	// Config is the static description of every pipeline. Pipelines keep the declaration order.
	Config struct {
		Extractors   map[string]*PluginRef
		Transformers map[string]*PluginRef
		Loaders      map[string]*PluginRef
		Pipelines    []*PipelineConfig
	}
)

func NamedTransform(name string) TransformSpec {
	return TransformSpec{Kind: TransformNamed, Name: name}
}

func InlineTransform(m map[string]interface{}) TransformSpec {
	return TransformSpec{Kind: TransformInline, Inline: m}
}

// ParseTransformSpec classifies the decoded value of a pipeline's "transform" field.
func ParseTransformSpec(v interface{}) TransformSpec {
	switch x := v.(type) {
	case string:
		return NamedTransform(x)
	case map[string]interface{}:
		return InlineTransform(NormalizeMap(x))
	case map[interface{}]interface{}:
		return InlineTransform(NormalizeMap(x))
	default:
		return TransformSpec{Kind: TransformInvalid}
	}
}

func (s TransformSpec) String() string {
	switch s.Kind {
	case TransformNamed:
		return "Named(" + s.Name + ")"
	case TransformInline:
		return fmt.Sprintf("Inline(%v)", s.Inline)
	default:
		return "Invalid"
	}
}

// NormalizeMap converts nested map[interface{}]interface{} values, as produced by some decoders,
// into map[string]interface{} so that plugins only deal with one map type.
func NormalizeMap(m interface{}) map[string]interface{} {
	switch x := m.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, v := range x {
			out[k] = normalizeValue(v)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, v := range x {
			out[cast.ToString(k)] = normalizeValue(v)
		}
		return out
	default:
		return nil
	}
}

func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return NormalizeMap(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = normalizeValue(x[i])
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = NormalizeMap(x[i])
		}
		return out
	default:
		return v
	}
}
