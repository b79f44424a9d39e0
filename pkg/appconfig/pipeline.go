/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package appconfig

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"gopkg.in/yaml.v3"
)

type (
	// pipelineEntry is the file form of one pipeline.
	pipelineEntry struct {
		Extractors []string    `json:"extractors" yaml:"extractors" toml:"extractors"`
		Transform  interface{} `json:"transform" yaml:"transform" toml:"transform"`
		Loaders    []string    `json:"loaders" yaml:"loaders" toml:"loaders"`
	}

	catalogs struct {
		Extractors   map[string]*model.PluginRef `json:"extractors" yaml:"extractors" toml:"extractors"`
		Transformers map[string]*model.PluginRef `json:"transformers" yaml:"transformers" toml:"transformers"`
		Loaders      map[string]*model.PluginRef `json:"loaders" yaml:"loaders" toml:"loaders"`
	}

	namedEntry struct {
		id    string
		entry *pipelineEntry
	}
)

// LoadPipelines reads the pipeline file at path. The format follows the extension:
// .yaml/.yml, .toml or .json. Pipelines keep the order they are declared in.
func LoadPipelines(path string) (*model.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read pipeline file %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	cfg, err := ParsePipelines(b, ext)
	if err != nil {
		return nil, errors.Wrapf(err, "parse pipeline file %s", path)
	}
	return cfg, nil
}

// ParsePipelines decodes b according to format, one of the extensions accepted by LoadPipelines.
func ParsePipelines(b []byte, format string) (*model.Config, error) {
	var (
		c       catalogs
		entries []namedEntry
		err     error
	)
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml", "":
		entries, err = decodeYaml(b, &c)
	case "toml":
		entries, err = decodeToml(b, &c)
	case "json":
		entries, err = decodeJson(b, &c)
	default:
		return nil, errors.Errorf("unsupported pipeline file format %q", format)
	}
	if err != nil {
		return nil, err
	}

	cfg := &model.Config{
		Extractors:   normalizeRefs(c.Extractors),
		Transformers: normalizeRefs(c.Transformers),
		Loaders:      normalizeRefs(c.Loaders),
	}
	for _, e := range entries {
		pc := &model.PipelineConfig{ID: e.id}
		if e.entry != nil {
			pc.Extractors = e.entry.Extractors
			pc.Transform = model.ParseTransformSpec(e.entry.Transform)
			pc.Loaders = e.entry.Loaders
		}
		cfg.Pipelines = append(cfg.Pipelines, pc)
	}
	return cfg, nil
}

func decodeYaml(b []byte, c *catalogs) ([]namedEntry, error) {
	var doc struct {
		catalogs  `yaml:",inline"`
		Pipelines yaml.Node `yaml:"pipelines"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	*c = doc.catalogs

	node := &doc.Pipelines
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.Errorf("line %d: pipelines must be a mapping", node.Line)
	}
	entries := make([]namedEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		entry := &pipelineEntry{}
		if err := node.Content[i+1].Decode(entry); err != nil {
			return nil, errors.Wrapf(err, "pipeline %s", node.Content[i].Value)
		}
		entries = append(entries, namedEntry{id: node.Content[i].Value, entry: entry})
	}
	return entries, nil
}

func decodeToml(b []byte, c *catalogs) ([]namedEntry, error) {
	var doc struct {
		catalogs
		Pipelines map[string]*pipelineEntry `toml:"pipelines"`
	}
	md, err := toml.Decode(string(b), &doc)
	if err != nil {
		return nil, err
	}
	*c = doc.catalogs

	var entries []namedEntry
	seen := make(map[string]struct{}, len(doc.Pipelines))
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != "pipelines" {
			continue
		}
		if _, ok := seen[key[1]]; ok {
			continue
		}
		seen[key[1]] = struct{}{}
		entries = append(entries, namedEntry{id: key[1], entry: doc.Pipelines[key[1]]})
	}
	return entries, nil
}

func decodeJson(b []byte, c *catalogs) ([]namedEntry, error) {
	var doc struct {
		catalogs
		Pipelines json.RawMessage `json:"pipelines"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	*c = doc.catalogs
	if len(doc.Pipelines) == 0 || string(doc.Pipelines) == "null" {
		return nil, nil
	}

	// walk the object by hand, maps do not keep key order
	dec := json.NewDecoder(bytes.NewReader(doc.Pipelines))
	if t, err := dec.Token(); err != nil {
		return nil, err
	} else if d, ok := t.(json.Delim); !ok || d != '{' {
		return nil, errors.New("pipelines must be an object")
	}
	var entries []namedEntry
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, _ := t.(string)
		entry := &pipelineEntry{}
		if err := dec.Decode(entry); err != nil {
			return nil, errors.Wrapf(err, "pipeline %s", id)
		}
		entries = append(entries, namedEntry{id: id, entry: entry})
	}
	return entries, nil
}

func normalizeRefs(refs map[string]*model.PluginRef) map[string]*model.PluginRef {
	if refs == nil {
		return map[string]*model.PluginRef{}
	}
	for _, ref := range refs {
		if ref != nil {
			ref.Config = model.NormalizeMap(ref.Config)
		}
	}
	return refs
}
