/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package plugin resolves declarative plugin references into live plugin instances.
package plugin

import (
	"sort"
	"strings"

	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"go.uber.org/zap"
)

type (
	// Registry maps plugin package names to the factories of the types they export.
	// It is filled once at startup and only read afterwards, so it needs no locking.
	Registry struct {
		packages map[string]*Package
	}

	Package struct {
		Name  string
		types map[string]*entry
	}

	entry struct {
		name    string
		factory api.Factory
	}
)

func NewRegistry() *Registry {
	return &Registry{packages: make(map[string]*Package)}
}

// Register adds typeName to the plugin package pkgName. Both names are matched ignoring case.
func (r *Registry) Register(pkgName, typeName string, factory api.Factory) {
	key := strings.ToLower(pkgName)
	p, ok := r.packages[key]
	if !ok {
		p = &Package{Name: pkgName, types: make(map[string]*entry)}
		r.packages[key] = p
	}
	typeKey := strings.ToLower(typeName)
	if _, exist := p.types[typeKey]; exist {
		logger.Warnz("[plugin] type already registered, cover it", zap.String("plugin", pkgName), zap.String("type", typeName))
	}
	p.types[typeKey] = &entry{name: typeName, factory: factory}
}

// Lookup returns the plugin package registered under name, ignoring case.
func (r *Registry) Lookup(name string) (*Package, bool) {
	p, ok := r.packages[strings.ToLower(name)]
	return p, ok
}

func (r *Registry) Packages() []string {
	names := make([]string, 0, len(r.packages))
	for _, p := range r.packages {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (p *Package) Types() []string {
	names := make([]string, 0, len(p.types))
	for _, e := range p.types {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// ClassName is the type a reference resolves to: its explicit class, or <Plugin><Capability>.
func ClassName(capability api.Capability, ref *model.PluginRef) string {
	if ref.Class != "" {
		return ref.Class
	}
	return ref.Plugin + string(capability)
}

// Resolve instantiates the plugin described by ref for the given capability.
func (r *Registry) Resolve(capability api.Capability, id string, ref *model.PluginRef) (api.Plugin, error) {
	if ref == nil {
		return nil, api.InvalidConfigf(id, "no plugin reference")
	}
	p, ok := r.Lookup(ref.Plugin)
	if !ok {
		return nil, &api.PluginNotFoundError{Plugin: ref.Plugin}
	}

	class := ClassName(capability, ref)
	e, ok := p.types[strings.ToLower(class)]
	if !ok {
		return nil, &api.PluginClassNotFoundError{Plugin: ref.Plugin, Class: class, Capability: capability}
	}

	class = e.name
	instance, err := e.factory(api.Params{
		ID:     id,
		Config: model.NormalizeMap(ref.Config),
		Labels: api.Labels{Plugin: ref.Plugin, Type: string(capability), Class: class},
	})
	if err != nil {
		return nil, err
	}

	var implemented bool
	switch capability {
	case api.CapabilityExtractor:
		_, implemented = instance.(api.Extractor)
	case api.CapabilityTransformer:
		_, implemented = instance.(api.Transformer)
	case api.CapabilityLoader:
		_, implemented = instance.(api.Loader)
	}
	if !implemented {
		instance.Close()
		return nil, &api.PluginClassNotFoundError{
			Plugin:     ref.Plugin,
			Class:      class,
			Capability: capability,
			Reason:     "does not implement " + string(capability),
		}
	}

	logger.Infoz("[plugin] resolved", zap.String("id", id), zap.String("plugin", ref.Plugin), zap.String("class", class))
	return instance, nil
}

func (r *Registry) ResolveExtractor(id string, ref *model.PluginRef) (api.Extractor, error) {
	p, err := r.Resolve(api.CapabilityExtractor, id, ref)
	if err != nil {
		return nil, err
	}
	return p.(api.Extractor), nil
}

func (r *Registry) ResolveTransformer(id string, ref *model.PluginRef) (api.Transformer, error) {
	p, err := r.Resolve(api.CapabilityTransformer, id, ref)
	if err != nil {
		return nil, err
	}
	return p.(api.Transformer), nil
}

func (r *Registry) ResolveLoader(id string, ref *model.PluginRef) (api.Loader, error) {
	p, err := r.Resolve(api.CapabilityLoader, id, ref)
	if err != nil {
		return nil, err
	}
	return p.(api.Loader), nil
}
