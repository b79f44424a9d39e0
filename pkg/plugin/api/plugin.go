/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package api

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/metrics"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
)

const (
	CapabilityExtractor   Capability = "Extractor"
	CapabilityTransformer Capability = "Transformer"
	CapabilityLoader      Capability = "Loader"
)

type (
	Capability string

	// Labels identify a plugin instance in the plugin latency histogram, next to its id.
	Labels struct {
		Plugin string
		Type   string
		Class  string
	}

	// Params is everything a Factory needs to build one plugin instance.
	Params struct {
		ID     string
		Config map[string]interface{}
		Labels Labels
	}

	Factory func(Params) (Plugin, error)

	Plugin interface {
		ID() string
		Config() map[string]interface{}
		Timer() *metrics.Timer
		// Close releases resources. It must be idempotent and safe to call when Run never ran.
		Close() error
		String() string
	}

	// Extractor produces a finite stream of records per call.
	Extractor interface {
		Plugin
		Run(ctx context.Context) (Stream, error)
	}

	// Transformer maps one record to zero or more records.
	Transformer interface {
		Plugin
		Run(ctx context.Context, record model.Record) (Stream, error)
	}

	// Loader writes one record somewhere.
	Loader interface {
		Plugin
		Run(ctx context.Context, record model.Record) error
	}

	// Sanitizer is implemented by plugins that post-process their config once required keys are validated.
	Sanitizer interface {
		Sanitize(config map[string]interface{}) (map[string]interface{}, error)
	}

	// Base carries the state shared by every plugin. Concrete plugins embed it and call Init from their factory.
	Base struct {
		id        string
		name      string
		config    map[string]interface{}
		timer     *metrics.Timer
		closeOnce sync.Once
		closeErr  error
	}
)

func (l Labels) IsZero() bool {
	return l == Labels{}
}

// Init validates that every required key is present in p.Config, runs the optional Sanitizer of self,
// and binds the plugin latency timer. self is the concrete plugin embedding b.
func (b *Base) Init(self interface{}, p Params, required ...string) error {
	b.id = p.ID
	b.name = typeName(self)

	config := p.Config
	if config == nil {
		config = map[string]interface{}{}
	}

	var missing []string
	for _, key := range required {
		if _, ok := config[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &InvalidConfigurationError{ID: p.ID, Missing: missing}
	}

	if s, ok := self.(Sanitizer); ok {
		sanitized, err := s.Sanitize(config)
		if err != nil {
			return err
		}
		config = sanitized
	}
	b.config = config

	labels := p.Labels
	if labels.IsZero() {
		labels = Labels{Plugin: b.name, Type: b.name, Class: b.name}
	}
	b.timer = metrics.Default.PluginTimer(p.ID, labels.Plugin, labels.Type, labels.Class)
	return nil
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Config() map[string]interface{} {
	return b.config
}

func (b *Base) Timer() *metrics.Timer {
	return b.timer
}

// Close is a no-op. Plugins holding resources override it, usually through CloseOnce.
func (b *Base) Close() error {
	return nil
}

// CloseOnce runs f the first time it is called and returns the same result afterwards.
func (b *Base) CloseOnce(f func() error) error {
	b.closeOnce.Do(func() {
		b.closeErr = f()
	})
	return b.closeErr
}

func (b *Base) String() string {
	return b.name + "(" + b.id + ")"
}

func (b *Base) GetString(key string) string {
	return cast.ToString(b.config[key])
}

func (b *Base) GetStringOr(key, def string) string {
	if s := b.GetString(key); s != "" {
		return s
	}
	return def
}

func (b *Base) GetStringSlice(key string) []string {
	switch x := b.config[key].(type) {
	case nil:
		return nil
	case string:
		return []string{x}
	default:
		return cast.ToStringSlice(x)
	}
}

func (b *Base) GetInt(key string, def int) int {
	if v, ok := b.config[key]; ok {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return def
}

func (b *Base) GetBool(key string) bool {
	return cast.ToBool(b.config[key])
}

// GetDuration accepts Go duration strings ("5s") and plain numbers of seconds.
func (b *Base) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := b.config[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case string:
		if d, err := time.ParseDuration(x); err == nil {
			return d
		}
	default:
		if f, err := cast.ToFloat64E(x); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return def
}

func typeName(v interface{}) string {
	if v == nil {
		return "Plugin"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
