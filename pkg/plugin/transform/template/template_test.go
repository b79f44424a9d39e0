/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package template

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

func TestFormat(t *testing.T) {
	v, err := Parse("host={host} port={port}", model.Record{"host": "localhost", "port": 5000})
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5000", v)
}

func TestParse_StringKey(t *testing.T) {
	v, err := Parse("foo{val}", model.Record{"val": "bar"})
	require.NoError(t, err)
	assert.Equal(t, "foobar", v)
}

func TestParse_DictKey(t *testing.T) {
	v, err := Parse(map[string]interface{}{"key": "foo{val}"}, model.Record{"val": "bar"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"key": "foobar"}, v)
}

func TestParse_Nested(t *testing.T) {
	v, err := Parse(map[string]interface{}{
		"site": map[string]interface{}{"name": "{site.name}"},
		"tags": []interface{}{"{a}", "static"},
		"n":    3,
		"raw":  "{{literal}}",
	}, model.Record{"site": map[string]interface{}{"name": "dc1"}, "a": 1.5})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"site": map[string]interface{}{"name": "dc1"},
		"tags": []interface{}{"1.5", "static"},
		"n":    3,
		"raw":  "{literal}",
	}, v)
}

func TestParse_MissingField(t *testing.T) {
	_, err := Parse(map[string]interface{}{"name": "{Name}"}, model.Record{"Other": "a"})
	require.Error(t, err)

	var de *api.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Name", de.Field)
}

func TestParse_BadSyntax(t *testing.T) {
	for _, s := range []string{"{open", "close}", "{}"} {
		_, err := Parse(s, model.Record{})
		assert.Error(t, err, s)
		assert.Error(t, Validate(s), s)
	}
	assert.NoError(t, Validate(map[string]interface{}{"k": "{absent}"}))
}

func TestTemplateTransformer_Run(t *testing.T) {
	tr, err := New(api.Params{
		ID: "test-transformer",
		Config: map[string]interface{}{
			"host": "localhost-{host}",
			"port": "5000",
		},
	})
	require.NoError(t, err)

	stream, err := tr.Run(context.Background(), model.Record{"host": 1})
	require.NoError(t, err)
	records, err := api.Collect(context.Background(), stream)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{"host": "localhost-1", "port": "5000"}}, records)
}

func TestTemplateTransformer_InvalidTemplate(t *testing.T) {
	_, err := New(api.Params{ID: "bad", Config: map[string]interface{}{"name": "{Name"}})
	var ice *api.InvalidConfigurationError
	assert.True(t, errors.As(err, &ice))
}

func TestNewInline(t *testing.T) {
	tr, err := NewInline("test-pipe", map[string]interface{}{"name": "{Name}"})
	require.NoError(t, err)
	assert.Equal(t, "test-pipe.transform", tr.ID())
	assert.Equal(t, map[string]interface{}{"name": "{Name}"}, tr.Config())
	assert.Equal(t, []string{"test-pipe.transform", PluginName, "Transformer", ClassName}, tr.Timer().Labels())
}

func TestRegister(t *testing.T) {
	r := plugin.NewRegistry()
	Register(r)

	tr, err := r.ResolveTransformer("t1", &model.PluginRef{Plugin: "template", Class: ClassName, Config: map[string]interface{}{"a": "{b}"}})
	require.NoError(t, err)
	assert.Equal(t, "t1", tr.ID())
}
