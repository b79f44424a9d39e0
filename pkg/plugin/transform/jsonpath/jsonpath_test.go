/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package jsonpath

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

var device = model.Record{
	"name": "sw-1",
	"site": map[string]interface{}{"slug": "ams1"},
	"interfaces": []interface{}{
		map[string]interface{}{"name": "eth0", "mtu": 1500},
		map[string]interface{}{"name": "eth1", "mtu": 9000},
	},
}

func resolve(t *testing.T, config map[string]interface{}) (api.Transformer, error) {
	r := plugin.NewRegistry()
	Register(r)
	return r.ResolveTransformer(t.Name(), &model.PluginRef{Plugin: "jsonpath", Config: config})
}

func collect(t *testing.T, tr api.Transformer, record model.Record) []model.Record {
	out, err := tr.Run(context.Background(), record)
	require.NoError(t, err)
	records, err := api.Collect(context.Background(), out)
	require.NoError(t, err)
	return records
}

func TestJsonpathTransformer_Run(t *testing.T) {
	tr, err := resolve(t, map[string]interface{}{
		"fields": map[string]interface{}{
			"device": "$.name",
			"site":   "site.slug",
			"first":  "$.interfaces[0].name",
			"mtus":   "$.interfaces[*].mtu",
		},
	})
	require.NoError(t, err)

	records := collect(t, tr, device)
	require.Len(t, records, 1)
	assert.Equal(t, "sw-1", records[0]["device"])
	assert.Equal(t, "ams1", records[0]["site"])
	assert.Equal(t, "eth0", records[0]["first"])
	assert.Equal(t, []interface{}{1500, 9000}, records[0]["mtus"])
	assert.NotContains(t, records[0], "name")
}

func TestJsonpathTransformer_Keep(t *testing.T) {
	tr, err := resolve(t, map[string]interface{}{
		"fields": map[string]interface{}{"slug": "$.site.slug"},
		"keep":   true,
	})
	require.NoError(t, err)

	records := collect(t, tr, device)
	assert.Equal(t, "sw-1", records[0]["name"])
	assert.Equal(t, "ams1", records[0]["slug"])
}

func TestJsonpathTransformer_Missing(t *testing.T) {
	tr, err := resolve(t, map[string]interface{}{
		"fields": map[string]interface{}{"rack": "$.rack.name"},
	})
	require.NoError(t, err)
	_, err = tr.Run(context.Background(), device)
	var de *api.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "rack", de.Field)

	tr, err = resolve(t, map[string]interface{}{
		"fields":   map[string]interface{}{"rack": "$.rack.name", "device": "$.name"},
		"optional": []interface{}{"rack"},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{"device": "sw-1"}}, collect(t, tr, device))
}

func TestJsonpathTransformer_InvalidConfig(t *testing.T) {
	_, err := resolve(t, nil)
	var ice *api.InvalidConfigurationError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, []string{"fields"}, ice.Missing)

	_, err = resolve(t, map[string]interface{}{"fields": "name"})
	assert.True(t, errors.As(err, &ice))
}
