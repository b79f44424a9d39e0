/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/vmihailenco/msgpack/v5"
)

func resolve(t *testing.T, config map[string]interface{}) (*RedisLoader, error) {
	base := map[string]interface{}{
		"addr":  "127.0.0.1:1",
		"key":   "devices:{site}",
		"field": "{name}",
	}
	for k, v := range config {
		base[k] = v
	}
	r := plugin.NewRegistry()
	Register(r)
	l, err := r.ResolveLoader(t.Name(), &model.PluginRef{Plugin: "redis", Config: base})
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { l.Close() })
	return l.(*RedisLoader), nil
}

func TestRedisLoader_Target(t *testing.T) {
	l, err := resolve(t, nil)
	require.NoError(t, err)

	key, field, err := l.target(model.Record{"site": "ams1", "name": "sw-1"})
	require.NoError(t, err)
	assert.Equal(t, "devices:ams1", key)
	assert.Equal(t, "sw-1", field)

	_, _, err = l.target(model.Record{"name": "sw-1"})
	var de *api.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "site", de.Field)
}

func TestRedisLoader_Codecs(t *testing.T) {
	record := model.Record{"name": "sw-1", "size": 2}

	l, err := resolve(t, nil)
	require.NoError(t, err)
	assert.Equal(t, CodecJSON, l.codec)
	b, err := l.encode(record)
	require.NoError(t, err)
	var fromJSON map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, "sw-1", fromJSON["name"])

	l, err = resolve(t, map[string]interface{}{"codec": "MsgPack"})
	require.NoError(t, err)
	assert.Equal(t, CodecMsgpack, l.codec)
	b, err = l.encode(record)
	require.NoError(t, err)
	var fromMsgpack map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(b, &fromMsgpack))
	assert.Equal(t, "sw-1", fromMsgpack["name"])
	assert.EqualValues(t, 2, fromMsgpack["size"])
}

func TestRedisLoader_InvalidConfig(t *testing.T) {
	_, err := resolve(t, map[string]interface{}{"codec": "xml"})
	var ice *api.InvalidConfigurationError
	require.True(t, errors.As(err, &ice))
	assert.Contains(t, err.Error(), "xml")

	_, err = resolve(t, map[string]interface{}{"field": "{name"})
	require.True(t, errors.As(err, &ice))
	assert.Contains(t, err.Error(), "field")

	r := plugin.NewRegistry()
	Register(r)
	_, err = r.ResolveLoader("r", &model.PluginRef{Plugin: "redis"})
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, []string{"addr", "key", "field"}, ice.Missing)
}

func TestRedisLoader_Unreachable(t *testing.T) {
	l, err := resolve(t, map[string]interface{}{"retries": 0, "timeout": "200ms"})
	require.NoError(t, err)
	assert.Equal(t, -1, l.options.MaxRetries)

	err = l.Run(context.Background(), model.Record{"site": "ams1", "name": "sw-1"})
	var re *api.RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "hset devices:ams1")
}

func TestRedisLoader_CloseWithoutRun(t *testing.T) {
	l, err := resolve(t, nil)
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}
