/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package static

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

func resolve(t *testing.T, config map[string]interface{}) (api.Extractor, error) {
	r := plugin.NewRegistry()
	Register(r)
	return r.ResolveExtractor(t.Name(), &model.PluginRef{Plugin: "static", Config: config})
}

func TestStaticExtractor_Run(t *testing.T) {
	e, err := resolve(t, map[string]interface{}{
		"records": []interface{}{
			map[string]interface{}{"Name": "a"},
			map[interface{}]interface{}{"Name": "b"},
		},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		s, err := e.Run(context.Background())
		require.NoError(t, err)
		records, err := api.Collect(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, []model.Record{{"Name": "a"}, {"Name": "b"}}, records)

		// consumers may mutate what they receive
		records[0]["Name"] = "changed"
	}
}

func TestStaticExtractor_InvalidConfig(t *testing.T) {
	_, err := resolve(t, nil)
	var ice *api.InvalidConfigurationError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, []string{"records"}, ice.Missing)

	_, err = resolve(t, map[string]interface{}{"records": []interface{}{"a"}})
	require.True(t, errors.As(err, &ice))
	assert.Contains(t, ice.Error(), "records[0]")

	_, err = resolve(t, map[string]interface{}{"records": 1})
	assert.True(t, errors.As(err, &ice))
}
