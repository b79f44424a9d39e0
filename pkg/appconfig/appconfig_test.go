/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package appconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(key string) string {
		return m[key]
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	c, err := loadFromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "/etc/holoinsight-etl/pipeline.yaml", c.ConfigFile)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, 90*time.Second, c.Interval)
	assert.Equal(t, 30*time.Second, c.ShutdownTimeout)
	assert.False(t, c.Debug)
	assert.False(t, c.Align)
	assert.Empty(t, c.LogDir)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	c, err := loadFromEnv(envOf(map[string]string{
		"ETL_CONFIG":           "/tmp/p.toml",
		"DEBUG":                "true",
		"PORT":                 "9090",
		"ETL_LOG_DIR":          "/var/log/etl",
		"ETL_INTERVAL":         "5",
		"ETL_ALIGN":            "1",
		"ETL_SHUTDOWN_TIMEOUT": "1m30s",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/p.toml", c.ConfigFile)
	assert.True(t, c.Debug)
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, "/var/log/etl", c.LogDir)
	assert.Equal(t, 5*time.Second, c.Interval)
	assert.True(t, c.Align)
	assert.Equal(t, 90*time.Second, c.ShutdownTimeout)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"PORT": "http"},
		{"PORT": "70000"},
		{"ETL_INTERVAL": "soon"},
		{"ETL_INTERVAL": "-1"},
		{"ETL_SHUTDOWN_TIMEOUT": "0s"},
	} {
		_, err := loadFromEnv(envOf(env))
		assert.Error(t, err, "%v", env)
	}
}
