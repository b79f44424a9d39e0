/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package sql

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

func setupDb(t *testing.T) string {
	dsn := filepath.Join(t.TempDir(), "inventory.db")
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE devices (name TEXT, rack INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO devices VALUES ('sw-1', 1), ('sw-2', 2), ('sw-3', NULL)`)
	require.NoError(t, err)
	return dsn
}

func resolve(t *testing.T, config map[string]interface{}) (api.Extractor, error) {
	r := plugin.NewRegistry()
	Register(r)
	return r.ResolveExtractor(t.Name(), &model.PluginRef{Plugin: "sql", Config: config})
}

func TestSqlExtractor_Run(t *testing.T) {
	e, err := resolve(t, map[string]interface{}{
		"driver": "sqlite",
		"dsn":    setupDb(t),
		"query":  "SELECT name, rack FROM devices WHERE name != ? ORDER BY name",
		"args":   []interface{}{"sw-2"},
	})
	require.NoError(t, err)
	defer e.Close()

	s, err := e.Run(context.Background())
	require.NoError(t, err)
	records, err := api.Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{
		{"name": "sw-1", "rack": int64(1)},
		{"name": "sw-3", "rack": nil},
	}, records)
}

func TestSqlExtractor_CloseStreamEarly(t *testing.T) {
	e, err := resolve(t, map[string]interface{}{"driver": "sqlite3", "dsn": setupDb(t), "query": "SELECT name FROM devices"})
	require.NoError(t, err)

	s, err := e.Run(context.Background())
	require.NoError(t, err)
	_, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestSqlExtractor_QueryError(t *testing.T) {
	e, err := resolve(t, map[string]interface{}{"driver": "sqlite3", "dsn": setupDb(t), "query": "SELECT * FROM nope"})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Run(context.Background())
	var re *api.RuntimeError
	assert.True(t, errors.As(err, &re))
}

func TestSqlExtractor_InvalidConfig(t *testing.T) {
	_, err := resolve(t, map[string]interface{}{"driver": "oracle", "dsn": "x", "query": "y"})
	var ice *api.InvalidConfigurationError
	require.True(t, errors.As(err, &ice))

	_, err = resolve(t, map[string]interface{}{"driver": "mysql"})
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, []string{"dsn", "query"}, ice.Missing)
}

func TestSqlExtractor_CloseWithoutRun(t *testing.T) {
	e, err := resolve(t, map[string]interface{}{"driver": "mysql", "dsn": "user:pass@tcp(127.0.0.1:3306)/inventory", "query": "SELECT 1"})
	require.NoError(t, err)
	assert.NoError(t, e.Close())
}
