/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package sql extracts records from a relational database, one record per result row.
package sql

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"go.uber.org/zap"
)

const (
	PluginName = "Sql"
	ClassName  = "SqlExtractor"

	defaultMaxOpenConns = 2
)

var drivers = map[string]string{
	"mysql":   "mysql",
	"sqlite":  "sqlite3",
	"sqlite3": "sqlite3",
}

type (
	SqlExtractor struct {
		api.Base
		driver string
		dsn    string
		query  string
		args   []interface{}

		mutex sync.Mutex
		db    *sql.DB
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		e := &SqlExtractor{}
		if err := e.Init(e, p, "driver", "dsn", "query"); err != nil {
			return nil, err
		}
		e.dsn = e.GetString("dsn")
		e.query = e.GetString("query")
		return e, nil
	})
}

func (e *SqlExtractor) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	name, _ := config["driver"].(string)
	driver, ok := drivers[strings.ToLower(name)]
	if !ok {
		return nil, api.InvalidConfigf(e.ID(), "unsupported driver %q", name)
	}
	e.driver = driver
	if args, ok := config["args"].([]interface{}); ok {
		e.args = args
	}
	return config, nil
}

// open connects lazily so that building a pipeline never needs the database to be up.
func (e *SqlExtractor) open() (*sql.DB, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.db != nil {
		return e.db, nil
	}
	db, err := sql.Open(e.driver, e.dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)
	e.db = db
	return db, nil
}

// Run streams rows lazily; the rows are released when the stream is closed.
func (e *SqlExtractor) Run(ctx context.Context) (api.Stream, error) {
	db, err := e.open()
	if err != nil {
		return nil, api.NewRuntimeError("open "+e.driver, err)
	}
	rows, err := db.QueryContext(ctx, e.query, e.args...)
	if err != nil {
		return nil, api.NewRuntimeError("query", err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, api.NewRuntimeError("columns", err)
	}

	return api.FuncStream(func(ctx context.Context) (model.Record, bool, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, false, api.NewRuntimeError("next row", err)
			}
			return nil, false, nil
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, api.NewRuntimeError("scan", err)
		}
		record := make(model.Record, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				record[c] = string(b)
			} else {
				record[c] = values[i]
			}
		}
		return record, true, nil
	}, rows.Close), nil
}

func (e *SqlExtractor) Close() error {
	return e.CloseOnce(func() error {
		e.mutex.Lock()
		defer e.mutex.Unlock()
		if e.db == nil {
			return nil
		}
		logger.Infoz("[sql] close db", zap.String("extractor", e.ID()), zap.String("driver", e.driver))
		return e.db.Close()
	})
}
