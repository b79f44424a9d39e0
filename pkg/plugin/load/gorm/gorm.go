/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package gorm inserts records as rows of a table. Records are written as column maps, the table must exist.
package gorm

import (
	"context"
	"sort"
	"sync"

	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	PluginName = "Gorm"
	ClassName  = "GormLoader"
)

type (
	GormLoader struct {
		api.Base
		dsn   string
		table string
		// conflict columns, empty means plain insert
		keys []string

		mutex sync.Mutex
		db    *gorm.DB
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		l := &GormLoader{}
		if err := l.Init(l, p, "dsn", "table"); err != nil {
			return nil, err
		}
		l.dsn = l.GetString("dsn")
		l.table = l.GetString("table")
		l.keys = l.GetStringSlice("upsert_keys")
		return l, nil
	})
}

func (l *GormLoader) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	for _, k := range []string{"dsn", "table"} {
		if s, _ := config[k].(string); s == "" {
			return nil, api.InvalidConfigf(l.ID(), "%s must be a non empty string", k)
		}
	}
	return config, nil
}

func (l *GormLoader) open() (*gorm.DB, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.db != nil {
		return l.db, nil
	}
	db, err := gorm.Open(sqlite.Open(l.dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		return nil, err
	}
	l.db = db
	return db, nil
}

func (l *GormLoader) Run(ctx context.Context, record model.Record) error {
	db, err := l.open()
	if err != nil {
		return api.NewRuntimeError("open "+l.dsn, err)
	}

	tx := db.WithContext(ctx).Table(l.table)
	if len(l.keys) > 0 {
		tx = tx.Clauses(l.onConflict(record))
	}
	if result := tx.Create(map[string]interface{}(record)); result.Error != nil {
		return api.NewRuntimeError("insert into "+l.table, result.Error)
	}
	return nil
}

// onConflict updates every non key column of record when a row with the same keys exists.
func (l *GormLoader) onConflict(record model.Record) clause.OnConflict {
	isKey := make(map[string]struct{}, len(l.keys))
	columns := make([]clause.Column, 0, len(l.keys))
	for _, k := range l.keys {
		isKey[k] = struct{}{}
		columns = append(columns, clause.Column{Name: k})
	}

	var updates []string
	for k := range record {
		if _, ok := isKey[k]; !ok {
			updates = append(updates, k)
		}
	}
	if len(updates) == 0 {
		return clause.OnConflict{Columns: columns, DoNothing: true}
	}
	sort.Strings(updates)
	return clause.OnConflict{Columns: columns, DoUpdates: clause.AssignmentColumns(updates)}
}

func (l *GormLoader) Close() error {
	return l.CloseOnce(func() error {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		if l.db == nil {
			return nil
		}
		sqlDB, err := l.db.DB()
		if err != nil {
			return err
		}
		logger.Infoz("[gorm] close db", zap.String("loader", l.ID()), zap.String("table", l.table))
		return sqlDB.Close()
	})
}
