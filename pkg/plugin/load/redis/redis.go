/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package redis stores each record as one field of a redis hash. Key and field are "{field}" templates
// evaluated against the record.
package redis

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/template"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	PluginName = "Redis"
	ClassName  = "RedisLoader"

	CodecJSON    = "json"
	CodecMsgpack = "msgpack"

	defaultTimeout = 5 * time.Second
)

type (
	RedisLoader struct {
		api.Base
		options *redis.Options
		key     string
		field   string
		codec   string

		mutex  sync.Mutex
		client *redis.Client
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		l := &RedisLoader{}
		if err := l.Init(l, p, "addr", "key", "field"); err != nil {
			return nil, err
		}
		l.key = l.GetString("key")
		l.field = l.GetString("field")
		l.codec = l.GetString("codec")
		l.options = &redis.Options{
			Addr:        l.GetString("addr"),
			Password:    l.GetString("password"),
			DB:          l.GetInt("db", 0),
			MaxRetries:  l.GetInt("retries", 3),
			DialTimeout: l.GetDuration("timeout", defaultTimeout),
		}
		// 0 means the client default in go-redis
		if l.options.MaxRetries == 0 {
			l.options.MaxRetries = -1
		}
		return l, nil
	})
}

func (l *RedisLoader) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	for _, k := range []string{"key", "field"} {
		if err := template.Validate(cast.ToString(config[k])); err != nil {
			return nil, api.InvalidConfigf(l.ID(), "%s: %v", k, err)
		}
	}
	codec := strings.ToLower(cast.ToString(config["codec"]))
	switch codec {
	case "":
		codec = CodecJSON
	case CodecJSON, CodecMsgpack:
	default:
		return nil, api.InvalidConfigf(l.ID(), "unsupported codec %q", codec)
	}
	config["codec"] = codec
	return config, nil
}

func (l *RedisLoader) getClient() *redis.Client {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.client == nil {
		l.client = redis.NewClient(l.options)
	}
	return l.client
}

func (l *RedisLoader) Run(ctx context.Context, record model.Record) error {
	key, field, err := l.target(record)
	if err != nil {
		return err
	}
	payload, err := l.encode(record)
	if err != nil {
		return err
	}
	if err := l.getClient().HSet(ctx, key, field, payload).Err(); err != nil {
		return api.NewRuntimeError("hset "+key, err)
	}
	logger.Debugz("[redis] hset", zap.String("loader", l.ID()), zap.String("key", key), zap.String("field", field))
	return nil
}

// target renders the hash key and field of record.
func (l *RedisLoader) target(record model.Record) (string, string, error) {
	key, err := template.Parse(l.key, record)
	if err != nil {
		return "", "", err
	}
	field, err := template.Parse(l.field, record)
	if err != nil {
		return "", "", err
	}
	return cast.ToString(key), cast.ToString(field), nil
}

func (l *RedisLoader) encode(record model.Record) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if l.codec == CodecMsgpack {
		b, err = msgpack.Marshal(map[string]interface{}(record))
	} else {
		b, err = json.Marshal(record)
	}
	if err != nil {
		return nil, &api.DataError{Field: "record", Err: err}
	}
	return b, nil
}

func (l *RedisLoader) Close() error {
	return l.CloseOnce(func() error {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		if l.client == nil {
			return nil
		}
		return l.client.Close()
	})
}
