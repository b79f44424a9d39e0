/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package amqp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/template"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	PluginName = "Amqp"
	ClassName  = "AmqpLoader"
)

type (
	// AmqpLoader publishes every record as a JSON message. The routing key is a "{field}" template.
	AmqpLoader struct {
		api.Base
		url        string
		exchange   string
		routingKey string
		persistent bool

		mutex sync.Mutex
		conn  *amqp.Connection
		ch    *amqp.Channel
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		l := &AmqpLoader{}
		if err := l.Init(l, p, "url", "exchange", "routing_key"); err != nil {
			return nil, err
		}
		l.url = l.GetString("url")
		l.exchange = l.GetString("exchange")
		l.routingKey = l.GetString("routing_key")
		l.persistent = l.GetBool("persistent")
		return l, nil
	})
}

func (l *AmqpLoader) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	if _, err := amqp.ParseURI(cast.ToString(config["url"])); err != nil {
		return nil, api.InvalidConfigf(l.ID(), "url: %v", err)
	}
	if err := template.Validate(cast.ToString(config["routing_key"])); err != nil {
		return nil, api.InvalidConfigf(l.ID(), "routing_key: %v", err)
	}
	return config, nil
}

// channel dials on first use and again after the connection is lost.
func (l *AmqpLoader) channel() (*amqp.Channel, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.ch != nil && !l.ch.IsClosed() {
		return l.ch, nil
	}
	l.closeLocked()

	conn, err := amqp.Dial(l.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	logger.Infoz("[amqp] connected", zap.String("loader", l.ID()), zap.String("exchange", l.exchange))
	l.conn, l.ch = conn, ch
	return ch, nil
}

func (l *AmqpLoader) Run(ctx context.Context, record model.Record) error {
	key, err := template.Parse(l.routingKey, record)
	if err != nil {
		return err
	}
	body, err := json.Marshal(record)
	if err != nil {
		return &api.DataError{Field: "record", Err: err}
	}

	ch, err := l.channel()
	if err != nil {
		return api.NewRuntimeError("dial", err)
	}
	msg := amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	}
	if l.persistent {
		msg.DeliveryMode = amqp.Persistent
	}
	if err := ch.PublishWithContext(ctx, l.exchange, cast.ToString(key), false, false, msg); err != nil {
		return api.NewRuntimeError("publish to "+l.exchange, err)
	}
	return nil
}

func (l *AmqpLoader) closeLocked() error {
	var err error
	if l.ch != nil {
		err = multierr.Append(err, l.ch.Close())
		l.ch = nil
	}
	if l.conn != nil && !l.conn.IsClosed() {
		err = multierr.Append(err, l.conn.Close())
	}
	l.conn = nil
	return err
}

func (l *AmqpLoader) Close() error {
	return l.CloseOnce(func() error {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		return l.closeLocked()
	})
}
