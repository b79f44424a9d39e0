/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
	"github.com/oliveagle/jsonpath"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"go.uber.org/zap"
)

const (
	PluginName = "Http"
	ClassName  = "HttpExtractor"

	defaultTimeout = 10 * time.Second
	defaultRetries = 3
	maxBodySize    = 64 * 1024 * 1024
)

type (
	// HttpExtractor fetches a JSON document and yields the objects selected by a jsonpath expression.
	// Transport errors and 5xx responses are retried with backoff.
	HttpExtractor struct {
		api.Base
		url     string
		headers map[string]string
		path    *jsonpath.Compiled
		retries int
		client  *http.Client
		backoff backoff.Backoff
	}

	statusError struct {
		code int
		body string
	}
)

func (e *statusError) Error() string {
	return fmt.Sprintf("status code %d: %s", e.code, e.body)
}

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		e := &HttpExtractor{}
		if err := e.Init(e, p, "url"); err != nil {
			return nil, err
		}
		e.url = e.GetString("url")
		e.retries = e.GetInt("retries", defaultRetries)
		e.client = &http.Client{Timeout: e.GetDuration("timeout", defaultTimeout)}
		e.backoff = backoff.Backoff{
			Factor: 2,
			Jitter: true,
			Min:    e.GetDuration("backoff_min", 100*time.Millisecond),
			Max:    e.GetDuration("backoff_max", 5*time.Second),
		}
		return e, nil
	})
}

func (e *HttpExtractor) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	expr := cast.ToString(config["path"])
	if expr == "" {
		expr = "$"
	}
	c, err := jsonpath.Compile(expr)
	if err != nil {
		return nil, api.InvalidConfigf(e.ID(), "bad jsonpath %s: %v", expr, err)
	}
	e.path = c
	e.headers = cast.ToStringMapString(config["headers"])
	return config, nil
}

func (e *HttpExtractor) Run(ctx context.Context) (api.Stream, error) {
	doc, err := e.fetch(ctx)
	if err != nil {
		return nil, api.NewRuntimeError("GET "+e.url, err)
	}

	selected := doc
	if e.path != nil {
		if selected, err = e.path.Lookup(doc); err != nil {
			return nil, &api.DataError{Field: "path", Err: err}
		}
	}

	switch x := selected.(type) {
	case map[string]interface{}:
		return api.SliceStream(model.NormalizeMap(x)), nil
	case []interface{}:
		records := make([]model.Record, 0, len(x))
		for _, item := range x {
			if m := model.NormalizeMap(item); m != nil {
				records = append(records, m)
			}
		}
		return api.SliceStream(records...), nil
	case nil:
		return api.EmptyStream(), nil
	default:
		return nil, &api.DataError{Field: "path", Err: errors.Errorf("selected %T, expect object or array", x)}
	}
}

func (e *HttpExtractor) fetch(ctx context.Context) (interface{}, error) {
	b := e.backoff
	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			d := b.Duration()
			logger.Warnz("[http] retry", zap.String("extractor", e.ID()), zap.Int("attempt", attempt), zap.Duration("backoff", d), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}

		doc, err := e.fetchOnce(ctx)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if se, ok := err.(*statusError); ok && se.code < 500 {
			break
		}
	}
	return nil, lastErr
}

func (e *HttpExtractor) fetchOnce(ctx context.Context) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "decode body")
	}
	return doc, nil
}
