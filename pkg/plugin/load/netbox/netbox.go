/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package netbox loads records into NetBox through its REST api. Each record is upserted: the object is
// looked up by the configured primary key fields, created when absent and partially updated when found.
package netbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const (
	PluginName = "Netbox"
	ClassName  = "NetboxLoader"

	defaultRate    = 10
	defaultRetries = 2
	defaultTimeout = 30 * time.Second
)

type (
	NetboxLoader struct {
		api.Base
		host     string
		apiKey   string
		endpoint string
		model    string
		pk       []string
		retries  int

		client  *http.Client
		limiter ratelimit.Limiter
		backoff backoff.Backoff
	}

	listResponse struct {
		Count   int `json:"count"`
		Results []struct {
			ID json.Number `json:"id"`
		} `json:"results"`
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
		return New(p)
	})
}

func New(p api.Params) (*NetboxLoader, error) {
	l := &NetboxLoader{}
	if err := l.Init(l, p, "host", "api_key", "endpoint", "model", "pk"); err != nil {
		return nil, err
	}
	l.host = strings.TrimRight(l.GetString("host"), "/")
	l.apiKey = l.GetString("api_key")
	l.endpoint = l.GetString("endpoint")
	l.model = l.GetString("model")
	l.pk = l.GetStringSlice("pk")
	l.retries = l.GetInt("retries", defaultRetries)
	l.client = &http.Client{Timeout: l.GetDuration("timeout", defaultTimeout)}
	l.limiter = ratelimit.New(l.GetInt("rate", defaultRate))
	l.backoff = backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    l.GetDuration("backoff_min", 200*time.Millisecond),
		Max:    l.GetDuration("backoff_max", 5*time.Second),
	}
	return l, nil
}

// Sanitize lowercases endpoint and model and turns a scalar pk into a one element list.
func (l *NetboxLoader) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	for _, k := range []string{"endpoint", "model"} {
		s := strings.ToLower(cast.ToString(config[k]))
		if s == "" {
			return nil, api.InvalidConfigf(l.ID(), "%s must not be empty", k)
		}
		config[k] = s
	}

	switch pk := config["pk"].(type) {
	case []interface{}:
		if len(pk) == 0 {
			return nil, api.InvalidConfigf(l.ID(), "pk must not be empty")
		}
	case []string:
		config["pk"] = cast.ToSlice(pk)
	default:
		config["pk"] = []interface{}{pk}
	}

	if rate := cast.ToInt(config["rate"]); config["rate"] != nil && rate <= 0 {
		return nil, api.InvalidConfigf(l.ID(), "rate must be positive")
	}
	return config, nil
}

func (l *NetboxLoader) collectionURL() string {
	return fmt.Sprintf("%s/api/%s/%s/", l.host, l.endpoint, strings.ReplaceAll(l.model, "_", "-"))
}

func (l *NetboxLoader) Run(ctx context.Context, record model.Record) error {
	filters := url.Values{}
	for _, k := range l.pk {
		v, ok := record[k]
		if !ok {
			return &api.DataError{Field: k, Err: errors.New("primary key field not found")}
		}
		filters.Set(k, cast.ToString(v))
	}

	id, found, err := l.lookup(ctx, filters)
	if err != nil {
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return &api.DataError{Field: "record", Err: err}
	}

	if !found {
		logger.Debugz("[netbox] create", zap.String("loader", l.ID()), zap.String("filters", filters.Encode()))
		_, err = l.do(ctx, http.MethodPost, l.collectionURL(), body)
		return err
	}
	logger.Debugz("[netbox] update", zap.String("loader", l.ID()), zap.String("id", id))
	_, err = l.do(ctx, http.MethodPatch, l.collectionURL()+id+"/", body)
	return err
}

// lookup returns the id of the single object matching filters.
func (l *NetboxLoader) lookup(ctx context.Context, filters url.Values) (string, bool, error) {
	b, err := l.do(ctx, http.MethodGet, l.collectionURL()+"?"+filters.Encode(), nil)
	if err != nil {
		return "", false, err
	}

	var resp listResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return "", false, api.NewRuntimeError("decode list response", err)
	}
	switch {
	case resp.Count < 1:
		return "", false, nil
	case resp.Count > 1 || len(resp.Results) != 1:
		return "", false, api.RuntimeErrorf("lookup", "not enough criteria for %s <%s.%s(%s)>: %d matches",
			l.ID(), l.endpoint, l.model, filters.Encode(), resp.Count)
	}
	return resp.Results[0].ID.String(), true, nil
}

func (l *NetboxLoader) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	b := l.backoff
	var lastErr error
	for attempt := 0; attempt <= l.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, api.NewRuntimeError(method+" "+u, ctx.Err())
			case <-time.After(b.Duration()):
			}
		}
		l.limiter.Take()

		resp, err := l.doOnce(ctx, method, u, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if se, ok := err.(*statusError); ok && se.code < 500 {
			break
		}
		logger.Warnz("[netbox] request failed", zap.String("loader", l.ID()), zap.String("method", method), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, api.NewRuntimeError(method+" "+u, lastErr)
}

func (l *NetboxLoader) doOnce(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+l.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: string(b)}
	}
	return b, nil
}

func (l *NetboxLoader) Close() error {
	return l.CloseOnce(func() error {
		l.client.CloseIdleConnections()
		return nil
	})
}
