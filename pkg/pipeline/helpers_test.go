/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

type (
	// journal records the order of plugin calls across a whole test.
	journal struct {
		entries []string
	}

	fakeExtractor struct {
		api.Base
		j       *journal
		records []model.Record
		pulled  int
		failAt  int
		closed  int
	}

	fakeTransformer struct {
		api.Base
		j      *journal
		f      func(model.Record) ([]model.Record, error)
		inputs []model.Record
		closed int
	}

	fakeLoader struct {
		api.Base
		j        *journal
		err      error
		panics   bool
		records  []model.Record
		closed   int
		closeErr error
	}
)

func (j *journal) add(s string) {
	if j != nil {
		j.entries = append(j.entries, s)
	}
}

func newExtractor(id string, j *journal, records ...model.Record) *fakeExtractor {
	e := &fakeExtractor{j: j, records: records}
	if err := e.Init(e, api.Params{ID: id}); err != nil {
		panic(err)
	}
	return e
}

func (e *fakeExtractor) Run(ctx context.Context) (api.Stream, error) {
	e.j.add("run:" + e.ID())
	i := 0
	return api.FuncStream(func(ctx context.Context) (model.Record, bool, error) {
		e.pulled++
		if e.failAt > 0 && e.pulled == e.failAt {
			return nil, false, errors.New("extract failed")
		}
		if i >= len(e.records) {
			return nil, false, nil
		}
		r := e.records[i]
		i++
		e.j.add("extract:" + e.ID())
		return r, true, nil
	}, nil), nil
}

func (e *fakeExtractor) Close() error {
	e.closed++
	e.j.add("close:" + e.ID())
	return nil
}

func newTransformer(id string, j *journal, f func(model.Record) ([]model.Record, error)) *fakeTransformer {
	if f == nil {
		f = func(r model.Record) ([]model.Record, error) {
			return []model.Record{r}, nil
		}
	}
	t := &fakeTransformer{j: j, f: f}
	if err := t.Init(t, api.Params{ID: id}); err != nil {
		panic(err)
	}
	return t
}

func (t *fakeTransformer) Run(ctx context.Context, record model.Record) (api.Stream, error) {
	t.inputs = append(t.inputs, record)
	t.j.add("transform:" + t.ID())
	out, err := t.f(record)
	if err != nil {
		return nil, err
	}
	return api.SliceStream(out...), nil
}

func (t *fakeTransformer) Close() error {
	t.closed++
	t.j.add("close:" + t.ID())
	return nil
}

func newLoader(id string, j *journal) *fakeLoader {
	l := &fakeLoader{j: j}
	if err := l.Init(l, api.Params{ID: id}); err != nil {
		panic(err)
	}
	return l
}

func (l *fakeLoader) Run(ctx context.Context, record model.Record) error {
	l.records = append(l.records, record)
	l.j.add("load:" + l.ID())
	if l.panics {
		panic("loader exploded")
	}
	return l.err
}

func (l *fakeLoader) Close() error {
	l.closed++
	l.j.add("close:" + l.ID())
	return l.closeErr
}

// uniq prefixes ids so tests do not share histogram series of metrics.Default.
func uniq(prefix string, ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = prefix + "-" + id
	}
	return out
}

func fakeRegistry() *plugin.Registry {
	r := plugin.NewRegistry()
	r.Register("Fake", "FakeExtractor", func(p api.Params) (api.Plugin, error) {
		e := &fakeExtractor{}
		for _, name := range strings.Split(cast.ToString(p.Config["names"]), ",") {
			if name != "" {
				e.records = append(e.records, model.Record{"Name": name})
			}
		}
		return e, e.Init(e, p, "host")
	})
	r.Register("Fake", "FakeTransformer", func(p api.Params) (api.Plugin, error) {
		t := &fakeTransformer{f: func(r model.Record) ([]model.Record, error) {
			return []model.Record{r}, nil
		}}
		return t, t.Init(t, p)
	})
	r.Register("Fake", "FakeLoader", func(p api.Params) (api.Plugin, error) {
		l := &fakeLoader{}
		return l, l.Init(l, p, "host")
	})
	return r
}
