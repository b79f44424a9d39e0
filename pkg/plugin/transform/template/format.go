/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package template

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
)

type (
	// text is a compiled "{field}" template. "{{" and "}}" are literal braces,
	// "{a.b}" walks into nested mappings.
	text struct {
		raw      string
		segments []segment
	}
	segment struct {
		literal string
		field   string
		path    []string
	}
)

func compileText(raw string) (*text, error) {
	t := &text{raw: raw}
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			t.segments = append(t.segments, segment{literal: sb.String()})
			sb.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at %d in %q", i, raw)
			}
			field := raw[i+1 : i+1+end]
			if field == "" || strings.ContainsAny(field, "{") {
				return nil, fmt.Errorf("bad field at %d in %q", i, raw)
			}
			flush()
			t.segments = append(t.segments, segment{field: field, path: strings.Split(field, ".")})
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at %d in %q", i, raw)
		default:
			sb.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func (t *text) format(record model.Record) (string, error) {
	var sb strings.Builder
	for _, s := range t.segments {
		if s.path == nil {
			sb.WriteString(s.literal)
			continue
		}
		v, ok := lookup(record, s.path)
		if !ok {
			return "", &api.DataError{Field: s.field, Err: errors.Errorf("missing in template %q", t.raw)}
		}
		sb.WriteString(toString(v))
	}
	return sb.String(), nil
}

func lookup(record model.Record, path []string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(record)
	for _, key := range path {
		var v interface{}
		var ok bool
		switch m := cur.(type) {
		case map[string]interface{}:
			v, ok = m[key]
		case model.Record:
			v, ok = m[key]
		case map[interface{}]interface{}:
			v, ok = m[key]
		}
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func toString(v interface{}) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
