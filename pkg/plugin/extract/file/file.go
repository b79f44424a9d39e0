/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/text"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	PluginName = "File"
	ClassName  = "FileExtractor"

	FormatJsonLines = "jsonl"
	FormatJson      = "json"
	FormatYaml      = "yaml"

	maxLineSize = 1024 * 1024
)

type (
	// FileExtractor reads records from a local file. The file is re-read on every run.
	// Supported formats: JSON lines, a JSON array and a YAML list. Non UTF-8 files are decoded first.
	FileExtractor struct {
		api.Base
		path     string
		format   string
		encoding string
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		e := &FileExtractor{}
		if err := e.Init(e, p, "path"); err != nil {
			return nil, err
		}
		return e, nil
	})
}

func (e *FileExtractor) Sanitize(config map[string]interface{}) (map[string]interface{}, error) {
	path, _ := config["path"].(string)
	if path == "" {
		return nil, api.InvalidConfigf(e.ID(), "path must be a non empty string")
	}
	format, _ := config["format"].(string)
	format = strings.ToLower(format)
	if format == "" {
		format = formatOf(path)
	}
	switch format {
	case FormatJsonLines, FormatJson, FormatYaml:
	case "yml":
		format = FormatYaml
	default:
		return nil, api.InvalidConfigf(e.ID(), "unsupported format %s", format)
	}

	e.path = path
	e.format = format
	e.encoding, _ = config["encoding"].(string)
	return config, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJson
	case ".yaml", ".yml":
		return FormatYaml
	default:
		return FormatJsonLines
	}
}

func (e *FileExtractor) Run(ctx context.Context) (api.Stream, error) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, api.NewRuntimeError("read "+e.path, err)
	}
	bs, charset, err := text.ToUTF8(raw, e.encoding)
	if err != nil {
		return nil, api.NewRuntimeError("decode "+e.path, err)
	}
	logger.Debugz("[file] read", zap.String("extractor", e.ID()), zap.String("path", e.path), zap.String("charset", charset), zap.Int("bytes", len(raw)))

	switch e.format {
	case FormatJsonLines:
		return jsonLines(bs), nil
	case FormatJson:
		var items []map[string]interface{}
		if err := json.Unmarshal(bs, &items); err != nil {
			return nil, &api.DataError{Field: e.path, Err: err}
		}
		return sliceOf(items), nil
	default:
		var items []map[string]interface{}
		if err := yaml.Unmarshal(bs, &items); err != nil {
			return nil, &api.DataError{Field: e.path, Err: err}
		}
		return sliceOf(items), nil
	}
}

func sliceOf(items []map[string]interface{}) api.Stream {
	records := make([]model.Record, 0, len(items))
	for _, item := range items {
		records = append(records, model.NormalizeMap(item))
	}
	return api.SliceStream(records...)
}

// jsonLines decodes one record per line lazily. Blank lines are skipped.
func jsonLines(bs []byte) api.Stream {
	scanner := bufio.NewScanner(bytes.NewReader(bs))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	return api.FuncStream(func(ctx context.Context) (model.Record, bool, error) {
		for scanner.Scan() {
			line++
			b := bytes.TrimSpace(scanner.Bytes())
			if len(b) == 0 {
				continue
			}
			record := model.Record{}
			if err := json.Unmarshal(b, &record); err != nil {
				return nil, false, &api.DataError{Field: "line " + strconv.Itoa(line), Err: err}
			}
			return record, true, nil
		}
		if err := scanner.Err(); err != nil {
			return nil, false, errors.Wrap(err, "scan")
		}
		return nil, false, nil
	}, nil)
}
