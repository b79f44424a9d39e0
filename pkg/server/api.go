/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package server

import (
	"encoding/json"
	"net/http"

	"github.com/traas-stack/holoinsight-etl/pkg/pipeline"
)

type (
	pipelineView struct {
		ID          string   `json:"id"`
		Extractors  []string `json:"extractors"`
		Transformer string   `json:"transformer"`
		Loaders     []string `json:"loaders"`
	}
)

func pipelinesHandler(set *pipeline.Set) func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		views := make([]pipelineView, 0, set.Len())
		set.Each(func(p *pipeline.Pipeline) {
			v := pipelineView{ID: p.ID(), Extractors: []string{}, Loaders: []string{}}
			for _, e := range p.Extractors() {
				v.Extractors = append(v.Extractors, e.String())
			}
			if p.Transformer() != nil {
				v.Transformer = p.Transformer().String()
			}
			for _, l := range p.Loaders() {
				v.Loaders = append(v.Loaders, l.String())
			}
			views = append(views, v)
		})

		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]interface{}{
			"set":       set.String(),
			"pipelines": views,
		})
	}
}
