/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package all registers every built-in plugin package.
package all

import (
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/extract/file"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/extract/host"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/extract/http"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/extract/sql"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/extract/static"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/load/amqp"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/load/console"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/load/gorm"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/load/netbox"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/load/redis"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/grok"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/jsonpath"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/script"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/transform/template"
)

var registrations = []func(r *plugin.Registry){
	// extractors
	static.Register,
	file.Register,
	sql.Register,
	http.Register,
	host.Register,
	// transformers
	template.Register,
	grok.Register,
	jsonpath.Register,
	script.Register,
	// loaders
	console.Register,
	netbox.Register,
	gorm.Register,
	redis.Register,
	amqp.Register,
}

func RegisterAll(r *plugin.Registry) {
	for _, register := range registrations {
		register(r)
	}
}

// NewRegistry returns a registry holding every built-in plugin.
func NewRegistry() *plugin.Registry {
	r := plugin.NewRegistry()
	RegisterAll(r)
	return r
}
