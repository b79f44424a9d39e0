/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package host

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/api"
	"github.com/traas-stack/holoinsight-etl/pkg/util"
	"go.uber.org/zap"
)

const (
	PluginName = "Host"
	ClassName  = "HostExtractor"
)

type (
	// HostExtractor yields one record describing the local host: identity, cpu, memory and load.
	// A stat that cannot be read is logged and left out.
	HostExtractor struct {
		api.Base
		// cpuInterval is how long cpu usage is sampled, zero compares with the previous run
		cpuInterval time.Duration
	}
)

func Register(r *plugin.Registry) {
	r.Register(PluginName, ClassName, func(p api.Params) (api.Plugin, error) {
		e := &HostExtractor{}
		if err := e.Init(e, p); err != nil {
			return nil, err
		}
		e.cpuInterval = e.GetDuration("cpu_interval", 0)
		return e, nil
	})
}

func (e *HostExtractor) Run(ctx context.Context) (api.Stream, error) {
	d := model.Record{"ip": util.GetLocalIp()}

	if info, err := host.InfoWithContext(ctx); err != nil {
		logger.Errorz("[host] get host info error", zap.String("extractor", e.ID()), zap.Error(err))
	} else {
		d["hostname"] = info.Hostname
		d["os"] = info.OS
		d["platform"] = info.Platform
		d["platform_version"] = info.PlatformVersion
		d["kernel_version"] = info.KernelVersion
		d["uptime"] = info.Uptime
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		d["cpu_count"] = n
	}
	if percents, err := cpu.PercentWithContext(ctx, e.cpuInterval, false); err != nil {
		logger.Errorz("[host] get cpu stat error", zap.String("extractor", e.ID()), zap.Error(err))
	} else if len(percents) > 0 {
		d["cpu_util"] = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logger.Errorz("[host] get memory stat error", zap.String("extractor", e.ID()), zap.Error(err))
	} else {
		d["mem_total"] = vm.Total
		d["mem_used"] = vm.Used
		d["mem_avail"] = vm.Available
		d["mem_free"] = vm.Free
		d["mem_util"] = vm.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		logger.Errorz("[host] get load stat error", zap.String("extractor", e.ID()), zap.Error(err))
	} else {
		d["load1"] = avg.Load1
		d["load5"] = avg.Load5
		d["load15"] = avg.Load15
	}

	if d.IsEmpty() {
		return api.EmptyStream(), nil
	}
	return api.SliceStream(d), nil
}
