/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/appconfig"
	"github.com/traas-stack/holoinsight-etl/pkg/controller"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/metrics"
	"github.com/traas-stack/holoinsight-etl/pkg/pipeline"
	"github.com/traas-stack/holoinsight-etl/pkg/plugin/all"
	"github.com/traas-stack/holoinsight-etl/pkg/server"
	"github.com/traas-stack/holoinsight-etl/pkg/util"
	"github.com/traas-stack/holoinsight-etl/pkg/util/stat"
	"go.uber.org/zap"
)

func bootstrap() error {
	begin := time.Now()

	if err := appconfig.SetupAppConfig(); err != nil {
		return err
	}
	config := appconfig.StdETLConfig

	logger.SetupZapLogger(config.LogDir)
	defer logger.Sync()
	if config.Debug {
		logger.DebugEnabled = true
	}
	logger.Infoz("[bootstrap] config", zap.Any("config", config))

	if s := os.Getenv("POD_IP"); s != "" {
		util.SetLocalIp(s)
	}
	logger.Infoz("[bootstrap] network", zap.String("ip", util.GetLocalIp()), zap.String("hostname", util.GetHostname()))

	cfg, err := appconfig.LoadPipelines(config.ConfigFile)
	if err != nil {
		logger.Errorz("[bootstrap] load pipelines error", zap.String("file", config.ConfigFile), zap.Error(err))
		return err
	}

	set, err := pipeline.Build(cfg, all.NewRegistry())
	if err != nil {
		logger.Errorz("[bootstrap] build pipelines error", zap.Error(err))
		return err
	}
	var opts []controller.Option
	if config.Align {
		opts = append(opts, controller.WithAlignedSchedule())
	}
	c := controller.New(set, config.Interval, opts...)
	httpServer := server.NewHttpServerComponent(fmt.Sprintf(":%d", config.Port), metrics.Default, set)

	logger.Infoz("[bootstrap] done", zap.Stringer("pipelines", set), zap.Duration("cost", time.Since(begin)))

	runErr := serve(c, httpServer)

	stopBegin := time.Now()
	if err := util.SubContextTimeoutE(context.Background(), config.ShutdownTimeout, c.Close); err != nil {
		logger.Errorz("[bootstrap] close pipelines error", zap.Error(err))
	}
	logger.Infoz("[bootstrap] stop done", zap.Error(runErr), zap.Duration("cost", time.Since(stopBegin)))
	return runErr
}

// serve blocks until a stop signal arrives or one of the actors fails.
func serve(c *controller.Controller, httpServer *server.HttpServerComponent) error {
	var g run.Group

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(
			func() error {
				return c.Start(ctx)
			},
			func(err error) {
				cancel()
			},
		)
	}

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(
			func() error {
				return stat.Default.Run(ctx, stat.DefaultInterval)
			},
			func(err error) {
				cancel()
			},
		)
	}

	{
		g.Add(
			func() error {
				err := httpServer.Run()
				logger.Infoz("[bootstrap] http server stopped", zap.Error(err))
				return errors.Wrap(err, "http server")
			},
			func(err error) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				httpServer.Stop(ctx)
			},
		)
	}

	{
		sigs := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		g.Add(
			func() error {
				select {
				case sig := <-sigs:
					logger.Infoz("[bootstrap] receive stop signal", zap.String("signal", sig.String()))
				case <-cancel:
				}
				return nil
			},
			func(err error) {
				signal.Stop(sigs)
				close(cancel)
			},
		)
	}

	return g.Run()
}
