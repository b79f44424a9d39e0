/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package appconfig holds process level settings. It is the first package initialized, do not depend on business packages here.
package appconfig

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

var agentVersion string
var agentBuildTime string
var gitcommit string

const (
	defaultConfigFile      = "/etc/holoinsight-etl/pipeline.yaml"
	defaultPort            = 8080
	defaultInterval        = 90 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

var StdETLConfig = ETLConfig{}

type (
	ETLConfig struct {
		// ConfigFile is the pipeline description, decoded by its extension
		ConfigFile string
		Debug      bool
		Port       int
		// LogDir enables rotating log files when not empty
		LogDir          string
		Interval time.Duration
		// Align starts cycles on wall clock multiples of Interval
		Align           bool
		ShutdownTimeout time.Duration
		Version         string
	}
)

// SetupAppConfig fills StdETLConfig from the environment.
func SetupAppConfig() error {
	c, err := loadFromEnv(os.Getenv)
	if err != nil {
		return err
	}
	StdETLConfig = c
	return nil
}

func loadFromEnv(getenv func(string) string) (ETLConfig, error) {
	c := ETLConfig{
		ConfigFile:      defaultConfigFile,
		Port:            defaultPort,
		Interval:        defaultInterval,
		ShutdownTimeout: defaultShutdownTimeout,
		Version:         agentVersion,
	}

	if s := getenv("ETL_CONFIG"); s != "" {
		c.ConfigFile = s
	}
	if s := getenv("DEBUG"); s != "" {
		c.Debug = cast.ToBool(s)
	}
	if s := getenv("PORT"); s != "" {
		port, err := cast.ToIntE(s)
		if err != nil || port <= 0 || port > 65535 {
			return c, errors.Errorf("invalid PORT %q", s)
		}
		c.Port = port
	}
	if s := getenv("ETL_LOG_DIR"); s != "" {
		c.LogDir = s
	}
	if s := getenv("ETL_INTERVAL"); s != "" {
		d, err := parseDuration(s)
		if err != nil {
			return c, errors.Wrap(err, "invalid ETL_INTERVAL")
		}
		c.Interval = d
	}
	if s := getenv("ETL_ALIGN"); s != "" {
		c.Align = cast.ToBool(s)
	}
	if s := getenv("ETL_SHUTDOWN_TIMEOUT"); s != "" {
		d, err := parseDuration(s)
		if err != nil {
			return c, errors.Wrap(err, "invalid ETL_SHUTDOWN_TIMEOUT")
		}
		c.ShutdownTimeout = d
	}
	return c, nil
}

// parseDuration accepts "90s" style durations and plain numbers of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := cast.ToFloat64E(s); err == nil {
		if f <= 0 {
			return 0, errors.Errorf("duration must be positive: %s", s)
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Errorf("duration must be positive: %s", s)
	}
	return d, nil
}
