/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package api

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// FrameworkError marks failures that the engine recognizes and knows how to scope.
	FrameworkError interface {
		error
		frameworkError()
	}
	framework struct{}

	// InvalidConfigurationError reports required configuration keys missing from a plugin config,
	// or a config value the plugin cannot accept.
	InvalidConfigurationError struct {
		framework
		ID      string
		Missing []string
		Reason  string
	}

	// PluginNotFoundError reports a plugin package that is not registered.
	PluginNotFoundError struct {
		framework
		Plugin string
	}

	// PluginClassNotFoundError reports a plugin package without the requested type,
	// or whose type does not provide the requested capability.
	PluginClassNotFoundError struct {
		framework
		Plugin     string
		Class      string
		Capability Capability
		Reason     string
	}

	// RuntimeError is an expected operational failure of a plugin, e.g. a bad response from a remote service.
	RuntimeError struct {
		framework
		Op  string
		Err error
	}

	// DataError reports a record whose shape does not fit what a plugin needs, e.g. a missing field.
	DataError struct {
		framework
		Field string
		Err   error
	}
)

func (framework) frameworkError() {}

func (e *InvalidConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("invalid configuration for %s: missing required keys: %s", e.ID, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.ID, e.Reason)
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("plugin %s not found, try registering holoinsight-etl-%s?", e.Plugin, strings.ToLower(e.Plugin))
}

func (e *PluginClassNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("plugin %s: %s %s", e.Plugin, e.Class, e.Reason)
	}
	return fmt.Sprintf("plugin %s has no %s type %s", e.Plugin, e.Capability, e.Class)
}

func (e *RuntimeError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	return fmt.Sprintf("bad record field %q: %v", e.Field, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(op string, err error) error {
	return &RuntimeError{Op: op, Err: err}
}

func RuntimeErrorf(op string, format string, args ...interface{}) error {
	return &RuntimeError{Op: op, Err: fmt.Errorf(format, args...)}
}

func InvalidConfigf(id string, format string, args ...interface{}) error {
	return &InvalidConfigurationError{ID: id, Reason: fmt.Sprintf(format, args...)}
}

// IsFrameworkError reports whether err or any error it wraps is a FrameworkError.
func IsFrameworkError(err error) bool {
	var fe FrameworkError
	return errors.As(err, &fe)
}
