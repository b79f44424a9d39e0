/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package util

import (
	"context"
	"time"
)

func IsContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func SubContextTimeoutE(ctx context.Context, timeout time.Duration, callback func(context.Context) error) error {
	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return callback(ctx2)
}
