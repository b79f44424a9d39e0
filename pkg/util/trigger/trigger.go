/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package trigger computes when the next controller cycle starts.
package trigger

import "time"

type (
	Trigger interface {
		// Next returns the start of the cycle following one that ended at now.
		Next(now time.Time) time.Time
	}
	fixedDelay struct {
		interval time.Duration
	}
	fixedRate struct {
		align  time.Duration
		offset time.Duration
	}
)

// WithFixedDelay waits interval after the end of each cycle.
func WithFixedDelay(interval time.Duration) Trigger {
	return &fixedDelay{
		interval: interval,
	}
}

// WithFixedRate starts cycles on multiples of align shifted by offset, skipping slots a long cycle overran.
func WithFixedRate(align, offset time.Duration) Trigger {
	return &fixedRate{
		align:  align,
		offset: offset,
	}
}

func (f *fixedDelay) Next(now time.Time) time.Time {
	return now.Add(f.interval)
}

func (f *fixedRate) Next(now time.Time) time.Time {
	next := now.Truncate(f.align).Add(f.offset)
	for !next.After(now) {
		next = next.Add(f.align)
	}
	return next
}
