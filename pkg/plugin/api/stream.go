/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package api

import (
	"context"

	"github.com/traas-stack/holoinsight-etl/pkg/model"
)

type (
	// Stream is a pull based sequence of records. Next returns ok=false once the sequence is exhausted.
	// Callers must Close a stream they opened, even when they stop pulling early.
	Stream interface {
		Next(ctx context.Context) (record model.Record, ok bool, err error)
		Close() error
	}

	sliceStream struct {
		records []model.Record
		i       int
	}

	funcStream struct {
		next  func(ctx context.Context) (model.Record, bool, error)
		close func() error
		done  bool
	}
)

// SliceStream yields records in order.
func SliceStream(records ...model.Record) Stream {
	return &sliceStream{records: records}
}

// EmptyStream yields nothing.
func EmptyStream() Stream {
	return &sliceStream{}
}

// FuncStream builds a Stream from a next function and an optional close function.
// Once next reports the end or an error it is not called again.
func FuncStream(next func(ctx context.Context) (model.Record, bool, error), close func() error) Stream {
	return &funcStream{next: next, close: close}
}

func (s *sliceStream) Next(ctx context.Context) (model.Record, bool, error) {
	if s.i >= len(s.records) {
		return nil, false, nil
	}
	r := s.records[s.i]
	s.i++
	return r, true, nil
}

func (s *sliceStream) Close() error {
	s.i = len(s.records)
	return nil
}

func (s *funcStream) Next(ctx context.Context) (model.Record, bool, error) {
	if s.done {
		return nil, false, nil
	}
	r, ok, err := s.next(ctx)
	if err != nil || !ok {
		s.done = true
		return nil, false, err
	}
	return r, true, nil
}

func (s *funcStream) Close() error {
	s.done = true
	if s.close == nil {
		return nil
	}
	c := s.close
	s.close = nil
	return c()
}

// Collect drains and closes s.
func Collect(ctx context.Context, s Stream) (records []model.Record, err error) {
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		r, ok, err := s.Next(ctx)
		if err != nil {
			return records, err
		}
		if !ok {
			return records, nil
		}
		records = append(records, r)
	}
}
