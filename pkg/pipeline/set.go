/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package pipeline

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// Set is an ordered collection of pipelines keyed by id. Insertion order is run order.
	Set struct {
		ids       []string
		pipelines map[string]*Pipeline
	}
)

func NewSet() *Set {
	return &Set{pipelines: make(map[string]*Pipeline)}
}

// Append inserts p. A pipeline with the same id is replaced and keeps its position.
func (s *Set) Append(p *Pipeline) {
	if _, exist := s.pipelines[p.ID()]; !exist {
		s.ids = append(s.ids, p.ID())
	} else {
		logger.Warnz("[pipeline] pipeline already exists, cover it", zap.String("pipeline", p.ID()))
	}
	s.pipelines[p.ID()] = p
}

func (s *Set) Get(id string) (*Pipeline, bool) {
	p, ok := s.pipelines[id]
	return p, ok
}

func (s *Set) Len() int {
	return len(s.ids)
}

func (s *Set) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Each calls f for every pipeline in insertion order.
func (s *Set) Each(f func(p *Pipeline)) {
	for _, id := range s.ids {
		f(s.pipelines[id])
	}
}

// Close closes every pipeline, continuing past failures, and returns all errors combined.
func (s *Set) Close() error {
	var err error
	s.Each(func(p *Pipeline) {
		if cerr := util.WithRecoverE(p.Close); cerr != nil {
			err = multierr.Append(err, errors.Wrapf(cerr, "close pipeline %s", p.ID()))
		}
	})
	return err
}

func (s *Set) String() string {
	names := make([]string, 0, len(s.ids))
	s.Each(func(p *Pipeline) {
		names = append(names, p.String())
	})
	return "Set([" + strings.Join(names, ", ") + "])"
}
