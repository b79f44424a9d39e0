/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/traas-stack/holoinsight-etl/pkg/model"
)

func TestSliceStream(t *testing.T) {
	records, err := Collect(context.Background(), SliceStream(model.Record{"a": 1}, model.Record{"a": 2}))
	assert.NoError(t, err)
	assert.Equal(t, []model.Record{{"a": 1}, {"a": 2}}, records)

	records, err = Collect(context.Background(), EmptyStream())
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestFuncStream(t *testing.T) {
	i := 0
	closed := 0
	s := FuncStream(func(ctx context.Context) (model.Record, bool, error) {
		i++
		if i > 2 {
			return nil, false, nil
		}
		return model.Record{"i": i}, true, nil
	}, func() error {
		closed++
		return nil
	})

	records, err := Collect(context.Background(), s)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, closed)

	// exhausted streams are not pulled again
	_, ok, _ := s.Next(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 3, i)
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, closed)
}

func TestFuncStream_Error(t *testing.T) {
	boom := errors.New("boom")
	s := FuncStream(func(ctx context.Context) (model.Record, bool, error) {
		return nil, false, boom
	}, nil)
	records, err := Collect(context.Background(), s)
	assert.Equal(t, boom, err)
	assert.Empty(t, records)
}
