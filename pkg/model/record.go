/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package model

type (
	// Record is an open key/value mapping flowing between stages. The engine enforces no schema.
	Record map[string]interface{}
)

func (r Record) IsEmpty() bool {
	return len(r) == 0
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
