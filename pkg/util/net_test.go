/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package util

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalIp(t *testing.T) {
	assert.NotEmpty(t, GetHostname())
	if ip := GetLocalIp(); ip != "" {
		assert.NotNil(t, net.ParseIP(ip).To4())
	}

	old := GetLocalIp()
	defer SetLocalIp(old)
	SetLocalIp("10.0.0.1")
	assert.Equal(t, "10.0.0.1", GetLocalIp())
}
