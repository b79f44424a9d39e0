/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestToUTF8(t *testing.T) {
	plain := []byte(`{"name": "web-1"}`)
	out, charset, err := ToUTF8(plain, "")
	require.NoError(t, err)
	assert.Equal(t, UTF8, charset)
	assert.Equal(t, plain, out)

	gbk, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(`{"机房": "杭州"}`))
	require.NoError(t, err)
	out, charset, err = ToUTF8(gbk, "gbk")
	require.NoError(t, err)
	assert.Equal(t, "gbk", charset)
	assert.Equal(t, `{"机房": "杭州"}`, string(out))
}

func TestGetEncoding(t *testing.T) {
	assert.NotNil(t, GetEncoding("gb18030"))
	assert.NotNil(t, GetEncoding("latin1"))
	assert.Nil(t, GetEncoding(UTF8))
	assert.Nil(t, GetEncoding("EBCDIC"))
}
