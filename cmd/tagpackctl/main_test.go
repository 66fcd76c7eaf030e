package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEncodeThenDecodeRoundTrip(t *testing.T) {
	var encoded bytes.Buffer
	require.NoError(t, runEncode(strings.NewReader(`{"a":1,"b":[1,2,3]}`), &encoded))

	var decoded bytes.Buffer
	require.NoError(t, runDecode(bytes.NewReader(encoded.Bytes()), &decoded))

	assert.Equal(t, "{\"a\":1,\"b\":[1,2,3]}\n", decoded.String())
}

func TestRunSchemaDescribesShape(t *testing.T) {
	var encoded bytes.Buffer
	require.NoError(t, runEncode(strings.NewReader(`{"name":"corgi","good":true}`), &encoded))

	var out bytes.Buffer
	require.NoError(t, runSchema(bytes.NewReader(encoded.Bytes()), &out))

	assert.Equal(t, "{good: bool, name: str}\n", out.String())
}

func TestRunEncodeInvalidJSON(t *testing.T) {
	var out bytes.Buffer
	err := runEncode(strings.NewReader(`{not json`), &out)
	assert.Error(t, err)
}
