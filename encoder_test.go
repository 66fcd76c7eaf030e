package tagpack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNil(t *testing.T) {
	b, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc0}, b)
}

func TestEncodeBool(t *testing.T) {
	b, err := Encode(true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc3}, b)

	b, err = Encode(false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc2}, b)
}

func TestEncodeIntBoundaries(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []byte
	}{
		{"positive fixint", int64(127), []byte{0x7f}},
		{"negative fixint", int64(-1), []byte{0xff}},
		{"uint8 boundary", int64(128), []byte{0xcc, 0x80}},
		{"int8 boundary", int64(-33), []byte{0xd0, 0xdf}},
		{"uint16 boundary", int64(256), []byte{0xcd, 0x01, 0x00}},
		{"uint32 boundary", int64(65536), []byte{0xce, 0x00, 0x01, 0x00, 0x00}},
		{"uint64 boundary", int64(4294967296), []byte{0xcf, 0, 0, 0, 1, 0, 0, 0, 0}},
		{"unsigned beyond int64", uint64(1) << 63, append([]byte{0xcf}, 0x80, 0, 0, 0, 0, 0, 0, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, b)
		})
	}
}

func TestEncodeFloat64(t *testing.T) {
	b, err := Encode(1.5)
	require.NoError(t, err)
	require.Len(t, b, 9)
	assert.Equal(t, byte(0xcb), b[0])
}

func TestEncodeStringLengthBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		length   int
		wantHead []byte
	}{
		{"fixstr", 31, []byte{0xa0 | 31}},
		{"str8", 32, []byte{0xd9, 32}},
		{"str8 max", 255, []byte{0xd9, 255}},
		{"str16", 256, []byte{0xda, 0x01, 0x00}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := strings.Repeat("a", tc.length)
			b, err := Encode(s)
			require.NoError(t, err)
			assert.Equal(t, tc.wantHead, b[:len(tc.wantHead)])
			assert.Equal(t, s, string(b[len(tc.wantHead):]))
		})
	}
}

func TestEncodeBytesLengthBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		length   int
		wantHead []byte
	}{
		{"bin8", 1, []byte{0xc4, 1}},
		{"bin8 max", 255, []byte{0xc4, 255}},
		{"bin16", 256, []byte{0xc5, 0x01, 0x00}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := make([]byte, tc.length)
			b, err := Encode(data)
			require.NoError(t, err)
			assert.Equal(t, tc.wantHead, b[:len(tc.wantHead)])
		})
	}
}

func TestEncodeSlice(t *testing.T) {
	b, err := Encode([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x93, 0x01, 0x02, 0x03}, b)
}

func TestEncodeArrayLengthBoundary(t *testing.T) {
	items := make([]int, 16)
	b, err := Encode(items)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xdc, 0x00, 0x10}, b[:3])
}

func TestEncodeMap(t *testing.T) {
	b, err := Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0xa1, 'a', 0x01}, b)
}

func TestEncodeSet(t *testing.T) {
	s := NewSet(1)
	b, err := Encode(s)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x91, 0x01}, b)
}

type encoderFixture struct {
	ID   int64  `msgpack:"id"`
	Name string `msgpack:"name"`
}

func TestEncodeRecord(t *testing.T) {
	b, err := Encode(encoderFixture{ID: 1, Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x82,
		0xa2, 'i', 'd', 0x01,
		0xa4, 'n', 'a', 'm', 'e', 0xa1, 'x',
	}, b)
}

func TestEncodeTupleStruct(t *testing.T) {
	b, err := Encode(schemaHeteroTuple{ID: 1, Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x92,
		0x01,
		0xa1, 'x',
	}, b)
}

func TestEncodeEnumValue(t *testing.T) {
	b, err := Encode(SuitHearts)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0xa6}, "hearts"...), b)
}

func TestEncodeIntEnumValue(t *testing.T) {
	b, err := Encode(PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, b)
}

func TestEncodeNilPointer(t *testing.T) {
	var p *int
	b, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc0}, b)
}

func TestEncodeUnsupportedTypePanicsIntoError(t *testing.T) {
	_, err := Encode(make(chan int))
	require.Error(t, err)
	var encErr *EncodeError
	assert.ErrorAs(t, err, &encErr)
}

func TestEncodeMaxDepthExceeded(t *testing.T) {
	type node struct {
		Next *node `msgpack:"next"`
	}
	n := &node{}
	cur := n
	for i := 0; i < 10; i++ {
		cur.Next = &node{}
		cur = cur.Next
	}
	_, err := NewEncoder(WithMaxDepth(3)).Encode(n)
	require.Error(t, err)
}
