package tagpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, value T) T {
	t.Helper()
	b, err := Encode(value)
	require.NoError(t, err)
	got, err := DecodeInto[T](b)
	require.NoError(t, err)
	return got
}

func TestRoundTripScalars(t *testing.T) {
	assert.Equal(t, true, roundTrip(t, true))
	assert.Equal(t, int64(-12345), roundTrip(t, int64(-12345)))
	assert.Equal(t, uint64(1)<<40, roundTrip(t, uint64(1)<<40))
	assert.Equal(t, 3.5, roundTrip(t, 3.5))
	assert.Equal(t, "hello world", roundTrip(t, "hello world"))
}

func TestRoundTripBytes(t *testing.T) {
	in := []byte{1, 2, 3, 4}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestRoundTripSlice(t *testing.T) {
	in := []int{1, 2, 3}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestRoundTripMap(t *testing.T) {
	in := map[string]int{"a": 1, "b": 2}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

type decoderFixture struct {
	ID     int64    `msgpack:"id"`
	Name   string   `msgpack:"name,default=anon"`
	Active bool     `msgpack:"active,default=true"`
	Tags   []string `msgpack:"tags"`
}

func TestRoundTripRecord(t *testing.T) {
	in := decoderFixture{ID: 7, Name: "bob", Active: true, Tags: []string{"x", "y"}}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestDecodeFillsDefaultForMissingField(t *testing.T) {
	b, err := Encode(map[string]any{"id": int64(1), "tags": []any{}})
	require.NoError(t, err)

	out, err := DecodeInto[decoderFixture](b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
	assert.Equal(t, "anon", out.Name)
	assert.True(t, out.Active)
}

func TestDecodeMissingRequiredFieldErrors(t *testing.T) {
	b, err := Encode(map[string]any{"name": "bob"})
	require.NoError(t, err)

	_, err = DecodeInto[decoderFixture](b)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "decoderFixture", de.Record)
	assert.Equal(t, "id", de.Field)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	b, err := Encode(map[string]any{
		"id":      int64(1),
		"name":    "bob",
		"active":  true,
		"tags":    []any{},
		"unknown": "ignored",
		"extra":   []any{int64(1), int64(2)},
	})
	require.NoError(t, err)

	out, err := DecodeInto[decoderFixture](b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
}

func TestDecodeTypeMismatchError(t *testing.T) {
	b, err := Encode("not an int")
	require.NoError(t, err)

	_, err = DecodeInto[int64](b)
	require.Error(t, err)
}

func TestDecodeTruncatedInputError(t *testing.T) {
	_, err := DecodeInto[int64](nil)
	require.Error(t, err)
}

func TestDecodeTrailingBytesError(t *testing.T) {
	b, err := Encode(int64(1))
	require.NoError(t, err)
	b = append(b, 0x00)

	_, err = DecodeInto[int64](b)
	require.Error(t, err)
}

func TestRoundTripOptionalPointer(t *testing.T) {
	type withOptional struct {
		Value *int `msgpack:"value"`
	}

	withNil := roundTrip(t, withOptional{})
	assert.Nil(t, withNil.Value)

	v := 5
	withValue := roundTrip(t, withOptional{Value: &v})
	require.NotNil(t, withValue.Value)
	assert.Equal(t, 5, *withValue.Value)
}

func TestRoundTripEnum(t *testing.T) {
	out := roundTrip(t, SuitHearts)
	assert.Equal(t, SuitHearts, out)
}

func TestRoundTripIntEnum(t *testing.T) {
	out := roundTrip(t, PriorityHigh)
	assert.Equal(t, PriorityHigh, out)
}

func TestDecodeInvalidEnumNameErrors(t *testing.T) {
	b, err := Encode("not-a-suit")
	require.NoError(t, err)

	_, err = DecodeInto[Suit](b)
	require.Error(t, err)
}

func TestRoundTripSet(t *testing.T) {
	type withSet struct {
		Tags Set[string] `msgpack:"tags"`
	}
	in := withSet{Tags: NewSet("a", "b", "c")}
	out := roundTrip(t, in)
	assert.ElementsMatch(t, in.Tags.Slice(), out.Tags.Slice())
}

func TestRoundTripFixedArray(t *testing.T) {
	in := [3]int{1, 2, 3}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestRoundTripByteArray(t *testing.T) {
	in := [4]byte{1, 2, 3, 4}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestRoundTripHeterogeneousTuple(t *testing.T) {
	in := schemaHeteroTuple{ID: 9, Name: "carol"}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}

func TestDecodeTupleLengthMismatchErrors(t *testing.T) {
	b, err := Encode([]any{int64(1)})
	require.NoError(t, err)

	_, err = DecodeInto[schemaHeteroTuple](b)
	require.Error(t, err)
}

func TestDecodeAnyUntyped(t *testing.T) {
	b, err := Encode(map[string]any{
		"n":   int64(1),
		"s":   "x",
		"arr": []any{int64(1), int64(2)},
	})
	require.NoError(t, err)

	out, err := Decode(b)
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), m["n"])
	assert.Equal(t, "x", m["s"])
	assert.Equal(t, []any{int64(1), int64(2)}, m["arr"])
}

func TestDecodeNestedRecords(t *testing.T) {
	type inner struct {
		Value int `msgpack:"value"`
	}
	type outer struct {
		Inner inner   `msgpack:"inner"`
		Ptr   *inner  `msgpack:"ptr"`
		List  []inner `msgpack:"list"`
	}

	in := outer{
		Inner: inner{Value: 1},
		Ptr:   &inner{Value: 2},
		List:  []inner{{Value: 3}, {Value: 4}},
	}
	out := roundTrip(t, in)
	assert.Equal(t, in, out)
}
