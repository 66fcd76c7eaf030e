package tagpack

import (
	"reflect"
	"unsafe"
)

// defaultMaxDepth bounds container/record recursion during both encode and
// decode, chosen generously relative to a typical goroutine's 8KB initial
// stack.
const defaultMaxDepth = 1000

// Encoder encodes Go values into MessagePack, reusing one growable output
// buffer across calls: one caller per Encoder at a time. A buffer grown
// past its steady-state size during one call is reallocated back to that
// size at the start of the next call.
type Encoder struct {
	buf      *outBuffer
	maxDepth int
}

// EncoderOption configures a new Encoder.
type EncoderOption func(*Encoder)

// WithBufferSize sets the steady-state output buffer capacity; values
// below 32 are raised to 32.
func WithBufferSize(n int) EncoderOption {
	return func(e *Encoder) { e.buf = newOutBuffer(n) }
}

// WithMaxDepth overrides the recursion-depth guard.
func WithMaxDepth(n int) EncoderOption {
	return func(e *Encoder) { e.maxDepth = n }
}

// NewEncoder constructs an Encoder with a default 4096-byte buffer hint.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{buf: newOutBuffer(defaultBufferSize), maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode serializes value to MessagePack bytes. The returned slice is
// always a fresh copy, never an alias into the Encoder's internal buffer,
// so a subsequent Encode call cannot mutate bytes the caller still holds.
func (e *Encoder) Encode(value any) (out []byte, err error) {
	e.buf.reset()

	defer func() {
		if r := recover(); r != nil {
			ee, ok := r.(*EncodeError)
			if !ok {
				panic(r)
			}
			out, err = nil, ee
		}
	}()

	encodeAny(e.buf, value, 0, e.maxDepth)

	result := make([]byte, len(e.buf.bytes))
	copy(result, e.buf.bytes)
	return result, nil
}

// Encode is the package-level one-shot form of Encoder.Encode, constructing
// a throwaway Encoder with default settings.
func Encode(value any) ([]byte, error) {
	return NewEncoder().Encode(value)
}

func enterDepth(depth, max int) {
	if depth > max {
		panic(newEncodeError("max depth exceeded (%d)", max))
	}
}

// encodeAny dispatches on value's runtime type and emits the corresponding
// MessagePack token(s). It panics with *EncodeError on failure;
// Encoder.Encode recovers that at the call boundary, so a deeply nested
// failure doesn't need an error return threaded through every recursive
// call.
func encodeAny(buf *outBuffer, value any, depth, maxDepth int) {
	enterDepth(depth, maxDepth)

	if value == nil {
		appendNil(buf)
		return
	}

	v := reflect.ValueOf(value)

	// Skip the EnumValue shortcut for a nil pointer; encodeReflect
	// encodes that as nil (see the note there).
	if ev, ok := value.(EnumValue); ok && (v.Kind() != reflect.Pointer || !v.IsNil()) {
		encodeEnumValue(buf, ev)
		return
	}

	encodeReflect(buf, v, depth, maxDepth)
}

func encodeReflect(buf *outBuffer, v reflect.Value, depth, maxDepth int) {
	enterDepth(depth, maxDepth)

	if !v.IsValid() {
		appendNil(buf)
		return
	}

	// Pointer/interface nil must be checked before the EnumValue assertion:
	// a nil *T where T's EnumValue methods have value receivers still
	// satisfies the EnumValue interface, and calling through it would
	// dereference the nil pointer.
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			appendNil(buf)
			return
		}
		encodeReflect(buf, v.Elem(), depth, maxDepth)
		return
	}

	if ev, ok := v.Interface().(EnumValue); ok {
		encodeEnumValue(buf, ev)
		return
	}

	switch v.Kind() {
	case reflect.Bool:
		appendBool(buf, v.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		appendMsgpackInt(buf, v.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		appendMsgpackUintValue(buf, v.Uint())

	case reflect.Float32, reflect.Float64:
		appendFloat64(buf, v.Float())

	case reflect.String:
		appendStr(buf, v.String())

	case reflect.Slice, reflect.Array:
		encodeSliceOrArray(buf, v, depth, maxDepth)

	case reflect.Map:
		if isSetType(v.Type()) {
			encodeSet(buf, v, depth, maxDepth)
			return
		}
		encodeMap(buf, v, depth, maxDepth)

	case reflect.Struct:
		if v.Type().Implements(tupleMarkerType) {
			encodeTupleStruct(buf, v, depth, maxDepth)
			return
		}
		encodeRecord(buf, v, depth, maxDepth)

	default:
		panic(newEncodeError("unsupported value type %s", v.Type()))
	}
}

func encodeEnumValue(buf *outBuffer, ev EnumValue) {
	if ie, ok := ev.(IntEnumValue); ok {
		appendMsgpackInt(buf, ie.EnumOrdinal())
		return
	}
	appendStr(buf, ev.EnumName())
}

func encodeSliceOrArray(buf *outBuffer, v reflect.Value, depth, maxDepth int) {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		if v.Kind() == reflect.Slice {
			appendBin(buf, v.Bytes())
			return
		}
		// fixed-size byte array (ByteArray schema code): v isn't
		// addressable/a slice, so copy its elements out by hand rather
		// than relying on Value.Bytes (which requires a slice or an
		// addressable array).
		n := v.Len()
		raw := make([]byte, n)
		for i := 0; i < n; i++ {
			raw[i] = byte(v.Index(i).Uint())
		}
		appendBin(buf, raw)
		return
	}

	n := v.Len()
	appendArrayHeader(buf, n)
	for i := 0; i < n; i++ {
		encodeReflect(buf, v.Index(i), depth+1, maxDepth)
	}
}

func encodeSet(buf *outBuffer, v reflect.Value, depth, maxDepth int) {
	keys := v.MapKeys()
	appendArrayHeader(buf, len(keys))
	for _, k := range keys {
		encodeReflect(buf, k, depth+1, maxDepth)
	}
}

func encodeMap(buf *outBuffer, v reflect.Value, depth, maxDepth int) {
	keys := v.MapKeys()
	appendMapHeader(buf, len(keys))
	for _, k := range keys {
		encodeReflect(buf, k, depth+1, maxDepth)
		encodeReflect(buf, v.MapIndex(k), depth+1, maxDepth)
	}
}

func encodeRecord(buf *outBuffer, v reflect.Value, depth, maxDepth int) {
	d := descriptorFor(v.Type())
	base := addressableBase(v)

	appendMapHeader(buf, len(d.fields))
	for i, name := range d.fields {
		appendStr(buf, name)
		encodeReflect(buf, d.fieldValue(base, i), depth+1, maxDepth)
	}
}

// encodeTupleStruct encodes a TupleMarker struct as a plain array: its
// descriptor fields in declaration order, with no field-name keys.
func encodeTupleStruct(buf *outBuffer, v reflect.Value, depth, maxDepth int) {
	d := descriptorFor(v.Type())
	base := addressableBase(v)

	appendArrayHeader(buf, len(d.fields))
	for i := range d.fields {
		encodeReflect(buf, d.fieldValue(base, i), depth+1, maxDepth)
	}
}

// addressableBase returns an unsafe.Pointer to v's backing storage,
// copying v into a fresh addressable value first if it isn't already
// addressable (e.g. it arrived boxed in an interface).
func addressableBase(v reflect.Value) unsafe.Pointer {
	if v.CanAddr() {
		return unsafe.Pointer(v.UnsafeAddr())
	}
	addressable := reflect.New(v.Type()).Elem()
	addressable.Set(v)
	return unsafe.Pointer(addressable.UnsafeAddr())
}

// --- token emitters -------------------------------------------------------

func appendNil(buf *outBuffer) {
	_ = buf.appendByte(0xc0)
}

func appendBool(buf *outBuffer, v bool) {
	if v {
		_ = buf.appendByte(0xc3)
	} else {
		_ = buf.appendByte(0xc2)
	}
}

func appendMsgpackInt(buf *outBuffer, v int64) {
	if v >= 0 {
		appendMsgpackUintValue(buf, uint64(v))
		return
	}
	switch {
	case v >= -32:
		_ = buf.appendByte(byte(int8(v)))
	case v >= -128:
		_ = buf.appendByte(0xd0)
		_ = buf.appendByte(byte(int8(v)))
	case v >= -32768:
		_ = buf.appendByte(0xd1)
		_ = buf.appendUint16(uint16(int16(v)))
	case v >= -(1 << 31):
		_ = buf.appendByte(0xd2)
		_ = buf.appendUint32(uint32(int32(v)))
	default:
		_ = buf.appendByte(0xd3)
		_ = buf.appendUint64(uint64(v))
	}
}

func appendMsgpackUintValue(buf *outBuffer, v uint64) {
	switch {
	case v < 128:
		_ = buf.appendByte(byte(v))
	case v < 256:
		_ = buf.appendByte(0xcc)
		_ = buf.appendByte(byte(v))
	case v < 65536:
		_ = buf.appendByte(0xcd)
		_ = buf.appendUint16(uint16(v))
	case v < 1<<32:
		_ = buf.appendByte(0xce)
		_ = buf.appendUint32(uint32(v))
	default:
		_ = buf.appendByte(0xcf)
		_ = buf.appendUint64(v)
	}
}

func appendFloat64(buf *outBuffer, v float64) {
	_ = buf.appendByte(0xcb)
	_ = buf.appendUint64(*(*uint64)(unsafe.Pointer(&v)))
}

func appendStr(buf *outBuffer, s string) {
	l := len(s)
	switch {
	case l < 32:
		_ = buf.appendByte(0xa0 | byte(l))
	case l < 256:
		_ = buf.appendByte(0xd9)
		_ = buf.appendByte(byte(l))
	case l < 65536:
		_ = buf.appendByte(0xda)
		_ = buf.appendUint16(uint16(l))
	case uint64(l) < 1<<32:
		_ = buf.appendByte(0xdb)
		_ = buf.appendUint32(uint32(l))
	default:
		panic(newEncodeError("string of length %d exceeds maximum encodable length", l))
	}
	_ = buf.appendString(s)
}

func appendBin(buf *outBuffer, b []byte) {
	l := len(b)
	switch {
	case l < 256:
		_ = buf.appendByte(0xc4)
		_ = buf.appendByte(byte(l))
	case l < 65536:
		_ = buf.appendByte(0xc5)
		_ = buf.appendUint16(uint16(l))
	case uint64(l) < 1<<32:
		_ = buf.appendByte(0xc6)
		_ = buf.appendUint32(uint32(l))
	default:
		panic(newEncodeError("bytes of length %d exceeds maximum encodable length", l))
	}
	_ = buf.appendBytes(b)
}

func appendArrayHeader(buf *outBuffer, n int) {
	switch {
	case n < 16:
		_ = buf.appendByte(0x90 | byte(n))
	case n < 65536:
		_ = buf.appendByte(0xdc)
		_ = buf.appendUint16(uint16(n))
	default:
		_ = buf.appendByte(0xdd)
		_ = buf.appendUint32(uint32(n))
	}
}

func appendMapHeader(buf *outBuffer, n int) {
	switch {
	case n < 16:
		_ = buf.appendByte(0x80 | byte(n))
	case n < 65536:
		_ = buf.appendByte(0xde)
		_ = buf.appendUint16(uint16(n))
	default:
		_ = buf.appendByte(0xdf)
		_ = buf.appendUint32(uint32(n))
	}
}
