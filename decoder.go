package tagpack

import (
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
	"unsafe"
)

// decoderSettings carries the handful of knobs a Decoder[T] accepts, kept
// separate from Decoder itself so DecoderOption doesn't need to close over
// a type parameter.
type decoderSettings struct {
	maxDepth int
}

// DecoderOption configures a new Decoder[T].
type DecoderOption func(*decoderSettings)

// WithDecoderMaxDepth overrides the recursion-depth guard used while
// decoding.
func WithDecoderMaxDepth(n int) DecoderOption {
	return func(s *decoderSettings) { s.maxDepth = n }
}

// Decoder validates and materializes MessagePack bytes against T's schema:
// T's shape is walked once via buildSchema and cached on the Decoder, so
// repeated Decode calls reuse the same schema plan instead of rebuilding
// it by reflection each time.
type Decoder[T any] struct {
	typ      reflect.Type
	node     Node
	maxDepth int
}

// NewDecoder builds a Decoder for T, walking T's shape into a schema Node
// once up front.
func NewDecoder[T any](opts ...DecoderOption) *Decoder[T] {
	s := decoderSettings{maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&s)
	}
	t := reflect.TypeFor[T]()
	return &Decoder[T]{typ: t, node: buildSchema(t), maxDepth: s.maxDepth}
}

// Decode validates data against T's schema and materializes a T.
// Internal validation failures panic with *DecodeError deep inside the
// recursive walk; Decode recovers exactly that type at this single
// boundary and returns it as an error, matching inReader's documented
// convention.
func (d *Decoder[T]) Decode(data []byte) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*DecodeError)
			if !ok {
				panic(r)
			}
			var zero T
			out, err = zero, de
		}
	}()

	r := newInReader(data)
	dst := reflect.New(d.typ).Elem()
	decodeInto(&r, dst, d.node, 0, d.maxDepth)

	if !r.atEnd() {
		panic(newDecodeError("trailing data after value: %d unread byte(s)", r.remaining()))
	}

	// comma-ok form: for an interface T holding a decoded nil, the
	// single-value assertion would panic; this yields T's zero value.
	out, _ = dst.Interface().(T)
	return out, nil
}

// Decode is the package-level one-shot untyped decode, returning native Go
// values (nil, bool, int64/uint64, float64, string, []byte, []any,
// map[string]any).
func Decode(data []byte) (any, error) {
	return NewDecoder[any]().Decode(data)
}

// DecodeInto is the package-level one-shot typed decode.
func DecodeInto[T any](data []byte) (T, error) {
	return NewDecoder[T]().Decode(data)
}

// decodeInto reads one value for node from r into dst, handling the
// universal optional/null rule up front (every schema node may decode a
// wire nil as its zero value when Optional) before dispatching on code.
func decodeInto(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	enterDecodeDepth(depth, maxDepth)

	if node.Optional && r.peekByte() == 0xc0 {
		r.readByte()
		dst.Set(reflect.Zero(dst.Type()))
		return
	}

	if dst.Kind() == reflect.Pointer {
		dst.Set(reflect.New(dst.Type().Elem()))
		decodeIntoNonOptional(r, dst.Elem(), node, depth, maxDepth)
		return
	}

	decodeIntoNonOptional(r, dst, node, depth, maxDepth)
}

// enterDecodeDepth is the decode-side recursion guard. It panics with a
// *DecodeError so that Decoder.Decode recovers it and returns it as an error.
func enterDecodeDepth(depth, max int) {
	if depth > max {
		panic(newDecodeError("max depth exceeded (%d)", max))
	}
}

func decodeIntoNonOptional(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	switch node.Code {
	case CodeAny:
		v := decodeAnyValue(r, depth, maxDepth)
		if v == nil {
			dst.Set(reflect.Zero(dst.Type()))
		} else {
			dst.Set(reflect.ValueOf(v))
		}

	case CodeNone:
		b := r.readByte()
		if b != 0xc0 {
			panic(newDecodeError("%s", expectedGot("None", tokenName(b))))
		}

	case CodeBool:
		switch b := r.readByte(); b {
		case 0xc2:
			dst.SetBool(false)
		case 0xc3:
			dst.SetBool(true)
		default:
			panic(newDecodeError("%s", expectedGot("bool", tokenName(b))))
		}

	case CodeInt:
		decodeIntField(r, dst)

	case CodeFloat:
		decodeFloatField(r, dst)

	case CodeStr:
		dst.SetString(decodeStrToken(r))

	case CodeBytes:
		dst.SetBytes(decodeBinToken(r))

	case CodeByteArray:
		decodeByteArrayField(r, dst, node)

	case CodeEnum:
		decodeEnumField(r, dst, node)

	case CodeIntEnum:
		decodeIntEnumField(r, dst, node)

	case CodeRecord:
		decodeRecordField(r, dst, node, depth, maxDepth)

	case CodeList, CodeVarTuple:
		decodeListField(r, dst, node, depth, maxDepth)

	case CodeSet:
		decodeSetField(r, dst, node, depth, maxDepth)

	case CodeFixTuple:
		decodeFixTupleField(r, dst, node, depth, maxDepth)

	case CodeDict:
		decodeDictField(r, dst, node, depth, maxDepth)

	default:
		panic(newDecodeError("unsupported schema code %s", node.Code))
	}
}

// --- scalar token readers --------------------------------------------------

// decodeIntRaw reads an integer token and returns its value either as a
// signed int64 (asUint == false) or, for the rare uint64 magnitude beyond
// int64's range, as the raw magnitude with asUint == true.
func decodeIntRaw(r *inReader) (value int64, big uint64, asUint bool) {
	b := r.readByte()
	switch {
	case b < 0x80:
		return int64(b), 0, false
	case b >= 0xe0:
		return int64(int8(b)), 0, false
	case b == 0xd0:
		return int64(r.readInt8()), 0, false
	case b == 0xd1:
		return int64(r.readInt16()), 0, false
	case b == 0xd2:
		return int64(r.readInt32()), 0, false
	case b == 0xd3:
		return r.readInt64(), 0, false
	case b == 0xcc:
		return int64(r.readUint8()), 0, false
	case b == 0xcd:
		return int64(r.readUint16()), 0, false
	case b == 0xce:
		return int64(r.readUint32()), 0, false
	case b == 0xcf:
		u := r.readUint64()
		if u > math.MaxInt64 {
			return 0, u, true
		}
		return int64(u), 0, false
	default:
		panic(newDecodeError("%s", expectedGot("int", tokenName(b))))
	}
}

func decodeIntField(r *inReader, dst reflect.Value) {
	value, big, asUint := decodeIntRaw(r)

	switch dst.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if asUint {
			if !fitsUnsignedKind(dst.Kind(), big) {
				panic(newDecodeError("integer %d overflows %s", big, dst.Kind()))
			}
			dst.SetUint(big)
			return
		}
		if value < 0 {
			panic(newDecodeError("expected non-negative integer, got %d", value))
		}
		if !fitsUnsignedKind(dst.Kind(), uint64(value)) {
			panic(newDecodeError("integer %d overflows %s", value, dst.Kind()))
		}
		dst.SetUint(uint64(value))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if asUint {
			panic(newDecodeError("integer %d overflows %s", big, dst.Kind()))
		}
		if !fitsSignedKind(dst.Kind(), value) {
			panic(newDecodeError("integer %d overflows %s", value, dst.Kind()))
		}
		dst.SetInt(value)

	default:
		panic(newDecodeError("internal: int schema node targets non-integer field"))
	}
}

func fitsSignedKind(k reflect.Kind, v int64) bool {
	switch k {
	case reflect.Int8:
		return v >= -128 && v <= 127
	case reflect.Int16:
		return v >= -32768 && v <= 32767
	case reflect.Int32:
		return v >= -(1<<31) && v <= (1<<31)-1
	default:
		return true
	}
}

func fitsUnsignedKind(k reflect.Kind, v uint64) bool {
	switch k {
	case reflect.Uint8:
		return v <= 255
	case reflect.Uint16:
		return v <= 65535
	case reflect.Uint32:
		return v <= 4294967295
	default:
		return true
	}
}

// decodeFloatField accepts an integer token too, widening it to float64:
// a schema declaring float is satisfied by an encoded int the same way
// Go itself allows an untyped int constant where a float is expected.
func decodeFloatField(r *inReader, dst reflect.Value) {
	switch b := r.peekByte(); b {
	case 0xca:
		r.readByte()
		dst.SetFloat(float64(math.Float32frombits(r.readUint32())))
	case 0xcb:
		r.readByte()
		dst.SetFloat(math.Float64frombits(r.readUint64()))
	default:
		if isIntToken(b) {
			value, big, asUint := decodeIntRaw(r)
			if asUint {
				dst.SetFloat(float64(big))
				return
			}
			dst.SetFloat(float64(value))
			return
		}
		r.readByte()
		panic(newDecodeError("%s", expectedGot("float", tokenName(b))))
	}
}

// isIntToken reports whether b is a valid MessagePack integer prefix byte.
func isIntToken(b byte) bool {
	switch {
	case b < 0x80, b >= 0xe0:
		return true
	case b >= 0xcc && b <= 0xcf:
		return true
	case b >= 0xd0 && b <= 0xd3:
		return true
	default:
		return false
	}
}

func decodeStrToken(r *inReader) string {
	b := r.readByte()
	var n int
	switch {
	case b >= 0xa0 && b <= 0xbf:
		n = int(b & 0x1f)
	case b == 0xd9:
		n = int(r.readUint8())
	case b == 0xda:
		n = int(r.readUint16())
	case b == 0xdb:
		n = int(r.readUint32())
	default:
		panic(newDecodeError("%s", expectedGot("str", tokenName(b))))
	}

	raw := r.readN(n)
	if !utf8.Valid(raw) {
		panic(newDecodeError("string is not valid UTF-8"))
	}
	return string(raw)
}

func decodeBinToken(r *inReader) []byte {
	b := r.readByte()
	var n int
	switch b {
	case 0xc4:
		n = int(r.readUint8())
	case 0xc5:
		n = int(r.readUint16())
	case 0xc6:
		n = int(r.readUint32())
	default:
		panic(newDecodeError("%s", expectedGot("bytes", tokenName(b))))
	}

	raw := r.readN(n)
	out := make([]byte, n)
	copy(out, raw)
	return out
}

func readArrayHeader(r *inReader) int {
	b := r.readByte()
	switch {
	case b >= 0x90 && b <= 0x9f:
		return int(b & 0x0f)
	case b == 0xdc:
		return int(r.readUint16())
	case b == 0xdd:
		return int(r.readUint32())
	default:
		panic(newDecodeError("%s", expectedGot("array", tokenName(b))))
	}
}

func readMapHeader(r *inReader) int {
	b := r.readByte()
	switch {
	case b >= 0x80 && b <= 0x8f:
		return int(b & 0x0f)
	case b == 0xde:
		return int(r.readUint16())
	case b == 0xdf:
		return int(r.readUint32())
	default:
		panic(newDecodeError("%s", expectedGot("map", tokenName(b))))
	}
}

// --- composite fields -------------------------------------------------------

func decodeByteArrayField(r *inReader, dst reflect.Value, node Node) {
	raw := decodeBinToken(r)
	n := node.Type.Len()
	if len(raw) != n {
		panic(newDecodeError("%s", expectedGotLength(n, len(raw))))
	}
	reflect.Copy(dst, reflect.ValueOf(raw))
}

func decodeEnumField(r *inReader, dst reflect.Value, node Node) {
	name := decodeStrToken(r)
	et, ok := asEnumType(node.Type)
	if !ok {
		panic(newDecodeError("enum type %s does not implement EnumType", node.Type))
	}
	v, ok := et.LookupEnumName(name)
	if !ok {
		panic(newDecodeError("invalid name %q for enum %s", name, node.Type))
	}
	dst.Set(reflect.ValueOf(v))
}

func decodeIntEnumField(r *inReader, dst reflect.Value, node Node) {
	value, big, asUint := decodeIntRaw(r)
	if asUint {
		panic(newDecodeError("ordinal %d overflows int64", big))
	}
	it, ok := asIntEnumType(node.Type)
	if !ok {
		panic(newDecodeError("intenum type %s does not implement IntEnumType", node.Type))
	}
	v, ok := it.LookupEnumOrdinal(value)
	if !ok {
		panic(newDecodeError("invalid ordinal %d for intenum %s", value, node.Type))
	}
	dst.Set(reflect.ValueOf(v))
}

// asEnumType reports whether t (or *t) implements EnumType, trying the
// value receiver first. The lookup is taken from a zero value of the
// field's own declared type, so that type must carry the lookup method.
func asEnumType(t reflect.Type) (EnumType, bool) {
	if et, ok := reflect.New(t).Elem().Interface().(EnumType); ok {
		return et, true
	}
	if et, ok := reflect.New(t).Interface().(EnumType); ok {
		return et, true
	}
	return nil, false
}

func asIntEnumType(t reflect.Type) (IntEnumType, bool) {
	if it, ok := reflect.New(t).Elem().Interface().(IntEnumType); ok {
		return it, true
	}
	if it, ok := reflect.New(t).Interface().(IntEnumType); ok {
		return it, true
	}
	return nil, false
}

func decodeRecordField(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	n := readMapHeader(r)
	d := descriptorFor(node.Type)
	base := unsafe.Pointer(dst.UnsafeAddr())

	seen := make([]bool, len(d.fields))
	cursor := 0

	for i := 0; i < n; i++ {
		key := decodeStrToken(r)
		idx, ok := d.indexOf(key, cursor)
		if !ok {
			skipValue(r, depth+1, maxDepth)
			continue
		}
		decodeRecordFieldValue(r, d, base, idx, depth, maxDepth)
		seen[idx] = true
		cursor = idx + 1
	}

	for i, ok := range seen {
		if ok {
			continue
		}
		if d.required[i] {
			panic(newDecodeError("missing required field").withField(d.name(), d.fields[i]))
		}
		d.fillDefault(base, i)
	}
}

// decodeRecordFieldValue relabels any *DecodeError raised while decoding
// field i with this record's name and the field's name, as it unwinds.
func decodeRecordFieldValue(r *inReader, d *descriptor, base unsafe.Pointer, idx, depth, maxDepth int) {
	defer func() {
		if rec := recover(); rec != nil {
			if de, ok := rec.(*DecodeError); ok {
				panic(de.withField(d.name(), d.fields[idx]))
			}
			panic(rec)
		}
	}()
	decodeInto(r, d.fieldValue(base, idx), d.types[idx], depth+1, maxDepth)
}

func decodeListField(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	n := readArrayHeader(r)
	dst.Set(reflect.MakeSlice(dst.Type(), n, n))
	for i := 0; i < n; i++ {
		decodeInto(r, dst.Index(i), *node.Elem, depth+1, maxDepth)
	}
}

func decodeSetField(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	n := readArrayHeader(r)
	dst.Set(reflect.MakeMapWithSize(dst.Type(), n))
	elemType := dst.Type().Key()
	for i := 0; i < n; i++ {
		kv := reflect.New(elemType).Elem()
		decodeInto(r, kv, *node.Elem, depth+1, maxDepth)
		dst.SetMapIndex(kv, reflect.ValueOf(struct{}{}))
	}
}

func decodeFixTupleField(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	n := readArrayHeader(r)

	if dst.Kind() == reflect.Struct {
		decodeTupleStructFields(r, dst, node, n, depth, maxDepth)
		return
	}

	if n != len(node.Elems) {
		panic(newDecodeError("%s", expectedGotLength(len(node.Elems), n)))
	}
	for i := 0; i < n; i++ {
		decodeInto(r, dst.Index(i), node.Elems[i], depth+1, maxDepth)
	}
}

// decodeTupleStructFields decodes a TupleMarker struct's n wire slots
// positionally into its descriptor fields, in declaration order. The
// descriptor (and its per-slot schema) is resolved lazily here rather
// than carried on node, matching schema.buildSchema's deferral.
func decodeTupleStructFields(r *inReader, dst reflect.Value, node Node, n, depth, maxDepth int) {
	d := descriptorFor(node.Type)
	if n != len(d.types) {
		panic(newDecodeError("%s", expectedGotLength(len(d.types), n)))
	}
	base := unsafe.Pointer(dst.UnsafeAddr())
	for i := range d.types {
		decodeInto(r, d.fieldValue(base, i), d.types[i], depth+1, maxDepth)
	}
}

func decodeDictField(r *inReader, dst reflect.Value, node Node, depth, maxDepth int) {
	n := readMapHeader(r)
	dst.Set(reflect.MakeMapWithSize(dst.Type(), n))
	kt, vt := dst.Type().Key(), dst.Type().Elem()
	for i := 0; i < n; i++ {
		kv := reflect.New(kt).Elem()
		decodeInto(r, kv, *node.Key, depth+1, maxDepth)
		vv := reflect.New(vt).Elem()
		decodeInto(r, vv, *node.Value, depth+1, maxDepth)
		dst.SetMapIndex(kv, vv)
	}
}

// --- untyped Any decode -----------------------------------------------------

// decodeAnyValue decodes one value with no schema guidance, producing the
// native Go value closest to the wire token: nil, bool, int64/uint64,
// float64, string, []byte, []any, or map[string]any.
func decodeAnyValue(r *inReader, depth, maxDepth int) any {
	enterDecodeDepth(depth, maxDepth)
	b := r.peekByte()

	switch {
	case b == 0xc0:
		r.readByte()
		return nil

	case b == 0xc2:
		r.readByte()
		return false

	case b == 0xc3:
		r.readByte()
		return true

	case b == 0xca || b == 0xcb:
		r.readByte()
		if b == 0xca {
			return float64(math.Float32frombits(r.readUint32()))
		}
		return math.Float64frombits(r.readUint64())

	case (b >= 0xa0 && b <= 0xbf) || b == 0xd9 || b == 0xda || b == 0xdb:
		return decodeStrToken(r)

	case b == 0xc4 || b == 0xc5 || b == 0xc6:
		return decodeBinToken(r)

	case (b >= 0x90 && b <= 0x9f) || b == 0xdc || b == 0xdd:
		n := readArrayHeader(r)
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = decodeAnyValue(r, depth+1, maxDepth)
		}
		return out

	case (b >= 0x80 && b <= 0x8f) || b == 0xde || b == 0xdf:
		n := readMapHeader(r)
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			k := decodeStrToken(r)
			out[k] = decodeAnyValue(r, depth+1, maxDepth)
		}
		return out

	case b < 0x80 || b >= 0xe0 || b == 0xd0 || b == 0xd1 || b == 0xd2 || b == 0xd3 ||
		b == 0xcc || b == 0xcd || b == 0xce || b == 0xcf:
		value, big, asUint := decodeIntRaw(r)
		if asUint {
			return big
		}
		return value

	default:
		panic(newDecodeError("unrecognized wire tag 0x%02x", b))
	}
}

func skipValue(r *inReader, depth, maxDepth int) {
	_ = decodeAnyValue(r, depth, maxDepth)
}

// tokenName classifies a MessagePack prefix byte for error messages.
func tokenName(b byte) string {
	switch {
	case b == 0xc0:
		return "nil"
	case b == 0xc2 || b == 0xc3:
		return "bool"
	case b == 0xca || b == 0xcb:
		return "float"
	case (b >= 0xa0 && b <= 0xbf) || b == 0xd9 || b == 0xda || b == 0xdb:
		return "str"
	case b == 0xc4 || b == 0xc5 || b == 0xc6:
		return "bytes"
	case (b >= 0x90 && b <= 0x9f) || b == 0xdc || b == 0xdd:
		return "array"
	case (b >= 0x80 && b <= 0x8f) || b == 0xde || b == 0xdf:
		return "map"
	case b < 0x80 || b >= 0xe0 || b == 0xd0 || b == 0xd1 || b == 0xd2 || b == 0xd3 ||
		b == 0xcc || b == 0xcd || b == 0xce || b == 0xcf:
		return "int"
	default:
		return fmt.Sprintf("tag 0x%02x", b)
	}
}
