package tagpack

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	deepcopy "github.com/tiendc/go-deepcopy"
)

const structTag = "msgpack"

// descriptor is a record's field/default/offset/schema table: a struct-tag
// driven field list, default list, per-field storage offsets, and the
// attached schema array, built once per struct type and cached. Go has no
// __init__ to override, so there is no custom constructor dispatch — the
// decoder fills a zero-valued T field by field instead.
type descriptor struct {
	typ         reflect.Type
	fields      []string
	offsets     []uintptr
	types       []Node
	fieldGoType []reflect.Type
	required    []bool
	defaults    []reflect.Value // zero Value when required[i]
	immut       []bool          // true when defaults[i] is a known-immutable value, safe to share by identity
}

var descriptorCache sync.Map // reflect.Type -> *descriptor

var (
	defaultRegistryMu sync.Mutex
	defaultRegistry   = map[reflect.Type]map[string]reflect.Value{}
)

// RegisterDefault installs value as the default for the field named field
// on record type Rec. Use it for defaults a struct tag literal can't
// express: a non-empty slice or map, a non-nil pointer, or a populated
// struct. The field's tag must still mark it optional (e.g.
// `msgpack:"tags,default="`); the literal after '=' is ignored once a
// registered default exists for that field.
//
// RegisterDefault must run before Rec's descriptor is built — normally
// from an init func — since descriptorFor caches the resolved defaults
// the first time Rec is encoded or decoded.
func RegisterDefault[Rec any](field string, value any) {
	t := reflect.TypeFor[Rec]()
	v := reflect.ValueOf(value)

	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	byField, ok := defaultRegistry[t]
	if !ok {
		byField = make(map[string]reflect.Value)
		defaultRegistry[t] = byField
	}
	byField[field] = v
}

// registeredDefault looks up a RegisterDefault-installed value for t.field,
// if any.
func registeredDefault(t reflect.Type, field string) (reflect.Value, bool) {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	byField, ok := defaultRegistry[t]
	if !ok {
		return reflect.Value{}, false
	}
	v, ok := byField[field]
	return v, ok
}

// descriptorFor returns the cached descriptor for t, building it on first
// use. Concurrent first-use from multiple goroutines is safe: LoadOrStore
// ensures exactly one descriptor per type is installed; a goroutine that
// loses the race discards the one it built.
func descriptorFor(t reflect.Type) *descriptor {
	if v, ok := descriptorCache.Load(t); ok {
		return v.(*descriptor)
	}
	d := buildDescriptor(t)
	actual, _ := descriptorCache.LoadOrStore(t, d)
	return actual.(*descriptor)
}

func buildDescriptor(t reflect.Type) *descriptor {
	if t.Kind() != reflect.Struct {
		panic(newError("type %s is not a struct", t.String()))
	}

	d := &descriptor{typ: t}
	seen := make(map[string]bool)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		rawTag, ok := f.Tag.Lookup(structTag)
		if !ok {
			continue
		}

		name, opts := parseFieldTag(rawTag)
		if name == "" {
			name = f.Name
		}
		if name == "-" {
			continue
		}

		if seen[name] {
			panic(newError("duplicate field name %q on %s", name, t.String()))
		}
		seen[name] = true

		node := buildSchema(f.Type)

		d.fields = append(d.fields, name)
		d.offsets = append(d.offsets, f.Offset)
		d.types = append(d.types, node)
		d.fieldGoType = append(d.fieldGoType, f.Type)

		if defLit, hasDefault := opts["default"]; hasDefault {
			defVal, ok := registeredDefault(t, name)
			if ok {
				if !defVal.Type().AssignableTo(f.Type) {
					panic(newError("registered default for %s.%s has type %s, want %s",
						t.String(), name, defVal.Type(), f.Type))
				}
			} else {
				defVal = parseDefaultLiteral(f.Type, defLit)
			}
			d.required = append(d.required, false)
			d.defaults = append(d.defaults, defVal)
			d.immut = append(d.immut, isImmutableValue(f.Type, defVal))
		} else {
			d.required = append(d.required, true)
			d.defaults = append(d.defaults, reflect.Value{})
			d.immut = append(d.immut, true)
		}
	}

	return d
}

// fieldPointer returns an unsafe.Pointer to field i's storage inside the
// struct addressed by base.
func (d *descriptor) fieldPointer(base unsafe.Pointer, i int) unsafe.Pointer {
	return unsafe.Add(base, d.offsets[i])
}

// fieldValue returns an addressable reflect.Value for field i's storage
// inside the struct addressed by base.
func (d *descriptor) fieldValue(base unsafe.Pointer, i int) reflect.Value {
	return reflect.NewAt(d.fieldGoType[i], d.fieldPointer(base, i)).Elem()
}

// name returns the record's display name for error messages.
func (d *descriptor) name() string {
	if d.typ.Name() != "" {
		return d.typ.Name()
	}
	return d.typ.String()
}

// indexOf resolves a decoded field name to its index, starting the linear
// search from start and wrapping around — a rotating-cursor lookup giving
// O(1) amortized resolution when keys arrive in declaration order, without
// requiring a hash table.
func (d *descriptor) indexOf(name string, start int) (int, bool) {
	n := len(d.fields)
	if n == 0 {
		return 0, false
	}
	for off := 0; off < n; off++ {
		i := (start + off) % n
		if d.fields[i] == name {
			return i, true
		}
	}
	return 0, false
}

// fillDefault materializes field i's default value into the struct
// addressed by base: mutable defaults are deep-copied per instance,
// immutable defaults and empty mutable containers take a fast path,
// everything else goes through deepcopy.Copy.
func (d *descriptor) fillDefault(base unsafe.Pointer, i int) {
	def := d.defaults[i]
	if !def.IsValid() {
		return // required field; caller already raised a missing-field error
	}

	fv := reflect.NewAt(d.fieldGoType[i], d.fieldPointer(base, i)).Elem()

	if d.immut[i] {
		fv.Set(def)
		return
	}

	switch def.Kind() {
	case reflect.Slice:
		if def.Len() == 0 {
			fv.Set(reflect.MakeSlice(def.Type(), 0, 0))
			return
		}
	case reflect.Map:
		if def.Len() == 0 {
			fv.Set(reflect.MakeMap(def.Type()))
			return
		}
	}

	dst := reflect.New(def.Type())
	if err := deepcopy.Copy(dst.Interface(), def.Interface()); err != nil {
		// deep copy of a well-formed default value cannot fail in
		// practice; fall back to sharing rather than losing the field.
		fv.Set(def)
		return
	}
	fv.Set(dst.Elem())
}

// parseFieldTag splits a struct tag body ("name,opt1,opt2=val") into the
// field name and an options map, generalized to key=value options so a
// default literal can ride alongside boolean flags.
func parseFieldTag(tag string) (string, map[string]string) {
	parts := strings.Split(tag, ",")
	name := parts[0]
	opts := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			opts[p[:eq]] = p[eq+1:]
		} else if p != "" {
			opts[p] = ""
		}
	}
	return name, opts
}

// parseDefaultLiteral parses a tag-supplied default literal against the
// field's Go type. Supported literals: true/false for bool, decimal
// integers/floats for numeric kinds, and bare text for string (quoting is
// not required or interpreted — the literal after '=' up to the next
// comma is taken verbatim).
func parseDefaultLiteral(t reflect.Type, lit string) reflect.Value {
	v := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(lit == "true")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(lit, 10, 64)
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(lit, 10, 64)
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(lit, 64)
		v.SetFloat(f)
	case reflect.String:
		v.SetString(lit)
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Struct, reflect.Array:
		// zero value (nil slice/map/pointer, zero struct/array) is the
		// only literal these kinds support via a tag string; a non-empty
		// composite default must go through RegisterDefault instead.
	}
	return v
}

// isImmutableValue classifies a "known-immutable" default value: one safe
// to share a default by identity across instances rather than
// deep-copy. Go's value-kind primitives (bool, numeric, string) are
// already copied by value on assignment, so they are trivially immutable
// for this purpose, as are arrays. A nil slice, map or pointer is shared;
// a non-nil one, and any struct that is not an EnumValue, is deep-copied.
func isImmutableValue(t reflect.Type, v reflect.Value) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String, reflect.Array:
		return true
	case reflect.Slice, reflect.Map, reflect.Pointer:
		return !v.IsValid() || v.IsNil()
	case reflect.Struct:
		if v.IsValid() && v.Type().Implements(enumValueType) {
			return true
		}
		return false
	default:
		return false
	}
}
