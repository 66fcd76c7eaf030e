package tagpack

import (
	"fmt"
	"reflect"
)

// Code discriminates the variant arms of a schema Node.
type Code uint8

const (
	CodeAny Code = iota
	CodeNone
	CodeBool
	CodeInt
	CodeFloat
	CodeStr
	CodeBytes
	CodeByteArray
	CodeEnum
	CodeIntEnum
	CodeRecord
	CodeList
	CodeSet
	CodeVarTuple
	CodeFixTuple
	CodeDict
)

func (c Code) String() string {
	switch c {
	case CodeAny:
		return "Any"
	case CodeNone:
		return "None"
	case CodeBool:
		return "bool"
	case CodeInt:
		return "int"
	case CodeFloat:
		return "float"
	case CodeStr:
		return "str"
	case CodeBytes:
		return "bytes"
	case CodeByteArray:
		return "bytearray"
	case CodeEnum:
		return "enum"
	case CodeIntEnum:
		return "intenum"
	case CodeRecord:
		return "record"
	case CodeList:
		return "list"
	case CodeSet:
		return "set"
	case CodeVarTuple:
		return "tuple"
	case CodeFixTuple:
		return "fixtuple"
	case CodeDict:
		return "dict"
	default:
		return "invalid"
	}
}

// Node is a schema tree node: a tagged union over Code, carrying only the
// payload fields that code needs. Children are owned exclusively by their
// parent (a tree, never a DAG); Go's GC reclaims them, so construction
// simply proceeds post-order (children first).
type Node struct {
	Code     Code
	Optional bool

	Type reflect.Type // populated for Enum / IntEnum / Record / FixTuple / ByteArray

	Elem *Node // List / Set / VarTuple element type

	Key   *Node // Dict key type
	Value *Node // Dict value type

	Elems []Node // FixTuple child nodes, one per slot; nil for a TupleMarker struct (resolved lazily via record.descriptorFor instead)
}

// String renders a Node for error messages using the obvious forms:
// []T, set[T], map[K]V, (T1, T2, ...), and "T | nil" for optional T (Go has
// no Optional[T] surface type, so optionality is rendered the way a Go doc
// would describe a nilable field).
func (n Node) String() string {
	s := n.bareString()
	if n.Optional && n.Code != CodeAny && n.Code != CodeNone {
		return s + " | nil"
	}
	return s
}

func (n Node) bareString() string {
	switch n.Code {
	case CodeList:
		return fmt.Sprintf("[]%s", n.Elem.String())
	case CodeSet:
		return fmt.Sprintf("set[%s]", n.Elem.String())
	case CodeVarTuple:
		return fmt.Sprintf("[]%s (tuple)", n.Elem.String())
	case CodeFixTuple:
		if n.Type != nil {
			return typeDisplayName(n.Type)
		}
		s := "("
		for i, e := range n.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	case CodeDict:
		return fmt.Sprintf("map[%s]%s", n.Key.String(), n.Value.String())
	case CodeRecord, CodeEnum, CodeIntEnum:
		if n.Type != nil {
			return typeDisplayName(n.Type)
		}
		return n.Code.String()
	case CodeByteArray:
		if n.Type != nil {
			return n.Type.String()
		}
		return "bytearray"
	default:
		return n.Code.String()
	}
}

// typeDisplayName renders a named type by its bare name, the same way
// descriptor.name does, and an unnamed type (e.g. [3]int) by its String.
func typeDisplayName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

var (
	enumValueType    = reflect.TypeFor[EnumValue]()
	intEnumValueType = reflect.TypeFor[IntEnumValue]()
	tupleMarkerType  = reflect.TypeFor[TupleMarker]()
)

// TupleMarker marks a struct type as a heterogeneous fixed tuple: its
// exported, msgpack-tagged fields supply the tuple's per-slot schema in
// declaration order, built by the same field-walking machinery as a
// record descriptor (record.descriptorFor). Unlike a Record, the type
// encodes and decodes as a plain array (FixTuple) with no field-name
// keys, so slots are matched by position, not name.
//
// [N]T (a Go array) already covers homogeneous fixed tuples; TupleMarker
// exists for the case a Go array can't express: distinct types per slot.
type TupleMarker interface {
	IsTuple()
}

// buildSchema constructs a Node from a reflect.Type by structural match.
// A pointer type *T yields T's node with Optional set; Any is always
// optional; no other node is marked optional.
func buildSchema(t reflect.Type) Node {
	if t == nil {
		return Node{Code: CodeAny, Optional: true}
	}

	if t.Kind() == reflect.Pointer {
		inner := buildSchema(t.Elem())
		inner.Optional = true
		return inner
	}

	// any / interface{}
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return Node{Code: CodeAny, Optional: true}
	}

	if t.Implements(intEnumValueType) {
		return Node{Code: CodeIntEnum, Type: t}
	}
	if t.Implements(enumValueType) {
		return Node{Code: CodeEnum, Type: t}
	}
	if t.Kind() == reflect.Struct && t.Implements(tupleMarkerType) {
		// Elems is left nil here and resolved lazily from
		// record.descriptorFor at encode/decode time (the same deferral
		// Record uses) rather than walked eagerly: a TupleMarker struct
		// that self-references through a pointer field would otherwise
		// recurse forever building its own schema.
		return Node{Code: CodeFixTuple, Type: t}
	}

	switch t.Kind() {
	case reflect.Bool:
		return Node{Code: CodeBool}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Node{Code: CodeInt}
	case reflect.Float32, reflect.Float64:
		return Node{Code: CodeFloat}
	case reflect.String:
		return Node{Code: CodeStr}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return Node{Code: CodeBytes}
		}
		elem := buildSchema(t.Elem())
		return Node{Code: CodeList, Elem: &elem}
	case reflect.Map:
		if isSetType(t) {
			elem := buildSchema(t.Key())
			return Node{Code: CodeSet, Elem: &elem}
		}
		key := buildSchema(t.Key())
		val := buildSchema(t.Value())
		return Node{Code: CodeDict, Key: &key, Value: &val}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return Node{Code: CodeByteArray, Type: t}
		}
		elem := buildSchema(t.Elem())
		elems := make([]Node, t.Len())
		for i := range elems {
			elems[i] = elem
		}
		return Node{Code: CodeFixTuple, Type: t, Elems: elems}
	case reflect.Struct:
		return Node{Code: CodeRecord, Type: t}
	}

	panic(newError("type %s is not supported", t.String()))
}

// isSetType reports whether t is the Set[T] adapter type: a defined
// generic map[T]struct{} type from this package. Generic instantiations
// report a Name like "Set[int]", so a prefix match on the defining package
// identifies it without needing a marker interface.
func isSetType(t reflect.Type) bool {
	if t.Kind() != reflect.Map {
		return false
	}
	if t.Elem().Kind() != reflect.Struct || t.Elem().NumField() != 0 {
		return false
	}
	return t.PkgPath() == setPkgPath && len(t.Name()) >= 3 && t.Name()[:3] == "Set"
}
