// Package tagpack implements a schema-directed MessagePack codec: record
// types declare their wire shape via Go struct tags and reflect.Type, and
// Encode/Decode walk that shape once per type rather than marshaling
// through an intermediate document tree.
//
// A Go struct opts into record encoding with msgpack tags:
//
//	type Account struct {
//		ID      int64    `msgpack:"id"`
//		Name    string   `msgpack:"name"`
//		Tags    []string `msgpack:"tags,default="`
//		Balance *float64 `msgpack:"balance"`
//	}
//
// Fields without a default tag option are required on decode; a field typed
// as a pointer is optional and decodes a wire nil as a nil pointer.
package tagpack
