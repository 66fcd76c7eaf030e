package main

import (
	"fmt"
	"sort"
	"strings"
)

// describeShape renders a short structural description of a value decoded
// by tagpack.Decode, inferred from the data itself, since the CLI has no
// compile-time Go type to build a schema from. Scalars use the schema code
// names (bool, int, float, str, bytes) and nil is "nil"; a list is "[]T"
// with T taken from its first element; a non-empty map is "{k: T, ...}"
// with keys sorted; empty containers are "[]any" and "map[str]any".
func describeShape(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case int64, uint64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []byte:
		return "bytes"
	case []any:
		if len(x) == 0 {
			return "[]any"
		}
		return fmt.Sprintf("[]%s", describeShape(x[0]))
	case map[string]any:
		if len(x) == 0 {
			return "map[str]any"
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = fmt.Sprintf("%s: %s", k, describeShape(x[k]))
		}
		return fmt.Sprintf("{%s}", strings.Join(fields, ", "))
	default:
		return fmt.Sprintf("%T", v)
	}
}
