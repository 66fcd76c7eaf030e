package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/kfsheep/tagpack/internal/atof"
	"github.com/kfsheep/tagpack/internal/itoa"
)

// decodeJSON parses r as a single JSON value into the same native shapes
// tagpack.Decode produces (nil/bool/int64/float64/string/[]any/map[string]any),
// so a round trip through encode/decode is lossless for anything MessagePack
// itself can represent. Numbers without a '.' or exponent are parsed as
// int64 directly; everything else goes through atof.Parse rather than
// json.Number's own ParseFloat, per this CLI's numeric rendering policy.
func decodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return convertJSON(raw)
}

func convertJSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		return convertJSONNumber(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			c, err := convertJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			c, err := convertJSON(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported json value %T", v)
	}
}

func convertJSONNumber(n json.Number) (any, error) {
	s := n.String()
	if isIntegerLiteral(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	}
	return atof.Parse(s)
}

func isIntegerLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' || c == 'e' || c == 'E' {
			return false
		}
	}
	return true
}

// encodeJSON renders v (in the shapes tagpack.Decode produces) as JSON to w.
// Integers are written with internal/itoa rather than strconv, per this
// CLI's numeric rendering policy (C2).
func encodeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	if err := writeJSONValue(&buf, v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.Write(itoa.AppendInt64(nil, x))
	case uint64:
		buf.Write(itoa.AppendUint64(nil, x))
	case float64:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	case []byte:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSONValue(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported decoded value %T", v)
	}
	return nil
}
