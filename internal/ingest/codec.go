// Package ingest implements the TCP receive path: the record codec, the
// per-connection handler, and the accept loop.
package ingest

import (
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// ErrNotObject reports a line whose top-level JSON value is not an object.
var ErrNotObject = errors.New("top-level value is not a JSON object")

// Codec decodes one JSON log record per line. Parsers are pooled, so a
// single Codec is shared by every connection handler.
type Codec struct {
	pool fastjson.ParserPool
}

// DecodeLine parses one newline-stripped, trimmed line into a field map.
// Arrays, bare scalars, and syntax errors are all decode failures.
func (c *Codec) DecodeLine(line []byte) (map[string]any, error) {
	p := c.pool.Get()
	defer c.pool.Put(p)

	v, err := p.ParseBytes(line)
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, ErrNotObject
	}

	fields, err := convertValue(v)
	if err != nil {
		return nil, err
	}
	return fields.(map[string]any), nil
}

// convertValue copies a parsed value out of the pooled parser into plain Go
// types. Integral numbers become int64 so values past float64's exact-integer
// range (Windows FILETIME timestamps) survive unchanged.
func convertValue(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, obj.Len())
		var visitErr error
		obj.Visit(func(key []byte, item *fastjson.Value) {
			if visitErr != nil {
				return
			}
			converted, err := convertValue(item)
			if err != nil {
				visitErr = err
				return
			}
			m[string(key)] = converted
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return m, nil
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			converted, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case fastjson.TypeString:
		sb, err := v.StringBytes()
		if err != nil {
			return nil, err
		}
		return string(sb), nil
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return v.Float64()
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value type %s", v.Type())
	}
}
