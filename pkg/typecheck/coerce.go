package typecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
)

// Coerce decodes a JSON payload into call arguments for ft. A JSON array is
// always positional, so a slice argument travels as [[...]]; any other JSON
// value is decoded into the single non-context parameter. context.Context
// parameters receive ctx and are not decoded. The returned slice is shaped
// for reflect.Value.CallSlice when ft is variadic.
func Coerce(ctx context.Context, name string, ft reflect.Type, raw []byte, c codec.Codec) ([]reflect.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		c = codec.JSONStrict
	}

	var params []int
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) != contextType {
			params = append(params, i)
		}
	}

	elems, err := split(raw)
	if err != nil {
		return nil, &ArgumentTypeError{Func: name, Index: -1, Want: "JSON payload", Got: kindOf(raw), Err: fmt.Errorf("%w: %v", ErrUnsupportedIn, err)}
	}

	variadic := ft.IsVariadic() && len(params) > 0
	fixed := len(params)
	if variadic {
		fixed--
	}
	if len(elems) < fixed || (!variadic && len(elems) > fixed) {
		return nil, &ArgumentTypeError{
			Func:  name,
			Index: -1,
			Want:  fmt.Sprintf("%d arguments", len(params)),
			Got:   fmt.Sprintf("%d", len(elems)),
			Err:   ErrArity,
		}
	}

	in := make([]reflect.Value, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		if ft.In(i) == contextType {
			in[i] = reflect.ValueOf(ctx)
		}
	}
	for k := 0; k < fixed; k++ {
		idx := params[k]
		v, err := decode(elems[k], ft.In(idx), c)
		if err != nil {
			return nil, &ArgumentTypeError{Func: name, Index: idx, Want: ft.In(idx).String(), Got: kindOf(elems[k]), Err: err}
		}
		in[idx] = v
	}
	if variadic {
		idx := params[fixed]
		st := ft.In(idx)
		rest := reflect.MakeSlice(st, 0, len(elems)-fixed)
		for k := fixed; k < len(elems); k++ {
			v, err := decode(elems[k], st.Elem(), c)
			if err != nil {
				return nil, &ArgumentTypeError{Func: name, Index: idx + k - fixed, Want: st.Elem().String(), Got: kindOf(elems[k]), Err: err}
			}
			rest = reflect.Append(rest, v)
		}
		in[idx] = rest
	}
	return in, nil
}

func split(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, err
		}
		return elems, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON")
	}
	return []json.RawMessage{raw}, nil
}

func decode(raw json.RawMessage, t reflect.Type, c codec.Codec) (reflect.Value, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, ErrNullArgument
		}
	}
	ptr := reflect.New(t)
	if err := c.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return ptr.Elem(), nil
}

func kindOf(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "empty"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
