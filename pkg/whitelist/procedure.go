package whitelist

import (
	"context"
	"reflect"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
	"github.com/joeydtaylor/steeze-rpc/pkg/reqctx"
	"github.com/joeydtaylor/steeze-rpc/pkg/typecheck"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Procedure is the dispatchable side of a registration.
type Procedure struct {
	ID     FuncID
	Name   string
	Kind   Kind
	Symbol string

	fn     reflect.Value
	oracle reqctx.Oracle
}

// Type is the Go function type of the procedure.
func (p *Procedure) Type() reflect.Type { return p.fn.Type() }

// Invoke decodes raw into arguments and calls the procedure. The registry
// oracle is asked about ctx itself, so arguments are checked inside a request
// even when the procedure takes no context.Context.
func (p *Procedure) Invoke(ctx context.Context, raw []byte, c codec.Codec) (any, error) {
	ft := p.fn.Type()
	in, err := typecheck.Coerce(ctx, p.Symbol, ft, raw, c)
	if err != nil {
		return nil, err
	}
	if p.oracle != nil && p.oracle(ctx) {
		if err := typecheck.Check(p.Symbol, ft, in); err != nil {
			return nil, err
		}
	}
	return p.Call(in)
}

// Call runs the validated function. A trailing error result becomes the
// returned error; remaining results collapse to nil, one value, or []any.
func (p *Procedure) Call(in []reflect.Value) (result any, err error) {
	ft := p.fn.Type()
	if err := typecheck.CheckShape(p.Symbol, ft, in); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			ate, ok := rec.(*typecheck.ArgumentTypeError)
			if !ok {
				panic(rec)
			}
			result, err = nil, ate
		}
	}()

	var out []reflect.Value
	if ft.IsVariadic() {
		out = p.fn.CallSlice(in)
	} else {
		out = p.fn.Call(in)
	}

	if n := ft.NumOut(); n > 0 && ft.Out(n-1) == errorType {
		if ev := out[n-1]; !ev.IsNil() {
			err = ev.Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v.Interface()
		}
		return vals, err
	}
}
