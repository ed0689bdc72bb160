// Package typecheck wraps functions so that, when a caller-supplied condition
// holds, every call has its arguments checked against the declared parameter
// types before the function body runs.
package typecheck

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

// Condition decides, per call, whether arguments are checked. ctx is the
// first context.Context argument of the call, or context.Background().
type Condition func(ctx context.Context) bool

// Validator lets argument types declare constraints beyond their Go type.
type Validator interface {
	Validate() error
}

var (
	ErrArity         = errors.New("typecheck: wrong number of arguments")
	ErrTypeMismatch  = errors.New("typecheck: argument type mismatch")
	ErrInvalidValue  = errors.New("typecheck: argument failed validation")
	ErrNotAFunction  = errors.New("typecheck: not a function")
	ErrNullArgument  = errors.New("typecheck: null for non-nullable parameter")
	ErrUnsupportedIn = errors.New("typecheck: unsupported payload")
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// ArgumentTypeError describes a rejected call. Index is the parameter
// position, or -1 when the argument count is wrong.
type ArgumentTypeError struct {
	Func  string
	Index int
	Want  string
	Got   string
	Err   error
}

func (e *ArgumentTypeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v (want %s, got %s)", e.Func, e.Err, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: argument %d: %v (want %s, got %s)", e.Func, e.Index, e.Err, e.Want, e.Got)
}

func (e *ArgumentTypeError) Unwrap() error { return e.Err }

// ValidateArgumentTypes returns a function of fn's type that consults apply on
// every call and, when it reports true, checks the arguments before running
// fn. A rejected call never reaches fn: if fn's last result is an error the
// wrapper returns zero values and the *ArgumentTypeError, otherwise it panics
// with it.
func ValidateArgumentTypes(fn reflect.Value, apply Condition) reflect.Value {
	return ValidateArgumentTypesAs(fn, FuncName(fn), apply)
}

// ValidateArgumentTypesAs is ValidateArgumentTypes with the name used in
// errors given explicitly, for functions whose runtime symbol is not useful
// (method values obtained through reflect).
func ValidateArgumentTypesAs(fn reflect.Value, name string, apply Condition) reflect.Value {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		panic(ErrNotAFunction)
	}
	ft := fn.Type()

	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		if apply != nil && apply(contextOf(in)) {
			if err := Check(name, ft, in); err != nil {
				return reject(ft, err)
			}
		}
		if ft.IsVariadic() {
			return fn.CallSlice(in)
		}
		return fn.Call(in)
	})
}

// Check verifies in against the parameters of ft. For variadic functions the
// last element of in is the slice of variadic arguments.
func Check(name string, ft reflect.Type, in []reflect.Value) error {
	if err := CheckShape(name, ft, in); err != nil {
		return err
	}
	for i, v := range in {
		want := ft.In(i)
		if want == contextType {
			continue
		}
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			for j := 0; j < v.Len(); j++ {
				if err := validate(v.Index(j)); err != nil {
					return &ArgumentTypeError{Func: name, Index: i + j, Want: want.Elem().String(), Got: v.Index(j).Type().String(), Err: err}
				}
			}
			continue
		}
		if err := validate(v); err != nil {
			return &ArgumentTypeError{Func: name, Index: i, Want: want.String(), Got: v.Type().String(), Err: err}
		}
	}
	return nil
}

// CheckShape verifies only the argument count and assignability, which
// reflect needs before it can call ft at all.
func CheckShape(name string, ft reflect.Type, in []reflect.Value) error {
	if len(in) != ft.NumIn() {
		return &ArgumentTypeError{
			Func:  name,
			Index: -1,
			Want:  fmt.Sprintf("%d arguments", ft.NumIn()),
			Got:   fmt.Sprintf("%d", len(in)),
			Err:   ErrArity,
		}
	}
	for i, v := range in {
		want := ft.In(i)
		if !v.IsValid() {
			return &ArgumentTypeError{Func: name, Index: i, Want: want.String(), Got: "nothing", Err: ErrTypeMismatch}
		}
		if !v.Type().AssignableTo(want) {
			return &ArgumentTypeError{Func: name, Index: i, Want: want.String(), Got: v.Type().String(), Err: ErrTypeMismatch}
		}
	}
	return nil
}

// FuncName is the runtime symbol of fn, e.g. "example.com/pkg.(*T).Method-fm".
func FuncName(fn reflect.Value) string {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return ""
	}
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}

func validate(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	if !v.CanInterface() {
		return nil
	}
	if val, ok := v.Interface().(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	return nil
}

func contextOf(in []reflect.Value) context.Context {
	for _, v := range in {
		if !v.IsValid() || !v.Type().Implements(contextType) {
			continue
		}
		if v.Kind() == reflect.Interface && v.IsNil() {
			continue
		}
		if ctx, ok := v.Interface().(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

func reject(ft reflect.Type, err error) []reflect.Value {
	n := ft.NumOut()
	if n == 0 || ft.Out(n-1) != errorType {
		panic(err)
	}
	out := make([]reflect.Value, n)
	for i := 0; i < n-1; i++ {
		out[i] = reflect.Zero(ft.Out(i))
	}
	ev := reflect.New(errorType).Elem()
	ev.Set(reflect.ValueOf(err))
	out[n-1] = ev
	return out
}
