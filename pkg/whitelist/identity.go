package whitelist

import (
	"reflect"
	"strings"

	"github.com/joeydtaylor/steeze-rpc/pkg/typecheck"
)

// FuncID identifies the underlying function of a procedure.
type FuncID string

// Kind tells free functions from method values bound to a receiver.
type Kind int

const (
	FreeFunction Kind = iota
	BoundMethod
)

func (k Kind) String() string {
	switch k {
	case BoundMethod:
		return "bound-method"
	default:
		return "function"
	}
}

const (
	// Method values compile to a wrapper whose symbol carries this suffix.
	methodValueSuffix = "-fm"
	// Every instantiation of a generic function shares one symbol.
	genericMarker = "[...]"
	// Separates a generic symbol from the instantiated signature in a FuncID.
	typeSep = "#"
)

// IdentityOf returns the FuncID Register would store for fn, or "" when fn
// is not a function.
func IdentityOf(fn any) FuncID {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	id, _ := identify(typecheck.FuncName(v), v.Type())
	return id
}

// MethodIdentity returns the FuncID RegisterMethod would store for the
// method of recv, or "" when recv has no such method.
func MethodIdentity(recv any, method string) FuncID {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() || !rv.MethodByName(method).IsValid() {
		return ""
	}
	return methodID(rv.Type(), method)
}

// identify strips the method value suffix and, for generic symbols, appends
// the instantiated signature ft so instantiations keep separate keys.
func identify(sym string, ft reflect.Type) (FuncID, Kind) {
	base, bound := strings.CutSuffix(sym, methodValueSuffix)
	if strings.Contains(base, genericMarker) {
		base += typeSep + ft.String()
	}
	if bound {
		return FuncID(base), BoundMethod
	}
	return FuncID(base), FreeFunction
}

// pointerReceiver reports whether id names a method declared on *T. Only
// those are known to be concrete; "pkg.T.M" may name an interface method.
func pointerReceiver(id FuncID) bool {
	s, _, _ := strings.Cut(string(id), typeSep)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return strings.Contains(s, ".(*")
}

// methodID keys a method by the dynamic type of its receiver, in the same
// form the runtime uses for method symbols.
func methodID(t reflect.Type, method string) FuncID {
	if t.Kind() == reflect.Pointer && t.Elem().Name() != "" {
		e := t.Elem()
		return FuncID(e.PkgPath() + ".(*" + e.Name() + ")." + method)
	}
	if t.Name() == "" {
		return FuncID(t.String() + "." + method)
	}
	return FuncID(t.PkgPath() + "." + t.Name() + "." + method)
}

// routeName drops the import path, the instantiated signature and receiver
// punctuation: "example.com/app/demo.(*Greeter).Hello" becomes
// "demo.Greeter.Hello". Instantiations of one generic function share a
// route name; give them distinct names with As.
func routeName(id FuncID) string {
	s, _, _ := strings.Cut(string(id), typeSep)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return strings.NewReplacer("(*", "", "(", "", ")", "", genericMarker, "").Replace(s)
}
