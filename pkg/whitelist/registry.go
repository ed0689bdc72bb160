package whitelist

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-rpc/pkg/reqctx"
	"github.com/joeydtaylor/steeze-rpc/pkg/typecheck"
	"go.uber.org/zap"
)

// DefaultMethods applies when Register is given no verbs.
var DefaultMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

type Registry struct {
	oracle reqctx.Oracle
	log    *zap.Logger

	// guarded by mu
	mu          sync.RWMutex
	whitelisted map[FuncID]struct{}
	methods     map[FuncID][]string
	guests      map[FuncID]struct{}
	xssSafe     map[FuncID]struct{}
	procs       map[FuncID]*Procedure
	names       map[string]FuncID
}

type RegistryOption func(*Registry)

// WithOracle sets the condition that activates argument validation.
// The default only activates inside an HTTP request.
func WithOracle(o reqctx.Oracle) RegistryOption {
	return func(r *Registry) {
		if o != nil {
			r.oracle = o
		}
	}
}

func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		oracle:      reqctx.InRequest,
		log:         zap.NewNop(),
		whitelisted: make(map[FuncID]struct{}),
		methods:     make(map[FuncID][]string),
		guests:      make(map[FuncID]struct{}),
		xssSafe:     make(map[FuncID]struct{}),
		procs:       make(map[FuncID]*Procedure),
		names:       make(map[string]FuncID),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type options struct {
	allowGuest bool
	xssSafe    bool
	methods    []string
	name       string
}

type Option func(*options)

// AllowGuest lets unauthenticated callers invoke the procedure.
func AllowGuest() Option { return func(o *options) { o.allowGuest = true } }

// XSSSafe exempts guest input from sanitization. Ignored without AllowGuest.
func XSSSafe() Option { return func(o *options) { o.xssSafe = true } }

// Methods restricts the HTTP verbs. No verbs means DefaultMethods.
func Methods(verbs ...string) Option {
	return func(o *options) { o.methods = append([]string(nil), verbs...) }
}

// As overrides the routed name.
func As(name string) Option { return func(o *options) { o.name = strings.TrimSpace(name) } }

// Register whitelists fn in reg and returns fn wrapped with argument
// validation. The result has fn's type; for a method value it stays bound to
// the same receiver. Register panics when fn is not a function, and for
// method values whose receiver is not a pointer: their symbol cannot tell a
// value receiver from an interface, so use RegisterMethod for those.
func Register[F any](reg *Registry, fn F, opts ...Option) F {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		panic(fmt.Sprintf("whitelist: cannot register %T: not a function", fn))
	}
	sym := typecheck.FuncName(v)
	id, kind := identify(sym, v.Type())
	if kind == BoundMethod && !pointerReceiver(id) {
		panic(fmt.Sprintf("whitelist: cannot register %s: receiver may be an interface; use RegisterMethod", sym))
	}
	return register(reg, v, id, kind, sym, opts).Interface().(F)
}

// RegisterMethod whitelists the method named method of recv. The key is
// built from recv's dynamic type, so two implementations of one interface
// never share a key. F must be the method's type without the receiver.
func RegisterMethod[F any](reg *Registry, recv any, method string, opts ...Option) F {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		panic("whitelist: cannot register a method of nil")
	}
	m := rv.MethodByName(method)
	if !m.IsValid() {
		panic(fmt.Sprintf("whitelist: %s has no method %q", rv.Type(), method))
	}
	if want := reflect.TypeOf((*F)(nil)).Elem(); m.Type() != want {
		panic(fmt.Sprintf("whitelist: %s.%s is %s, not %s", rv.Type(), method, m.Type(), want))
	}
	id := methodID(rv.Type(), method)
	return register(reg, m, id, BoundMethod, string(id), opts).Interface().(F)
}

func register(reg *Registry, v reflect.Value, id FuncID, kind Kind, sym string, opts []Option) reflect.Value {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	methods := normalizeMethods(o.methods)

	validated := typecheck.ValidateArgumentTypesAs(v, sym, typecheck.Condition(reg.oracle))

	name := o.name
	if name == "" {
		name = routeName(id)
	}

	p := &Procedure{ID: id, Name: name, Kind: kind, Symbol: sym, fn: validated, oracle: reg.oracle}

	reg.mu.Lock()
	reg.whitelisted[id] = struct{}{}
	reg.methods[id] = methods
	if o.allowGuest {
		reg.guests[id] = struct{}{}
		if o.xssSafe {
			reg.xssSafe[id] = struct{}{}
		}
	}
	reg.procs[id] = p
	reg.names[name] = id
	reg.mu.Unlock()

	reg.log.Debug("procedure whitelisted",
		zap.String("id", string(id)),
		zap.String("name", name),
		zap.Stringer("kind", kind),
		zap.Strings("methods", methods),
		zap.Bool("allowGuest", o.allowGuest),
		zap.Bool("xssSafe", o.allowGuest && o.xssSafe),
	)

	return validated
}

func (r *Registry) IsWhitelisted(id FuncID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.whitelisted[id]
	return ok
}

// Contains reports whether fn's identity is whitelisted.
func (r *Registry) Contains(fn any) bool { return r.IsWhitelisted(IdentityOf(fn)) }

// AllowedMethods returns a copy of the verbs registered for id, or nil.
func (r *Registry) AllowedMethods(id FuncID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[id]
	if !ok {
		return nil
	}
	return append([]string(nil), m...)
}

func (r *Registry) MethodAllowed(id FuncID, verb string) bool {
	verb = strings.ToUpper(strings.TrimSpace(verb))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.methods[id] {
		if m == verb {
			return true
		}
	}
	return false
}

func (r *Registry) IsGuestAllowed(id FuncID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.guests[id]
	return ok
}

func (r *Registry) IsXSSSafe(id FuncID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.xssSafe[id]
	return ok
}

func (r *Registry) Procedure(id FuncID) (*Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procs[id]
	return p, ok
}

// Resolve finds a procedure by routed name.
func (r *Registry) Resolve(name string) (*Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[name]
	if !ok {
		return nil, false
	}
	p, ok := r.procs[id]
	return p, ok
}

// Procedures returns a snapshot ordered by name.
func (r *Registry) Procedures() []*Procedure {
	r.mu.RLock()
	out := make([]*Procedure, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.whitelisted)
}

func normalizeMethods(verbs []string) []string {
	out := make([]string, 0, len(verbs))
	seen := make(map[string]struct{}, len(verbs))
	for _, v := range verbs {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultMethods...)
	}
	return out
}
