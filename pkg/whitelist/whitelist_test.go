package whitelist_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/joeydtaylor/steeze-rpc/pkg/reqctx"
	"github.com/joeydtaylor/steeze-rpc/pkg/typecheck"
	"github.com/joeydtaylor/steeze-rpc/pkg/whitelist"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type username string

func (u username) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return errors.New("empty username")
	}
	return nil
}

type greeter struct {
	prefix string
	calls  int
}

func (g *greeter) Hello(ctx context.Context, who username) (string, error) {
	g.calls++
	return g.prefix + " " + string(who), nil
}

func ping() string { return "pong" }

func echo(s string) string { return s }

func sum(ctx context.Context, xs ...int) (int, error) {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total, nil
}

var sortStrings = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func TestRegister_Whitelists(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, ping)

	id := whitelist.IdentityOf(ping)
	require.NotEmpty(t, id)
	require.True(t, reg.IsWhitelisted(id))
	require.True(t, reg.Contains(ping))
	require.False(t, reg.Contains(echo))
	require.Equal(t, 1, reg.Len())
}

func TestRegister_DefaultMethods(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, ping)
	whitelist.Register(reg, echo, whitelist.Methods())

	for _, fn := range []any{ping, echo} {
		got := reg.AllowedMethods(whitelist.IdentityOf(fn))
		want := []string{"GET", "POST", "PUT", "DELETE"}
		if diff := cmp.Diff(want, got, sortStrings); diff != "" {
			t.Fatalf("AllowedMethods mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRegister_MethodsOverwriteNotUnion(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, echo, whitelist.Methods("GET", "POST"))
	whitelist.Register(reg, echo, whitelist.Methods("put", " PUT ", "delete"))

	id := whitelist.IdentityOf(echo)
	if diff := cmp.Diff([]string{"PUT", "DELETE"}, reg.AllowedMethods(id), sortStrings); diff != "" {
		t.Fatalf("AllowedMethods mismatch (-want +got):\n%s", diff)
	}
	require.False(t, reg.MethodAllowed(id, http.MethodGet))
	require.True(t, reg.MethodAllowed(id, "delete"))
	require.Equal(t, 1, reg.Len())
}

func TestRegister_GuestAndXSSFlags(t *testing.T) {
	cases := []struct {
		name      string
		opts      []whitelist.Option
		wantGuest bool
		wantXSS   bool
	}{
		{"none", nil, false, false},
		{"guest", []whitelist.Option{whitelist.AllowGuest()}, true, false},
		{"guest+xss", []whitelist.Option{whitelist.AllowGuest(), whitelist.XSSSafe()}, true, true},
		{"xss without guest", []whitelist.Option{whitelist.XSSSafe()}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := whitelist.New()
			whitelist.Register(reg, ping, tc.opts...)
			id := whitelist.IdentityOf(ping)
			require.True(t, reg.IsWhitelisted(id))
			require.Equal(t, tc.wantGuest, reg.IsGuestAllowed(id))
			require.Equal(t, tc.wantXSS, reg.IsXSSSafe(id))
		})
	}
}

func TestRegister_SetsAreAppendOnly(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, ping, whitelist.AllowGuest(), whitelist.XSSSafe())
	whitelist.Register(reg, ping)

	id := whitelist.IdentityOf(ping)
	require.True(t, reg.IsGuestAllowed(id))
	require.True(t, reg.IsXSSSafe(id))
}

func TestRegister_BoundMethodIdentity(t *testing.T) {
	reg := whitelist.New()
	a := &greeter{prefix: "hi"}
	b := &greeter{prefix: "yo"}

	hello := whitelist.Register(reg, a.Hello, whitelist.AllowGuest())

	idA := whitelist.IdentityOf(a.Hello)
	require.Equal(t, idA, whitelist.IdentityOf(b.Hello))
	require.Equal(t, idA, whitelist.IdentityOf((*greeter).Hello))
	require.False(t, strings.HasSuffix(string(idA), "-fm"))
	require.True(t, reg.IsWhitelisted(idA))
	require.True(t, reg.IsGuestAllowed(whitelist.IdentityOf(b.Hello)))

	p, ok := reg.Procedure(idA)
	require.True(t, ok)
	require.Equal(t, whitelist.BoundMethod, p.Kind)
	require.Equal(t, "whitelist_test.greeter.Hello", p.Name)

	// same receiver, same result, same side effect as calling a.Hello directly
	got, err := hello(context.Background(), "ada")
	require.NoError(t, err)
	want, err := a.Hello(context.Background(), "ada")
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, 2, a.calls)
	require.Zero(t, b.calls)
}

func TestRegister_FreeFunctionKind(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, ping)
	p, ok := reg.Resolve("whitelist_test.ping")
	require.True(t, ok)
	require.Equal(t, whitelist.FreeFunction, p.Kind)
	require.Equal(t, whitelist.IdentityOf(ping), p.ID)
}

func TestRegister_ValidationOnlyWhenActive(t *testing.T) {
	var flags reqctx.Flags
	reg := whitelist.New(whitelist.WithOracle(reqctx.NewOracle(&flags)))
	g := &greeter{prefix: "hi"}
	hello := whitelist.Register(reg, g.Hello)

	// inactive: body runs, no validation
	out, err := hello(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "hi ", out)
	require.Equal(t, 1, g.calls)

	// request context active: rejected before the body
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	_, err = hello(reqctx.WithRequest(context.Background(), r), "")
	require.Error(t, err)
	require.Equal(t, 1, g.calls)

	// test flag active
	flags.SetInTest(true)
	_, err = hello(context.Background(), "  ")
	require.Error(t, err)
	require.Equal(t, 1, g.calls)

	out, err = hello(context.Background(), "ada")
	require.NoError(t, err)
	require.Equal(t, "hi ada", out)
	require.Equal(t, 2, g.calls)
}

func TestRegister_RenameAndNameIndex(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, echo, whitelist.As("util.echo"))

	p, ok := reg.Resolve("util.echo")
	require.True(t, ok)
	require.Equal(t, whitelist.IdentityOf(echo), p.ID)

	_, ok = reg.Resolve("nope")
	require.False(t, ok)

	whitelist.Register(reg, ping)
	names := []string{}
	for _, p := range reg.Procedures() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"util.echo", "whitelist_test.ping"}, names)
}

func TestRegister_PanicsOnNonFunction(t *testing.T) {
	reg := whitelist.New()
	require.Panics(t, func() { whitelist.Register(reg, 42) })
	var nilFn func()
	require.Panics(t, func() { whitelist.Register(reg, nilFn) })
	require.Zero(t, reg.Len())
}

func TestRegister_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := whitelist.New(whitelist.WithLogger(zap.New(core)))
	whitelist.Register(reg, ping, whitelist.XSSSafe())

	entries := logs.FilterMessage("procedure whitelisted").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "whitelist_test.ping", fields["name"])
	require.Equal(t, false, fields["xssSafe"])
}

func TestProcedure_Invoke(t *testing.T) {
	var flags reqctx.Flags
	flags.SetInTest(true)
	reg := whitelist.New(whitelist.WithOracle(reqctx.NewOracle(&flags)))
	g := &greeter{prefix: "hello"}
	whitelist.Register(reg, g.Hello)
	whitelist.Register(reg, sum)

	p, _ := reg.Procedure(whitelist.IdentityOf(g.Hello))
	out, err := p.Invoke(context.Background(), []byte(`["ada"]`), nil)
	require.NoError(t, err)
	require.Equal(t, "hello ada", out)

	_, err = p.Invoke(context.Background(), []byte(`[""]`), nil)
	require.Error(t, err)
	require.Equal(t, 1, g.calls)

	_, err = p.Invoke(context.Background(), []byte(`[42]`), nil)
	require.Error(t, err)
	require.Equal(t, 1, g.calls)

	p, _ = reg.Procedure(whitelist.IdentityOf(sum))
	out, err = p.Invoke(context.Background(), []byte(`[1,2,3]`), nil)
	require.NoError(t, err)
	require.Equal(t, 6, out)
}

type counter struct{ calls int }

func (c *counter) Shout(u username) string {
	c.calls++
	return strings.ToUpper(string(u))
}

func TestProcedure_InvokeChecksWithoutContextParam(t *testing.T) {
	reg := whitelist.New()
	c := &counter{}
	whitelist.Register(reg, c.Shout)
	p, ok := reg.Procedure(whitelist.IdentityOf(c.Shout))
	require.True(t, ok)

	// outside a request the oracle is off
	out, err := p.Invoke(context.Background(), []byte(`[""]`), nil)
	require.NoError(t, err)
	require.Equal(t, "", out)
	require.Equal(t, 1, c.calls)

	ctx := reqctx.WithRequest(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	_, err = p.Invoke(ctx, []byte(`[""]`), nil)
	var ate *typecheck.ArgumentTypeError
	require.True(t, errors.As(err, &ate))
	require.ErrorIs(t, err, typecheck.ErrInvalidValue)
	require.Equal(t, 1, c.calls)

	out, err = p.Invoke(ctx, []byte(`["ada"]`), nil)
	require.NoError(t, err)
	require.Equal(t, "ADA", out)
}

func identity[T any](v T) T { return v }

func TestRegister_GenericInstantiationsKeySeparately(t *testing.T) {
	reg := whitelist.New()
	whitelist.Register(reg, identity[int], whitelist.Methods("GET"), whitelist.As("id.int"))
	whitelist.Register(reg, identity[string], whitelist.Methods("POST"), whitelist.As("id.string"))

	idInt := whitelist.IdentityOf(identity[int])
	idStr := whitelist.IdentityOf(identity[string])
	require.NotEqual(t, idInt, idStr)
	require.Equal(t, 2, reg.Len())
	require.Equal(t, []string{"GET"}, reg.AllowedMethods(idInt))
	require.Equal(t, []string{"POST"}, reg.AllowedMethods(idStr))

	p, ok := reg.Procedure(idInt)
	require.True(t, ok)
	require.Equal(t, "func(int) int", p.Type().String())

	p, ok = reg.Resolve("id.string")
	require.True(t, ok)
	out, err := p.Invoke(context.Background(), []byte(`"x"`), nil)
	require.NoError(t, err)
	require.Equal(t, "x", out)
}

type namer interface{ Name() string }

type public struct{}

func (public) Name() string { return "public" }

type private struct{}

func (private) Name() string { return "private" }

func TestRegister_InterfaceMethodValues(t *testing.T) {
	reg := whitelist.New()
	var x, y namer = public{}, private{}

	require.Panics(t, func() { whitelist.Register(reg, x.Name, whitelist.AllowGuest()) })
	require.Panics(t, func() { whitelist.Register(reg, public{}.Name) })
	require.Zero(t, reg.Len())

	pub := whitelist.RegisterMethod[func() string](reg, x, "Name", whitelist.AllowGuest())
	whitelist.RegisterMethod[func() string](reg, y, "Name")
	require.Equal(t, "public", pub())

	idX := whitelist.MethodIdentity(x, "Name")
	idY := whitelist.MethodIdentity(y, "Name")
	require.NotEqual(t, idX, idY)
	require.Equal(t, 2, reg.Len())
	require.True(t, reg.IsGuestAllowed(idX))
	require.False(t, reg.IsGuestAllowed(idY))

	p, ok := reg.Procedure(idY)
	require.True(t, ok)
	require.Equal(t, whitelist.BoundMethod, p.Kind)
	out, err := p.Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "private", out)
}

func TestRegisterMethod_MatchesPointerMethodValue(t *testing.T) {
	reg := whitelist.New()
	g := &greeter{prefix: "hi"}
	whitelist.Register(reg, g.Hello)
	whitelist.RegisterMethod[func(context.Context, username) (string, error)](reg, &greeter{}, "Hello", whitelist.AllowGuest())

	require.Equal(t, 1, reg.Len())
	require.Equal(t, whitelist.IdentityOf(g.Hello), whitelist.MethodIdentity(g, "Hello"))
	require.True(t, reg.IsGuestAllowed(whitelist.IdentityOf(g.Hello)))
}

func TestRegisterMethod_Panics(t *testing.T) {
	reg := whitelist.New()
	require.Panics(t, func() { whitelist.RegisterMethod[func() string](reg, nil, "Name") })
	require.Panics(t, func() { whitelist.RegisterMethod[func() string](reg, public{}, "Missing") })
	require.Panics(t, func() { whitelist.RegisterMethod[func() int](reg, public{}, "Name") })
	require.Zero(t, reg.Len())
}
