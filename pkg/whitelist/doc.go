// Package whitelist exposes ordinary Go functions as remotely callable
// procedures.
//
// Register records a function in a Registry together with its exposure
// policy: the HTTP verbs it answers to, whether unauthenticated (guest)
// callers may reach it, and whether guest input to it skips sanitization.
// The function handed back has the same Go type as the one passed in, but
// checks its arguments whenever the registry's oracle reports an active
// request or test run.
//
// Procedures are keyed by FuncID, the runtime symbol of the underlying
// function. Method values such as svc.Hello are bound to a receiver; every
// method value of the same method collapses to one FuncID regardless of the
// receiver, so the dispatcher can look them up without holding the original
// value:
//
//	reg := whitelist.New(whitelist.WithOracle(reqctx.NewOracle(&flags)))
//	hello := whitelist.Register(reg, svc.Hello, whitelist.AllowGuest(), whitelist.Methods("GET"))
//	reg.IsGuestAllowed(whitelist.IdentityOf(svc.Hello)) // true
//
// Only method values on pointer receivers go through Register: the symbol of
// a value-receiver method value looks the same as one taken from an
// interface, which would let unrelated implementations share a key. Those
// are registered with RegisterMethod, keyed by the receiver's dynamic type.
// Instantiations of a generic function are keyed by their signature as well.
//
// The sets only ever grow. Registering the same identity again replaces its
// allowed methods and name but never removes guest or XSS-safe membership.
package whitelist
