package core

import "errors"

var (
	ErrUnknownProcedure = errors.New("unknown procedure")
	ErrNotWhitelisted   = errors.New("not whitelisted")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrGuestNotAllowed  = errors.New("guest access not allowed")
)

// StatusCoder lets a procedure error choose its HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError is a ready-made StatusCoder for procedures.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string   { return e.Err.Error() }
func (e *StatusError) Unwrap() error   { return e.Err }
func (e *StatusError) StatusCode() int { return e.Code }
