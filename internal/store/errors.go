// Package store holds the two observable state containers of the
// service: the event catalogue with its filtered view, and the
// authenticated session.
//
// Failures are recorded in state as a Failure and also returned to the
// caller wrapping one of the sentinel errors below. No operation panics.
package store

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFetchFailed        = errors.New("fetch failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
)

// Kind classifies a recorded failure.
type Kind string

const (
	KindFetchFailed        Kind = "FetchFailed"
	KindNotFound           Kind = "NotFound"
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindValidationFailed   Kind = "ValidationFailed"
)

// Failure is the error condition held in state.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (f *Failure) clone() *Failure {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// opError is what store operations return on failure. It carries the
// Failure recorded in state at the time, so callers never have to read
// it back from a snapshot another operation may already have replaced.
type opError struct {
	failure Failure
	cause   error
}

func newOpError(f Failure, cause error) error {
	return &opError{failure: f, cause: cause}
}

func (e *opError) Error() string {
	if e.cause == nil {
		return sentinelFor(e.failure.Kind).Error()
	}
	return fmt.Sprintf("%v: %v", sentinelFor(e.failure.Kind), e.cause)
}

func (e *opError) Unwrap() []error {
	if e.cause == nil {
		return []error{sentinelFor(e.failure.Kind)}
	}
	return []error{sentinelFor(e.failure.Kind), e.cause}
}

func sentinelFor(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindValidationFailed:
		return ErrValidationFailed
	default:
		return ErrFetchFailed
	}
}

// FailureOf returns the Failure an operation recorded when it returned
// err. Errors from elsewhere get one built from KindOf and err's text.
func FailureOf(err error) *Failure {
	if err == nil {
		return nil
	}
	var oe *opError
	if errors.As(err, &oe) {
		f := oe.failure
		return &f
	}
	return &Failure{Kind: KindOf(err), Message: err.Error()}
}

// KindOf maps an error returned by a store operation to its Kind. It
// returns "" for nil and for errors that did not come from a store.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	case errors.Is(err, ErrFetchFailed):
		return KindFetchFailed
	default:
		return ""
	}
}

// Status tracks one logical operation.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// observers fans state snapshots out to subscribers.
type observers[S any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(S)
}

func (o *observers[S]) subscribe(fn func(S)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(S))
	}
	id := o.next
	o.next++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers[S]) notify(s S) {
	o.mu.Lock()
	fns := make([]func(S), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
