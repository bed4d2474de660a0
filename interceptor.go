package jsonrpc2

import (
	"context"
	"fmt"
)

// RequestContext carries everything an [Interceptor] or terminal handler needs to
// process one inbound call: the underlying [context.Context], the parsed
// [*Request], the connection's [*Session], and the [*MethodDescriptor] selected by
// [Bind] (nil until binding has run).
type RequestContext struct {
	Context context.Context //nolint:containedctx // carried alongside request state, not stored long-term
	Request *Request
	Session *Session
	Method  *MethodDescriptor
	Args    []any
}

// Next is the continuation an [Interceptor] invokes to run the remainder of the
// chain. It must be invoked at most once per call to Invoke; invoking it more than
// once panics, matching the dispatch pipeline's single-terminal-result invariant.
type Next func(rc *RequestContext) (any, error)

// Interceptor participates in the ordered middleware chain wrapped around a
// request's terminal handler (§4.5). An Interceptor may inspect or replace the
// request before calling next, inspect or replace the result/error after next
// returns, short-circuit by not calling next at all, or run logic on both sides of
// the call.
type Interceptor interface {
	Invoke(rc *RequestContext, next Next) (any, error)
}

// FuncInterceptor adapts a function to the [Interceptor] interface.
type FuncInterceptor func(rc *RequestContext, next Next) (any, error)

// Invoke implements [Interceptor].
func (f FuncInterceptor) Invoke(rc *RequestContext, next Next) (any, error) {
	return f(rc, next)
}

// guardOnce wraps a Next so that calling it a second time panics instead of
// silently re-running the remainder of the chain, enforcing the "continuation
// invoked at most once" invariant of §4.5.
func guardOnce(name string, next Next) Next {
	called := false

	return func(rc *RequestContext) (any, error) {
		if called {
			panic(fmt.Sprintf("jsonrpc2: interceptor %q invoked its continuation more than once", name))
		}

		called = true

		return next(rc)
	}
}

// BuildChain composes interceptors, in order, around terminal, returning a single
// Next that runs interceptors[0], then interceptors[1], ..., then terminal, with
// results and errors propagating back out through each interceptor in reverse.
//
// An empty interceptors slice returns terminal unchanged.
func BuildChain(interceptors []Interceptor, terminal Next) Next {
	next := terminal

	for i := len(interceptors) - 1; i >= 0; i-- {
		ic := interceptors[i]
		inner := next
		name := fmt.Sprintf("interceptor[%d]", i)

		next = func(rc *RequestContext) (any, error) {
			return ic.Invoke(rc, guardOnce(name, inner))
		}
	}

	return next
}

// SyncInterceptorFunc is a simplified interceptor signature for synchronous,
// before/after-only middleware that never wants to suppress or replace the call
// (logging, metrics, auth checks that only need to reject). AsInterceptor adapts
// it into a full [Interceptor] that invokes the continuation exactly once when f
// returns nil.
type SyncInterceptorFunc func(rc *RequestContext) error

// AsInterceptor adapts a [SyncInterceptorFunc] into an [Interceptor]: f runs
// before the continuation; if f returns an error, the chain short-circuits with
// that error and the continuation is never invoked.
func AsInterceptor(f SyncInterceptorFunc) Interceptor {
	return FuncInterceptor(func(rc *RequestContext, next Next) (any, error) {
		if err := f(rc); err != nil {
			return nil, err
		}

		return next(rc)
	})
}
