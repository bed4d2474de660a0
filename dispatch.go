package jsonrpc2

import (
	"context"
	"reflect"
)

// CatalogHandler is the terminal [Handler] that drives the method catalog, binder,
// interceptor chain, and service factory together, implementing §4.3-§4.6 on top
// of an [*RPCServer]'s existing decode/dispatch/encode loop. It replaces the
// teacher's [MethodMux] as the Handler passed to [NewStreamServer] and friends
// whenever overload-aware binding is needed.
type CatalogHandler struct {
	Catalog      *MethodCatalog
	Factory      ServiceFactory
	Interceptors []Interceptor
}

// NewCatalogHandler returns a [*CatalogHandler] dispatching through catalog,
// resolving struct-bound methods via factory (with a nil factory, a struct-bound
// method fails with an internal error), and running every call through the given
// interceptor chain in order.
func NewCatalogHandler(catalog *MethodCatalog, factory ServiceFactory, interceptors []Interceptor) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Factory: factory, Interceptors: interceptors}
}

// Handle implements [Handler]. It binds req against ch.Catalog, then runs the
// resolved [*MethodDescriptor] and decoded argument vector through ch.Interceptors
// around a terminal handler that invokes the bound Go function or service method.
func (ch *CatalogHandler) Handle(ctx context.Context, req *Request) (any, error) {
	desc, args, err := Bind(ch.Catalog, req)
	if err != nil {
		return nil, err
	}

	sess, _ := ctx.Value(CtxSession).(*Session)

	rc := &RequestContext{Context: ctx, Request: req, Session: sess, Method: desc, Args: args}

	terminal := func(rc *RequestContext) (any, error) {
		return ch.invoke(rc)
	}

	chain := BuildChain(ch.Interceptors, terminal)

	return chain(rc)
}

// invoke calls the Go function or service method bound to rc.Method with rc.Args,
// resolving a fresh receiver from ch.Factory for struct-bound methods per §4.6.
func (ch *CatalogHandler) invoke(rc *RequestContext) (any, error) {
	desc := rc.Method

	if !desc.isMethod {
		return callHandle(desc.handle, rc.Context, rc.Args)
	}

	factory := ch.Factory
	if factory == nil {
		return nil, ErrInternalError.WithData("method " + desc.Name + " requires a ServiceFactory but none is configured")
	}

	instance, err := factory.New(rc.Context, rc.Session, desc.methodName)
	if err != nil {
		return nil, ErrInternalError.WithData(err.Error())
	}

	defer factory.Release(rc.Context, rc.Session, instance)

	method := reflect.ValueOf(instance).MethodByName(desc.methodName)
	if !method.IsValid() {
		return nil, ErrInternalError.WithData("service does not implement method " + desc.methodName)
	}

	return callHandle(method, rc.Context, rc.Args)
}

// callHandle invokes fn, which must have the signature of [MethodFunc] —
// func(context.Context, []any) (any, error) — via reflection, and unwraps its
// two return values.
func callHandle(fn reflect.Value, ctx context.Context, args []any) (any, error) {
	out := fn.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(args)})

	result := out[0].Interface()

	errVal := out[1].Interface()
	if errVal == nil {
		return result, nil
	}

	err, _ := errVal.(error)

	return result, err
}
