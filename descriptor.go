package jsonrpc2

import (
	"errors"
	"reflect"
)

// ReturnKind classifies the shape of a [MethodDescriptor]'s return value, used by
// both the server-side binder (to decide whether a handler result is awaited) and
// the client-side [ProxyTable] (to decide whether invoking a signature produces a
// request or a notification).
type ReturnKind int

const (
	// ReturnVoid indicates the method has no result; client-side, invoking it
	// always produces a notification rather than a request.
	ReturnVoid ReturnKind = iota
	// ReturnSync indicates a synchronous, immediately available result.
	ReturnSync
	// ReturnAsync indicates a result that must be awaited (the bound Go method
	// returns a value alongside an error after blocking, or the proxy caller
	// should treat the call as yielding a future).
	ReturnAsync
)

var (
	// ErrDuplicateParamName is returned by [NewMethodDescriptor] when two
	// parameters in the same descriptor share a name.
	ErrDuplicateParamName = errors.New("jsonrpc2: duplicate parameter name in method descriptor")
)

// ParamDescriptor describes one formal parameter of a [MethodDescriptor].
type ParamDescriptor struct {
	// Name is the parameter's name, used to match object-form params (§4.4).
	Name string
	// Type is the Go type the parameter decodes into.
	Type reflect.Type
	// Optional indicates the parameter may be omitted from the inbound request.
	Optional bool
	// Default is used in place of the parameter's value when Optional is true
	// and the parameter was not supplied.
	Default any
}

// MethodDescriptor is the static record describing one callable method: its name,
// its ordered parameter list, its return shape, and an opaque handle identifying
// the Go value to invoke (a bound [reflect.Value] of a func or method).
//
// MethodDescriptor is immutable once constructed.
type MethodDescriptor struct {
	// Name is the RPC method name as seen on the wire. It need not match the
	// identifier of the Go function/method it binds to.
	Name string
	// Params is the ordered parameter list. Parameter names must be unique.
	Params []ParamDescriptor
	// Return is the descriptor's return shape.
	Return ReturnKind
	// AllowExtraParams permits object-form params to carry keys not named in
	// Params, and permits array-form params to carry more positional values
	// than Params declares, without disqualifying the candidate.
	AllowExtraParams bool
	// handle is the bound callable: func(ctx context.Context, args ...any) (any, error)
	// for function-registered methods, or a service method resolved per-request
	// via the [ServiceFactory] for struct-registered methods.
	handle reflect.Value
	// isMethod is true when handle must be invoked against a fresh service
	// receiver obtained from the ServiceFactory rather than called directly.
	isMethod bool
	// methodName names the receiver method to call when isMethod is true.
	methodName string
}

// requiredCount returns the number of parameters that are not optional.
func (d *MethodDescriptor) requiredCount() int {
	n := 0

	for _, p := range d.Params {
		if !p.Optional {
			n++
		}
	}

	return n
}

// NewMethodDescriptor validates and returns a [MethodDescriptor] for a free
// function handle. Returns [ErrDuplicateParamName] if two parameters share a name.
func NewMethodDescriptor(name string, params []ParamDescriptor, ret ReturnKind, allowExtra bool, handle reflect.Value) (*MethodDescriptor, error) {
	seen := make(map[string]struct{}, len(params))

	for _, p := range params {
		if _, dup := seen[p.Name]; dup {
			return nil, ErrDuplicateParamName
		}

		seen[p.Name] = struct{}{}
	}

	return &MethodDescriptor{Name: name, Params: params, Return: ret, AllowExtraParams: allowExtra, handle: handle}, nil
}
