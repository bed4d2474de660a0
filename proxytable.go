package jsonrpc2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotSupported is returned by [ProxyTable.Invoke] when no entry in the table
// matches the requested signature identity.
var ErrNotSupported = errors.New("jsonrpc2: signature not supported by proxy table")

// ErrInvalidParamsType indicates that a call's packed arguments do not marshal to
// a JSON object or array, the only two shapes [Params] accepts.
var ErrInvalidParamsType = errors.New("jsonrpc2: params must marshal to a JSON object or array")

// makeParamsFromAny marshals v and wraps it as [Params], failing with
// [ErrInvalidParamsType] if v does not marshal to a JSON object or array. A nil v
// is treated as omitted parameters.
func makeParamsFromAny(v any) (Params, error) {
	if v == nil {
		return Params{}, nil
	}

	raw, err := Marshal(v)
	if err != nil {
		return Params{}, fmt.Errorf("jsonrpc2: failed to marshal params: %w", err)
	}

	hint := HintType(raw)
	if hint != TypeObject && hint != TypeArray {
		return Params{}, fmt.Errorf("%w: got %T", ErrInvalidParamsType, v)
	}

	return NewParamsRaw(json.RawMessage(raw)), nil
}

// ProxyEntry is one static row of a [ProxyTable]: a declared call signature
// (method name plus positional parameter count) and how to perform it.
type ProxyEntry struct {
	// Method is the RPC method name to invoke.
	Method string
	// Return classifies the call: ReturnVoid always notifies, ReturnSync and
	// ReturnAsync always send a request and wait for the response (the
	// distinction between them is meaningful to the caller of Invoke, not to the
	// table itself, since both need a round trip here).
	Return ReturnKind
}

// signatureKey identifies a declared call shape: a method name together with its
// positional parameter count, matching how overloads are told apart by [Bind].
type signatureKey struct {
	method string
	arity  int
}

// ProxyTable is the client-side counterpart to the server's [MethodCatalog]: a
// static dispatch table, keyed by declared-signature identity, that packs
// positional arguments into a JSON-RPC call and performs it against a
// [*CorrelatedClient] — the "method-table-driven proxy surface" replacing
// source-language code generation (§4.8).
type ProxyTable struct {
	client  *CorrelatedClient
	entries map[signatureKey]ProxyEntry
}

// NewProxyTable returns an empty table bound to client.
func NewProxyTable(client *CorrelatedClient) *ProxyTable {
	return &ProxyTable{client: client, entries: make(map[signatureKey]ProxyEntry)}
}

// Declare registers method as callable with exactly arity positional arguments,
// with the given return shape. Declare is meant to be called once per known
// signature at table-construction time, mirroring how the server's
// [MethodCatalogBuilder] is populated once at host-construction time.
func (t *ProxyTable) Declare(method string, arity int, ret ReturnKind) {
	t.entries[signatureKey{method: method, arity: arity}] = ProxyEntry{Method: method, Return: ret}
}

// Invoke performs the call declared for method with len(args) positional
// arguments. For [ReturnVoid] it sends a notification and returns (nil, nil) as
// soon as the write completes. For [ReturnSync] and [ReturnAsync] it sends a
// request and blocks for the response, returning the response's Result (unwrapped
// via [Result.Unmarshal] is left to the caller) or an error representing the
// response's Error field.
//
// Invoke returns [ErrNotSupported] if no [ProxyEntry] was declared for method
// with this exact arity.
func (t *ProxyTable) Invoke(ctx context.Context, method string, args []any) (any, error) {
	entry, ok := t.entries[signatureKey{method: method, arity: len(args)}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotSupported, method, len(args))
	}

	params, err := makeParamsFromAny(packPositional(args))
	if err != nil {
		return nil, err
	}

	if entry.Return == ReturnVoid {
		notif := NewNotificationWithParams(method, params)

		return nil, t.client.Notify(ctx, notif)
	}

	req := NewRequestWithParams(t.client.NextID(), method, params)

	resp, err := t.client.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// packPositional returns args unchanged if non-empty, or nil if empty, so that a
// zero-argument call marshals params as omitted rather than as an empty array.
func packPositional(args []any) any {
	if len(args) == 0 {
		return nil
	}

	return args
}
