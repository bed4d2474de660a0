package jsonrpc2

import (
	"context"
)

// ConnHook is used to configure a [*RPCServer] before it has started.
// It is called whenever a new [*RPCServer] is created.
//
// The cancel function may be used to stop the current [*RPCServer].
type ConnHook interface {
	// Called on new connections or new http requests
	Bind(context.Context, *RPCServer, context.CancelCauseFunc)
}

// NewFuncConnHook returns a [ConnHook] runs the given function on bind.
//
//nolint:ireturn //Helper function
func NewFuncConnHook(binder func(context.Context, *RPCServer, context.CancelCauseFunc)) ConnHook {
	return &funcConnHook{funcBind: binder}
}

// funcConnHook is used to wrap a function into a [ConnHook].
type funcConnHook struct {
	funcBind func(context.Context, *RPCServer, context.CancelCauseFunc)
}

// Handle implements [ConnHook].
func (fh *funcConnHook) Bind(ctx context.Context, rpc *RPCServer, stop context.CancelCauseFunc) {
	fh.funcBind(ctx, rpc, stop)
}
