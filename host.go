package jsonrpc2

import (
	"context"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// HostConfig carries the options a [HostBuilder] applies when it builds a
// [*Host], following the teacher's convention of plain Go structs rather than an
// external config file format (§6, §10.3).
type HostConfig struct {
	// MaxMessageBytes bounds a single framed message's Content-Length on stream
	// transports. Zero selects [DefaultMaxMessageBytes].
	MaxMessageBytes int64
	// PropagateHandlerExceptionDetail includes a recovered handler panic's value
	// in the InternalError response's Data field. When false (the default), the
	// panic is logged but the response carries no detail about it, matching the
	// teacher's [DefaultOnHandlerPanic] logging-only behavior.
	PropagateHandlerExceptionDetail bool
	// PreserveForeignMethodOrder disables per-request concurrency when true: each
	// incoming message (and each member of a batch) is dispatched and completed
	// before the next is started, rather than fanned out across goroutines. This
	// is the single-flight processing option referenced by §5; it is wired onto
	// the teacher's existing [RPCServer.NoRoutines]/[RPCServer.SerialBatch] knobs
	// rather than reimplemented.
	PreserveForeignMethodOrder bool
}

// ClientConfig carries the options [Connect] applies to the [*CorrelatedClient]
// it returns, mirroring [HostConfig] on the client side per §10.3.
type ClientConfig struct {
	// MaxMessageBytes bounds a single framed message's Content-Length. Zero
	// selects [DefaultMaxMessageBytes].
	MaxMessageBytes int64
	// DefaultCallTimeout is applied by [CorrelatedClient.Call] to calls whose
	// context carries no deadline of its own. Zero disables the default.
	DefaultCallTimeout time.Duration
}

// HostBuilder accumulates method registrations and interceptors before
// producing an immutable [*Host], implementing the "register/intercept/build"
// embedding surface of §6.
type HostBuilder struct {
	catalog      *MethodCatalogBuilder
	factory      ServiceFactory
	interceptors []Interceptor
	config       HostConfig
}

// NewHostBuilder returns an empty builder using config.
func NewHostBuilder(config HostConfig) *HostBuilder {
	return &HostBuilder{catalog: NewMethodCatalogBuilder(), config: config}
}

// Register adds every method in svc to the host-to-be's method catalog. See
// [MethodCatalogBuilder.Register].
func (b *HostBuilder) Register(svc ServiceDescriptor) error {
	return b.catalog.Register(svc)
}

// SetFactory configures the [ServiceFactory] used to resolve struct-bound
// methods. If never called, no factory is set: registration and build succeed,
// and a struct-bound method fails with an internal error when it is called.
func (b *HostBuilder) SetFactory(f ServiceFactory) *HostBuilder {
	b.factory = f

	return b
}

// Intercept appends ic to the dispatch chain run around every call, in
// registration order (the first Intercept call runs outermost).
func (b *HostBuilder) Intercept(ic Interceptor) *HostBuilder {
	b.interceptors = append(b.interceptors, ic)

	return b
}

// InterceptFunc appends a [SyncInterceptorFunc], adapted via [AsInterceptor], to
// the dispatch chain.
func (b *HostBuilder) InterceptFunc(f SyncInterceptorFunc) *HostBuilder {
	return b.Intercept(AsInterceptor(f))
}

// Build finalizes the method catalog and returns an immutable [*Host]. It fails
// with [ErrAmbiguousOverload] if any registered overload set cannot be
// deterministically disambiguated (§4.3).
func (b *HostBuilder) Build() (*Host, error) {
	catalog, err := b.catalog.Build()
	if err != nil {
		return nil, err
	}

	handler := NewCatalogHandler(catalog, b.factory, b.interceptors)

	return &Host{handler: handler, config: b.config}, nil
}

// Host is the immutable, runnable result of a [HostBuilder]. It wraps a
// [*CatalogHandler] and exposes the same listen/serve surface as [*Server],
// layered on top of the teacher's [RPCServer]/[Server] connection machinery.
type Host struct {
	handler *CatalogHandler
	config  HostConfig

	serving errgroup.Group
	cancel  context.CancelFunc
}

// Handler returns the [*CatalogHandler] this host dispatches through, for
// embedding into a [*Server] constructed outside of [Host.Serve].
func (h *Host) Handler() *CatalogHandler {
	return h.handler
}

// ServeConn runs a single framed-stream connection against this host until ctx
// is canceled or the connection is lost, using [FrameReader]/[FrameWriter] for
// §4.1 Content-Length envelope framing.
func (h *Host) ServeConn(ctx context.Context, rw io.ReadWriter) error {
	fr := NewFrameReader(rw)
	if h.config.MaxMessageBytes > 0 {
		fr.SetMaxMessageBytes(h.config.MaxMessageBytes)
	}

	fw := NewFrameWriter(rw)

	sess := NewSession()
	sctx := context.WithValue(ctx, CtxSession, sess)

	rpcServer := NewStreamServer(fr, fw, h.handler)
	rpcServer.NoRoutines = h.config.PreserveForeignMethodOrder
	rpcServer.SerialBatch = h.config.PreserveForeignMethodOrder
	rpcServer.PropagatePanicDetail = h.config.PropagateHandlerExceptionDetail

	return rpcServer.Run(sctx)
}

// Serve listens on ln, running each accepted connection through
// [Host.ServeConn], until ctx is canceled.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	sctx, stop := context.WithCancel(ctx)
	h.cancel = stop

	defer stop()

	context.AfterFunc(sctx, func() { ln.Close() })

	for {
		conn, err := ln.Accept()
		if err != nil {
			werr := h.serving.Wait()

			if sctx.Err() != nil {
				return werr
			}

			return err
		}

		h.serving.Go(func() error {
			defer conn.Close()

			err := h.ServeConn(sctx, conn)
			if sctx.Err() != nil {
				// The connection was ended by Stop or by cancellation of ctx.
				return nil
			}

			return err
		})
	}
}

// Stop cancels every connection started by [Host.Serve] and waits up to grace
// for them to drain before returning. A grace of zero waits indefinitely.
func (h *Host) Stop(grace time.Duration) error {
	if h.cancel != nil {
		h.cancel()
	}

	if grace <= 0 {
		return h.serving.Wait()
	}

	done := make(chan error, 1)

	go func() { done <- h.serving.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		return nil
	}
}

// Connect dials a framed-stream transport over rw and returns a [*CorrelatedClient]
// ready for concurrent calls, implementing the "connect(in_stream, out_stream)"
// surface of §6. config.DefaultCallTimeout is applied to every call made through
// the returned client whose own context carries no deadline.
func Connect(ctx context.Context, rw io.ReadWriter, config ClientConfig) *CorrelatedClient {
	fr := NewFrameReader(rw)
	if config.MaxMessageBytes > 0 {
		fr.SetMaxMessageBytes(config.MaxMessageBytes)
	}

	fw := NewFrameWriter(rw)

	return NewCorrelatedClient(ctx, fw, fr, config.DefaultCallTimeout)
}
