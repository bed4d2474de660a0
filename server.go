package jsonrpc2

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ContextKey is used as keys for context values.
type ContextKey int

const (
	// Key for the underlying net.Conn.
	CtxNetConn ContextKey = iota
	// Key for the underlying net.PacketConn.
	CtxNetPacketConn ContextKey = iota
	// Key for the underlying *http.Request.
	CtxHTTPRequest
	// Key for underlying from addr on packet servers.
	CtxFromAddr
	// Key for parent RPCServer.
	CtxRPCServer
	// Key for the per-connection *Session.
	CtxSession

	// Default header read timeout when listening on an http.Server.
	DefaultHTTPReadTimeout = 5
	// Default shutdown timeout when shutting down an http.Server.
	DefaultHTTPShutdownTimeout = 30
)

var ErrUnknownScheme = errors.New("unknown scheme in uri")

// Server allows for listening for new connections and serving them with the given handler.
// Each connection is run in its own [*RPCServer] and go-routine.
//
// For connection oriented servers, the context key of [CtxNetConn] is set with the accepted [net.Conn].
//
// For packet oriented servers, the context key of [CtxFromAddr] is set with the [net.Addr] from which the request was received.
type Server struct {
	handler          Handler
	ConnHook           ConnHook
	NewEncoder       NewEncoderFunc
	NewDecoder       NewDecoderFunc
	NewPacketEncoder NewPacketEncoderFunc
	NewPacketDecoder NewPacketDecoderFunc
	// Read header timeout if serving HTTP
	HTTPReadTimeout time.Duration
	// Graceful shutdown timeout if serving HTTP
	HTTPShutdownTimeout time.Duration
	// Number of go routines to service a packet listener. Defaults to min(runtime.NumCPU(), runtime.GOMAXPROCS())
	PacketRoutines int
}

// NewServer returns a new [*Server] that uses handler as the default [Handler].
func NewServer(handler Handler) *Server {
	var server Server

	server.handler = handler
	server.NewEncoder = NewEncoder
	server.NewDecoder = NewDecoder
	server.NewPacketEncoder = NewPacketEncoder
	server.NewPacketDecoder = NewPacketDecoder
	server.HTTPReadTimeout = time.Duration(DefaultHTTPReadTimeout) * time.Second
	server.HTTPShutdownTimeout = time.Duration(DefaultHTTPShutdownTimeout) * time.Second
	server.PacketRoutines = min(runtime.NumCPU(), runtime.GOMAXPROCS(-1))

	return &server
}

// ListenAndServe will listen on the given uri, serving it until the context is cancelled.
//
// Supported schemes: tcp, tcp4, tcp6, udp, udp4, udp6, unix, unixgram, unixpacket, http
//
// If listenURI is an http url, a [http.Server] will be started to listen on the given address and serve the given path
//
// Examples uris: 'tcp:127.0.0.1:9090', 'udp::9090', 'http://127.0.0.1:8080/rpc', 'unix:///tmp/mysocket'
func (s *Server) ListenAndServe(ctx context.Context, listenURI string) error {
	uri, err := url.Parse(listenURI)

	if err != nil {
		return err
	}

	// 'tcp:127.0.0.1:9090' carries the address after the scheme; 'tcp://127.0.0.1:9090' carries it as the host.
	addr := strings.TrimPrefix(listenURI, uri.Scheme+":")
	if uri.Host != "" {
		addr = uri.Host
	}

	switch uri.Scheme {
	case "tcp", "tcp4", "tcp6":
		return s.listenAndServe(ctx, uri.Scheme, addr)
	case "unix":
		return s.listenAndServe(ctx, uri.Scheme, uri.Path)
	case "udp", "udp4", "udp6":
		return s.listenAndServePacket(ctx, uri.Scheme, addr)
	case "unixgram", "unixpacket":
		return s.listenAndServePacket(ctx, uri.Scheme, uri.Path)
	case "http":
		return s.listenAndServeHTTP(ctx, uri)
	}

	return ErrUnknownScheme
}

// listenAndServe listens on the given network and address, serving connections until its context is cancelled.
//
// It is safe to call listenAndServe multiple times with different listening address.
func (s *Server) listenAndServe(ctx context.Context, network, addr string) error {
	ln, err := net.Listen(network, addr)

	if err != nil {
		return err
	}

	return s.Serve(ctx, ln)
}

// listenAndServePacket listens on the given packet connection, serving requests until its context is cancelled.
//
// It is safe to call listenAndServePacket multiple times with different listening address.
func (s *Server) listenAndServePacket(ctx context.Context, network, addr string) error {
	pc, err := net.ListenPacket(network, addr)

	if err != nil {
		return err
	}

	return s.ServePacket(ctx, pc)
}

// listenAndServeHTTP starts an HTTP server on the given host:port of the uri and serves the given path with handler
//
// It is safe to call listenAndServeHTTP multiple times with different listening address.
func (s *Server) listenAndServeHTTP(ctx context.Context, uri *url.URL) error {
	shutdownCtx, stop := context.WithCancel(ctx)
	defer stop()

	httpMux := http.NewServeMux()

	handler := NewHTTPHandler(s.handler)
	handler.ConnHook = s.ConnHook
	handler.NewDecoder = s.NewDecoder
	handler.NewEncoder = s.NewEncoder

	path := uri.Path
	if path == "" {
		path = "/"
	}

	httpMux.Handle(path, handler)

	httpServer := &http.Server{Addr: uri.Host, Handler: httpMux, ReadHeaderTimeout: s.HTTPReadTimeout}

	// Close listener on shutdown
	go func() {
		<-shutdownCtx.Done()

		sctx, sStop := context.WithTimeout(context.Background(), s.HTTPShutdownTimeout)
		defer sStop()

		//nolint:contextcheck // Shutdown timeout, if we inherit it will already be cancelled
		if err := httpServer.Shutdown(sctx); err != nil {
			// Forcefull
			httpServer.Close()
		}
	}()

	return httpServer.ListenAndServe()
}

// Serve listens on the given listener, serving connections until its context is cancelled.
//
// It is safe to call Serve multiple times with different listeners.
//
// The listener will be closed when the context is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var g errgroup.Group
	defer g.Wait() //nolint:errcheck // join handled via the returned Accept error below

	sctx, stop := context.WithCancel(ctx)
	defer stop()

	// Close listener on context cancel
	context.AfterFunc(sctx, func() { ln.Close() })

	/* Loop while accepting new connections */
	for {
		newConn, err := ln.Accept()
		if err != nil {
			return errors.Join(err, ctx.Err())
		}

		/* Spin up goroutine for the connection */
		g.Go(func() error {
			/* New Connection, create a backend for it */
			rpcServer := NewStreamServer(s.NewDecoder(newConn), s.NewEncoder(newConn), s.handler)

			cctx, nstop := context.WithCancelCause(context.WithValue(context.WithValue(sctx, CtxNetConn, newConn), CtxRPCServer, rpcServer))
			defer nstop(nil)

			if s.ConnHook != nil {
				s.ConnHook.Bind(cctx, rpcServer, nstop)
			}

			/* And run */
			return rpcServer.Run(cctx)
		})
	}
}

// ServePacket serves a listening [net.PacketConn], serving requests until its context is cancelled.
//
// It is safe to call ServePacket multiple times with different listeners.
//
// [ConnHook] is called for each [*RPCServer] spawned to serve the [net.PacketConn].
//
// The listener will be closed when the context is cancelled.
func (s *Server) ServePacket(ctx context.Context, packetConn net.PacketConn) error {
	sctx, stop := context.WithCancelCause(context.WithValue(ctx, CtxNetPacketConn, packetConn))
	defer stop(nil)

	var g errgroup.Group

	for range s.PacketRoutines {
		g.Go(func() error {
			defer stop(nil)

			// Create a new packet server
			rpcServer := NewPacketServer(s.NewPacketDecoder(packetConn), s.NewPacketEncoder(packetConn), s.handler)

			// Add packet server to context
			pctx := context.WithValue(sctx, CtxRPCServer, rpcServer)

			if s.ConnHook != nil {
				s.ConnHook.Bind(pctx, rpcServer, stop)
			}

			// And run it
			return rpcServer.Run(pctx)
		})
	}

	return g.Wait()
}
