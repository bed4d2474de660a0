package jsonrpc2

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Session is the ambient, per-connection state explicitly threaded through a
// request's lifecycle. Unlike a context value, a Session is carried as a plain
// argument on [RequestContext] so that handlers needing it must accept it, rather
// than reach for thread-local-style lookup.
type Session struct {
	// ID uniquely identifies the session for the lifetime of the connection it
	// belongs to, for correlating structured log lines across requests.
	ID uuid.UUID

	mu     sync.RWMutex
	values map[string]any
}

// NewSession returns a freshly tagged [*Session].
func NewSession() *Session {
	return &Session{ID: uuid.New(), values: make(map[string]any)}
}

// Get returns a value previously stored on the session with Set, and whether it
// was present.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]

	return v, ok
}

// Set stores a value on the session, visible to every subsequent request that
// carries this Session.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}

// ServiceFactory creates and releases the receiver instance a [MethodDescriptor]
// bound to a struct method is invoked against, per request, per §4.6. Binding a
// method name to a Go receiver method rather than a free function defers instance
// lifetime to the factory, so stateful or session-scoped services get a fresh (or
// pooled) receiver for every call without the catalog knowing how it is built.
type ServiceFactory interface {
	// New returns an instance to invoke methodName against for this request.
	New(ctx context.Context, sess *Session, methodName string) (any, error)
	// Release is called once the call against the instance returned by New has
	// completed, whether it succeeded or failed.
	Release(ctx context.Context, sess *Session, instance any)
}

// ReflectFactory is a [ServiceFactory] that constructs a fresh zero value
// of a registered Go type for every request, via reflection, and discards it on
// Release. This mirrors the teacher's per-connection [*RPCServer] lifecycle
// (fresh instance per accepted connection) generalized to per-request scope.
type ReflectFactory struct {
	typ reflect.Type
}

// NewReflectFactory returns a [*ReflectFactory] that produces a new instance of
// the given prototype's type on every call to New. prototype is only used to
// derive the type; its value is never read.
func NewReflectFactory(prototype any) *ReflectFactory {
	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return &ReflectFactory{typ: t}
}

// New implements [ServiceFactory].
func (f *ReflectFactory) New(_ context.Context, _ *Session, _ string) (any, error) {
	return reflect.New(f.typ).Interface(), nil
}

// Release implements [ServiceFactory]. ReflectFactory instances are not pooled.
func (f *ReflectFactory) Release(_ context.Context, _ *Session, _ any) {}

// FuncServiceFactory adapts a pair of functions to the [ServiceFactory] interface.
type FuncServiceFactory struct {
	NewFunc     func(ctx context.Context, sess *Session, methodName string) (any, error)
	ReleaseFunc func(ctx context.Context, sess *Session, instance any)
}

// New implements [ServiceFactory].
func (f *FuncServiceFactory) New(ctx context.Context, sess *Session, methodName string) (any, error) {
	return f.NewFunc(ctx, sess, methodName)
}

// Release implements [ServiceFactory].
func (f *FuncServiceFactory) Release(ctx context.Context, sess *Session, instance any) {
	if f.ReleaseFunc != nil {
		f.ReleaseFunc(ctx, sess, instance)
	}
}
