package jsonrpc2

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrConnectionClosed is returned to every pending call when the owning
// [*CorrelatedClient]'s read loop exits, whether because the transport closed or
// because the client was explicitly closed.
var ErrConnectionClosed = errors.New("jsonrpc2: connection closed")

// ErrDuplicateRequestID is returned by [CorrelationRegister.Register] when the
// given id is already associated with a pending call.
var ErrDuplicateRequestID = errors.New("jsonrpc2: request id already in flight")

// ErrCallTimeout is the §7 Timeout error kind: a call's slot expired before a
// response arrived, whether from the call's own deadline or from
// [ClientConfig.DefaultCallTimeout] applied by [CorrelatedClient.Call]. It wraps
// the triggering [context.DeadlineExceeded] so callers can still unwrap to it.
var ErrCallTimeout = errors.New("jsonrpc2: call timed out waiting for response")

// slot is a single-shot completion for one in-flight request, delivered to by the
// read loop exactly once: either with a decoded response or with an error.
type slot struct {
	done chan struct{}
	resp *Response
	err  error
}

// CorrelationRegister demultiplexes inbound responses by [ID] to the slot waiting
// on them, implementing §4.7's correlation requirement: ids must be unique among
// calls currently in flight, and a response for an id not currently registered
// (a duplicate, a stale retry, or one arriving after the caller gave up) is
// discarded rather than delivered anywhere.
type CorrelationRegister struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewCorrelationRegister returns an empty register.
func NewCorrelationRegister() *CorrelationRegister {
	return &CorrelationRegister{slots: make(map[string]*slot)}
}

// idKey returns a canonical map key for id that distinguishes its JSON type, so
// the string "1" and the number 1 never collide.
// Integer ids are keyed by value, so an int64 id built locally and the same id
// decoded from the wire as a json.Number share one key.
func idKey(id ID) string {
	if n, err := id.Int64(); err == nil {
		return fmt.Sprintf("number:%d", n)
	}

	return fmt.Sprintf("%T:%v", id.Value(), id.Value())
}

// Register reserves id for an in-flight call and returns the slot to wait on.
// It returns [ErrDuplicateRequestID] if id is already registered.
func (r *CorrelationRegister) Register(id ID) (*slot, error) {
	key := idKey(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRequestID, key)
	}

	s := &slot{done: make(chan struct{})}
	r.slots[key] = s

	return s, nil
}

// Cancel removes id's slot without delivering to it, used when a caller gives up
// waiting (context cancellation/timeout). A response that arrives for id after
// Cancel is called finds no slot and is silently discarded, per §4.7.
func (r *CorrelationRegister) Cancel(id ID) {
	key := idKey(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.slots, key)
}

// Deliver routes resp to the slot registered under resp.ID, if any. It reports
// whether a slot was found; a false return means the response was discarded.
func (r *CorrelationRegister) Deliver(resp *Response) bool {
	key := idKey(resp.ID)

	r.mu.Lock()
	s, ok := r.slots[key]

	if ok {
		delete(r.slots, key)
	}

	r.mu.Unlock()

	if !ok {
		return false
	}

	s.resp = resp

	close(s.done)

	return true
}

// Broadcast delivers err to every currently pending slot and clears the register.
// Used when the underlying transport fails: every outstanding call must be woken
// rather than hang forever waiting for a response that will never arrive.
func (r *CorrelationRegister) Broadcast(err error) {
	r.mu.Lock()
	pending := r.slots
	r.slots = make(map[string]*slot)
	r.mu.Unlock()

	for _, s := range pending {
		s.err = err

		close(s.done)
	}
}

// Wait blocks until resp is delivered into s, ctx is done, or the register is
// closed by a Broadcast, whichever happens first. On context cancellation, s is
// removed from the register before returning so a late response is discarded.
func (r *CorrelationRegister) Wait(ctx context.Context, id ID, s *slot) (*Response, error) {
	select {
	case <-s.done:
		return s.resp, s.err
	case <-ctx.Done():
		r.Cancel(id)

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrCallTimeout, ctx.Err())
		}

		return nil, ctx.Err()
	}
}

// CorrelatedClient is the invoker for a single connection that supports multiple
// concurrent in-flight requests, per §4.7. Unlike a lockstep client that holds a
// mutex across the full encode-then-decode cycle and so can only have one call in
// flight at a time, CorrelatedClient writes are serialized but reads run in a
// dedicated background loop that demultiplexes inbound frames by [ID] into a
// [*CorrelationRegister], so N callers can each be blocked on their own response
// concurrently.
type CorrelatedClient struct {
	e Encoder
	d Decoder

	writeMu        sync.Mutex
	reg            *CorrelationRegister
	nextID         idAllocator
	defaultTimeout time.Duration

	readDone chan struct{}
	readErr  error
}

// idAllocator issues increasing ids starting at 1, so an id is not reused while
// its call is outstanding (§4.7).
type idAllocator struct {
	mu   sync.Mutex
	next int64
}

func (a *idAllocator) next64() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next++

	return a.next
}

// NewCorrelatedClient starts a [*CorrelatedClient] over e/d, launching its
// background read loop immediately. The read loop runs until d.Decode returns an
// error or ctx is done, at which point every pending call is woken with that
// error via [CorrelationRegister.Broadcast].
//
// defaultTimeout is applied by [CorrelatedClient.Call] to calls whose context
// carries no deadline of its own; zero disables the default, matching
// [ClientConfig.DefaultCallTimeout] (§6).
func NewCorrelatedClient(ctx context.Context, e Encoder, d Decoder, defaultTimeout time.Duration) *CorrelatedClient {
	c := &CorrelatedClient{
		e:              e,
		d:              d,
		reg:            NewCorrelationRegister(),
		defaultTimeout: defaultTimeout,
		readDone:       make(chan struct{}),
	}

	go c.readLoop(ctx)

	return c
}

// readLoop continuously decodes frames from c.d and routes each to its
// registered slot via the correlation register. It is the sole reader of the
// connection for the lifetime of the client.
func (c *CorrelatedClient) readLoop(ctx context.Context) {
	defer close(c.readDone)

	for {
		var resp Response

		if err := c.d.Decode(ctx, &resp); err != nil {
			c.readErr = err
			c.reg.Broadcast(fmt.Errorf("%w: %w", ErrConnectionClosed, err))

			return
		}

		c.reg.Deliver(&resp)
	}
}

// Call sends r and blocks until its matching response is delivered by the read
// loop, ctx is done, or the connection closes. If ctx carries no deadline and
// c.defaultTimeout is nonzero, the call is bounded by that default.
func (c *CorrelatedClient) Call(ctx context.Context, r *Request) (*Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	s, err := c.reg.Register(r.ID)
	if err != nil {
		return nil, err
	}

	c.writeMu.Lock()
	err = c.e.Encode(ctx, r)
	c.writeMu.Unlock()

	if err != nil {
		c.reg.Cancel(r.ID)
		return nil, err
	}

	return c.reg.Wait(ctx, r.ID, s)
}

// Notify sends n and returns as soon as the write completes; no response is
// expected.
func (c *CorrelatedClient) Notify(ctx context.Context, n *Notification) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.e.Encode(ctx, n)
}

// NextID returns the next request id to use, unique among calls currently
// registered on this client.
func (c *CorrelatedClient) NextID() int64 {
	return c.nextID.next64()
}

// Close closes the underlying transport and waits for the read loop to exit.
func (c *CorrelatedClient) Close() error {
	var err error

	if ec, ok := c.e.(interface{ Close() error }); ok {
		err = ec.Close()
	}

	if dc, ok := c.d.(interface{ Close() error }); ok {
		err = errors.Join(err, dc.Close())
	}

	<-c.readDone

	return err
}
