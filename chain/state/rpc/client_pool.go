package rpc

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/crytic/medusa-geth/rpc"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// maxRetries is the number of attempts made for each call before its error is returned.
const maxRetries = 3

// retryDelay is the base delay between attempts. Attempt n waits n+1 times this duration.
const retryDelay = 100 * time.Millisecond

// ClientPool is a fixed-size set of JSON-RPC clients connected to a single endpoint. Calls are dispatched round
// robin, and identical calls that are in flight at the same time are only sent once.
type ClientPool struct {
	endpoint string

	clients    []*rpc.Client
	nextClient int
	clientLock sync.Mutex

	inflight     map[callKey]*call
	inflightLock sync.Mutex
}

// NewClientPool dials poolSize clients to the provided endpoint.
func NewClientPool(ctx context.Context, endpoint string, poolSize uint) (*ClientPool, error) {
	if poolSize == 0 {
		return nil, errors.Errorf("rpc client pool size must be positive")
	}

	pool := &ClientPool{
		endpoint: endpoint,
		clients:  make([]*rpc.Client, 0, poolSize),
		inflight: make(map[callKey]*call),
	}
	for i := uint(0); i < poolSize; i++ {
		client, err := rpc.DialContext(ctx, endpoint)
		if err != nil {
			pool.Close()
			return nil, errors.Wrapf(err, "could not dial rpc endpoint %s", endpoint)
		}
		pool.clients = append(pool.clients, client)
	}
	return pool, nil
}

// Endpoint returns the URL the pool's clients are connected to.
func (c *ClientPool) Endpoint() string {
	return c.endpoint
}

// ExecuteRequestBlocking executes the call and decodes its result into result, blocking until it completes.
func (c *ClientPool) ExecuteRequestBlocking(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	pending, err := c.ExecuteRequestAsync(ctx, method, args...)
	if err != nil {
		return err
	}
	return pending.GetResultBlocking(result)
}

// ExecuteRequestAsync launches the call in the background and returns a PendingResult for it. If an identical call is
// already in flight, its PendingResult is shared instead.
func (c *ClientPool) ExecuteRequestAsync(ctx context.Context, method string, args ...interface{}) (*PendingResult, error) {
	key, err := newCallKey(method, args)
	if err != nil {
		return nil, err
	}

	c.inflightLock.Lock()
	defer c.inflightLock.Unlock()
	if existing, ok := c.inflight[key]; ok {
		return &PendingResult{call: existing}, nil
	}

	pending := newCall(ctx, method)
	c.inflight[key] = pending
	go c.serve(c.nextRPCClient(), key, pending, args)
	return &PendingResult{call: pending}, nil
}

// nextRPCClient returns the client the next call is dispatched to.
func (c *ClientPool) nextRPCClient() *rpc.Client {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	client := c.clients[c.nextClient]
	c.nextClient = (c.nextClient + 1) % len(c.clients)
	return client
}

// serve performs the call on the client, retrying failed attempts, and completes it.
func (c *ClientPool) serve(client *rpc.Client, key callKey, pending *call, args []interface{}) {
	defer func() {
		c.inflightLock.Lock()
		delete(c.inflight, key)
		c.inflightLock.Unlock()
		close(pending.done)
	}()

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var result json.RawMessage
		if err = client.CallContext(pending.ctx, &result, pending.method, args...); err == nil {
			pending.result = result
			return
		}

		// a done context will not recover
		if pending.ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * retryDelay)
	}
	pending.err = errors.Wrapf(err, "rpc request %s failed", pending.method)
}

// Close closes every client in the pool.
func (c *ClientPool) Close() {
	for _, client := range c.clients {
		client.Close()
	}
}
