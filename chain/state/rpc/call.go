package rpc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// call is a JSON-RPC call being served by one of the pool's clients. Identical calls issued while it is in flight
// share it rather than reaching the endpoint again.
type call struct {
	ctx    context.Context
	method string

	// done is closed once result or err is set.
	done   chan struct{}
	result json.RawMessage
	err    error
}

func newCall(ctx context.Context, method string) *call {
	return &call{
		ctx:    ctx,
		method: method,
		done:   make(chan struct{}),
	}
}

// callKey identifies a call by its method and JSON-encoded arguments.
type callKey struct {
	method string
	args   string
}

func newCallKey(method string, args []interface{}) (callKey, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return callKey{}, errors.Wrapf(err, "could not encode the arguments of %s", method)
	}
	return callKey{method: method, args: string(encoded)}, nil
}

// PendingResult is the eventual result of a call launched through ClientPool.ExecuteRequestAsync.
type PendingResult struct {
	call *call
}

/*
GetResultBlocking waits for the call to complete and decodes its result into result, which must be a pointer. If the
context the call was launched with is done first, the context error is returned instead.
*/
func (p *PendingResult) GetResultBlocking(result interface{}) error {
	select {
	case <-p.call.done:
	case <-p.call.ctx.Done():
		return p.call.ctx.Err()
	}

	if p.call.err != nil {
		return p.call.err
	}
	if err := json.Unmarshal(p.call.result, result); err != nil {
		return errors.Wrapf(err, "could not decode the result of %s", p.call.method)
	}
	return nil
}
