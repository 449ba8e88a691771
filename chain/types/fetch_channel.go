package types

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrFetchReceiverClosed is returned by FetchSender.Send when the receiving end of the channel has been closed.
	ErrFetchReceiverClosed = errors.New("fetch receiver has been closed")

	// ErrFetchSenderClosed is returned by FetchSender.Send when the sender handle itself has been closed.
	ErrFetchSenderClosed = errors.New("fetch sender has been closed")

	// ErrFetchChannelClosed is returned by FetchReceiver.Recv once every sender has been closed and all queued
	// notifications have been received.
	ErrFetchChannelClosed = errors.New("fetch channel has been closed")
)

// fetchChannel is the unbounded queue shared by all FetchSender handles and the single FetchReceiver of a channel.
type fetchChannel struct {
	lock  sync.Mutex
	queue []Fetch

	// notify holds at most one pending wake-up for a receiver blocked in Recv.
	notify chan struct{}

	senders        int
	receiverClosed bool
}

// FetchSender is the sending half of an unbounded fetch notification channel. Sends never block. Multiple senders
// may be obtained with Clone, and each must be closed independently.
type FetchSender struct {
	channel *fetchChannel
	closed  bool
}

// FetchReceiver is the receiving half of an unbounded fetch notification channel. It is intended to be used by a
// single consumer.
type FetchReceiver struct {
	channel *fetchChannel
}

var _ FetchSink = (*FetchSender)(nil)

// NewFetchChannel creates an unbounded channel for Fetch notifications and returns its sending and receiving halves.
func NewFetchChannel() (*FetchSender, *FetchReceiver) {
	channel := &fetchChannel{
		notify:  make(chan struct{}, 1),
		senders: 1,
	}
	return &FetchSender{channel: channel}, &FetchReceiver{channel: channel}
}

// wake signals a receiver blocked in Recv, if any, without blocking.
func (c *fetchChannel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Send enqueues the provided notification. If the receiver has been closed the notification is discarded and
// ErrFetchReceiverClosed is returned.
func (s *FetchSender) Send(fetch Fetch) error {
	c := s.channel
	c.lock.Lock()
	if s.closed {
		c.lock.Unlock()
		return ErrFetchSenderClosed
	}
	if c.receiverClosed {
		c.lock.Unlock()
		return ErrFetchReceiverClosed
	}
	c.queue = append(c.queue, fetch)
	c.lock.Unlock()

	c.wake()
	return nil
}

// Clone creates an additional sender for the same channel.
func (s *FetchSender) Clone() *FetchSender {
	c := s.channel
	c.lock.Lock()
	defer c.lock.Unlock()
	c.senders++
	return &FetchSender{channel: c}
}

// Close releases this sender. Once every sender is closed, the receiver observes ErrFetchChannelClosed after draining
// the queued notifications. Closing a sender more than once has no effect.
func (s *FetchSender) Close() {
	c := s.channel
	c.lock.Lock()
	if s.closed {
		c.lock.Unlock()
		return
	}
	s.closed = true
	c.senders--
	c.lock.Unlock()

	c.wake()
}

// IsReceiverClosed indicates whether the receiving half of the channel has been closed.
func (s *FetchSender) IsReceiverClosed() bool {
	s.channel.lock.Lock()
	defer s.channel.lock.Unlock()
	return s.channel.receiverClosed
}

// pop removes the oldest queued notification. The lock must be held by the caller.
func (c *fetchChannel) pop() (Fetch, bool) {
	if len(c.queue) == 0 {
		return nil, false
	}
	fetch := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	return fetch, true
}

// Recv blocks until a notification is available, the context is cancelled, or every sender has been closed and the
// queue is empty, in which case ErrFetchChannelClosed is returned.
func (r *FetchReceiver) Recv(ctx context.Context) (Fetch, error) {
	c := r.channel
	for {
		c.lock.Lock()
		if fetch, ok := c.pop(); ok {
			c.lock.Unlock()
			return fetch, nil
		}
		if c.senders <= 0 || c.receiverClosed {
			c.lock.Unlock()
			return nil, ErrFetchChannelClosed
		}
		c.lock.Unlock()

		select {
		case <-c.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryRecv returns the oldest queued notification without blocking. The boolean is false if the queue is empty.
func (r *FetchReceiver) TryRecv() (Fetch, bool) {
	c := r.channel
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pop()
}

// Drain removes and returns every queued notification without blocking.
func (r *FetchReceiver) Drain() []Fetch {
	c := r.channel
	c.lock.Lock()
	defer c.lock.Unlock()
	fetches := c.queue
	c.queue = nil
	return fetches
}

// Len returns the number of queued notifications.
func (r *FetchReceiver) Len() int {
	c := r.channel
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.queue)
}

// Close drops the receiver. Queued notifications are discarded and subsequent sends fail with
// ErrFetchReceiverClosed.
func (r *FetchReceiver) Close() {
	c := r.channel
	c.lock.Lock()
	c.receiverClosed = true
	c.queue = nil
	c.lock.Unlock()

	c.wake()
}
