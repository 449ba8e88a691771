package types

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorageFetch(addr byte, index uint64, value uint64) *StorageFetch {
	return &StorageFetch{
		Address: common.Address{addr},
		Index:   *uint256.NewInt(index),
		Value:   *uint256.NewInt(value),
	}
}

// TestFetchChannelOrdering verifies notifications are received in the order they were sent.
func TestFetchChannelOrdering(t *testing.T) {
	sender, receiver := NewFetchChannel()

	for i := uint64(0); i < 100; i++ {
		require.NoError(t, sender.Send(newStorageFetch(0x01, i, i*2)))
	}
	assert.Equal(t, 100, receiver.Len())

	ctx := context.Background()
	for i := uint64(0); i < 100; i++ {
		fetch, err := receiver.Recv(ctx)
		require.NoError(t, err)
		storageFetch, ok := fetch.(*StorageFetch)
		require.True(t, ok)
		assert.EqualValues(t, i, storageFetch.Index.Uint64())
		assert.EqualValues(t, i*2, storageFetch.Value.Uint64())
	}

	_, ok := receiver.TryRecv()
	assert.False(t, ok)
}

// TestFetchChannelReceiverClosed verifies sends never fail loudly once the receiver is gone.
func TestFetchChannelReceiverClosed(t *testing.T) {
	sender, receiver := NewFetchChannel()
	require.NoError(t, sender.Send(newStorageFetch(0x01, 1, 1)))

	receiver.Close()
	assert.True(t, sender.IsReceiverClosed())
	assert.ErrorIs(t, sender.Send(newStorageFetch(0x01, 2, 2)), ErrFetchReceiverClosed)
	assert.Equal(t, 0, receiver.Len())
}

// TestFetchChannelSendersClosed verifies the receiver drains queued notifications before reporting closure.
func TestFetchChannelSendersClosed(t *testing.T) {
	sender, receiver := NewFetchChannel()
	clone := sender.Clone()

	require.NoError(t, sender.Send(newStorageFetch(0x01, 1, 1)))
	sender.Close()
	sender.Close()
	assert.ErrorIs(t, sender.Send(newStorageFetch(0x01, 2, 2)), ErrFetchSenderClosed)

	require.NoError(t, clone.Send(newStorageFetch(0x02, 3, 3)))
	clone.Close()

	ctx := context.Background()
	fetch, err := receiver.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.Address{0x01}, fetch.FetchAddress())

	fetch, err = receiver.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, common.Address{0x02}, fetch.FetchAddress())

	_, err = receiver.Recv(ctx)
	assert.ErrorIs(t, err, ErrFetchChannelClosed)
}

// TestFetchChannelRecvCancelled verifies a blocked Recv returns once its context is cancelled.
func TestFetchChannelRecvCancelled(t *testing.T) {
	_, receiver := NewFetchChannel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := receiver.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestFetchChannelRace sends from many producers while a single consumer receives, checking nothing is lost.
func TestFetchChannelRace(t *testing.T) {
	sender, receiver := NewFetchChannel()
	producers := 10
	sendsPerProducer := 1_000

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		producer := sender.Clone()
		go func(id byte) {
			defer wg.Done()
			defer producer.Close()
			for i := 0; i < sendsPerProducer; i++ {
				assert.NoError(t, producer.Send(newStorageFetch(id, uint64(i), 0)))
			}
		}(byte(p))
	}
	sender.Close()

	received := 0
	ctx := context.Background()
	for {
		_, err := receiver.Recv(ctx)
		if err != nil {
			assert.ErrorIs(t, err, ErrFetchChannelClosed)
			break
		}
		received++
	}
	wg.Wait()
	assert.Equal(t, producers*sendsPerProducer, received)
}

// TestFetchChannelDrain verifies Drain empties the queue in order without blocking.
func TestFetchChannelDrain(t *testing.T) {
	sender, receiver := NewFetchChannel()
	assert.Empty(t, receiver.Drain())

	require.NoError(t, sender.Send(&BasicFetch{Address: common.Address{0xaa}}))
	require.NoError(t, sender.Send(newStorageFetch(0xbb, 0, 0)))

	fetches := receiver.Drain()
	require.Len(t, fetches, 2)
	assert.IsType(t, &BasicFetch{}, fetches[0])
	assert.IsType(t, &StorageFetch{}, fetches[1])
	assert.Equal(t, 0, receiver.Len())
}
